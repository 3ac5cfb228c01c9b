package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/clauseworks/clausegraph/answer"
	"github.com/clauseworks/clausegraph/contract"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	dimStyle   = lipgloss.NewStyle().Faint(true)

	highStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	mediumStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11"))
	lowStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))

	boxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)
)

func riskStyle(level contract.RiskLevel) lipgloss.Style {
	switch level {
	case contract.RiskHigh:
		return highStyle
	case contract.RiskMedium:
		return mediumStyle
	default:
		return lowStyle
	}
}

func renderRecordSummary(rec *contract.Record) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s\n", titleStyle.Render(rec.Title), dimStyle.Render("("+rec.ContractID+")"))
	fmt.Fprintf(&b, "Risk: %s (score %.0f)\n", riskStyle(rec.RiskLevel).Render(string(rec.RiskLevel)), rec.RiskScore)

	if rec.ContractValue != "" {
		fmt.Fprintf(&b, "Value: %s", rec.ContractValue)
		if rec.EndDate != "" {
			fmt.Fprintf(&b, "   Ends: %s", rec.EndDate)
		}
		b.WriteString("\n")
	}

	for _, flag := range rec.RiskFlags {
		fmt.Fprintf(&b, "  ! %s\n", flag)
	}
	for _, issue := range rec.ComplianceIssues {
		fmt.Fprintf(&b, "  - %s\n", issue)
	}

	if n := len(rec.ExtractedObligations); n > 0 {
		fmt.Fprintf(&b, "%s\n", dimStyle.Render(fmt.Sprintf("%d obligation(s) tracked", n)))
	}
	if n := len(rec.ClassifiedClauses); n > 0 {
		fmt.Fprintf(&b, "%s\n", dimStyle.Render(fmt.Sprintf("%d clause(s) classified", n)))
	}

	return boxStyle.Render(strings.TrimRight(b.String(), "\n"))
}

func renderAnswer(ans *answer.Answer) string {
	var b strings.Builder
	b.WriteString(ans.Text)

	if len(ans.Citations) > 0 {
		b.WriteString("\n\n" + dimStyle.Render("Sources:"))
		for _, c := range ans.Citations {
			b.WriteString("\n" + dimStyle.Render(fmt.Sprintf("  [%s] %s", c.ContractID, c.Title)))
		}
	}
	return b.String()
}
