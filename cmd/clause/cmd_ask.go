package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>...",
	Short: "Ask a question over the analyzed portfolio",
	Long: `Ask embeds the question, retrieves the most similar analyzed
documents for the tenant, reconciles them against the record store,
and answers grounded on the surviving evidence.

Usage:
  clause ask --tenant=acme "which contracts carry indemnity risk?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func runAsk(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	if rootFlags.redisAddr == "" {
		if err := a.rebuildIndex(ctx); err != nil {
			return err
		}
	}

	question := strings.Join(args, " ")
	ans, err := a.engine.AskQuestion(ctx, rootFlags.tenant, question)
	if err != nil {
		return err
	}
	a.engine.WaitCleanup()

	fmt.Println(renderAnswer(ans))
	return nil
}
