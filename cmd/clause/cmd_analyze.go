package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/clauseworks/clausegraph/engine"
	"github.com/clauseworks/clausegraph/ingest"
)

var analyzeFlags struct {
	title      string
	contractID string
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze <file>...",
	Short: "Analyze contract documents and store the results",
	Long: `Analyze extracts text from each document (PDF, HTML, Markdown, or
plain text), runs the staged analysis pipeline, persists the record,
and indexes the document for retrieval.

Usage:
  clause analyze --tenant=acme contract.pdf
  clause analyze --tenant=acme *.pdf`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAnalyze,
}

func init() {
	f := analyzeCmd.Flags()
	f.StringVar(&analyzeFlags.title, "title", "", "Document title (default: file name, single file only)")
	f.StringVar(&analyzeFlags.contractID, "contract-id", "", "Re-analyze an existing contract (single file only)")
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	if len(args) > 1 && (analyzeFlags.title != "" || analyzeFlags.contractID != "") {
		return fmt.Errorf("--title and --contract-id only apply to a single file")
	}

	a, err := buildApp()
	if err != nil {
		return err
	}
	defer a.close()

	ctx := cmd.Context()
	reqs := make([]engine.AnalyzeRequest, 0, len(args))
	for _, path := range args {
		req, err := requestForFile(ctx, path)
		if err != nil {
			return err
		}
		reqs = append(reqs, req)
	}

	records, err := a.engine.AnalyzeBatch(ctx, reqs)
	if err != nil {
		return err
	}

	for _, rec := range records {
		fmt.Println(renderRecordSummary(rec))
	}
	return nil
}

func requestForFile(ctx context.Context, path string) (engine.AnalyzeRequest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return engine.AnalyzeRequest{}, err
	}

	var text string
	if format, ok := formatForFile(path); ok {
		text, err = ingest.ExtractAs(ctx, data, format)
	} else {
		text, err = ingest.Extract(ctx, data)
	}
	if err != nil {
		return engine.AnalyzeRequest{}, fmt.Errorf("%s: %w", path, err)
	}

	title := analyzeFlags.title
	if title == "" {
		title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	return engine.AnalyzeRequest{
		ContractID: analyzeFlags.contractID,
		TenantID:   rootFlags.tenant,
		Title:      title,
		Text:       text,
	}, nil
}
