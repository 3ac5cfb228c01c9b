// Command clause analyzes contract documents and answers questions over
// the analyzed portfolio.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootCmd = &cobra.Command{
	Use:   "clause",
	Short: "Contract analysis and portfolio Q&A",
	Long: "Clause runs a staged AI analysis over contract documents (clause\n" +
		"extraction, compliance audit, risk scoring, negotiation strategy,\n" +
		"obligations, clause classification) and answers questions grounded\n" +
		"on the analyzed portfolio.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

var rootFlags struct {
	tenant    string
	dbPath    string
	redisAddr string
	chatModel string
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.tenant, "tenant", "", "Tenant id owning the documents (required)")
	pf.StringVar(&rootFlags.dbPath, "db", "clause.db", "SQLite database path")
	pf.StringVar(&rootFlags.redisAddr, "redis-addr", "", "Redis address for a persistent vector index (default: in-process index)")
	pf.StringVar(&rootFlags.chatModel, "model", "", "Chat model override")

	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(askCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
