// Package main provides the entry point for the insightsearch CLI.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for insightsearch.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "insightsearch",
		Short: "Relevance-guided web research crawler",
		Long: `insightsearch crawls the web outward from search results, keeping only
pages an LLM judges relevant to your query. Relevant pages are stored in
Postgres, their URLs collected in a spreadsheet, and a JSON overview of
the run is kept up to date throughout.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(NewCrawlCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
