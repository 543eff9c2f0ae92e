// Package main provides the entry point for the standup scraper CLI.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "standup_agent",
	Short: "Slack standup channel scraper",
	Long:  "Standup agent scrapes a Slack channel's message history, extracts progress and next steps from each message via Gemini, and writes a structured run report.",
}

func main() {
	// Load .env file if it exists
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
