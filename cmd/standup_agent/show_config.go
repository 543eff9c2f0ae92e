package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/jonathan/standup-scraper/internal/config"
)

var showConfigCmd = &cobra.Command{
	Use:   "show-config",
	Short: "Print the effective configuration with secrets redacted",
	RunE:  runShowConfig,
}

func init() {
	rootCmd.AddCommand(showConfigCmd)
}

func runShowConfig(_ *cobra.Command, _ []string) error {
	settings, err := config.FromEnv()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, pair := range settings.Redacted() {
		fmt.Fprintf(w, "%s\t%s\n", pair[0], pair[1])
	}
	return w.Flush()
}
