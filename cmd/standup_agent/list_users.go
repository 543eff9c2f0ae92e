package main

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var listUsersCmd = &cobra.Command{
	Use:   "list-users",
	Short: "List distinct posters in the channel with message counts",
	Long:  "Scan the channel history and list each distinct poster with their message count, most active first. Useful for finding user IDs to pass to run --user.",
	RunE:  runListUsers,
}

var listUsersLimit int

func init() {
	listUsersCmd.Flags().IntVarP(&listUsersLimit, "limit", "l", 0, "Maximum number of messages to scan (0 uses MAX_MESSAGES)")

	rootCmd.AddCommand(listUsersCmd)
}

func runListUsers(_ *cobra.Command, _ []string) error {
	settings, logger, err := loadSettings()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	scraper, err := newScraper(settings, logger)
	if err != nil {
		return err
	}

	activity, err := scraper.ListUserActivity(context.Background(), listUsersLimit)
	if err != nil {
		return fmt.Errorf("failed to list users: %w", err)
	}
	if len(activity) == 0 {
		fmt.Fprintln(os.Stdout, "No user messages found in channel.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "USER ID\tNAME\tMESSAGES")
	for _, a := range activity {
		fmt.Fprintf(w, "%s\t%s\t%d\n", a.User.ID, a.User.DisplayName, a.MessageCount)
	}
	return w.Flush()
}
