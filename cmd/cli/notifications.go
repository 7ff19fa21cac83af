package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dvloznov/finance-ingest/internal/app"
	"github.com/dvloznov/finance-ingest/internal/cli"
)

var (
	flagNotificationLimit int
	flagMarkRead          []string
)

var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Show the notification feed",
	Args:  cobra.NoArgs,
	RunE:  withApp(runNotifications),
}

func init() {
	notificationsCmd.Flags().IntVarP(&flagNotificationLimit, "limit", "n", 20, "Number of notifications to show")
	notificationsCmd.Flags().StringSliceVar(&flagMarkRead, "mark-read", nil, "Mark notifications read by id")
	rootCmd.AddCommand(notificationsCmd)
}

func runNotifications(ctx context.Context, a *app.App, _ []string) error {
	for _, id := range flagMarkRead {
		if err := a.DB.Notifications().MarkRead(ctx, id); err != nil {
			return fmt.Errorf("marking %s read: %w", id, err)
		}
	}
	if len(flagMarkRead) > 0 {
		fmt.Printf("Marked %d notification(s) read\n", len(flagMarkRead))
		return nil
	}

	items, err := a.DB.Notifications().ListRecent(ctx, flagNotificationLimit)
	if err != nil {
		return err
	}
	if len(items) == 0 {
		fmt.Println("No notifications.")
		return nil
	}

	t := cli.Table{Headers: []string{"", "TIME", "SEVERITY", "TITLE", "MESSAGE", "ID"}}
	for _, n := range items {
		unread := "*"
		if n.Read {
			unread = ""
		}
		t.Rows = append(t.Rows, []string{
			unread, n.CreatedAt.Local().Format("2006-01-02 15:04"), cli.SeverityStyle(n.Severity), n.Title, n.Message, cli.Muted(n.ID),
		})
	}
	fmt.Print(cli.RenderTable(t))
	return nil
}
