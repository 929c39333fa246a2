package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridlog/gridlog-go/pkg/logclient"
)

func newQueryCommand() *cobra.Command {
	var (
		channel string
		fromStr string
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query a channel's events from a timestamp",
		Long: `Query a channel's events in ascending order. With --from, only events
created at or after the given RFC3339 timestamp are returned; without it
the whole channel is listed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(channel, fromStr)
		},
	}

	cmd.Flags().StringVar(&channel, "channel", "", "Channel to query (required)")
	cmd.Flags().StringVar(&fromStr, "from", "", "Inclusive lower bound, RFC3339")
	if err := cmd.MarkFlagRequired("channel"); err != nil {
		panic(fmt.Sprintf("Failed to mark channel as required: %v", err))
	}

	return cmd
}

func runQuery(channel, fromStr string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	var from *time.Time
	if fromStr != "" {
		parsed, err := time.Parse(time.RFC3339, fromStr)
		if err != nil {
			return fmt.Errorf("invalid --from timestamp: %w", err)
		}
		from = &parsed
	}

	raw, err := client.Query(ctx, channel, from)
	if err != nil {
		return fmt.Errorf("failed to query events: %w", err)
	}

	fmt.Printf("Found %d event(s) on channel '%s'\n", len(raw), channel)
	for _, element := range raw {
		event, err := logclient.ParseEvent(element)
		if err != nil {
			fmt.Printf("  (malformed event skipped)\n")
			continue
		}
		fmt.Printf("  %s  %s  %s\n",
			event.CreatedAt.Format(time.RFC3339Nano), event.ID, event.Payload)
	}
	return nil
}
