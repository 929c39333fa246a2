package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newPublishCommand() *cobra.Command {
	var (
		channel string
		payload string
	)

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Publish an event to a channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPublish(channel, payload)
		},
	}

	cmd.Flags().StringVar(&channel, "channel", "", "Channel to publish to (required)")
	cmd.Flags().StringVar(&payload, "payload", "", "Event payload (required)")
	if err := cmd.MarkFlagRequired("channel"); err != nil {
		panic(fmt.Sprintf("Failed to mark channel as required: %v", err))
	}
	if err := cmd.MarkFlagRequired("payload"); err != nil {
		panic(fmt.Sprintf("Failed to mark payload as required: %v", err))
	}

	return cmd
}

func runPublish(channel, payload string) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	response, err := client.Publish(ctx, channel, payload)
	if err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	fmt.Printf("✅ Event published\n")
	fmt.Printf("ID: %s\n", response.ID)
	fmt.Printf("Channel: %s\n", response.Channel)
	fmt.Printf("Created: %s\n", response.CreatedAt.Format(time.RFC3339Nano))
	return nil
}
