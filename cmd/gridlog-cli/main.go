package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridlog/gridlog-go/pkg/logclient"
)

var (
	// Global flags
	serverURL string
	timeout   time.Duration

	// Global client instance
	client *logclient.Client
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "gridlog-cli",
		Short: "Event log command line interface",
		Long: `gridlog-cli talks to the event log HTTP API. It publishes events,
queries channels from a timestamp, and drives the fake order and
product-change producers.`,
		PersistentPreRunE: initializeClient,
	}

	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "http://localhost:3050", "Event log server URL")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Second, "Request timeout")

	rootCmd.AddCommand(newPublishCommand())
	rootCmd.AddCommand(newQueryCommand())
	rootCmd.AddCommand(newProduceOrdersCommand())
	rootCmd.AddCommand(newProduceChangesCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// initializeClient sets up the event log client from the global flags.
func initializeClient(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "help" || cmd.Parent() == nil {
		return nil
	}

	var err error
	client, err = logclient.NewClient(logclient.Config{
		BaseURL: serverURL,
		Timeout: timeout,
	})
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}
	return nil
}
