package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/gridlog/gridlog-go/internal/producer"
)

func newProduceOrdersCommand() *cobra.Command {
	var (
		channel  string
		count    int
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "produce-orders",
		Short: "Publish fake order bundles",
		Long: `Generate fake signed orders (client, billing account, supply point and
contract) and publish them one by one to the order channel.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProduceOrders(channel, count, interval)
		},
	}

	cmd.Flags().StringVar(&channel, "channel", "ecommerce", "Channel to publish orders to")
	cmd.Flags().IntVar(&count, "count", 10, "Number of orders to publish")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Pause between orders (0 publishes back to back)")

	return cmd
}

func runProduceOrders(channel string, count int, interval time.Duration) error {
	gen := producer.New()
	ctx := context.Background()

	for i := 0; i < count; i++ {
		bundle := gen.Order()
		payload, err := bundle.Payload()
		if err != nil {
			return err
		}

		response, err := client.Publish(ctx, channel, payload)
		if err != nil {
			return fmt.Errorf("failed to publish order %d: %w", i+1, err)
		}
		fmt.Printf("order %d/%d published: client=%s event=%s\n",
			i+1, count, bundle.Client.ID, response.ID)

		if interval > 0 && i < count-1 {
			time.Sleep(interval)
		}
	}

	fmt.Printf("✅ %d order(s) published to '%s'\n", count, channel)
	return nil
}

func newProduceChangesCommand() *cobra.Command {
	var (
		channel  string
		crmURL   string
		count    int
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "produce-changes",
		Short: "Publish fake product changes for existing contracts",
		Long: `Fetch contracts from the CRM read API and publish product-change events
that switch each one to a different catalog tariff.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProduceChanges(channel, crmURL, count, interval)
		},
	}

	cmd.Flags().StringVar(&channel, "channel", "clientapp", "Channel to publish changes to")
	cmd.Flags().StringVar(&crmURL, "crm", "http://localhost:3000", "CRM read API URL")
	cmd.Flags().IntVar(&count, "count", 10, "Number of changes to publish")
	cmd.Flags().DurationVar(&interval, "interval", 0, "Pause between changes (0 publishes back to back)")

	return cmd
}

func runProduceChanges(channel, crmURL string, count int, interval time.Duration) error {
	ctx := context.Background()

	source, err := producer.NewContractSource(crmURL)
	if err != nil {
		return err
	}
	contracts, err := source.Contracts(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch contracts: %w", err)
	}
	if len(contracts) == 0 {
		return fmt.Errorf("no contracts registered in the CRM at %s", crmURL)
	}

	gen := producer.New()
	for i := 0; i < count; i++ {
		contract := contracts[i%len(contracts)]
		payload, err := gen.ProductChange(contract)
		if err != nil {
			return err
		}

		response, err := client.Publish(ctx, channel, payload)
		if err != nil {
			return fmt.Errorf("failed to publish change %d: %w", i+1, err)
		}
		fmt.Printf("change %d/%d published: contract=%s event=%s\n",
			i+1, count, contract.ID, response.ID)

		if interval > 0 && i < count-1 {
			time.Sleep(interval)
		}
	}

	fmt.Printf("✅ %d change(s) published to '%s'\n", count, channel)
	return nil
}
