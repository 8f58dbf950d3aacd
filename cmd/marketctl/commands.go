package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/feral-file/ff-marketplace/internal/domain"
)

func parseChainArg(s string) (domain.Chain, error) {
	chain, ok := domain.ParseChain(s)
	if !ok {
		return "", fmt.Errorf("%w: %s", domain.ErrUnsupportedChain, s)
	}
	return chain, nil
}

func newSettleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settle <listing-id>",
		Short: "Settle an ended auction",
		Long:  "Sells an ended auction to its highest bidder, or expires it when nobody bid.",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().String("tx", "", "payment transaction hash to wait for")

	cmd.RunE = withApp(func(ctx context.Context, a *app, args []string) error {
		txHash, _ := cmd.Flags().GetString("tx")
		var payment *string
		if txHash != "" {
			payment = &txHash
		}

		listing, err := a.marketplace.Settle(ctx, args[0], payment)
		if err != nil {
			return err
		}
		return a.print(map[string]interface{}{
			"id":             listing.ID,
			"status":         listing.Status,
			"buyer":          listing.Buyer,
			"highest_bid":    listing.HighestBidString(),
			"highest_bidder": listing.HighestBidder,
		})
	})
	return cmd
}

func newReconcileCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile <chain> <contract> <token-id>",
		Short: "Refresh the stored owner of an asset from the ledger",
		Args:  cobra.ExactArgs(3),
	}

	cmd.RunE = withApp(func(ctx context.Context, a *app, args []string) error {
		chain, err := parseChainArg(args[0])
		if err != nil {
			return err
		}

		ownership, err := a.reconciler.Reconcile(ctx, domain.NewAssetRef(chain, args[1], args[2]))
		if err != nil {
			return err
		}
		return a.print(ownership)
	})
	return cmd
}

func newIndexTxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "index-tx <chain> <tx-hash>",
		Short: "Index the ERC-721 transfers of a mined transaction",
		Long:  "Replays the transfers of a transaction the emitter missed. Already indexed transfers are skipped.",
		Args:  cobra.ExactArgs(2),
	}

	cmd.RunE = withApp(func(ctx context.Context, a *app, args []string) error {
		chain, err := parseChainArg(args[0])
		if err != nil {
			return err
		}

		indexed, err := a.indexer.IndexTransaction(ctx, chain, args[1])
		if err != nil {
			return err
		}
		return a.print(map[string]interface{}{
			"transaction_hash": args[1],
			"transfers":        indexed,
		})
	})
	return cmd
}

func newMonitorTxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "monitor-tx <chain> <tx-hash>",
		Short: "Wait for a transaction to be mined and print its outcome",
		Args:  cobra.ExactArgs(2),
	}

	cmd.RunE = withApp(func(ctx context.Context, a *app, args []string) error {
		chain, err := parseChainArg(args[0])
		if err != nil {
			return err
		}

		outcome, err := a.indexer.MonitorTransaction(ctx, chain, args[1])
		if err != nil {
			return err
		}
		return a.print(outcome)
	})
	return cmd
}
