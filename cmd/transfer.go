package main

import (
	"bitfrost-bridge/internal/events"
	"bitfrost-bridge/internal/models"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/spf13/cobra"
)

var transferFlags models.TransferRequest

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Print the current bridge registry",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cleanup, err := newBridgeClient(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		snap, err := client.Registry()
		if err != nil {
			return err
		}

		chains := make([]models.Chain, 0, len(snap.Chains()))
		for _, c := range snap.Chains() {
			chains = append(chains, c)
		}
		sort.Slice(chains, func(i, j int) bool { return chains[i].ID < chains[j].ID })

		assets := make([]models.Asset, 0, len(snap.Assets()))
		for _, a := range snap.Assets() {
			assets = append(assets, a)
		}
		sort.Slice(assets, func(i, j int) bool { return assets[i].ID.Key() < assets[j].ID.Key() })

		return printJSON(map[string]any{
			"bridge_status": snap.BridgeStatus().String(),
			"chains":        chains,
			"assets":        assets,
		})
	},
}

var canTransferCmd = &cobra.Command{
	Use:   "can-transfer",
	Short: "Run the preflight checks for a transfer",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cleanup, err := newBridgeClient(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		decision, err := client.CanTransfer(cmd.Context(), transferFlags)
		if err != nil {
			return err
		}
		return printJSON(decision)
	},
}

var estimateCmd = &cobra.Command{
	Use:   "estimate",
	Short: "Estimate the bridge fee for a transfer",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cleanup, err := newBridgeClient(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		return printJSON(client.Estimate(cmd.Context(), transferFlags))
	},
}

var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Preflight and build an unsigned transfer",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, cleanup, err := newBridgeClient(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()

		result, err := client.Transfer(cmd.Context(), transferFlags)
		if err != nil {
			return err
		}
		return printJSON(map[string]any{
			"handle": result.Handle,
			"built":  result.Built,
		})
	},
}

var trackFlags struct {
	nativeTx string
	outbound string
	inbound  string
}

var trackCmd = &cobra.Command{
	Use:   "track",
	Short: "Poll a transfer until it confirms or fails",
	RunE: func(cmd *cobra.Command, args []string) error {
		ref, err := trackRef()
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		client, cleanup, err := newBridgeClient(ctx)
		if err != nil {
			return err
		}
		defer cleanup()

		final, err := client.Track(ctx, ref)
		if err != nil {
			return err
		}
		if final == nil {
			return nil
		}

		data, err := events.Marshal(final)
		if err != nil {
			return err
		}
		fmt.Println(string(data))
		return nil
	},
}

// trackRef accepts exactly one of the ref flags.
func trackRef() (models.TransferRef, error) {
	return refFromIDs(trackFlags.nativeTx, trackFlags.outbound, trackFlags.inbound)
}

// refFromIDs builds the ref for whichever single id is set.
func refFromIDs(nativeTx, outboundID, inboundID string) (models.TransferRef, error) {
	var refs []models.TransferRef
	if nativeTx != "" {
		refs = append(refs, models.NativeTxRef{TxHash: nativeTx})
	}
	if outboundID != "" {
		refs = append(refs, models.OutboundRef{OutboundID: outboundID})
	}
	if inboundID != "" {
		refs = append(refs, models.InboundRef{InboundID: inboundID})
	}
	if len(refs) != 1 {
		return nil, errors.New("exactly one of tx hash, outbound id or inbound id is required")
	}
	return refs[0], nil
}

func addTransferFlags(cmd *cobra.Command, withReceiver bool) {
	cmd.Flags().StringVar(&transferFlags.FromChainID, "from", "", "source chain id")
	cmd.Flags().StringVar(&transferFlags.ToChainID, "to", "", "destination chain id")
	cmd.Flags().StringVar(&transferFlags.AssetID, "asset", "", "asset key or denom")
	cmd.Flags().StringVar(&transferFlags.Amount, "amount", "", "amount in base units")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("asset")
	_ = cmd.MarkFlagRequired("amount")
	if withReceiver {
		cmd.Flags().StringVar(&transferFlags.ToAddress, "receiver", "", "destination address")
		_ = cmd.MarkFlagRequired("receiver")
	}
}

func init() {
	addTransferFlags(canTransferCmd, false)
	addTransferFlags(estimateCmd, false)
	addTransferFlags(buildCmd, true)

	trackCmd.Flags().StringVar(&trackFlags.nativeTx, "tx", "", "bridge chain transaction hash")
	trackCmd.Flags().StringVar(&trackFlags.outbound, "outbound", "", "outbound transfer id")
	trackCmd.Flags().StringVar(&trackFlags.inbound, "inbound", "", "inbound transfer id")

	rootCmd.AddCommand(registryCmd, canTransferCmd, estimateCmd, buildCmd, trackCmd)
}
