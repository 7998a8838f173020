package main

import (
	"bitfrost-bridge/internal/adapters"
	"bitfrost-bridge/internal/adapters/cosmos"
	"bitfrost-bridge/internal/adapters/evm"
	"bitfrost-bridge/internal/adapters/utxo"
	"bitfrost-bridge/internal/bridge"
	"bitfrost-bridge/internal/config"
	"bitfrost-bridge/internal/logger"
	"bitfrost-bridge/internal/rpc"
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/spf13/cobra"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "bridgectl",
	Short: "Cross-chain bridge client",
	Long: `bridgectl checks, builds and tracks cross-chain transfers against the
bridge chain. Configuration is read from the environment and an optional .env
file.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load configuration: %w", err)
		}
		cfg = loaded
		logger.Init(cfg.LogLevel)
		return nil
	},
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

// newBridgeClient wires the network service, every adapter the configuration
// enables and the event sinks. The returned cleanup destroys the client,
// flushes the sinks and closes any node connections.
func newBridgeClient(ctx context.Context) (*bridge.Client, func(), error) {
	log := logger.GetLogger()

	rpcClient := rpc.NewClient(
		cfg.Node.RestEndpoint,
		cfg.Node.ApiKey,
		cfg.Node.RateLimit,
		cfg.MaxRetries,
		cfg.RetryDelay,
		cfg.HTTP.Timeout,
		logger.Component("rpc"),
	)

	registry := adapters.NewRegistry(cosmos.NewAdapter(logger.Component("cosmos")))
	var closers []func()

	if cfg.EVM.RpcEndpoint != "" {
		ethClient, err := ethclient.DialContext(ctx, cfg.EVM.RpcEndpoint)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to EVM node: %w", err)
		}
		closers = append(closers, ethClient.Close)

		adapter, err := evm.NewAdapter(ethClient, cfg.EVM.FromAddress, cfg.EVM.BridgeContracts, logger.Component("evm"))
		if err != nil {
			ethClient.Close()
			return nil, nil, err
		}
		registry.Register(adapter)
	}

	if len(cfg.UTXO.Vaults) > 0 {
		adapter, err := utxo.NewAdapter(cfg.Network, cfg.UTXO.Vaults, logger.Component("utxo"))
		if err != nil {
			for _, c := range closers {
				c()
			}
			return nil, nil, err
		}
		registry.Register(adapter)
	}

	client, err := bridge.New(ctx, bridge.Options{
		Network:       cfg.Network,
		Service:       rpc.NewBridgeService(rpcClient),
		Adapters:      registry,
		Logger:        log,
		Timeouts:      cfg.Timeouts,
		PollInterval:  cfg.RegistryPollInterval,
		TrackInterval: cfg.TrackPollInterval,
	})
	if err != nil {
		for _, c := range closers {
			c()
		}
		return nil, nil, err
	}

	closeSinks, err := attachSinks(client.Events())
	if err != nil {
		client.Destroy()
		for _, c := range closers {
			c()
		}
		return nil, nil, err
	}

	cleanup := func() {
		client.Destroy()
		closeSinks()
		for _, c := range closers {
			c()
		}
	}
	return client, cleanup, nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
