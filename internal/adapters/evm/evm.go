package evm

import (
	"bitfrost-bridge/internal/adapters"
	"bitfrost-bridge/internal/interfaces"
	"bitfrost-bridge/internal/logger"
	"bitfrost-bridge/internal/models"
	"bitfrost-bridge/internal/validation"
	"context"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/rs/zerolog"
)

// DefaultGasLimit is used when the node cannot estimate the deposit call.
const DefaultGasLimit uint64 = 200_000

const bridgeABI = `[{
	"type": "function",
	"name": "deposit",
	"stateMutability": "nonpayable",
	"inputs": [
		{"name": "destChainId", "type": "string"},
		{"name": "assetId", "type": "string"},
		{"name": "receiver", "type": "string"},
		{"name": "amount", "type": "uint256"}
	],
	"outputs": []
}]`

// BridgeABI is the parsed deposit interface of the bridge contract.
var BridgeABI = mustParseABI(bridgeABI)

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("invalid bridge ABI: %v", err))
	}
	return parsed
}

// ChainReader is the subset of an EVM node used while building. An
// *ethclient.Client satisfies it.
type ChainReader interface {
	ChainID(ctx context.Context) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, call ethereum.CallMsg) (uint64, error)
}

var (
	_ adapters.Adapter = (*Adapter)(nil)
	_ adapters.Sender  = (*Adapter)(nil)
)

// Adapter builds bridge deposits on EVM chains as unsigned legacy
// transactions.
type Adapter struct {
	client    ChainReader
	from      common.Address
	contracts map[string]common.Address
	logger    *zerolog.Logger
}

// NewAdapter creates an adapter. contracts maps chain id to the hex address
// of the bridge contract deployed there; from is the account the deposit
// will be signed by.
func NewAdapter(client ChainReader, from string, contracts map[string]string, log *zerolog.Logger) (*Adapter, error) {
	if client == nil {
		return nil, errors.New("evm adapter: chain reader is required")
	}

	parsed := make(map[string]common.Address, len(contracts))
	for chainID, addr := range contracts {
		if !common.IsHexAddress(addr) {
			return nil, fmt.Errorf("evm adapter: invalid bridge contract %q for %s", addr, chainID)
		}
		parsed[chainID] = common.HexToAddress(addr)
	}

	var sender common.Address
	if from != "" {
		if !common.IsHexAddress(from) {
			return nil, fmt.Errorf("evm adapter: invalid sender %q", from)
		}
		sender = common.HexToAddress(from)
	}

	return &Adapter{
		client:    client,
		from:      sender,
		contracts: parsed,
		logger:    logger.OrNop(log),
	}, nil
}

func (a *Adapter) Kind() models.ChainKind {
	return models.KindEVM
}

// CanHandle requires an EVM chain with a configured bridge contract.
func (a *Adapter) CanHandle(fromChainID string, actx *adapters.Context) bool {
	kind, ok := adapters.ChainKindOf(actx.Registry, fromChainID)
	if !ok || kind != models.KindEVM {
		return false
	}
	_, ok = a.contracts[fromChainID]
	return ok
}

func (a *Adapter) Build(ctx context.Context, req models.TransferRequest, actx *adapters.Context) (*models.BuiltTx, error) {
	contract, ok := a.contracts[req.FromChainID]
	if !ok {
		return nil, fmt.Errorf("evm build: no bridge contract for %s", req.FromChainID)
	}
	amount, err := validation.ParseAmount(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("evm build: %w", err)
	}
	if err := adapters.CheckReceiver(req, actx); err != nil {
		return nil, fmt.Errorf("evm build: %w", err)
	}
	assetID, err := adapters.ResolveAsset(req, actx.Registry)
	if err != nil {
		return nil, fmt.Errorf("evm build: %w", err)
	}

	data, err := BridgeABI.Pack("deposit", req.ToChainID, assetID.Key(), req.ToAddress, amount)
	if err != nil {
		return nil, fmt.Errorf("evm build: pack deposit: %w", err)
	}

	chainID, err := a.client.ChainID(ctx)
	if err != nil {
		return nil, fmt.Errorf("evm build: chain id: %w", err)
	}
	nonce, err := a.client.PendingNonceAt(ctx, a.from)
	if err != nil {
		return nil, fmt.Errorf("evm build: nonce: %w", err)
	}
	gasPrice, err := a.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("evm build: gas price: %w", err)
	}

	gas, err := a.client.EstimateGas(ctx, ethereum.CallMsg{
		From: a.from,
		To:   &contract,
		Data: data,
	})
	if err != nil {
		a.logger.Warn().
			Err(err).
			Str("chain", req.FromChainID).
			Uint64("gasLimit", DefaultGasLimit).
			Msg("Gas estimation failed, using default limit")
		gas = DefaultGasLimit
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		GasPrice: gasPrice,
		Gas:      gas,
		To:       &contract,
		Value:    big.NewInt(0),
		Data:     data,
	})

	a.logger.Debug().
		Str("chain", req.FromChainID).
		Str("contract", contract.Hex()).
		Uint64("nonce", nonce).
		Uint64("gas", gas).
		Msg("Built bridge deposit")

	return &models.BuiltTx{
		Kind: models.KindEVM,
		Raw:  tx,
		Meta: map[string]string{
			"chainId":  chainID.String(),
			"contract": contract.Hex(),
			"asset":    assetID.Key(),
			"nonce":    strconv.FormatUint(nonce, 10),
			"network":  actx.Network.String(),
		},
	}, nil
}

// Send passes the RLP-encoded unsigned transaction to signer.
func (a *Adapter) Send(ctx context.Context, built *models.BuiltTx, signer interfaces.Signer) (string, error) {
	if built == nil || built.Kind != models.KindEVM {
		return "", errors.New("evm send: not an evm transaction")
	}
	tx, ok := built.Raw.(*types.Transaction)
	if !ok {
		return "", fmt.Errorf("evm send: unexpected payload %T", built.Raw)
	}

	payload, err := tx.MarshalBinary()
	if err != nil {
		return "", fmt.Errorf("evm send: encode: %w", err)
	}

	txHash, err := signer.SignAndBroadcast(ctx, models.KindEVM, payload)
	if err != nil {
		return "", fmt.Errorf("evm send: %w", err)
	}

	a.logger.Info().
		Str("txHash", txHash).
		Str("contract", tx.To().Hex()).
		Msg("Bridge deposit broadcast")

	return txHash, nil
}
