package utxo

import (
	"bitfrost-bridge/internal/adapters"
	"bitfrost-bridge/internal/interfaces"
	"bitfrost-bridge/internal/logger"
	"bitfrost-bridge/internal/models"
	"bitfrost-bridge/internal/validation"
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"

	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
	"github.com/rs/zerolog"
)

var (
	_ adapters.Adapter = (*Adapter)(nil)
	_ adapters.Sender  = (*Adapter)(nil)
)

// Adapter builds vault deposits on UTXO chains. The built transaction has the
// vault payment and an OP_RETURN memo naming the destination; the wallet adds
// inputs and change when it signs.
type Adapter struct {
	params *chaincfg.Params
	vaults map[string]btcutil.Address
	logger *zerolog.Logger
}

// NetParams returns the chain parameters used for a bridge network.
func NetParams(network models.Network) *chaincfg.Params {
	if network == models.Testnet {
		return &chaincfg.TestNet3Params
	}
	return &chaincfg.MainNetParams
}

// NewAdapter creates an adapter. vaults maps chain id to the bridge vault
// address on that chain.
func NewAdapter(network models.Network, vaults map[string]string, log *zerolog.Logger) (*Adapter, error) {
	params := NetParams(network)

	decoded := make(map[string]btcutil.Address, len(vaults))
	for chainID, vault := range vaults {
		addr, err := btcutil.DecodeAddress(vault, params)
		if err != nil {
			return nil, fmt.Errorf("utxo adapter: vault for %s: %w", chainID, err)
		}
		if !addr.IsForNet(params) {
			return nil, fmt.Errorf("utxo adapter: vault for %s is not a %s address", chainID, params.Name)
		}
		decoded[chainID] = addr
	}

	return &Adapter{
		params: params,
		vaults: decoded,
		logger: logger.OrNop(log),
	}, nil
}

func (a *Adapter) Kind() models.ChainKind {
	return models.KindUTXO
}

// CanHandle requires a UTXO chain with a configured vault.
func (a *Adapter) CanHandle(fromChainID string, actx *adapters.Context) bool {
	kind, ok := adapters.ChainKindOf(actx.Registry, fromChainID)
	if !ok || kind != models.KindUTXO {
		return false
	}
	_, ok = a.vaults[fromChainID]
	return ok
}

// Memo is the OP_RETURN payload routing a deposit to its destination.
func Memo(req models.TransferRequest) []byte {
	return []byte(req.ToChainID + ":" + req.ToAddress)
}

func (a *Adapter) Build(ctx context.Context, req models.TransferRequest, actx *adapters.Context) (*models.BuiltTx, error) {
	vault, ok := a.vaults[req.FromChainID]
	if !ok {
		return nil, fmt.Errorf("utxo build: no vault for %s", req.FromChainID)
	}
	amount, err := validation.ParseAmount(req.Amount)
	if err != nil {
		return nil, fmt.Errorf("utxo build: %w", err)
	}
	if !amount.IsInt64() || amount.Int64() > int64(btcutil.MaxSatoshi) {
		return nil, fmt.Errorf("utxo build: amount %s exceeds the maximum of %d", req.Amount, int64(btcutil.MaxSatoshi))
	}
	if err := adapters.CheckReceiver(req, actx); err != nil {
		return nil, fmt.Errorf("utxo build: %w", err)
	}

	memo := Memo(req)
	if len(memo) > txscript.MaxDataCarrierSize {
		return nil, fmt.Errorf("utxo build: memo is %d bytes, limit is %d", len(memo), txscript.MaxDataCarrierSize)
	}

	payScript, err := txscript.PayToAddrScript(vault)
	if err != nil {
		return nil, fmt.Errorf("utxo build: vault script: %w", err)
	}
	memoScript, err := txscript.NullDataScript(memo)
	if err != nil {
		return nil, fmt.Errorf("utxo build: memo script: %w", err)
	}

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxOut(wire.NewTxOut(amount.Int64(), payScript))
	tx.AddTxOut(wire.NewTxOut(0, memoScript))

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return nil, fmt.Errorf("utxo build: serialize: %w", err)
	}

	a.logger.Debug().
		Str("chain", req.FromChainID).
		Str("vault", vault.EncodeAddress()).
		Int64("amount", amount.Int64()).
		Msg("Built vault deposit")

	return &models.BuiltTx{
		Kind: models.KindUTXO,
		Raw:  tx,
		Meta: map[string]string{
			"vault":   vault.EncodeAddress(),
			"memo":    string(memo),
			"amount":  strconv.FormatInt(amount.Int64(), 10),
			"rawTx":   hex.EncodeToString(buf.Bytes()),
			"network": a.params.Name,
		},
	}, nil
}

// Send passes the serialized unsigned transaction to signer, which funds and
// signs it.
func (a *Adapter) Send(ctx context.Context, built *models.BuiltTx, signer interfaces.Signer) (string, error) {
	if built == nil || built.Kind != models.KindUTXO {
		return "", errors.New("utxo send: not a utxo transaction")
	}
	tx, ok := built.Raw.(*wire.MsgTx)
	if !ok {
		return "", fmt.Errorf("utxo send: unexpected payload %T", built.Raw)
	}

	var buf bytes.Buffer
	if err := tx.Serialize(&buf); err != nil {
		return "", fmt.Errorf("utxo send: serialize: %w", err)
	}

	txHash, err := signer.SignAndBroadcast(ctx, models.KindUTXO, buf.Bytes())
	if err != nil {
		return "", fmt.Errorf("utxo send: %w", err)
	}

	a.logger.Info().
		Str("txHash", txHash).
		Str("vault", built.Meta["vault"]).
		Msg("Vault deposit broadcast")

	return txHash, nil
}
