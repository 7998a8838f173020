package cosmos

import (
	"bitfrost-bridge/internal/adapters"
	"bitfrost-bridge/internal/interfaces"
	"bitfrost-bridge/internal/logger"
	"bitfrost-bridge/internal/models"
	"bitfrost-bridge/internal/validation"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// MsgOutboundTransferTypeURL is the type URL of the bridge module's outbound
// transfer message.
const MsgOutboundTransferTypeURL = "/int3face.bridge.v1beta1.MsgOutboundTransfer"

// MsgOutboundTransfer moves funds from the bridge chain to a destination chain.
type MsgOutboundTransfer struct {
	Creator     string         `json:"creator"`
	DestChainID string         `json:"dest_chain_id"`
	AssetID     models.AssetID `json:"asset_id"`
	Receiver    string         `json:"receiver"`
	Amount      string         `json:"amount"`
}

// EncodeObject is a message paired with its type URL, ready for a signer.
type EncodeObject struct {
	TypeURL string              `json:"typeUrl"`
	Value   MsgOutboundTransfer `json:"value"`
}

var (
	_ adapters.Adapter = (*Adapter)(nil)
	_ adapters.Sender  = (*Adapter)(nil)
)

// Adapter builds outbound transfers originating on cosmos chains.
type Adapter struct {
	logger *zerolog.Logger
}

func NewAdapter(log *zerolog.Logger) *Adapter {
	return &Adapter{logger: logger.OrNop(log)}
}

func (a *Adapter) Kind() models.ChainKind {
	return models.KindCosmos
}

func (a *Adapter) CanHandle(fromChainID string, actx *adapters.Context) bool {
	kind, ok := adapters.ChainKindOf(actx.Registry, fromChainID)
	return ok && kind == models.KindCosmos
}

// Build produces an unsigned MsgOutboundTransfer. The creator is left empty
// and filled from the signer at send time.
func (a *Adapter) Build(ctx context.Context, req models.TransferRequest, actx *adapters.Context) (*models.BuiltTx, error) {
	if _, err := validation.ParseAmount(req.Amount); err != nil {
		return nil, fmt.Errorf("cosmos build: %w", err)
	}
	if err := adapters.CheckReceiver(req, actx); err != nil {
		return nil, fmt.Errorf("cosmos build: %w", err)
	}

	assetID, err := adapters.ResolveAsset(req, actx.Registry)
	if err != nil {
		return nil, fmt.Errorf("cosmos build: %w", err)
	}

	msg := EncodeObject{
		TypeURL: MsgOutboundTransferTypeURL,
		Value: MsgOutboundTransfer{
			DestChainID: req.ToChainID,
			AssetID:     assetID,
			Receiver:    req.ToAddress,
			Amount:      req.Amount,
		},
	}

	a.logger.Debug().
		Str("from", req.FromChainID).
		Str("to", req.ToChainID).
		Str("asset", assetID.Key()).
		Str("amount", req.Amount).
		Msg("Built outbound transfer message")

	return &models.BuiltTx{
		Kind: models.KindCosmos,
		Raw:  msg,
		Meta: map[string]string{
			"typeUrl": MsgOutboundTransferTypeURL,
			"network": actx.Network.String(),
		},
	}, nil
}

// Send fills the creator from signer and hands the JSON-encoded message to it.
func (a *Adapter) Send(ctx context.Context, built *models.BuiltTx, signer interfaces.Signer) (string, error) {
	if built == nil || built.Kind != models.KindCosmos {
		return "", errors.New("cosmos send: not a cosmos transaction")
	}
	msg, ok := built.Raw.(EncodeObject)
	if !ok {
		return "", fmt.Errorf("cosmos send: unexpected payload %T", built.Raw)
	}
	if msg.Value.Creator == "" {
		msg.Value.Creator = signer.Address()
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return "", fmt.Errorf("cosmos send: marshal: %w", err)
	}

	txHash, err := signer.SignAndBroadcast(ctx, models.KindCosmos, payload)
	if err != nil {
		return "", fmt.Errorf("cosmos send: %w", err)
	}

	a.logger.Info().
		Str("txHash", txHash).
		Str("creator", msg.Value.Creator).
		Msg("Outbound transfer broadcast")

	return txHash, nil
}
