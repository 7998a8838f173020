package interfaces

import (
	"bitfrost-bridge/internal/models"
	"context"
)

// NetworkService is the bridge chain's query surface. Lookups that find
// nothing return a nil result and a nil error.
type NetworkService interface {
	BridgeParams(ctx context.Context) (*models.BridgeParams, error)
	CanTransfer(ctx context.Context, query models.CanTransferQuery) (*models.CanTransferResult, error)
	EstimateFee(ctx context.Context, srcChainID, dstChainID string, asset models.AssetID) (string, error)
	GetTx(ctx context.Context, txHash string) (*models.TxResult, error)
	OutboundTransfer(ctx context.Context, id string) (*models.OutboundTransfer, error)
	InboundTransfer(ctx context.Context, id string) (*models.InboundTransfer, error)
}

// Signer holds the account used to submit built transactions. Key material
// never leaves it.
type Signer interface {
	Address() string
	SignAndBroadcast(ctx context.Context, kind models.ChainKind, payload []byte) (string, error)
}
