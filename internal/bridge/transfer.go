package bridge

import (
	"bitfrost-bridge/internal/adapters"
	"bitfrost-bridge/internal/events"
	"bitfrost-bridge/internal/interfaces"
	"bitfrost-bridge/internal/models"
	"bitfrost-bridge/internal/validation"
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// TransferResult is a built, not yet submitted, transfer.
type TransferResult struct {
	Request models.TransferRequest
	Built   *models.BuiltTx
	Handle  models.TransferHandle
}

// Transfer runs preflight, picks the adapter for the source chain's kind and
// builds the transaction. Nothing is broadcast.
func (c *Client) Transfer(ctx context.Context, req models.TransferRequest) (*TransferResult, error) {
	snap, err := c.registry.Snapshot()
	if err != nil {
		return nil, err
	}

	correlationID := events.NewCorrelationID()
	decision := c.preflight(ctx, snap, req, correlationID)
	if !decision.Allowed {
		reason := decision.Reason
		if reason == "" {
			reason = "transfer not allowed"
		}
		return nil, newError(CodeCanTransferDeclined, "%s", reason)
	}

	// The registry may have been refreshed since preflight
	snap, err = c.registry.Snapshot()
	if err != nil {
		return nil, err
	}
	src, ok := snap.Chain(req.FromChainID)
	if !ok {
		return nil, newError(CodeChainUnavailable, "source chain %s not found", req.FromChainID)
	}

	kind, known := adapters.KindForChainType(src.Type)
	if !known {
		c.logger.Warn().
			Str("chain", req.FromChainID).
			Int32("chainType", int32(src.Type)).
			Str("fallbackKind", kind.String()).
			Msg("Unknown chain type, falling back to default adapter kind")
	}

	adapter, ok := c.adapters.Lookup(kind)
	if !ok {
		return nil, wrapError(CodeProviderError, ErrNoUsableAdapter, "no adapter for kind %s", kind)
	}
	actx := c.adapterContext(snap)
	if !adapter.CanHandle(req.FromChainID, actx) {
		return nil, wrapError(CodeProviderError, ErrNoUsableAdapter, "adapter %s cannot handle chain %s", kind, req.FromChainID)
	}

	buildCtx := ctx
	if c.timeouts.Execute > 0 {
		var cancel context.CancelFunc
		buildCtx, cancel = context.WithTimeout(ctx, c.timeouts.Execute)
		defer cancel()
	}

	built, err := adapter.Build(buildCtx, req, actx)
	if err != nil {
		var be *Error
		if errors.As(err, &be) {
			return nil, err
		}
		return nil, wrapError(CodeProviderError, err, "build on %s", req.FromChainID)
	}

	c.bus.Emit(correlationID, &events.Built{Request: req, Built: built})

	c.logger.Info().
		Str("correlationId", correlationID).
		Str("kind", kind.String()).
		Str("from", req.FromChainID).
		Str("to", req.ToChainID).
		Str("asset", req.AssetID).
		Msg("Transfer built")

	return &TransferResult{
		Request: req,
		Built:   built,
		Handle: models.TransferHandle{
			TxID:        correlationID,
			FromChainID: req.FromChainID,
			ToChainID:   req.ToChainID,
			AssetID:     req.AssetID,
		},
	}, nil
}

// Submit hands a built transfer to signer through the adapter that built it
// and records the resulting hash on the handle. It is not retried.
func (c *Client) Submit(ctx context.Context, result *TransferResult, signer interfaces.Signer) (models.TransferHandle, error) {
	if result == nil || result.Built == nil {
		return models.TransferHandle{}, newError(CodeProviderError, "nothing to submit")
	}
	if signer == nil {
		return result.Handle, newError(CodeProviderError, "signer is required")
	}

	kind := result.Built.Kind
	adapter, ok := c.adapters.Lookup(kind)
	if !ok {
		return result.Handle, wrapError(CodeProviderError, ErrNoUsableAdapter, "no adapter for kind %s", kind)
	}
	sender, ok := adapter.(adapters.Sender)
	if !ok {
		return result.Handle, wrapError(CodeProviderError, ErrNoUsableAdapter, "adapter %s cannot send", kind)
	}

	if c.timeouts.Execute > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeouts.Execute)
		defer cancel()
	}

	txHash, err := sender.Send(ctx, result.Built, signer)
	if err != nil {
		var be *Error
		if errors.As(err, &be) {
			return result.Handle, err
		}
		return result.Handle, wrapError(CodeProviderError, err, "send on %s", result.Handle.FromChainID)
	}

	result.Handle.SubmitTxHash = txHash
	c.bus.Emit(result.Handle.TxID, &events.Submitted{Request: result.Request, Handle: result.Handle})

	c.logger.Info().
		Str("correlationId", result.Handle.TxID).
		Str("txHash", txHash).
		Msg("Transfer submitted")

	return result.Handle, nil
}

// Estimate returns the bridge fee rate for req and, when the amount parses,
// the fee rounded up to a whole base unit. Failures yield an empty estimate.
func (c *Client) Estimate(ctx context.Context, req models.TransferRequest) models.Estimate {
	assetID, ok := c.resolveAssetID(req)
	if !ok {
		c.logger.Warn().
			Str("asset", req.AssetID).
			Msg("Cannot estimate fee for unknown asset")
		return models.Estimate{}
	}

	rate, err := c.service.EstimateFee(ctx, req.FromChainID, req.ToChainID, assetID)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("from", req.FromChainID).
			Str("to", req.ToChainID).
			Str("asset", assetID.Key()).
			Msg("Fee estimation failed")
		return models.Estimate{}
	}

	est := models.Estimate{BridgeFeeRate: rate}

	feeRate, err := decimal.NewFromString(rate)
	if err != nil {
		c.logger.Warn().
			Err(err).
			Str("rate", rate).
			Msg("Unparseable fee rate")
		return est
	}
	if _, err := validation.ParseAmount(req.Amount); err != nil {
		return est
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		return est
	}

	est.BridgeFee = amount.Mul(feeRate).Ceil().String()
	return est
}

func (c *Client) resolveAssetID(req models.TransferRequest) (models.AssetID, bool) {
	if snap, err := c.registry.Snapshot(); err == nil {
		if asset, ok := snap.LookupAsset(req.AssetID, req.FromChainID); ok {
			return asset.ID, true
		}
	}
	return models.ParseAssetID(req.AssetID)
}
