package bridge

import (
	"bitfrost-bridge/internal/events"
	"bitfrost-bridge/internal/models"
	"bitfrost-bridge/internal/validation"
	"context"
	"errors"
	"math/big"
)

// CanTransfer decides whether req may proceed. Local rules are checked in a
// fixed order against the current snapshot and the first failure is the
// decision. If they all pass, the network is asked once; when that call fails
// or times out the transfer is allowed and a warning is logged.
//
// A denial is a decision, not an error. The only error is an uninitialized
// registry, in which case no events are emitted.
func (c *Client) CanTransfer(ctx context.Context, req models.TransferRequest) (models.CanTransferDecision, error) {
	snap, err := c.registry.Snapshot()
	if err != nil {
		return models.CanTransferDecision{}, err
	}
	return c.preflight(ctx, snap, req, events.NewCorrelationID()), nil
}

func (c *Client) preflight(ctx context.Context, snap *models.RegistrySnapshot, req models.TransferRequest, correlationID string) models.CanTransferDecision {
	c.bus.Emit(correlationID, &events.PreflightStarted{Request: req})

	var decision models.CanTransferDecision
	asset, denial := checkLocal(snap, req)
	if denial != nil {
		c.logger.Debug().
			Str("correlationId", correlationID).
			Str("code", string(denial.Code)).
			Str("reason", denial.Error()).
			Msg("Transfer denied locally")
		decision = models.CanTransferDecision{Allowed: false, Reason: denial.Error()}
	} else {
		decision = c.checkOnline(ctx, req, asset, correlationID)
	}

	c.bus.Emit(correlationID, &events.DecisionMade{Request: req, Decision: decision})
	return decision
}

// checkLocal applies the offline rules in order: bridge status, asset,
// chain presence, direction, minimum amount.
func checkLocal(snap *models.RegistrySnapshot, req models.TransferRequest) (models.Asset, *Error) {
	if snap.BridgeStatus() != models.BridgeStatusOK {
		return models.Asset{}, newError(CodeBridgeBlocked, "")
	}

	asset, ok := snap.LookupAsset(req.AssetID, req.FromChainID)
	if !ok {
		return models.Asset{}, newError(CodeUnsupportedAsset, "%s", req.AssetID)
	}
	if asset.Status != models.AssetStatusOK {
		return asset, newError(CodeAssetBlocked, "%s", asset.ID.Key())
	}

	src, srcOK := snap.Chain(req.FromChainID)
	dst, dstOK := snap.Chain(req.ToChainID)
	if !srcOK || !dstOK {
		return asset, newError(CodeChainUnavailable, "source or destination chain not found")
	}

	if src.OutboundBlocked() {
		return asset, newError(CodeDirectionBlocked, "source chain %s outbound blocked", req.FromChainID)
	}
	if dst.InboundBlocked() {
		return asset, newError(CodeDirectionBlocked, "destination chain %s inbound blocked", req.ToChainID)
	}

	amount, err := validation.ParseAmount(req.Amount)
	if err != nil {
		return asset, newError(CodeAmountTooLow, "invalid amount")
	}
	minimum := big.NewInt(0)
	if asset.MinTransferAmount != "" {
		if minimum, err = validation.ParseAmount(asset.MinTransferAmount); err != nil {
			return asset, newError(CodeAmountTooLow, "invalid minimum %s", asset.MinTransferAmount)
		}
	}
	if amount.Cmp(minimum) < 0 {
		return asset, newError(CodeAmountTooLow, "min=%s", minimum.String())
	}

	return asset, nil
}

type canTransferResult struct {
	res *models.CanTransferResult
	err error
}

// checkOnline asks the network for the final word, bounded by the
// CanTransfer timeout. Any failure allows the transfer.
func (c *Client) checkOnline(ctx context.Context, req models.TransferRequest, asset models.Asset, correlationID string) models.CanTransferDecision {
	ctx, cancel := context.WithTimeout(ctx, c.timeouts.CanTransfer)
	defer cancel()

	query := models.CanTransferQuery{
		SrcChainID:  req.FromChainID,
		DestChainID: req.ToChainID,
		AssetID:     asset.ID.Key(),
		Amount:      req.Amount,
	}

	// Buffered so an abandoned call can still deliver and exit
	results := make(chan canTransferResult, 1)
	go func() {
		res, err := c.service.CanTransfer(ctx, query)
		results <- canTransferResult{res: res, err: err}
	}()

	var err error
	select {
	case <-ctx.Done():
		err = wrapError(CodeProviderError, ctx.Err(), "canTransfer timeout")
	case r := <-results:
		switch {
		case r.err != nil:
			err = wrapError(CodeProviderError, r.err, "canTransfer RPC failed")
		case r.res == nil:
			err = wrapError(CodeProviderError, errors.New("empty response"), "canTransfer RPC failed")
		default:
			return models.CanTransferDecision{Allowed: r.res.CanTransfer, Reason: r.res.Reason}
		}
	}

	c.logger.Warn().
		Err(err).
		Str("correlationId", correlationID).
		Str("from", req.FromChainID).
		Str("to", req.ToChainID).
		Str("asset", query.AssetID).
		Dur("timeout", c.timeouts.CanTransfer).
		Msg("canTransfer RPC failed, falling back to local allow")

	return models.CanTransferDecision{Allowed: true}
}
