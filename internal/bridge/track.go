package bridge

import (
	"bitfrost-bridge/internal/events"
	"bitfrost-bridge/internal/models"
	"context"
	"time"
)

// pollFunc returns a terminal event, or nil while the transfer is pending.
type pollFunc func(ctx context.Context) (events.Event, error)

// Track polls ref until it reaches a terminal state, emits exactly one
// Confirmed or Failed event and returns it. It polls every TrackInterval with
// no attempt limit; cancel ctx to stop. A lookup error ends tracking without a
// terminal event. External refs are not polled and return nil.
func (c *Client) Track(ctx context.Context, ref models.TransferRef) (events.Event, error) {
	poll, err := c.poller(ref)
	if err != nil {
		return nil, err
	}

	log := c.logger.With().Str("ref", ref.RefKind()).Logger()
	if poll == nil {
		log.Info().Msg("External tracking is not implemented; delegate to the chain's provider")
		return nil, nil
	}

	correlationID := events.NewCorrelationID()
	log = log.With().Str("correlationId", correlationID).Logger()

	// The wait starts after each poll returns, so a slow lookup never
	// shortens the next interval.
	timer := time.NewTimer(c.trackInterval)
	defer timer.Stop()

	for attempt := 1; ; attempt++ {
		evt, err := poll(ctx)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			log.Error().
				Err(err).
				Int("attempt", attempt).
				Msg("Tracking lookup failed")
			return nil, wrapError(CodeProviderError, err, "track %s", ref.RefKind())
		}

		if evt != nil {
			c.bus.Emit(correlationID, evt)
			log.Info().
				Str("event", string(evt.Kind())).
				Int("attempts", attempt).
				Msg("Tracking finished")
			return evt, nil
		}

		log.Debug().
			Int("attempt", attempt).
			Msg("Transfer still pending")

		timer.Reset(c.trackInterval)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// poller picks the lookup for ref. External refs get a nil poller.
func (c *Client) poller(ref models.TransferRef) (pollFunc, error) {
	switch r := ref.(type) {
	case models.NativeTxRef:
		if r.TxHash == "" {
			return nil, newError(CodeProviderError, "native tx ref without hash")
		}
		return func(ctx context.Context) (events.Event, error) { return c.pollNativeTx(ctx, r) }, nil
	case models.OutboundRef:
		if r.OutboundID == "" {
			return nil, newError(CodeProviderError, "outbound ref without id")
		}
		return func(ctx context.Context) (events.Event, error) { return c.pollOutbound(ctx, r) }, nil
	case models.InboundRef:
		if r.InboundID == "" {
			return nil, newError(CodeProviderError, "inbound ref without id")
		}
		return func(ctx context.Context) (events.Event, error) { return c.pollInbound(ctx, r) }, nil
	case models.ExternalRef:
		return nil, nil
	case nil:
		return nil, newError(CodeProviderError, "nil transfer ref")
	default:
		return nil, newError(CodeProviderError, "unsupported transfer ref %T", ref)
	}
}

func (c *Client) pollNativeTx(ctx context.Context, ref models.NativeTxRef) (events.Event, error) {
	tx, err := c.service.GetTx(ctx, ref.TxHash)
	if err != nil || tx == nil {
		return nil, err
	}
	if tx.Code != 0 {
		return &events.Failed{
			Err: newError(CodeProviderError, "tx %s failed with code %d: %s", ref.TxHash, tx.Code, tx.RawLog),
			Ref: ref,
		}, nil
	}
	return &events.Confirmed{Ref: ref}, nil
}

func (c *Client) pollOutbound(ctx context.Context, ref models.OutboundRef) (events.Event, error) {
	out, err := c.service.OutboundTransfer(ctx, ref.OutboundID)
	if err != nil || out == nil {
		return nil, err
	}
	switch out.Status {
	case models.OutboundStatusFinalized:
		return &events.Confirmed{Ref: ref}, nil
	case models.OutboundStatusFailed, models.OutboundStatusUnrecognized:
		return &events.Failed{
			Err: newError(CodeProviderError, "outbound %s", out.Status.String()),
			Ref: ref,
		}, nil
	default:
		return nil, nil
	}
}

func (c *Client) pollInbound(ctx context.Context, ref models.InboundRef) (events.Event, error) {
	in, err := c.service.InboundTransfer(ctx, ref.InboundID)
	if err != nil || in == nil {
		return nil, err
	}
	switch in.Status {
	case models.InboundStatusFinalized:
		return &events.Confirmed{Ref: ref}, nil
	case models.InboundStatusUnrecognized:
		return &events.Failed{
			Err: newError(CodeProviderError, "inbound status %s", in.Status.String()),
			Ref: ref,
		}, nil
	default:
		return nil, nil
	}
}
