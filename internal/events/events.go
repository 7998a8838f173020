package events

import (
	"bitfrost-bridge/internal/models"
	"encoding/json"

	"github.com/rs/zerolog"
)

// Emitter defines the interface for forwarding transfer events to a sink
type Emitter interface {
	EmitEvent(event Event) error
}

// LogEmitter logs every event and forwards it to the wrapped emitter
type LogEmitter struct {
	WrappedEmitter Emitter
	Logger         *zerolog.Logger
	Network        models.Network
}

// EmitEvent logs event details and forwards to the wrapped emitter
func (d *LogEmitter) EmitEvent(event Event) error {
	entry := d.Logger.Info().
		Str("event", string(event.Kind())).
		Str("correlationId", event.CorrelationID()).
		Str("network", d.Network.String()).
		Time("timestamp", event.Timestamp())

	switch e := event.(type) {
	case *PreflightStarted:
		entry = requestFields(entry, e.Request)
	case *DecisionMade:
		entry = requestFields(entry, e.Request).
			Bool("allowed", e.Decision.Allowed).
			Str("reason", e.Decision.Reason)
	case *Built:
		entry = requestFields(entry, e.Request).
			Str("kind", e.Built.Kind.String())
	case *Submitted:
		entry = requestFields(entry, e.Request).
			Str("txId", e.Handle.TxID).
			Str("txHash", e.Handle.SubmitTxHash)
	case *Confirmed:
		entry = entry.Str("ref", e.Ref.RefKind())
	case *Failed:
		entry = d.Logger.Warn().
			Str("event", string(event.Kind())).
			Str("correlationId", event.CorrelationID()).
			Err(e.Err)
		if e.Ref != nil {
			entry = entry.Str("ref", e.Ref.RefKind())
		}
	}
	entry.Msg("Transfer event")

	if d.WrappedEmitter != nil {
		return d.WrappedEmitter.EmitEvent(event)
	}
	return nil
}

func requestFields(entry *zerolog.Event, req models.TransferRequest) *zerolog.Event {
	return entry.
		Str("from", req.FromChainID).
		Str("to", req.ToChainID).
		Str("asset", req.AssetID).
		Str("amount", req.Amount)
}

type envelope struct {
	Type    Kind   `json:"type"`
	RefKind string `json:"ref_kind,omitempty"`
	Error   string `json:"error,omitempty"`
	Event   Event  `json:"event"`
}

// Marshal encodes an event with its kind so sinks can decode it without the
// Go type.
func Marshal(event Event) ([]byte, error) {
	env := envelope{Type: event.Kind(), Event: event}
	switch e := event.(type) {
	case *Confirmed:
		env.RefKind = e.Ref.RefKind()
	case *Failed:
		if e.Ref != nil {
			env.RefKind = e.Ref.RefKind()
		}
		if e.Err != nil {
			env.Error = e.Err.Error()
		}
	}
	return json.Marshal(env)
}
