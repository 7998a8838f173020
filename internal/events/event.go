package events

import (
	"bitfrost-bridge/internal/models"
	"time"
)

type Kind string

const (
	KindPreflightStarted Kind = "preflight_started"
	KindDecisionMade     Kind = "decision_made"
	KindBuilt            Kind = "built"
	KindSubmitted        Kind = "submitted"
	KindConfirmed        Kind = "confirmed"
	KindFailed           Kind = "failed"
)

// Event is one lifecycle point of a transfer. The variants are closed to this
// package; consumers switch on the concrete type.
type Event interface {
	Kind() Kind
	Timestamp() time.Time
	CorrelationID() string
	stamp(ts time.Time, correlationID string)
}

// Meta is stamped by the Bus at emission time.
type Meta struct {
	At   time.Time `json:"ts"`
	Corr string    `json:"correlation_id"`
}

func (m *Meta) Timestamp() time.Time  { return m.At }
func (m *Meta) CorrelationID() string { return m.Corr }

func (m *Meta) stamp(ts time.Time, c string) {
	m.At = ts
	m.Corr = c
}

type PreflightStarted struct {
	Meta
	Request models.TransferRequest `json:"request"`
}

type DecisionMade struct {
	Meta
	Request  models.TransferRequest     `json:"request"`
	Decision models.CanTransferDecision `json:"decision"`
}

type Built struct {
	Meta
	Request models.TransferRequest `json:"request"`
	Built   *models.BuiltTx        `json:"built"`
}

type Submitted struct {
	Meta
	Request models.TransferRequest `json:"request"`
	Handle  models.TransferHandle  `json:"handle"`
}

type Confirmed struct {
	Meta
	Ref models.TransferRef `json:"ref"`
}

type Failed struct {
	Meta
	Err error              `json:"-"`
	Ref models.TransferRef `json:"ref,omitempty"`
}

func (*PreflightStarted) Kind() Kind { return KindPreflightStarted }
func (*DecisionMade) Kind() Kind     { return KindDecisionMade }
func (*Built) Kind() Kind            { return KindBuilt }
func (*Submitted) Kind() Kind        { return KindSubmitted }
func (*Confirmed) Kind() Kind        { return KindConfirmed }
func (*Failed) Kind() Kind           { return KindFailed }
