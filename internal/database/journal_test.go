package database

import (
	"bitfrost-bridge/internal/events"
	"bitfrost-bridge/internal/models"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type execCall struct {
	query string
	args  []any
}

// mockExecer records statements instead of talking to Postgres. With stall
// set, each call signals entered and then waits for release or its deadline.
type mockExecer struct {
	mu    sync.Mutex
	calls []execCall
	err   error

	stall   bool
	entered chan struct{}
	release chan struct{}
}

func (m *mockExecer) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if m.stall {
		m.entered <- struct{}{}
		select {
		case <-m.release:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("no deadline on journal write")
	}
	if m.err != nil {
		return nil, m.err
	}
	m.calls = append(m.calls, execCall{query: query, args: args})
	return nil, nil
}

// stamped runs e through a Bus so it carries a timestamp and correlation id
func (m *mockExecer) Calls() []execCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]execCall(nil), m.calls...)
}

func newStalledExecer() *mockExecer {
	return &mockExecer{
		stall:   true,
		entered: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
}

func stamped(cid string, e events.Event) events.Event {
	bus := events.NewBus(nil)
	bus.Emit(cid, e)
	return e
}

var journalRequest = models.TransferRequest{
	FromChainID: "chainA",
	ToChainID:   "chainB",
	AssetID:     "chainA-uusdc",
	Amount:      "50",
	ToAddress:   "addr",
}

func TestNewJournalEntry_Decision(t *testing.T) {
	e := stamped("corr-1", &events.DecisionMade{
		Request:  journalRequest,
		Decision: models.CanTransferDecision{Allowed: false, Reason: "QUOTA_EXCEEDED"},
	})

	entry, err := NewJournalEntry(e)
	if err != nil {
		t.Fatalf("NewJournalEntry failed: %v", err)
	}

	if entry.CorrelationID != "corr-1" || entry.Kind != events.KindDecisionMade {
		t.Errorf("Unexpected identity: %s/%s", entry.CorrelationID, entry.Kind)
	}
	if entry.OccurredAt.IsZero() {
		t.Error("Expected OccurredAt to be set")
	}
	if entry.FromChain.String != "chainA" || entry.ToChain.String != "chainB" || entry.Amount.String != "50" {
		t.Errorf("Request columns not mapped: %+v", entry)
	}
	if !entry.Allowed.Valid || entry.Allowed.Bool {
		t.Errorf("Allowed = %+v, want valid false", entry.Allowed)
	}
	if entry.Reason.String != "QUOTA_EXCEEDED" {
		t.Errorf("Reason = %q", entry.Reason.String)
	}
	if entry.RefKind.Valid || entry.Error.Valid {
		t.Error("Expected ref and error columns to be NULL")
	}

	var payload map[string]any
	if err := json.Unmarshal(entry.Payload, &payload); err != nil {
		t.Fatalf("Payload is not JSON: %v", err)
	}
	if payload["type"] != string(events.KindDecisionMade) {
		t.Errorf("Payload type = %v", payload["type"])
	}
}

func TestNewJournalEntry_Refs(t *testing.T) {
	tests := []struct {
		name      string
		event     events.Event
		wantKind  string
		wantRefID string
		wantHash  string
		wantError string
	}{
		{
			name:      "confirmed outbound",
			event:     &events.Confirmed{Ref: models.OutboundRef{OutboundID: "out-7"}},
			wantKind:  "bridge-outbound",
			wantRefID: "out-7",
		},
		{
			name:      "confirmed native tx",
			event:     &events.Confirmed{Ref: models.NativeTxRef{TxHash: "ABCD"}},
			wantKind:  "native-tx",
			wantRefID: "ABCD",
			wantHash:  "ABCD",
		},
		{
			name:      "failed inbound",
			event:     &events.Failed{Ref: models.InboundRef{InboundID: "in-3"}, Err: errors.New("inbound unrecognized")},
			wantKind:  "bridge-inbound",
			wantRefID: "in-3",
			wantError: "inbound unrecognized",
		},
		{
			name:      "failed without ref",
			event:     &events.Failed{Err: errors.New("boom")},
			wantError: "boom",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			entry, err := NewJournalEntry(stamped("corr", tt.event))
			if err != nil {
				t.Fatalf("NewJournalEntry failed: %v", err)
			}
			if entry.RefKind.String != tt.wantKind || entry.RefKind.Valid != (tt.wantKind != "") {
				t.Errorf("RefKind = %+v, want %q", entry.RefKind, tt.wantKind)
			}
			if entry.RefID.String != tt.wantRefID {
				t.Errorf("RefID = %q, want %q", entry.RefID.String, tt.wantRefID)
			}
			if entry.TxHash.String != tt.wantHash {
				t.Errorf("TxHash = %q, want %q", entry.TxHash.String, tt.wantHash)
			}
			if entry.Error.String != tt.wantError {
				t.Errorf("Error = %q, want %q", entry.Error.String, tt.wantError)
			}
			if entry.FromChain.Valid {
				t.Error("Expected request columns to be NULL for tracking events")
			}
		})
	}
}

func TestJournal_EmitEvent(t *testing.T) {
	db := &mockExecer{}
	journal := newJournal(db, time.Second, 8, nil)

	bus := events.NewBus(nil)
	bus.SubscribeEmitter("journal", journal)
	bus.Emit("corr-9", &events.PreflightStarted{Request: journalRequest})
	bus.Emit("corr-9", &events.Submitted{
		Request: journalRequest,
		Handle:  models.TransferHandle{TxID: "corr-9", SubmitTxHash: "0xfeed"},
	})

	if err := journal.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	calls := db.Calls()
	if len(calls) != 2 {
		t.Fatalf("Expected 2 inserts after Close, got %d", len(calls))
	}
	if calls[0].args[1] != string(events.KindPreflightStarted) {
		t.Errorf("Rows out of order: first kind %v", calls[0].args[1])
	}

	call := calls[1]
	if !strings.Contains(call.query, "INSERT INTO transfer_events") {
		t.Errorf("Unexpected query: %s", call.query)
	}
	if len(call.args) != 14 {
		t.Fatalf("Expected 14 args, got %d", len(call.args))
	}
	if call.args[0] != "corr-9" || call.args[1] != string(events.KindSubmitted) {
		t.Errorf("Unexpected leading args: %v %v", call.args[0], call.args[1])
	}
	if hash, ok := call.args[11].(sql.NullString); !ok || hash.String != "0xfeed" {
		t.Errorf("tx_hash arg = %v", call.args[11])
	}
}

func TestJournal_StalledDatabaseDoesNotBlockEmit(t *testing.T) {
	db := newStalledExecer()
	journal := newJournal(db, 5*time.Second, 8, nil)

	bus := events.NewBus(nil)
	bus.SubscribeEmitter("journal", journal)

	start := time.Now()
	bus.Emit("corr-1", &events.PreflightStarted{Request: journalRequest})
	bus.Emit("corr-1", &events.DecisionMade{Request: journalRequest, Decision: models.CanTransferDecision{Allowed: true}})
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("Emit waited %v on the database", elapsed)
	}

	<-db.entered
	close(db.release)
	journal.Close()

	if n := len(db.Calls()); n != 2 {
		t.Errorf("Expected 2 inserts once the database recovered, got %d", n)
	}
}

func TestJournal_DropsWhenQueueFull(t *testing.T) {
	db := newStalledExecer()
	journal := newJournal(db, 5*time.Second, 1, nil)

	emit := func() error {
		return journal.EmitEvent(stamped("corr", &events.Confirmed{Ref: models.OutboundRef{OutboundID: "x"}}))
	}

	// First row is taken by the writer, second waits in the queue
	if err := emit(); err != nil {
		t.Fatalf("first EmitEvent() error = %v", err)
	}
	<-db.entered
	if err := emit(); err != nil {
		t.Fatalf("second EmitEvent() error = %v", err)
	}
	if err := emit(); !errors.Is(err, ErrJournalFull) {
		t.Errorf("third EmitEvent() error = %v, want ErrJournalFull", err)
	}

	close(db.release)
	journal.Close()

	if n := len(db.Calls()); n != 2 {
		t.Errorf("Expected 2 inserts, got %d", n)
	}
	if err := emit(); !errors.Is(err, ErrJournalClosed) {
		t.Errorf("EmitEvent() after Close error = %v, want ErrJournalClosed", err)
	}
}

func TestJournal_InsertErrorIsLogged(t *testing.T) {
	var logs bytes.Buffer
	log := zerolog.New(&logs)
	journal := newJournal(&mockExecer{err: errors.New("connection refused")}, time.Second, 8, &log)

	if err := journal.EmitEvent(stamped("corr-5", &events.Confirmed{Ref: models.OutboundRef{OutboundID: "x"}})); err != nil {
		t.Fatalf("EmitEvent() error = %v", err)
	}
	journal.Close()

	out := logs.String()
	if !strings.Contains(out, "Failed to journal event") || !strings.Contains(out, "connection refused") || !strings.Contains(out, "corr-5") {
		t.Errorf("Unexpected log output: %s", out)
	}
}
