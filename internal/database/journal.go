package database

import (
	"bitfrost-bridge/internal/events"
	"bitfrost-bridge/internal/logger"
	"bitfrost-bridge/internal/models"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// execer is satisfied by *sql.DB and *sql.Tx
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// JournalEntry is one row of transfer_events. The journal is append-only and
// this process never reads it back.
type JournalEntry struct {
	CorrelationID string
	Kind          events.Kind
	OccurredAt    time.Time
	FromChain     sql.NullString
	ToChain       sql.NullString
	AssetID       sql.NullString
	Amount        sql.NullString
	Allowed       sql.NullBool
	Reason        sql.NullString
	RefKind       sql.NullString
	RefID         sql.NullString
	TxHash        sql.NullString
	Error         sql.NullString
	Payload       []byte
}

const (
	DefaultJournalBuffer = 256
	journalWriteTimeout  = 5 * time.Second
)

var (
	ErrJournalFull   = errors.New("journal queue is full, event dropped")
	ErrJournalClosed = errors.New("journal is closed")
)

// Journal writes every transfer event to Postgres. EmitEvent only queues the
// row; a single writer goroutine inserts rows in emission order.
type Journal struct {
	db      execer
	timeout time.Duration
	logger  *zerolog.Logger

	queue chan JournalEntry
	done  chan struct{}

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

var _ events.Emitter = (*Journal)(nil)

// NewJournal starts the writer. bufferSize bounds the rows waiting for the
// database; when it is full new events are dropped.
func NewJournal(db *sql.DB, bufferSize int, log *zerolog.Logger) *Journal {
	return newJournal(db, journalWriteTimeout, bufferSize, log)
}

func newJournal(db execer, timeout time.Duration, bufferSize int, log *zerolog.Logger) *Journal {
	if bufferSize <= 0 {
		bufferSize = DefaultJournalBuffer
	}
	j := &Journal{
		db:      db,
		timeout: timeout,
		logger:  logger.OrNop(log),
		queue:   make(chan JournalEntry, bufferSize),
		done:    make(chan struct{}),
	}
	go j.run()
	return j
}

// EmitEvent queues event without waiting for the database.
func (j *Journal) EmitEvent(event events.Event) error {
	entry, err := NewJournalEntry(event)
	if err != nil {
		return err
	}

	j.mu.RLock()
	defer j.mu.RUnlock()
	if j.closed {
		return ErrJournalClosed
	}

	select {
	case j.queue <- entry:
		return nil
	default:
		return ErrJournalFull
	}
}

// Close stops accepting events and waits until every queued row has been
// written or has failed.
func (j *Journal) Close() error {
	j.closeOnce.Do(func() {
		j.mu.Lock()
		j.closed = true
		close(j.queue)
		j.mu.Unlock()
	})
	<-j.done
	return nil
}

func (j *Journal) run() {
	defer close(j.done)
	for entry := range j.queue {
		if err := j.insert(entry); err != nil {
			j.logger.Error().
				Err(err).
				Str("event", string(entry.Kind)).
				Str("correlationId", entry.CorrelationID).
				Msg("Failed to journal event")
		}
	}
}

func (j *Journal) insert(entry JournalEntry) error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	_, err := j.db.ExecContext(ctx, `
		INSERT INTO transfer_events (correlation_id, kind, occurred_at, from_chain, to_chain, asset_id, amount, allowed, reason, ref_kind, ref_id, tx_hash, error, payload)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`, entry.CorrelationID, string(entry.Kind), entry.OccurredAt, entry.FromChain, entry.ToChain, entry.AssetID,
		entry.Amount, entry.Allowed, entry.Reason, entry.RefKind, entry.RefID, entry.TxHash, entry.Error, entry.Payload)
	if err != nil {
		return fmt.Errorf("failed to journal %s event: %w", entry.Kind, err)
	}
	return nil
}

// NewJournalEntry flattens event into its row.
func NewJournalEntry(event events.Event) (JournalEntry, error) {
	payload, err := events.Marshal(event)
	if err != nil {
		return JournalEntry{}, fmt.Errorf("failed to marshal event: %w", err)
	}

	entry := JournalEntry{
		CorrelationID: event.CorrelationID(),
		Kind:          event.Kind(),
		OccurredAt:    event.Timestamp(),
		Payload:       payload,
	}

	switch e := event.(type) {
	case *events.PreflightStarted:
		entry.setRequest(e.Request)
	case *events.DecisionMade:
		entry.setRequest(e.Request)
		entry.Allowed = sql.NullBool{Bool: e.Decision.Allowed, Valid: true}
		entry.Reason = nullString(e.Decision.Reason)
	case *events.Built:
		entry.setRequest(e.Request)
	case *events.Submitted:
		entry.setRequest(e.Request)
		entry.TxHash = nullString(e.Handle.SubmitTxHash)
	case *events.Confirmed:
		entry.setRef(e.Ref)
	case *events.Failed:
		entry.setRef(e.Ref)
		if e.Err != nil {
			entry.Error = nullString(e.Err.Error())
		}
	}
	return entry, nil
}

func (e *JournalEntry) setRequest(req models.TransferRequest) {
	e.FromChain = nullString(req.FromChainID)
	e.ToChain = nullString(req.ToChainID)
	e.AssetID = nullString(req.AssetID)
	e.Amount = nullString(req.Amount)
}

func (e *JournalEntry) setRef(ref models.TransferRef) {
	if ref == nil {
		return
	}
	e.RefKind = nullString(ref.RefKind())
	switch r := ref.(type) {
	case models.NativeTxRef:
		e.RefID = nullString(r.TxHash)
		e.TxHash = nullString(r.TxHash)
	case models.OutboundRef:
		e.RefID = nullString(r.OutboundID)
	case models.InboundRef:
		e.RefID = nullString(r.InboundID)
	case models.ExternalRef:
		e.RefID = nullString(r.ChainID + ":" + r.TxID)
		e.TxHash = nullString(r.TxID)
	}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
