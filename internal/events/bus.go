package events

import (
	"bitfrost-bridge/internal/logger"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Listener receives events synchronously at emission time.
type Listener func(Event)

type subscription struct {
	id       uint64
	listener Listener
}

// Bus fans events out to registered listeners. A listener that panics is
// logged and skipped; it never stops delivery to the others or reaches the
// emitter.
type Bus struct {
	mu        sync.RWMutex
	listeners []subscription
	nextID    uint64

	clockMu sync.Mutex
	last    time.Time
	now     func() time.Time

	logger *zerolog.Logger
}

func NewBus(log *zerolog.Logger) *Bus {
	return &Bus{
		now:    time.Now,
		logger: logger.OrNop(log),
	}
}

// NewCorrelationID returns an opaque id shared by the events of one operation.
func NewCorrelationID() string {
	return uuid.NewString()
}

// Subscribe registers l and returns a function that removes it. The returned
// function is safe to call more than once and from inside a listener.
func (b *Bus) Subscribe(l Listener) func() {
	b.mu.Lock()
	b.nextID++
	id := b.nextID
	b.listeners = append(b.listeners, subscription{id: id, listener: l})
	b.mu.Unlock()

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i, s := range b.listeners {
			if s.id == id {
				b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
				return
			}
		}
	}
}

// SubscribeEmitter registers a sink. Errors it returns are logged.
func (b *Bus) SubscribeEmitter(name string, emitter Emitter) func() {
	return b.Subscribe(func(e Event) {
		if err := emitter.EmitEvent(e); err != nil {
			b.logger.Warn().
				Err(err).
				Str("emitter", name).
				Str("event", string(e.Kind())).
				Str("correlationId", e.CorrelationID()).
				Msg("Event emitter failed")
		}
	})
}

// Emit stamps e with the next timestamp and correlationID and delivers it to
// a snapshot of the current listeners.
func (b *Bus) Emit(correlationID string, e Event) {
	e.stamp(b.nextTimestamp(), correlationID)

	b.mu.RLock()
	listeners := make([]subscription, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.RUnlock()

	for _, s := range listeners {
		b.deliver(s.listener, e)
	}
}

func (b *Bus) deliver(l Listener, e Event) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Warn().
				Interface("panic", r).
				Str("event", string(e.Kind())).
				Str("correlationId", e.CorrelationID()).
				Msg("Event listener panicked")
		}
	}()
	l(e)
}

// nextTimestamp never returns a time at or before the previous one.
func (b *Bus) nextTimestamp() time.Time {
	b.clockMu.Lock()
	defer b.clockMu.Unlock()

	ts := b.now()
	if !ts.After(b.last) {
		ts = b.last.Add(time.Nanosecond)
	}
	b.last = ts
	return ts
}

// Clear removes every listener.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = nil
}

// Len reports the number of registered listeners.
func (b *Bus) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.listeners)
}
