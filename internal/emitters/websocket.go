package emitters

import (
	"bitfrost-bridge/internal/events"
	"bitfrost-bridge/internal/logger"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	writeWait      = 5 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	clientSendSize = 64
)

// Feed streams transfer events to websocket subscribers as JSON text
// messages. A subscriber that falls behind loses events rather than slowing
// the bus down.
type Feed struct {
	upgrader websocket.Upgrader
	logger   *zerolog.Logger

	mu      sync.RWMutex
	clients map[*feedClient]struct{}
	closed  bool
}

type feedClient struct {
	conn *websocket.Conn
	send chan []byte
	once sync.Once
}

func (c *feedClient) close() {
	c.once.Do(func() { close(c.send) })
}

var _ events.Emitter = (*Feed)(nil)

func NewFeed(log *zerolog.Logger) *Feed {
	return &Feed{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		logger:  logger.OrNop(log),
		clients: make(map[*feedClient]struct{}),
	}
}

// ServeHTTP upgrades the request and streams events until the peer goes away.
func (f *Feed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := f.upgrader.Upgrade(w, r, nil)
	if err != nil {
		f.logger.Warn().Err(err).Msg("Websocket upgrade failed")
		return
	}

	client := &feedClient{conn: conn, send: make(chan []byte, clientSendSize)}

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		_ = conn.Close()
		return
	}
	f.clients[client] = struct{}{}
	f.mu.Unlock()

	f.logger.Info().
		Str("remote", r.RemoteAddr).
		Int("clients", f.Clients()).
		Msg("Event feed subscriber connected")

	go f.writePump(client)
	f.readPump(client)
}

// readPump discards inbound messages and detects disconnects.
func (f *Feed) readPump(c *feedClient) {
	defer f.remove(c)

	c.conn.SetReadLimit(512)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (f *Feed) writePump(c *feedClient) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (f *Feed) remove(c *feedClient) {
	f.mu.Lock()
	if _, ok := f.clients[c]; ok {
		delete(f.clients, c)
		c.close()
	}
	f.mu.Unlock()
	_ = c.conn.Close()
}

// EmitEvent queues event for every subscriber.
func (f *Feed) EmitEvent(event events.Event) error {
	payload, err := events.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	f.mu.RLock()
	defer f.mu.RUnlock()

	dropped := 0
	for c := range f.clients {
		select {
		case c.send <- payload:
		default:
			dropped++
		}
	}
	if dropped > 0 {
		f.logger.Warn().
			Int("dropped", dropped).
			Str("event", string(event.Kind())).
			Msg("Slow event feed subscribers skipped")
	}
	return nil
}

// Clients reports the number of connected subscribers.
func (f *Feed) Clients() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.clients)
}

// Close disconnects every subscriber and rejects new ones.
func (f *Feed) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	for c := range f.clients {
		delete(f.clients, c)
		c.close()
	}
	return nil
}
