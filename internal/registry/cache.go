package registry

import (
	"bitfrost-bridge/internal/logger"
	"bitfrost-bridge/internal/models"
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// ErrUninitialized is returned by Snapshot before the first successful refresh.
var ErrUninitialized = errors.New("registry not initialized")

// DefaultPollInterval is used by Start when given a non-positive interval.
const DefaultPollInterval = 30 * time.Second

// ParamsSource fetches the raw bridge parameters.
type ParamsSource interface {
	BridgeParams(ctx context.Context) (*models.BridgeParams, error)
}

// Cache holds the most recent registry snapshot. Concurrent refreshes share a
// single fetch; a failed refresh leaves the previous snapshot in place.
type Cache struct {
	source ParamsSource
	logger *zerolog.Logger

	group       singleflight.Group
	current     atomic.Pointer[models.RegistrySnapshot]
	lastRefresh atomic.Int64

	hookMu    sync.RWMutex
	onRefresh []func(*models.RegistrySnapshot)

	mu      sync.Mutex
	cancel  context.CancelFunc
	done    chan struct{}
	stopped bool
}

func NewCache(source ParamsSource, log *zerolog.Logger) *Cache {
	return &Cache{
		source: source,
		logger: logger.OrNop(log),
	}
}

// Refresh fetches and installs a new snapshot. Callers that arrive while a
// fetch is running wait for it and receive the same result. The fetch itself
// is not cancelled when one caller's ctx is; that caller just stops waiting.
func (c *Cache) Refresh(ctx context.Context) (*models.RegistrySnapshot, error) {
	ch := c.group.DoChan("refresh", func() (any, error) {
		return c.fetch(context.WithoutCancel(ctx))
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*models.RegistrySnapshot), nil
	}
}

func (c *Cache) fetch(ctx context.Context) (*models.RegistrySnapshot, error) {
	params, err := c.source.BridgeParams(ctx)
	if err != nil {
		return nil, fmt.Errorf("refresh registry: %w", err)
	}

	snap := models.NewRegistrySnapshot(params)
	c.current.Store(snap)
	c.lastRefresh.Store(time.Now().UnixNano())

	c.logger.Debug().
		Int("chains", len(snap.Chains())).
		Int("assets", len(snap.Assets())).
		Str("bridgeStatus", snap.BridgeStatus().String()).
		Msg("Registry refreshed")

	c.hookMu.RLock()
	hooks := make([]func(*models.RegistrySnapshot), len(c.onRefresh))
	copy(hooks, c.onRefresh)
	c.hookMu.RUnlock()
	for _, hook := range hooks {
		hook(snap)
	}

	return snap, nil
}

// Snapshot returns the current snapshot without any network activity.
func (c *Cache) Snapshot() (*models.RegistrySnapshot, error) {
	snap := c.current.Load()
	if snap == nil {
		return nil, ErrUninitialized
	}
	return snap, nil
}

// LastRefresh is the time of the last successful refresh, zero if none.
func (c *Cache) LastRefresh() time.Time {
	ns := c.lastRefresh.Load()
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// OnRefresh registers fn to run after every successful refresh.
func (c *Cache) OnRefresh(fn func(*models.RegistrySnapshot)) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	c.onRefresh = append(c.onRefresh, fn)
}

// Start refreshes the cache every interval until Stop is called. Failures are
// logged and the ticker keeps running. Calling Start twice, or after Stop, is a
// no-op.
func (c *Cache) Start(interval time.Duration) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cancel != nil || c.stopped {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.done = make(chan struct{})

	go c.run(ctx, interval, c.done)

	c.logger.Info().
		Dur("interval", interval).
		Msg("Registry refresh started")
}

func (c *Cache) run(ctx context.Context, interval time.Duration, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := c.Refresh(ctx); err != nil && ctx.Err() == nil {
				c.logger.Warn().
					Err(err).
					Msg("Periodic registry refresh failed")
			}
		}
	}
}

// Stop ends periodic refresh. It is safe to call more than once and without a
// prior Start.
func (c *Cache) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	cancel, done := c.cancel, c.done
	c.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	c.logger.Info().Msg("Registry refresh stopped")
}
