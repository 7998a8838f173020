package bridge

import (
	"bitfrost-bridge/internal/adapters"
	"bitfrost-bridge/internal/events"
	"bitfrost-bridge/internal/interfaces"
	"bitfrost-bridge/internal/logger"
	"bitfrost-bridge/internal/models"
	"bitfrost-bridge/internal/registry"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	DefaultCanTransferTimeout = 10 * time.Second
	DefaultTrackInterval      = 3 * time.Second
)

// Options configures a Client. Service is required; everything else has a
// default.
type Options struct {
	Network       models.Network
	Service       interfaces.NetworkService
	Adapters      *adapters.Registry
	Logger        *zerolog.Logger
	Timeouts      models.Timeouts
	PollInterval  time.Duration
	TrackInterval time.Duration
}

// Client orchestrates transfers: it keeps the registry fresh, runs preflight,
// dispatches to adapters and tracks submitted transfers.
type Client struct {
	service       interfaces.NetworkService
	registry      *registry.Cache
	adapters      *adapters.Registry
	bus           *events.Bus
	network       models.Network
	timeouts      models.Timeouts
	pollInterval  time.Duration
	trackInterval time.Duration
	logger        *zerolog.Logger

	destroyOnce sync.Once
}

// New creates a client, loads the registry once and starts periodic refresh.
// It fails if the first load fails.
func New(ctx context.Context, opts Options) (*Client, error) {
	c, err := newClient(opts)
	if err != nil {
		return nil, err
	}

	if _, err := c.registry.Refresh(ctx); err != nil {
		return nil, fmt.Errorf("initial registry load: %w", err)
	}
	c.registry.Start(c.pollInterval)

	c.logger.Info().
		Str("network", c.network.String()).
		Dur("pollInterval", c.pollInterval).
		Interface("adapters", c.adapters.Kinds()).
		Msg("Bridge client ready")

	return c, nil
}

func newClient(opts Options) (*Client, error) {
	if opts.Service == nil {
		return nil, errors.New("bridge: network service is required")
	}

	c := &Client{
		service:       opts.Service,
		adapters:      opts.Adapters,
		network:       opts.Network,
		timeouts:      opts.Timeouts,
		pollInterval:  opts.PollInterval,
		trackInterval: opts.TrackInterval,
		logger:        logger.OrNop(opts.Logger),
	}
	if c.adapters == nil {
		c.adapters = adapters.NewRegistry()
	}
	if c.network == "" {
		c.network = models.Mainnet
	}
	if c.timeouts.CanTransfer <= 0 {
		c.timeouts.CanTransfer = DefaultCanTransferTimeout
	}
	if c.pollInterval <= 0 {
		c.pollInterval = registry.DefaultPollInterval
	}
	if c.trackInterval <= 0 {
		c.trackInterval = DefaultTrackInterval
	}

	c.registry = registry.NewCache(c.service, c.logger)
	c.bus = events.NewBus(c.logger)
	return c, nil
}

// On registers a listener for every lifecycle event and returns a function
// that removes it.
func (c *Client) On(l events.Listener) func() {
	return c.bus.Subscribe(l)
}

// Events exposes the bus so sinks can be attached.
func (c *Client) Events() *events.Bus {
	return c.bus
}

// Cache exposes the registry cache for refresh hooks.
func (c *Client) Cache() *registry.Cache {
	return c.registry
}

// Refresh reloads the registry now.
func (c *Client) Refresh(ctx context.Context) error {
	_, err := c.registry.Refresh(ctx)
	return err
}

// Registry returns the current snapshot.
func (c *Client) Registry() (*models.RegistrySnapshot, error) {
	return c.registry.Snapshot()
}

// Destroy stops periodic refresh and removes all listeners. Calls after the
// first do nothing.
func (c *Client) Destroy() {
	c.destroyOnce.Do(func() {
		c.registry.Stop()
		c.bus.Clear()
		c.logger.Info().Msg("Bridge client destroyed")
	})
}

func (c *Client) adapterContext(snap *models.RegistrySnapshot) *adapters.Context {
	return &adapters.Context{
		Registry: snap,
		Network:  c.network,
		Logger:   c.logger,
		Timeouts: c.timeouts,
	}
}
