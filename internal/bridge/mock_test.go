package bridge

import (
	"bitfrost-bridge/internal/adapters"
	"bitfrost-bridge/internal/events"
	"bitfrost-bridge/internal/interfaces"
	"bitfrost-bridge/internal/models"
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// mockService is a scripted NetworkService. Lookup sequences are consumed one
// entry per call; the last entry repeats.
type mockService struct {
	mu sync.Mutex

	params      *models.BridgeParams
	paramsErr   error
	paramsCalls int

	canTransfer      func(ctx context.Context, q models.CanTransferQuery) (*models.CanTransferResult, error)
	canTransferCalls int
	lastQuery        models.CanTransferQuery

	feeRate string
	feeErr  error

	txs         []*models.TxResult
	outbound    []*models.OutboundTransfer
	inbound     []*models.InboundTransfer
	lookupErr   error
	lookupCalls int

	// lookupDelay holds each outbound lookup; lookupStarts records when
	// each one began.
	lookupDelay  time.Duration
	lookupStarts []time.Time
}

var _ interfaces.NetworkService = (*mockService)(nil)

func (m *mockService) BridgeParams(ctx context.Context) (*models.BridgeParams, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paramsCalls++
	return m.params, m.paramsErr
}

func (m *mockService) CanTransfer(ctx context.Context, q models.CanTransferQuery) (*models.CanTransferResult, error) {
	m.mu.Lock()
	m.canTransferCalls++
	m.lastQuery = q
	fn := m.canTransfer
	m.mu.Unlock()

	if fn == nil {
		return &models.CanTransferResult{CanTransfer: true}, nil
	}
	return fn(ctx, q)
}

func (m *mockService) EstimateFee(ctx context.Context, src, dst string, asset models.AssetID) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.feeRate, m.feeErr
}

func (m *mockService) GetTx(ctx context.Context, txHash string) (*models.TxResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookupCalls++
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	return next(&m.txs), nil
}

func (m *mockService) OutboundTransfer(ctx context.Context, id string) (*models.OutboundTransfer, error) {
	m.mu.Lock()
	m.lookupStarts = append(m.lookupStarts, time.Now())
	delay := m.lookupDelay
	m.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookupCalls++
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	return next(&m.outbound), nil
}

func (m *mockService) InboundTransfer(ctx context.Context, id string) (*models.InboundTransfer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lookupCalls++
	if m.lookupErr != nil {
		return nil, m.lookupErr
	}
	return next(&m.inbound), nil
}

func (m *mockService) CanTransferCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.canTransferCalls
}

func (m *mockService) LookupCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lookupCalls
}

func (m *mockService) LookupStarts() []time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Time(nil), m.lookupStarts...)
}

func next[T any](seq *[]*T) *T {
	if len(*seq) == 0 {
		return nil
	}
	v := (*seq)[0]
	if len(*seq) > 1 {
		*seq = (*seq)[1:]
	}
	return v
}

// stubAdapter builds a fixed transaction and optionally sends it
type stubAdapter struct {
	kind      models.ChainKind
	canHandle bool
	buildErr  error
	built     int
}

func (s *stubAdapter) Kind() models.ChainKind { return s.kind }

func (s *stubAdapter) CanHandle(string, *adapters.Context) bool { return s.canHandle }

func (s *stubAdapter) Build(ctx context.Context, req models.TransferRequest, actx *adapters.Context) (*models.BuiltTx, error) {
	s.built++
	if s.buildErr != nil {
		return nil, s.buildErr
	}
	return &models.BuiltTx{Kind: s.kind, Raw: req.Amount, Meta: map[string]string{"network": actx.Network.String()}}, nil
}

type stubSender struct {
	stubAdapter
	txHash string
	err    error
}

func (s *stubSender) Send(ctx context.Context, built *models.BuiltTx, signer interfaces.Signer) (string, error) {
	return s.txHash, s.err
}

type stubSigner struct{}

func (stubSigner) Address() string { return "int3face1signer" }

func (stubSigner) SignAndBroadcast(context.Context, models.ChainKind, []byte) (string, error) {
	return "", nil
}

// recorder collects emitted events
type recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *recorder) listen(e events.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]events.Event, len(r.events))
	copy(out, r.events)
	return out
}

func (r *recorder) count(kind events.Kind) int {
	n := 0
	for _, e := range r.all() {
		if e.Kind() == kind {
			n++
		}
	}
	return n
}

// safeBuffer is a log sink safe for concurrent writers
type safeBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *safeBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *safeBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func bridgeStatus(s models.BridgeStatus) *models.BridgeStatus {
	return &s
}

// scenarioParams: chainA -> chainB, asset chainA-uusdc with minimum 10
func scenarioParams() *models.BridgeParams {
	return &models.BridgeParams{
		BridgeStatus: bridgeStatus(models.BridgeStatusOK),
		Chains: []models.Chain{
			{ID: "chainA", Type: 0, InboundStatus: models.ChainStatusOK, OutboundStatus: models.ChainStatusOK},
			{ID: "chainB", Type: 0, InboundStatus: models.ChainStatusOK, OutboundStatus: models.ChainStatusOK},
		},
		Assets: []models.Asset{{
			ID:                models.AssetID{SourceChain: "chainA", Denom: "uusdc"},
			Status:            models.AssetStatusOK,
			MinTransferAmount: "10",
		}},
	}
}

func scenarioRequest() models.TransferRequest {
	return models.TransferRequest{
		FromChainID: "chainA",
		ToChainID:   "chainB",
		AssetID:     "chainA-uusdc",
		Amount:      "50",
		ToAddress:   "int3face1receiver",
	}
}

type testClient struct {
	*Client
	service *mockService
	events  *recorder
	logs    *safeBuffer
}

func newTestClient(t *testing.T, svc *mockService, list ...adapters.Adapter) *testClient {
	t.Helper()

	logs := &safeBuffer{}
	log := zerolog.New(logs)

	c, err := New(context.Background(), Options{
		Network:       models.Testnet,
		Service:       svc,
		Adapters:      adapters.NewRegistry(list...),
		Logger:        &log,
		Timeouts:      models.Timeouts{CanTransfer: time.Second},
		PollInterval:  time.Hour,
		TrackInterval: time.Millisecond,
	})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(c.Destroy)

	rec := &recorder{}
	c.On(rec.listen)

	return &testClient{Client: c, service: svc, events: rec, logs: logs}
}
