package registry

import (
	"bitfrost-bridge/internal/models"
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// mockSource is a ParamsSource whose fetch can be held open
type mockSource struct {
	mu      sync.Mutex
	calls   int
	params  *models.BridgeParams
	err     error
	entered chan struct{}
	release chan struct{}
}

func (m *mockSource) BridgeParams(ctx context.Context) (*models.BridgeParams, error) {
	m.mu.Lock()
	m.calls++
	params, err := m.params, m.err
	entered, release := m.entered, m.release
	m.mu.Unlock()

	if entered != nil {
		select {
		case entered <- struct{}{}:
		default:
		}
	}
	if release != nil {
		<-release
	}
	return params, err
}

func (m *mockSource) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *mockSource) Set(params *models.BridgeParams, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.params, m.err = params, err
}

func okParams() *models.BridgeParams {
	status := models.BridgeStatusOK
	return &models.BridgeParams{
		BridgeStatus: &status,
		Chains:       []models.Chain{{ID: "chainA"}, {ID: "chainB"}},
		Assets: []models.Asset{{
			ID:     models.AssetID{SourceChain: "chainA", Denom: "uusdc"},
			Status: models.AssetStatusOK,
		}},
	}
}

func TestCache_SnapshotBeforeRefresh(t *testing.T) {
	cache := NewCache(&mockSource{params: okParams()}, nil)

	if _, err := cache.Snapshot(); !errors.Is(err, ErrUninitialized) {
		t.Errorf("Snapshot() error = %v, want ErrUninitialized", err)
	}
	if !cache.LastRefresh().IsZero() {
		t.Error("LastRefresh should be zero before the first refresh")
	}
}

func TestCache_ConcurrentRefreshSharesFetch(t *testing.T) {
	source := &mockSource{
		params:  okParams(),
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	cache := NewCache(source, nil)

	const callers = 8
	results := make([]*models.RegistrySnapshot, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			snap, err := cache.Refresh(context.Background())
			if err != nil {
				t.Errorf("Refresh() error = %v", err)
				return
			}
			results[i] = snap
		}(i)
	}

	<-source.entered
	// Let the remaining callers join the in-flight fetch
	time.Sleep(50 * time.Millisecond)
	close(source.release)
	wg.Wait()

	if got := source.Calls(); got != 1 {
		t.Errorf("Expected 1 fetch, got %d", got)
	}
	for i := 1; i < callers; i++ {
		if results[i] != results[0] {
			t.Fatalf("Caller %d received a different snapshot", i)
		}
	}

	current, err := cache.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if current != results[0] {
		t.Error("Snapshot() should return the refreshed snapshot")
	}
}

func TestCache_SnapshotIdentity(t *testing.T) {
	cache := NewCache(&mockSource{params: okParams()}, nil)

	first, err := cache.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	a, _ := cache.Snapshot()
	b, _ := cache.Snapshot()
	if a != first || b != first {
		t.Error("Snapshot() should return the same pointer between refreshes")
	}

	// Mutating a returned copy must not leak into the snapshot
	chains := first.Chains()
	delete(chains, "chainA")
	if _, ok := first.Chain("chainA"); !ok {
		t.Error("Snapshot was mutated through Chains()")
	}

	second, err := cache.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if second == first {
		t.Error("Refresh() should install a new snapshot")
	}
	if _, ok := first.Chain("chainB"); !ok {
		t.Error("Old snapshot changed after refresh")
	}
}

func TestCache_FailedRefreshKeepsPrevious(t *testing.T) {
	source := &mockSource{params: okParams()}
	cache := NewCache(source, nil)

	first, err := cache.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}

	source.Set(nil, errors.New("node unreachable"))
	if _, err := cache.Refresh(context.Background()); err == nil {
		t.Fatal("Expected error from Refresh")
	}

	current, err := cache.Snapshot()
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if current != first {
		t.Error("Failed refresh replaced the snapshot")
	}
}

func TestCache_CallerCancellationDoesNotAbortFetch(t *testing.T) {
	source := &mockSource{
		params:  okParams(),
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	cache := NewCache(source, nil)

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := cache.Refresh(ctx)
		errCh <- err
	}()

	<-source.entered
	cancel()
	if err := <-errCh; !errors.Is(err, context.Canceled) {
		t.Errorf("Refresh() error = %v, want context.Canceled", err)
	}

	close(source.release)
	deadline := time.Now().Add(time.Second)
	for {
		if _, err := cache.Snapshot(); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("Detached fetch never installed a snapshot")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestCache_OnRefreshHook(t *testing.T) {
	cache := NewCache(&mockSource{params: okParams()}, nil)

	var got *models.RegistrySnapshot
	cache.OnRefresh(func(s *models.RegistrySnapshot) { got = s })

	snap, err := cache.Refresh(context.Background())
	if err != nil {
		t.Fatalf("Refresh() error = %v", err)
	}
	if got != snap {
		t.Error("OnRefresh hook did not receive the new snapshot")
	}
	if cache.LastRefresh().IsZero() {
		t.Error("LastRefresh not recorded")
	}
}

func TestCache_StartStop(t *testing.T) {
	source := &mockSource{params: okParams()}
	cache := NewCache(source, nil)

	cache.Start(10 * time.Millisecond)
	cache.Start(10 * time.Millisecond)

	deadline := time.Now().Add(time.Second)
	for source.Calls() < 2 {
		if time.Now().After(deadline) {
			t.Fatalf("Expected periodic refreshes, got %d", source.Calls())
		}
		time.Sleep(5 * time.Millisecond)
	}

	cache.Stop()
	cache.Stop()

	// A tick that raced with Stop may still finish its detached fetch
	time.Sleep(20 * time.Millisecond)
	calls := source.Calls()
	time.Sleep(50 * time.Millisecond)
	if got := source.Calls(); got != calls {
		t.Errorf("Refresh continued after Stop: %d -> %d", calls, got)
	}

	// Start after Stop stays stopped
	cache.Start(10 * time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	if got := source.Calls(); got != calls {
		t.Errorf("Start after Stop resumed refreshing: %d -> %d", calls, got)
	}
}

func TestCache_StopWithoutStart(t *testing.T) {
	cache := NewCache(&mockSource{params: okParams()}, nil)
	cache.Stop()
}
