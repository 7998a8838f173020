package bridge

import (
	"bitfrost-bridge/internal/events"
	"bitfrost-bridge/internal/models"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func outbound(status models.OutboundStatus) *models.OutboundTransfer {
	return &models.OutboundTransfer{TxHash: "0x1", Status: status}
}

func inbound(status models.InboundStatus) *models.InboundTransfer {
	return &models.InboundTransfer{ID: "7", Status: status}
}

func TestTrack_OutboundConfirmedOnce(t *testing.T) {
	svc := &mockService{
		params: scenarioParams(),
		outbound: []*models.OutboundTransfer{
			outbound(models.OutboundStatusPending),
			outbound(models.OutboundStatusPending),
			outbound(models.OutboundStatusFinalized),
		},
	}
	tc := newTestClient(t, svc)
	ref := models.OutboundRef{OutboundID: "0x1"}

	evt, err := tc.Track(context.Background(), ref)
	if err != nil {
		t.Fatalf("Track() error = %v", err)
	}
	confirmed, ok := evt.(*events.Confirmed)
	if !ok {
		t.Fatalf("Track() = %T, want Confirmed", evt)
	}
	if confirmed.Ref != ref {
		t.Errorf("Ref = %v, want %v", confirmed.Ref, ref)
	}
	if calls := svc.LookupCalls(); calls != 3 {
		t.Errorf("Expected 3 polls, got %d", calls)
	}
	if n := tc.events.count(events.KindConfirmed); n != 1 {
		t.Errorf("Expected 1 confirmed event, got %d", n)
	}
	if n := len(tc.events.all()); n != 1 {
		t.Errorf("Expected only the terminal event, got %d", n)
	}
}

func TestTrack_OutboundFailedOnce(t *testing.T) {
	for _, status := range []models.OutboundStatus{models.OutboundStatusFailed, models.OutboundStatusUnrecognized} {
		t.Run(status.String(), func(t *testing.T) {
			svc := &mockService{
				params: scenarioParams(),
				outbound: []*models.OutboundTransfer{
					outbound(models.OutboundStatusPending),
					outbound(status),
				},
			}
			tc := newTestClient(t, svc)

			evt, err := tc.Track(context.Background(), models.OutboundRef{OutboundID: "0x1"})
			if err != nil {
				t.Fatalf("Track() error = %v", err)
			}
			failed, ok := evt.(*events.Failed)
			if !ok {
				t.Fatalf("Track() = %T, want Failed", evt)
			}
			if CodeOf(failed.Err) != CodeProviderError || !strings.Contains(failed.Err.Error(), status.String()) {
				t.Errorf("Failed.Err = %v", failed.Err)
			}
			if n := tc.events.count(events.KindFailed); n != 1 {
				t.Errorf("Expected 1 failed event, got %d", n)
			}
			if n := tc.events.count(events.KindConfirmed); n != 0 {
				t.Errorf("Expected no confirmed event, got %d", n)
			}
		})
	}
}

func TestTrack_OutboundNotFoundKeepsPolling(t *testing.T) {
	svc := &mockService{
		params:   scenarioParams(),
		outbound: []*models.OutboundTransfer{nil, nil, outbound(models.OutboundStatusFinalized)},
	}
	tc := newTestClient(t, svc)

	evt, err := tc.Track(context.Background(), models.OutboundRef{OutboundID: "0x1"})
	if err != nil {
		t.Fatalf("Track() error = %v", err)
	}
	if evt.Kind() != events.KindConfirmed {
		t.Errorf("Track() kind = %v, want confirmed", evt.Kind())
	}
}

func TestTrack_WaitsFullIntervalAfterSlowLookup(t *testing.T) {
	const (
		interval = 40 * time.Millisecond
		delay    = 60 * time.Millisecond
	)
	svc := &mockService{
		params: scenarioParams(),
		outbound: []*models.OutboundTransfer{
			outbound(models.OutboundStatusPending),
			outbound(models.OutboundStatusPending),
			outbound(models.OutboundStatusFinalized),
		},
		lookupDelay: delay,
	}
	tc := newTestClient(t, svc)
	tc.trackInterval = interval

	if _, err := tc.Track(context.Background(), models.OutboundRef{OutboundID: "0x1"}); err != nil {
		t.Fatalf("Track() error = %v", err)
	}

	starts := svc.LookupStarts()
	if len(starts) != 3 {
		t.Fatalf("Expected 3 polls, got %d", len(starts))
	}
	for i := 1; i < len(starts); i++ {
		// Each poll begins only after the previous lookup plus a whole interval
		if gap := starts[i].Sub(starts[i-1]); gap < delay+interval {
			t.Errorf("Poll %d started %v after the previous one, want at least %v", i+1, gap, delay+interval)
		}
	}
}

func TestTrack_Inbound(t *testing.T) {
	tests := []struct {
		name   string
		status models.InboundStatus
		want   events.Kind
	}{
		{"finalized", models.InboundStatusFinalized, events.KindConfirmed},
		{"unrecognized", models.InboundStatusUnrecognized, events.KindFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{
				params:  scenarioParams(),
				inbound: []*models.InboundTransfer{inbound(models.InboundStatusPending), inbound(tt.status)},
			}
			tc := newTestClient(t, svc)

			evt, err := tc.Track(context.Background(), models.InboundRef{InboundID: "7"})
			if err != nil {
				t.Fatalf("Track() error = %v", err)
			}
			if evt.Kind() != tt.want {
				t.Errorf("Track() kind = %v, want %v", evt.Kind(), tt.want)
			}
			if n := len(tc.events.all()); n != 1 {
				t.Errorf("Expected 1 event, got %d", n)
			}
		})
	}
}

func TestTrack_NativeTx(t *testing.T) {
	tests := []struct {
		name string
		tx   *models.TxResult
		want events.Kind
	}{
		{"success", &models.TxResult{TxHash: "AB", Code: 0}, events.KindConfirmed},
		{"failure", &models.TxResult{TxHash: "AB", Code: 11, RawLog: "out of gas"}, events.KindFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{params: scenarioParams(), txs: []*models.TxResult{nil, tt.tx}}
			tc := newTestClient(t, svc)

			evt, err := tc.Track(context.Background(), models.NativeTxRef{TxHash: "AB"})
			if err != nil {
				t.Fatalf("Track() error = %v", err)
			}
			if evt.Kind() != tt.want {
				t.Errorf("Track() kind = %v, want %v", evt.Kind(), tt.want)
			}
			if calls := svc.LookupCalls(); calls != 2 {
				t.Errorf("Expected 2 polls, got %d", calls)
			}
		})
	}
}

func TestTrack_External(t *testing.T) {
	svc := &mockService{params: scenarioParams()}
	tc := newTestClient(t, svc)

	evt, err := tc.Track(context.Background(), models.ExternalRef{ChainID: "ethereum", TxID: "0xabc"})
	if err != nil || evt != nil {
		t.Errorf("Track() = %v, %v; want nil, nil", evt, err)
	}
	if svc.LookupCalls() != 0 || len(tc.events.all()) != 0 {
		t.Error("External refs must not poll or emit")
	}
	if !strings.Contains(tc.logs.String(), "External tracking is not implemented") {
		t.Error("Expected an informational log for external refs")
	}
}

func TestTrack_LookupErrorStops(t *testing.T) {
	cause := errors.New("gateway timeout")
	svc := &mockService{params: scenarioParams(), lookupErr: cause}
	tc := newTestClient(t, svc)

	evt, err := tc.Track(context.Background(), models.OutboundRef{OutboundID: "0x1"})
	if evt != nil {
		t.Errorf("Track() event = %v, want nil", evt)
	}
	if !errors.Is(err, cause) || CodeOf(err) != CodeProviderError {
		t.Errorf("Track() error = %v, want provider error wrapping the cause", err)
	}
	if n := len(tc.events.all()); n != 0 {
		t.Errorf("Expected no events, got %d", n)
	}
}

func TestTrack_Cancellation(t *testing.T) {
	svc := &mockService{
		params:   scenarioParams(),
		outbound: []*models.OutboundTransfer{outbound(models.OutboundStatusPending)},
	}
	tc := newTestClient(t, svc)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	evt, err := tc.Track(ctx, models.OutboundRef{OutboundID: "0x1"})
	if evt != nil {
		t.Errorf("Track() event = %v, want nil", evt)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Track() error = %v, want deadline exceeded", err)
	}
	if svc.LookupCalls() < 2 {
		t.Errorf("Expected repeated polling, got %d calls", svc.LookupCalls())
	}
	if n := len(tc.events.all()); n != 0 {
		t.Errorf("Expected no events, got %d", n)
	}
}

func TestTrack_RejectsEmptyRefs(t *testing.T) {
	tc := newTestClient(t, &mockService{params: scenarioParams()})

	refs := []models.TransferRef{
		models.NativeTxRef{},
		models.OutboundRef{},
		models.InboundRef{},
		nil,
	}
	for _, ref := range refs {
		if _, err := tc.Track(context.Background(), ref); CodeOf(err) != CodeProviderError {
			t.Errorf("Track(%#v) error = %v, want provider error", ref, err)
		}
	}
	if tc.service.LookupCalls() != 0 {
		t.Error("Invalid refs must not be polled")
	}
}
