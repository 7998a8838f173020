package main

import (
	"bitfrost-bridge/internal/bridge"
	"bitfrost-bridge/internal/events"
	"bitfrost-bridge/internal/models"
	"bitfrost-bridge/internal/registry"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"

	"github.com/rs/zerolog"
)

// transferClient is the part of *bridge.Client the HTTP API drives.
type transferClient interface {
	CanTransfer(ctx context.Context, req models.TransferRequest) (models.CanTransferDecision, error)
	Estimate(ctx context.Context, req models.TransferRequest) models.Estimate
	Transfer(ctx context.Context, req models.TransferRequest) (*bridge.TransferResult, error)
	Track(ctx context.Context, ref models.TransferRef) (events.Event, error)
}

// transferAPI serves preflight, estimation, building and tracking over HTTP.
// Every call goes through the client, so its events reach the feed and the
// configured sinks.
type transferAPI struct {
	client transferClient
	logger *zerolog.Logger

	// trackCtx outlives requests; tracking stops when it is cancelled.
	trackCtx context.Context
	tracking sync.WaitGroup
}

type trackRequest struct {
	TxHash     string `json:"tx_hash"`
	OutboundID string `json:"outbound_id"`
	InboundID  string `json:"inbound_id"`
}

type errorResponse struct {
	Code  string `json:"code,omitempty"`
	Error string `json:"error"`
}

func newTransferAPI(ctx context.Context, client transferClient, log *zerolog.Logger) *transferAPI {
	return &transferAPI{client: client, logger: log, trackCtx: ctx}
}

func (a *transferAPI) register(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/can-transfer", a.handleCanTransfer)
	mux.HandleFunc("GET /v1/estimate", a.handleEstimate)
	mux.HandleFunc("POST /v1/transfers", a.handleTransfer)
	mux.HandleFunc("POST /v1/track", a.handleTrack)
}

// Wait blocks until every background tracking loop has returned.
func (a *transferAPI) Wait() {
	a.tracking.Wait()
}

func (a *transferAPI) handleCanTransfer(w http.ResponseWriter, r *http.Request) {
	decision, err := a.client.CanTransfer(r.Context(), requestFromQuery(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, decision)
}

func (a *transferAPI) handleEstimate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.client.Estimate(r.Context(), requestFromQuery(r)))
}

func (a *transferAPI) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req models.TransferRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid transfer request: " + err.Error()})
		return
	}

	result, err := a.client.Transfer(r.Context(), req)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"handle": result.Handle,
		"built":  result.Built,
	})
}

// handleTrack starts tracking in the background and answers at once; the
// outcome arrives as a Confirmed or Failed event.
func (a *transferAPI) handleTrack(w http.ResponseWriter, r *http.Request) {
	var body trackRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid track request: " + err.Error()})
		return
	}
	ref, err := refFromIDs(body.TxHash, body.OutboundID, body.InboundID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	a.tracking.Add(1)
	go func() {
		defer a.tracking.Done()
		if _, err := a.client.Track(a.trackCtx, ref); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Warn().
				Err(err).
				Str("ref", ref.RefKind()).
				Msg("Tracking stopped")
		}
	}()

	writeJSON(w, http.StatusAccepted, map[string]string{"ref": ref.RefKind(), "status": "tracking"})
}

func requestFromQuery(r *http.Request) models.TransferRequest {
	q := r.URL.Query()
	return models.TransferRequest{
		FromChainID: q.Get("from"),
		ToChainID:   q.Get("to"),
		AssetID:     q.Get("asset"),
		Amount:      q.Get("amount"),
		ToAddress:   q.Get("receiver"),
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	switch {
	case errors.Is(err, registry.ErrUninitialized):
		status = http.StatusServiceUnavailable
	case bridge.CodeOf(err) == bridge.CodeCanTransferDeclined:
		status = http.StatusUnprocessableEntity
	case bridge.CodeOf(err) == bridge.CodeChainUnavailable:
		status = http.StatusConflict
	}
	writeJSON(w, status, errorResponse{Code: string(bridge.CodeOf(err)), Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
