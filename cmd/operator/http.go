package main

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"solana-transfer-operator/internal/bus"
	"solana-transfer-operator/internal/domain"
	"solana-transfer-operator/internal/observability"
	"solana-transfer-operator/internal/storage"
)

const maxRequestBody = 64 << 10

// httpAPI is the side channel next to the bus consumer.
type httpAPI struct {
	transfers storage.TransferStore
	events    storage.StageEventStore
	sender    bus.Sender // nil disables POST /requests
	started   time.Time
	logger    *zap.Logger
}

func (a *httpAPI) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.Handle("GET /metrics", observability.Handler())
	mux.HandleFunc("GET /status", a.handleService)
	mux.HandleFunc("GET /status/{id}", a.handleRequest)
	if a.sender != nil {
		mux.HandleFunc("POST /requests", a.handleEnqueue)
	}
	return mux
}

// ServiceStatus is the JSON response for /status.
type ServiceStatus struct {
	Status  string    `json:"status"`
	Uptime  string    `json:"uptime"`
	Started time.Time `json:"started"`
}

func (a *httpAPI) handleService(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, ServiceStatus{
		Status:  "running",
		Uptime:  time.Since(a.started).Round(time.Second).String(),
		Started: a.started,
	})
}

// RequestStatus is the JSON response for /status/{id}.
type RequestStatus struct {
	ID             string   `json:"id"`
	Kind           string   `json:"kind"`
	Status         string   `json:"status"`
	SenderPubkey   *string  `json:"sender_pubkey,omitempty"`
	Recipient      *string  `json:"recipient_pubkey,omitempty"`
	AmountLamports *int64   `json:"amount_lamports,omitempty"`
	Signature      *string  `json:"signature,omitempty"`
	Attempts       int      `json:"attempts"`
	SubmitAttempts int      `json:"submit_attempts"`
	Confirmed      bool     `json:"confirmed"`
	FailedStage    *string  `json:"failed_stage,omitempty"`
	ErrorKind      *string  `json:"error_kind,omitempty"`
	ErrorMessage   *string  `json:"error_message,omitempty"`
	Stages         []string `json:"stages,omitempty"`
	DurationMs     int64    `json:"duration_ms"`
}

func (a *httpAPI) handleRequest(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, err := a.transfers.GetByRequestID(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, "unknown request id", http.StatusNotFound)
		return
	}
	if err != nil {
		a.logger.Error("status lookup failed", zap.String("request_id", id), zap.Error(err))
		http.Error(w, "lookup failed", http.StatusInternalServerError)
		return
	}

	resp := RequestStatus{
		ID:             rec.RequestID,
		Kind:           rec.Kind.String(),
		Status:         string(rec.Status),
		SenderPubkey:   rec.SenderPubkey,
		Recipient:      rec.RecipientKey,
		AmountLamports: rec.AmountLamports,
		Signature:      rec.Signature,
		Attempts:       rec.Attempts,
		SubmitAttempts: rec.SubmitAttempts,
		Confirmed:      rec.Confirmed,
		ErrorMessage:   rec.ErrorMessage,
		DurationMs:     rec.CompletedAt - rec.ReceivedAt,
	}
	if rec.FailedStage != nil {
		s := string(*rec.FailedStage)
		resp.FailedStage = &s
	}
	if rec.ErrorKind != nil {
		k := string(*rec.ErrorKind)
		resp.ErrorKind = &k
	}

	if a.events != nil {
		events, err := a.events.GetByRequestID(r.Context(), id)
		if err != nil {
			a.logger.Warn("stage events lookup failed", zap.String("request_id", id), zap.Error(err))
		}
		resp.Stages = stageNames(events)
	}

	writeJSON(w, http.StatusOK, resp)
}

func stageNames(events []*domain.StageEvent) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, string(e.Stage))
	}
	return out
}

// handleEnqueue forwards a raw request message onto the bus. The body is
// validated by the dispatcher, not here.
func (a *httpAPI) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		http.Error(w, "request body too large", http.StatusRequestEntityTooLarge)
		return
	}
	if !json.Valid(body) {
		http.Error(w, "body is not JSON", http.StatusBadRequest)
		return
	}
	if err := a.sender.Send(r.Context(), body); err != nil {
		a.logger.Error("enqueue failed", zap.Error(err))
		http.Error(w, "enqueue failed", http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusAccepted)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
