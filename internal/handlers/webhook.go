// Package handlers exposes the HTTP surface: webhook ingestion, the
// state read API, login, health and metrics.
package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"

	"github.com/pytorch/alerting-infra/internal/pipeline"
)

// maxWebhookBody bounds inbound payload size.
const maxWebhookBody = 1 << 20

// Header names the transport stamps on inbound webhooks.
const (
	ProviderHeader     = "X-Provider"
	MessageIDHeader    = "X-Message-Id"
	ReceiveCountHeader = "X-Receive-Count"
)

// MessageProcessor is the consumed pipeline interface.
type MessageProcessor interface {
	Process(ctx context.Context, payload []byte, meta pipeline.Metadata) pipeline.Result
}

// WebhookHandler accepts provider webhooks and runs them through the
// pipeline.
type WebhookHandler struct {
	processor MessageProcessor
	topic     string
	region    string
	log       *log.Logger
}

// NewWebhookHandler creates the handler. topic and region label the
// ingest path in debug context.
func NewWebhookHandler(processor MessageProcessor, topic, region string) *WebhookHandler {
	return &WebhookHandler{
		processor: processor,
		topic:     topic,
		region:    region,
		log:       log.With("component", "webhook"),
	}
}

// ServeHTTP handles POST /webhook. The response status mirrors the
// pipeline result: 200 for processed, 400 for payloads that can never
// succeed, 503 when the caller should redeliver.
func (h *WebhookHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	payload, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody+1))
	if err != nil {
		respondError(w, http.StatusBadRequest, "unreadable body")
		return
	}
	if len(payload) > maxWebhookBody {
		respondError(w, http.StatusRequestEntityTooLarge, "payload too large")
		return
	}
	if len(payload) == 0 {
		respondError(w, http.StatusBadRequest, "empty body")
		return
	}

	receiveCount, _ := strconv.Atoi(r.Header.Get(ReceiveCountHeader))
	if receiveCount < 1 {
		receiveCount = 1
	}

	meta := pipeline.Metadata{
		ProviderHint: r.Header.Get(ProviderHeader),
		MessageID:    r.Header.Get(MessageIDHeader),
		ReceiveCount: receiveCount,
		Topic:        h.topic,
		Region:       h.region,
	}

	result := h.processor.Process(r.Context(), payload, meta)

	status := http.StatusOK
	switch result.Status {
	case pipeline.StatusValidationFailed:
		status = http.StatusBadRequest
	case pipeline.StatusTransient:
		status = http.StatusServiceUnavailable
	}

	h.log.Info("webhook processed",
		"source", result.Source,
		"status", result.Status,
		"events", len(result.Outcomes),
		"message_id", meta.MessageID)

	respondJSON(w, status, result)
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
