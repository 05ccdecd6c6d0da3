package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pytorch/alerting-infra/internal/pipeline"
)

// fakeProcessor returns a canned result and records the metadata it saw.
type fakeProcessor struct {
	result pipeline.Result
	meta   pipeline.Metadata
	body   []byte
}

func (f *fakeProcessor) Process(ctx context.Context, payload []byte, meta pipeline.Metadata) pipeline.Result {
	f.meta = meta
	f.body = payload
	return f.result
}

func TestWebhookHandler_Processed(t *testing.T) {
	fp := &fakeProcessor{result: pipeline.Result{Status: pipeline.StatusProcessed, Source: "grafana"}}
	h := NewWebhookHandler(fp, "webhook", "us-east-1")

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{"x":1}`))
	req.Header.Set(ProviderHeader, "grafana")
	req.Header.Set(MessageIDHeader, "msg-1")
	req.Header.Set(ReceiveCountHeader, "2")
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if fp.meta.ProviderHint != "grafana" || fp.meta.MessageID != "msg-1" || fp.meta.ReceiveCount != 2 {
		t.Errorf("Unexpected metadata: %+v", fp.meta)
	}
	if fp.meta.Topic != "webhook" || fp.meta.Region != "us-east-1" {
		t.Errorf("Expected ingest labels, got %+v", fp.meta)
	}

	var res pipeline.Result
	if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
		t.Fatalf("Response not JSON: %v", err)
	}
	if res.Status != pipeline.StatusProcessed {
		t.Errorf("Unexpected status in body: %s", res.Status)
	}
}

func TestWebhookHandler_ValidationFailedMapsTo400(t *testing.T) {
	fp := &fakeProcessor{result: pipeline.Result{Status: pipeline.StatusValidationFailed, Reason: "bad payload"}}
	h := NewWebhookHandler(fp, "webhook", "")

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
}

func TestWebhookHandler_TransientMapsTo503(t *testing.T) {
	fp := &fakeProcessor{result: pipeline.Result{Status: pipeline.StatusTransient}}
	h := NewWebhookHandler(fp, "webhook", "")

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("Expected 503, got %d", rec.Code)
	}
}

func TestWebhookHandler_RejectsGet(t *testing.T) {
	h := NewWebhookHandler(&fakeProcessor{}, "webhook", "")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhook", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("Expected 405, got %d", rec.Code)
	}
}

func TestWebhookHandler_RejectsEmptyBody(t *testing.T) {
	h := NewWebhookHandler(&fakeProcessor{}, "webhook", "")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("Expected 400, got %d", rec.Code)
	}
}

func TestWebhookHandler_RejectsOversizedBody(t *testing.T) {
	h := NewWebhookHandler(&fakeProcessor{}, "webhook", "")
	big := strings.Repeat("a", maxWebhookBody+1)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(big)))
	if rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("Expected 413, got %d", rec.Code)
	}
}

func TestWebhookHandler_DefaultsReceiveCount(t *testing.T) {
	fp := &fakeProcessor{result: pipeline.Result{Status: pipeline.StatusProcessed}}
	h := NewWebhookHandler(fp, "webhook", "")

	req := httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if fp.meta.ReceiveCount != 1 {
		t.Errorf("Expected default receive count 1, got %d", fp.meta.ReceiveCount)
	}
}
