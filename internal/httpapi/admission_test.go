package httpapi

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAdmission_QueueTimeout(t *testing.T) {
	a := newAdmission(1, 20*time.Millisecond)
	rel, err := a.begin(context.Background())
	if err != nil {
		t.Fatalf("first begin: %v", err)
	}
	defer rel()
	// depth 1 is taken by the running request
	if _, err := a.begin(context.Background()); !IsTooBusy(err) {
		t.Fatalf("expected tooBusyError, got %v", err)
	}
}

func TestAdmission_GenTimeout(t *testing.T) {
	a := newAdmission(2, 20*time.Millisecond)
	a.genCh <- struct{}{}
	if _, err := a.begin(context.Background()); !IsTooBusy(err) {
		t.Fatalf("expected tooBusyError on gen wait, got %v", err)
	}
	if len(a.queueCh) != 0 {
		t.Fatalf("queue slot leaked: %d", len(a.queueCh))
	}
}

func TestAdmission_ReleaseFreesSlots(t *testing.T) {
	a := newAdmission(1, 20*time.Millisecond)
	for i := 0; i < 3; i++ {
		rel, err := a.begin(context.Background())
		if err != nil {
			t.Fatalf("begin %d: %v", i, err)
		}
		rel()
	}
}

func TestAdmission_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := newAdmission(1, time.Second).begin(ctx); err != context.Canceled {
		t.Fatalf("err=%v", err)
	}
}

func TestGenerate_TooBusyMaps429(t *testing.T) {
	SetAdmission(1, 20*time.Millisecond)
	defer SetAdmission(0, 0)
	rel, err := currentGate().begin(context.Background())
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	defer rel()

	w := postJSON(t, NewMux(&mockService{tokens: []string{"x"}}), "/generate", `{"prompt":"hi"}`)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status=%d", w.Code)
	}
	mrr := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(mrr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !bytes.Contains(mrr.Body.Bytes(), []byte(`gptlocal_http_backpressure_total{reason="queue_full"}`)) {
		t.Fatalf("backpressure not counted")
	}
}

func TestGenerate_TimeoutWhileQueuedMaps503(t *testing.T) {
	SetAdmission(4, time.Minute)
	defer SetAdmission(0, 0)
	SetGenerateTimeout(30 * time.Millisecond)
	defer SetGenerateTimeout(0)
	// the model is busy for longer than the request may wait
	g := currentGate()
	g.genCh <- struct{}{}
	defer func() { <-g.genCh }()

	for _, path := range []string{"/generate", "/chat/completions"} {
		body := `{"prompt":"hi"}`
		if path == "/chat/completions" {
			body = `{"messages":[{"role":"user","content":"hi"}]}`
		}
		w := postJSON(t, NewMux(&mockService{tokens: []string{"x"}}), path, body)
		if w.Code != http.StatusServiceUnavailable {
			t.Fatalf("%s: status=%d body=%q", path, w.Code, w.Body.String())
		}
		if e := decodeError(t, w); e.Code != http.StatusServiceUnavailable || e.Error == "" {
			t.Fatalf("%s: error=%+v", path, e)
		}
	}
	if len(g.queueCh) != 0 {
		t.Fatalf("queue slot leaked: %d", len(g.queueCh))
	}

	mrr := httptest.NewRecorder()
	NewMux(&mockService{}).ServeHTTP(mrr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !bytes.Contains(mrr.Body.Bytes(), []byte(`gptlocal_http_backpressure_total{reason="wait_timeout"}`)) {
		t.Fatalf("timeout not counted as backpressure")
	}
}
