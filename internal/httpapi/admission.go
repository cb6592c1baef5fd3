package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Defaults applied when SetAdmission receives non-positive values.
const (
	DefaultMaxQueueDepth = 32
	DefaultMaxWait       = 30 * time.Second
)

// tooBusyError signals queue overflow or wait timeout for 429 mapping.
type tooBusyError struct{ reason string }

func (e tooBusyError) Error() string { return "too busy: " + strings.ReplaceAll(e.reason, "_", " ") }

func (e tooBusyError) StatusCode() int { return http.StatusTooManyRequests }

// IsTooBusy reports whether err indicates backpressure (return 429).
func IsTooBusy(err error) bool {
	var tb tooBusyError
	return errors.As(err, &tb)
}

// admission bounds the generation requests waiting on the model. The model
// runs one generation at a time; queueCh counts waiting plus running requests.
type admission struct {
	queueCh chan struct{}
	genCh   chan struct{}
	maxWait time.Duration
}

func newAdmission(depth int, maxWait time.Duration) *admission {
	if depth <= 0 {
		depth = DefaultMaxQueueDepth
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &admission{
		queueCh: make(chan struct{}, depth),
		genCh:   make(chan struct{}, 1),
		maxWait: maxWait,
	}
}

var (
	gateMu sync.RWMutex
	gate   = newAdmission(DefaultMaxQueueDepth, DefaultMaxWait)
)

// SetAdmission sets the queue depth and the longest a request may wait for
// a queue slot or for the model. Call before serving.
func SetAdmission(depth int, maxWait time.Duration) {
	gateMu.Lock()
	defer gateMu.Unlock()
	gate = newAdmission(depth, maxWait)
}

func currentGate() *admission {
	gateMu.RLock()
	defer gateMu.RUnlock()
	return gate
}

// begin reserves a queue slot and then the single in-flight slot.
// Returns a release func to be deferred.
func (a *admission) begin(ctx context.Context) (func(), error) {
	if err := ctx.Err(); err != nil {
		return func() {}, err
	}

	timer := time.NewTimer(a.maxWait)
	defer timer.Stop()
	select {
	case a.queueCh <- struct{}{}:
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer.C:
		return func() {}, tooBusyError{reason: "queue_full"}
	}

	acquired := false
	defer func() {
		if !acquired {
			<-a.queueCh
		}
	}()
	select {
	case a.genCh <- struct{}{}:
		acquired = true
		return func() { <-a.genCh; <-a.queueCh }, nil
	case <-ctx.Done():
		return func() {}, ctx.Err()
	case <-timer.C:
		return func() {}, tooBusyError{reason: "wait_timeout"}
	}
}

// admit runs admission for a generation request. ctx is the request's
// working context, which may carry the generate timeout. On failure admit
// writes the response itself and returns ok=false with the status sent
// (0 when the client is gone and nothing was written).
func admit(ctx context.Context, w http.ResponseWriter, r *http.Request) (release func(), status int, ok bool) {
	release, err := currentGate().begin(ctx)
	if err == nil {
		return release, http.StatusOK, true
	}
	var tb tooBusyError
	switch {
	case errors.As(err, &tb):
		IncrementBackpressure(tb.reason)
		writeJSONError(w, http.StatusTooManyRequests, err.Error())
		return nil, http.StatusTooManyRequests, false
	case errors.Is(err, context.DeadlineExceeded) && !canceled(r):
		// the generate timeout ran out while queued
		IncrementBackpressure("wait_timeout")
		writeJSONError(w, http.StatusServiceUnavailable, "timed out waiting for the model")
		return nil, http.StatusServiceUnavailable, false
	default:
		return nil, 0, false
	}
}
