package processor

import (
	"errors"
	"net/http"
	"sync"
	"time"
)

// ErrCircuitOpen is returned while the breaker refuses calls after repeated
// processor failures
var ErrCircuitOpen = errors.New("processor circuit open")

type breakerConfig struct {
	failureThreshold int
	successThreshold int
	openTimeout      time.Duration
}

func breakerDefaults() breakerConfig {
	return breakerConfig{
		failureThreshold: 5,
		successThreshold: 1,
		openTimeout:      5 * time.Second,
	}
}

const (
	cbClosed = iota
	cbOpen
	cbHalfOpen
)

// breakerTransport is a circuit breaker at the HTTP transport level. After
// failureThreshold consecutive network errors or 5xx responses it opens and
// fails fast; after openTimeout a single probe is let through half-open.
type breakerTransport struct {
	next http.RoundTripper
	cfg  breakerConfig

	mu           sync.Mutex
	state        int
	failures     int
	successes    int
	openedAt     time.Time
	halfInFlight bool
}

func newBreakerTransport(next http.RoundTripper, cfg breakerConfig) *breakerTransport {
	return &breakerTransport{next: next, cfg: cfg, state: cbClosed}
}

func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if err := t.beforeCall(); err != nil {
		return nil, err
	}

	resp, err := t.next.RoundTrip(req)
	t.afterCall(isBreakerFailure(resp, err))
	return resp, err
}

func isBreakerFailure(resp *http.Response, err error) bool {
	if err != nil {
		return true
	}
	return resp.StatusCode >= 500
}

func (t *breakerTransport) beforeCall() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.state {
	case cbClosed:
		return nil
	case cbOpen:
		if time.Since(t.openedAt) < t.cfg.openTimeout {
			return ErrCircuitOpen
		}
		t.state = cbHalfOpen
		t.successes = 0
		t.halfInFlight = false
		fallthrough
	case cbHalfOpen:
		if t.halfInFlight {
			return ErrCircuitOpen
		}
		t.halfInFlight = true
		return nil
	default:
		return ErrCircuitOpen
	}
}

func (t *breakerTransport) afterCall(failed bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state == cbHalfOpen {
		t.halfInFlight = false
	}

	if !failed {
		switch t.state {
		case cbClosed:
			t.failures = 0
		case cbHalfOpen:
			t.successes++
			if t.successes >= t.cfg.successThreshold {
				t.state = cbClosed
				t.failures = 0
				t.successes = 0
			}
		}
		return
	}

	switch t.state {
	case cbClosed:
		t.failures++
		if t.failures >= t.cfg.failureThreshold {
			t.state = cbOpen
			t.openedAt = time.Now()
		}
	case cbHalfOpen:
		t.state = cbOpen
		t.openedAt = time.Now()
	}
}
