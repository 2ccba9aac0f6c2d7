package notion

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/rotisserie/eris"

	"github.com/danang-eats/foodsync/internal/resilience"
)

// RetryTransport is a generic retrying http.RoundTripper. It has no
// knowledge of which operation it is executing:
//
//   - 2xx responses pass through.
//   - 429 sleeps for the Retry-After delay when the server sends one,
//     else the current backoff, then doubles the backoff (capped).
//   - 500/502/503/504 sleep the current backoff and double it.
//   - Any other status is returned as a PermanentError, never retried.
//   - Exhausting the attempt budget fails with a retry-exhausted error.
type RetryTransport struct {
	// Base is the underlying transport; nil means http.DefaultTransport.
	Base http.RoundTripper

	// MaxAttempts is the total attempt budget. Default: 6.
	MaxAttempts int

	// InitialBackoff is the first retry delay. Default: 800ms.
	InitialBackoff time.Duration

	// MaxBackoff caps the doubling backoff. Default: 8s.
	MaxBackoff time.Duration
}

func (t *RetryTransport) base() http.RoundTripper {
	if t.Base != nil {
		return t.Base
	}
	return http.DefaultTransport
}

// RoundTrip implements http.RoundTripper.
func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	maxAttempts := t.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = 6
	}
	backoff := t.InitialBackoff
	if backoff <= 0 {
		backoff = 800 * time.Millisecond
	}
	maxBackoff := t.MaxBackoff
	if maxBackoff <= 0 {
		maxBackoff = 8 * time.Second
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		attemptReq, err := rewind(req)
		if err != nil {
			return nil, err
		}

		delay := backoff
		resp, err := t.base().RoundTrip(attemptReq)
		switch {
		case err != nil:
			if !resilience.IsTransient(err) {
				return nil, err
			}
			lastErr = err

		case resp.StatusCode >= 200 && resp.StatusCode < 300:
			return resp, nil

		case resp.StatusCode == http.StatusTooManyRequests:
			if ra := retryAfter(resp); ra > 0 {
				delay = ra
			}
			drain(resp)
			lastErr = resilience.NewTransientError(
				eris.Errorf("rate limited: %s %s", req.Method, req.URL.Path), resp.StatusCode)

		case resilience.IsTransientHTTPStatus(resp.StatusCode):
			drain(resp)
			lastErr = resilience.NewTransientError(
				eris.Errorf("server error %d: %s %s", resp.StatusCode, req.Method, req.URL.Path), resp.StatusCode)

		default:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
			resp.Body.Close()
			return nil, resilience.NewPermanentError(resp.StatusCode, string(body))
		}

		if attempt >= maxAttempts-1 {
			break
		}
		if err := sleep(req, delay); err != nil {
			return nil, err
		}
		backoff = min(backoff*2, maxBackoff)
	}

	return nil, eris.Wrap(lastErr, fmt.Sprintf("request failed after %d attempts: %s %s", maxAttempts, req.Method, req.URL.Path))
}

// rewind returns a request whose body can be consumed again. GetBody is set
// by the http client for all byte-backed bodies.
func rewind(req *http.Request) (*http.Request, error) {
	if req.Body == nil || req.GetBody == nil {
		return req, nil
	}
	body, err := req.GetBody()
	if err != nil {
		return nil, eris.Wrap(err, "rewind request body")
	}
	clone := req.Clone(req.Context())
	clone.Body = body
	return clone, nil
}

func retryAfter(resp *http.Response) time.Duration {
	v := resp.Header.Get("Retry-After")
	if v == "" {
		return 0
	}
	secs, err := strconv.ParseFloat(v, 64)
	if err != nil || secs <= 0 {
		return 0
	}
	return time.Duration(secs * float64(time.Second))
}

func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
	resp.Body.Close()
}

func sleep(req *http.Request, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-req.Context().Done():
		return req.Context().Err()
	case <-timer.C:
		return nil
	}
}
