package resilience

import (
	"errors"
	"fmt"
	"syscall"
	"testing"
)

func TestIsTransient_TransientError(t *testing.T) {
	err := NewTransientError(errors.New("rate limited"), 429)
	if !IsTransient(err) {
		t.Error("expected TransientError to be transient")
	}
}

func TestIsTransient_WrappedTransientError(t *testing.T) {
	err := fmt.Errorf("outer: %w", NewTransientError(errors.New("inner"), 503))
	if !IsTransient(err) {
		t.Error("expected wrapped TransientError to be transient")
	}
}

func TestIsTransient_PermanentError(t *testing.T) {
	if IsTransient(NewPermanentError(400, "validation_error")) {
		t.Error("expected PermanentError to be non-transient")
	}
}

func TestIsTransient_ConfigError(t *testing.T) {
	if IsTransient(NewConfigError("notion.token")) {
		t.Error("expected ConfigError to be non-transient")
	}
}

func TestIsTransient_Syscall(t *testing.T) {
	if !IsTransient(fmt.Errorf("dial: %w", syscall.ECONNRESET)) {
		t.Error("expected ECONNRESET to be transient")
	}
}

func TestIsTransient_MessagePatterns(t *testing.T) {
	cases := []struct {
		msg  string
		want bool
	}{
		{"read tcp: connection reset by peer", true},
		{"write: broken pipe", true},
		{"net/http: TLS handshake timeout", true},
		{"lookup api.notion.com: no such host", true},
		{"invalid request body", false},
	}
	for _, tc := range cases {
		if got := IsTransient(errors.New(tc.msg)); got != tc.want {
			t.Errorf("IsTransient(%q) = %v, want %v", tc.msg, got, tc.want)
		}
	}
}

func TestIsTransient_Nil(t *testing.T) {
	if IsTransient(nil) {
		t.Error("expected nil to be non-transient")
	}
}

func TestIsTransientHTTPStatus(t *testing.T) {
	for _, code := range []int{429, 500, 502, 503, 504} {
		if !IsTransientHTTPStatus(code) {
			t.Errorf("expected %d to be transient", code)
		}
	}
	for _, code := range []int{200, 400, 401, 403, 404, 409} {
		if IsTransientHTTPStatus(code) {
			t.Errorf("expected %d to be non-transient", code)
		}
	}
}

func TestTransientError_Unwrap(t *testing.T) {
	inner := errors.New("boom")
	err := NewTransientError(inner, 500)
	if !errors.Is(err, inner) {
		t.Error("expected Unwrap to expose the inner error")
	}
}

func TestConfigError_Message(t *testing.T) {
	err := NewConfigError("notion.videos_db")
	want := "missing required configuration: notion.videos_db"
	if err.Error() != want {
		t.Errorf("expected %q, got %q", want, err.Error())
	}
}
