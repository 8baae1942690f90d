package errors

import (
	"errors"
	"testing"
)

func TestIsRetryable(t *testing.T) {
	cases := []struct {
		kind Kind
		want bool
	}{
		{KindRateLimit, true},
		{KindServerError, true},
		{KindTimeout, true},
		{KindAuthError, false},
		{KindModelNotFound, false},
		{KindUserRejected, false},
		{KindUnknown, false},
	}
	for _, c := range cases {
		e := New(c.kind, "boom")
		if got := e.IsRetryable(); got != c.want {
			t.Errorf("Kind(%s).IsRetryable() = %v, want %v", c.kind, got, c.want)
		}
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := errors.New("network reset")
	wrapped := Wrap(KindTimeout, "request timed out", cause)

	if !errors.Is(wrapped, cause) {
		t.Error("expected errors.Is to find the wrapped cause")
	}
	if KindOf(wrapped) != KindTimeout {
		t.Errorf("KindOf() = %s, want TIMEOUT", KindOf(wrapped))
	}
	if !IsRetryable(wrapped) {
		t.Error("expected wrapped TIMEOUT error to be retryable")
	}
}

func TestKindOfNonTaxonomyError(t *testing.T) {
	plain := errors.New("some other failure")
	if KindOf(plain) != KindUnknown {
		t.Errorf("KindOf(plain) = %s, want UNKNOWN", KindOf(plain))
	}
	if IsRetryable(plain) {
		t.Error("plain errors must not be retryable")
	}
}

func TestTraceAnnotatesCallSite(t *testing.T) {
	err := Trace("failed on %s", "widget")
	if err == nil {
		t.Fatal("expected non-nil error")
	}
	if got := err.Error(); got == "" {
		t.Fatal("expected non-empty message")
	}
}

func TestWrapfNilIsNil(t *testing.T) {
	if Wrapf(nil, "context") != nil {
		t.Error("Wrapf(nil, ...) must return nil")
	}
}
