package erruser

import (
	"errors"
	"fmt"
	"testing"
)

func TestErr_Error_returnsMsgOnly(t *testing.T) {
	t.Parallel()
	cause := errors.New("exit status 128")
	e := New(KindVcsUnavailable, "This directory is not inside a Git repository.", cause)
	if got := e.Error(); got != "This directory is not inside a Git repository." {
		t.Errorf("Error() = %q, want user message only", got)
	}
	if !errors.Is(e, cause) {
		t.Error("errors.Is(e, cause) should be true")
	}
	var unwrapped *Err
	if !errors.As(e, &unwrapped) {
		t.Fatal("errors.As to *Err failed")
	}
	if unwrapped.Unwrap() != cause {
		t.Errorf("Unwrap() = %v, want cause", unwrapped.Unwrap())
	}
}

func TestNew_nilErr_noUnwrap(t *testing.T) {
	t.Parallel()
	e := New(KindConfiguration, "Something went wrong.", nil)
	if e.Error() != "Something went wrong." {
		t.Errorf("Error() = %q", e.Error())
	}
	if errors.Unwrap(e) != nil {
		t.Errorf("Unwrap() should be nil, got %v", errors.Unwrap(e))
	}
}

func TestKindOf(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"direct", New(KindNoChanges, "No staged changes.", nil), KindNoChanges},
		{"wrapped", fmt.Errorf("run: %w", New(KindAuth, "Rejected credential.", nil)), KindAuth},
		{"plain error", errors.New("boom"), KindUnknown},
		{"nil", nil, KindUnknown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := KindOf(tt.err); got != tt.want {
				t.Errorf("KindOf = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestIsKind(t *testing.T) {
	t.Parallel()
	e := New(KindTransient, "Service unavailable.", nil)
	if !IsKind(e, KindTransient) {
		t.Error("IsKind(e, KindTransient) = false, want true")
	}
	if IsKind(e, KindAuth) {
		t.Error("IsKind(e, KindAuth) = true, want false")
	}
}

func TestErr_nilReceiver_noPanic(t *testing.T) {
	t.Parallel()
	var e *Err
	if got := e.Error(); got != "" {
		t.Errorf("(*Err)(nil).Error() = %q, want %q", got, "")
	}
	if e.Unwrap() != nil {
		t.Errorf("(*Err)(nil).Unwrap() = %v, want nil", e.Unwrap())
	}
}

func TestKind_String(t *testing.T) {
	t.Parallel()
	tests := []struct {
		kind Kind
		want string
	}{
		{KindConfiguration, "configuration"},
		{KindUnknownModel, "unknown-model"},
		{KindVcsUnavailable, "vcs-unavailable"},
		{KindNoChanges, "no-changes"},
		{KindTransient, "transient"},
		{KindAuth, "auth"},
		{KindRejected, "rejected"},
		{KindTimeout, "timeout"},
		{KindMalformedResponse, "malformed-response"},
		{KindInvalidMessage, "invalid-message"},
		{KindUnknown, "unknown"},
		{Kind(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.kind.String(); got != tt.want {
			t.Errorf("Kind(%d).String() = %q, want %q", int(tt.kind), got, tt.want)
		}
	}
}
