package openai

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"rcommit/cli/internal/erruser"
	"rcommit/cli/internal/model"
	"rcommit/cli/internal/prompt"
)

func testRequest(t *testing.T) prompt.Request {
	t.Helper()
	params, err := model.Resolve("default")
	if err != nil {
		t.Fatal(err)
	}
	return prompt.Request{
		System: "system prompt",
		User:   "user prompt",
		Model:  params,
	}
}

func testClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	return NewClient(srv.URL, "test-key", Options{
		HTTPClient:  srv.Client(),
		MaxAttempts: 3,
		BackoffBase: time.Millisecond,
	})
}

const okBody = `{"choices":[{"message":{"role":"assistant","content":"fix(parser): handle empty input"}}]}`

func TestGenerate_success(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("Authorization = %q", got)
		}
		fmt.Fprint(w, okBody)
	}))
	defer srv.Close()

	got, err := testClient(t, srv).Generate(context.Background(), testRequest(t))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got != "fix(parser): handle empty input" {
		t.Errorf("Generate = %q", got)
	}
}

func TestGenerate_retriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, okBody)
	}))
	defer srv.Close()

	got, err := testClient(t, srv).Generate(context.Background(), testRequest(t))
	if err != nil {
		t.Fatalf("Generate after two 503s: %v", err)
	}
	if got == "" {
		t.Error("empty result after successful retry")
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want 3", n)
	}
}

func TestGenerate_retryBudgetExhausted(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := testClient(t, srv).Generate(context.Background(), testRequest(t))
	if !erruser.IsKind(err, erruser.KindTransient) {
		t.Fatalf("kind = %v (%v), want KindTransient", erruser.KindOf(err), err)
	}
	if n := calls.Load(); n != 3 {
		t.Errorf("calls = %d, want exactly the attempt budget (3)", n)
	}
}

func TestGenerate_rateLimitedIsRetried(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, okBody)
	}))
	defer srv.Close()

	if _, err := testClient(t, srv).Generate(context.Background(), testRequest(t)); err != nil {
		t.Fatalf("Generate after 429: %v", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}

func TestGenerate_authNotRetried(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"error":{"type":"invalid_request_error","message":"Incorrect API key provided"}}`)
	}))
	defer srv.Close()

	_, err := testClient(t, srv).Generate(context.Background(), testRequest(t))
	if !erruser.IsKind(err, erruser.KindAuth) {
		t.Fatalf("kind = %v (%v), want KindAuth", erruser.KindOf(err), err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1 (no retry)", n)
	}
}

func TestGenerate_badRequestNotRetried(t *testing.T) {
	t.Parallel()
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":{"message":"model not found"}}`)
	}))
	defer srv.Close()

	_, err := testClient(t, srv).Generate(context.Background(), testRequest(t))
	if !erruser.IsKind(err, erruser.KindRejected) {
		t.Fatalf("kind = %v (%v), want KindRejected", erruser.KindOf(err), err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, want 1 (no retry)", n)
	}
}

func TestGenerate_malformedResponse(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		body string
	}{
		{"no choices", `{"choices":[]}`},
		{"empty content", `{"choices":[{"message":{"content":""}}]}`},
		{"not json", `<html>oops</html>`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, tt.body)
			}))
			defer srv.Close()

			_, err := testClient(t, srv).Generate(context.Background(), testRequest(t))
			if !erruser.IsKind(err, erruser.KindMalformedResponse) {
				t.Errorf("kind = %v (%v), want KindMalformedResponse", erruser.KindOf(err), err)
			}
		})
	}
}

func TestGenerate_deadlineBoundsRetries(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", Options{
		HTTPClient:  srv.Client(),
		MaxAttempts: 10,
		BackoffBase: 200 * time.Millisecond,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := c.Generate(ctx, testRequest(t))
	if !erruser.IsKind(err, erruser.KindTimeout) {
		t.Fatalf("kind = %v (%v), want KindTimeout", erruser.KindOf(err), err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Generate held past the deadline: %v", elapsed)
	}
}

func TestGenerate_credentialNeverInErrors(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "sk-very-secret", Options{HTTPClient: srv.Client(), MaxAttempts: 1, BackoffBase: time.Millisecond})
	_, err := c.Generate(context.Background(), testRequest(t))
	if err == nil {
		t.Fatal("want error")
	}
	for e := err; e != nil; {
		if strings.Contains(e.Error(), "sk-very-secret") {
			t.Fatalf("credential leaked into error: %q", e.Error())
		}
		u, ok := e.(interface{ Unwrap() error })
		if !ok {
			break
		}
		e = u.Unwrap()
	}
}
