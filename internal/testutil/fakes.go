package testutil

import (
	"context"
	"sync"

	"github.com/ettore-crm/internal/email"
	"github.com/ettore-crm/internal/llm"
	"github.com/ettore-crm/internal/ratelimit"
)

// RecordingTransport records every message instead of sending it. Err, when
// set, is returned by Send after recording. A cancelled context fails the
// send the way an HTTP transport would.
type RecordingTransport struct {
	mu   sync.Mutex
	sent []email.Message
	Err  error
}

// Send records the message
func (t *RecordingTransport) Send(ctx context.Context, msg email.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sent = append(t.sent, msg)
	return t.Err
}

// Sent returns a copy of the recorded messages
func (t *RecordingTransport) Sent() []email.Message {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]email.Message(nil), t.sent...)
}

// FakeGenerator answers completions from a script. Replies are consumed in
// order; when exhausted the last reply repeats. FailOn makes the n-th call
// (1-based) return Err.
type FakeGenerator struct {
	mu       sync.Mutex
	requests []llm.CompletionRequest
	Replies  []string
	Err      error
	FailOn   int
}

// Complete records the request and returns the next scripted reply
func (g *FakeGenerator) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	call := len(g.requests)

	if g.Err != nil && (g.FailOn == 0 || g.FailOn == call) {
		return "", g.Err
	}
	if len(g.Replies) == 0 {
		return "", nil
	}
	if call <= len(g.Replies) {
		return g.Replies[call-1], nil
	}
	return g.Replies[len(g.Replies)-1], nil
}

// Requests returns a copy of the recorded requests
func (g *FakeGenerator) Requests() []llm.CompletionRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]llm.CompletionRequest(nil), g.requests...)
}

// StaticThrottle allows a fixed number of calls per subject
type StaticThrottle struct {
	mu     sync.Mutex
	counts map[string]int
	Limit  int
	Err    error
}

// Allow counts one call for subject
func (t *StaticThrottle) Allow(_ context.Context, subject string) (ratelimit.Decision, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.Err != nil {
		return ratelimit.Decision{}, t.Err
	}
	if t.counts == nil {
		t.counts = make(map[string]int)
	}
	t.counts[subject]++
	n := t.counts[subject]
	d := ratelimit.Decision{Allowed: n <= t.Limit, Count: n, Limit: t.Limit}
	if !d.Allowed {
		d.RetryAfter = 30_000_000_000 // 30s
	}
	return d, nil
}
