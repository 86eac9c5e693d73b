package notifications

import (
	"context"
	"sync"
)

// Recorder is a Notifier that keeps every request in memory (for testing)
type Recorder struct {
	mu       sync.Mutex
	requests []Request
}

// NewRecorder creates an empty recorder
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Notify stores the requests
func (r *Recorder) Notify(_ context.Context, requests []Request) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = append(r.requests, requests...)
}

// Requests returns a copy of everything recorded so far
func (r *Recorder) Requests() []Request {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Request(nil), r.requests...)
}

// Clear forgets every recorded request
func (r *Recorder) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.requests = nil
}

// SenderFunc adapts a function to the Sender interface
type SenderFunc func(ctx context.Context, req Request) error

// Send calls f
func (f SenderFunc) Send(ctx context.Context, req Request) error {
	return f(ctx, req)
}
