package receipt

import (
	"context"
	"sync"
)

// fakeCompleter returns a canned answer and records the last request.
type fakeCompleter struct {
	mu      sync.Mutex
	content string
	err     error
	calls   int
	last    CompletionRequest
}

func (f *fakeCompleter) Complete(_ context.Context, req CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.last = req
	return f.content, f.err
}
