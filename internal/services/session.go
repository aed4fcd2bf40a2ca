package services

import (
	"context"
	"sync"
)

// sessionTracker keeps the in-flight fetch of each session and report kind.
// Starting a fetch cancels the previous one and bumps the generation; only
// the fetch holding the latest generation may publish.
type sessionTracker struct {
	mu       sync.Mutex
	inflight map[string]*fetchEntry
	nextGen  uint64
}

type fetchEntry struct {
	gen    uint64
	cancel context.CancelFunc
}

// fetchTicket identifies one tracked fetch
type fetchTicket struct {
	key    string
	gen    uint64
	cancel context.CancelFunc
}

func newSessionTracker() *sessionTracker {
	return &sessionTracker{inflight: make(map[string]*fetchEntry)}
}

// begin registers a fetch. An empty key is untracked and never superseded.
func (t *sessionTracker) begin(ctx context.Context, key string) (context.Context, *fetchTicket) {
	ctx, cancel := context.WithCancel(ctx)
	if key == "" {
		return ctx, &fetchTicket{cancel: cancel}
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.inflight[key]; ok {
		prev.cancel()
	}
	t.nextGen++
	t.inflight[key] = &fetchEntry{gen: t.nextGen, cancel: cancel}

	return ctx, &fetchTicket{key: key, gen: t.nextGen, cancel: cancel}
}

// current reports whether the ticket still holds the latest generation
func (t *sessionTracker) current(ticket *fetchTicket) bool {
	if ticket.key == "" {
		return true
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	entry, ok := t.inflight[ticket.key]
	return ok && entry.gen == ticket.gen
}

// end releases the ticket and forgets the session when it is still current
func (t *sessionTracker) end(ticket *fetchTicket) {
	ticket.cancel()
	if ticket.key == "" {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if entry, ok := t.inflight[ticket.key]; ok && entry.gen == ticket.gen {
		delete(t.inflight, ticket.key)
	}
}

// active returns the number of tracked fetches
func (t *sessionTracker) active() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.inflight)
}

func sessionKey(sessionID, kind string) string {
	if sessionID == "" {
		return ""
	}
	return sessionID + "/" + kind
}
