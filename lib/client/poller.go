package client

import (
	"sync"
	"time"
)

// Poller runs one interval timer per component id.
type Poller struct {
	mu    sync.Mutex
	polls map[string]chan struct{}
}

// NewPoller creates an empty poller.
func NewPoller() *Poller {
	return &Poller{polls: make(map[string]chan struct{})}
}

// Start calls fn every interval for id. An existing poll for id is stopped
// first, so polls for one id never overlap. Non-positive intervals are
// ignored.
func (p *Poller) Start(id string, interval time.Duration, fn func()) {
	if id == "" || interval <= 0 {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if done, ok := p.polls[id]; ok {
		close(done)
	}
	done := make(chan struct{})
	p.polls[id] = done

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				fn()
			}
		}
	}()
}

// Stop ends the poll for id. A request already in flight still completes.
func (p *Poller) Stop(id string) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if done, ok := p.polls[id]; ok {
		close(done)
		delete(p.polls, id)
	}
}

// Active reports whether id is polling.
func (p *Poller) Active(id string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.polls[id]
	return ok
}

// StopAll ends every poll.
func (p *Poller) StopAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id, done := range p.polls {
		close(done)
		delete(p.polls, id)
	}
}
