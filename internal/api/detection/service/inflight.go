package detectionService

import (
	"sync"
	"time"

	"golang.org/x/sync/semaphore"
)

// pendingRequest identifies the single outstanding model call of a session.
type pendingRequest struct {
	ID        string
	SessionID string
	StartedAt time.Time

	slot *sessionSlot
}

type sessionSlot struct {
	sem     *semaphore.Weighted
	mu      sync.Mutex
	pending *pendingRequest
}

// inflightGuard admits at most one request per session and never queues.
type inflightGuard struct {
	mu    sync.Mutex
	slots map[string]*sessionSlot
}

func newInflightGuard() *inflightGuard {
	return &inflightGuard{slots: make(map[string]*sessionSlot)}
}

func (g *inflightGuard) slot(sessionID string) *sessionSlot {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.slots[sessionID]
	if !ok {
		s = &sessionSlot{sem: semaphore.NewWeighted(1)}
		g.slots[sessionID] = s
	}
	return s
}

// tryAcquire returns false without blocking when the session already has a
// pending request.
func (g *inflightGuard) tryAcquire(p pendingRequest) (*pendingRequest, bool) {
	s := g.slot(p.SessionID)
	if !s.sem.TryAcquire(1) {
		return nil, false
	}

	p.slot = s
	s.mu.Lock()
	s.pending = &p
	s.mu.Unlock()

	return &p, true
}

func (g *inflightGuard) release(p *pendingRequest) {
	if p == nil || p.slot == nil {
		return
	}

	s := p.slot
	s.mu.Lock()
	if s.pending != p {
		s.mu.Unlock()
		return
	}
	s.pending = nil
	s.mu.Unlock()

	s.sem.Release(1)
}

func (g *inflightGuard) pending(sessionID string) (pendingRequest, bool) {
	g.mu.Lock()
	s, ok := g.slots[sessionID]
	g.mu.Unlock()
	if !ok {
		return pendingRequest{}, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending == nil {
		return pendingRequest{}, false
	}
	return *s.pending, true
}

// forget drops an idle slot. A slot with a pending request is kept so the
// running call can still release it.
func (g *inflightGuard) forget(sessionID string) {
	g.mu.Lock()
	defer g.mu.Unlock()

	s, ok := g.slots[sessionID]
	if !ok {
		return
	}

	s.mu.Lock()
	idle := s.pending == nil
	s.mu.Unlock()

	if idle {
		delete(g.slots, sessionID)
	}
}
