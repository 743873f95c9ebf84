package worker

import "sync"

// InFlightGuard enforces single-flight execution per job id within one
// worker process. The broker can re-deliver a job (stalled detection) while
// a previous execution is still finishing; the guard closes that race.
type InFlightGuard struct {
	mu  sync.Mutex
	ids map[string]struct{}
}

func NewInFlightGuard() *InFlightGuard {
	return &InFlightGuard{ids: make(map[string]struct{})}
}

// TryEnter claims the job id. Returns false if an execution for the same id
// is already inside the critical section; the caller must then skip the job
// without side effects.
func (g *InFlightGuard) TryEnter(jobID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, exists := g.ids[jobID]; exists {
		return false
	}
	g.ids[jobID] = struct{}{}
	return true
}

// Leave releases the claim. Must run on every exit path; callers defer it
// immediately after a successful TryEnter.
func (g *InFlightGuard) Leave(jobID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.ids, jobID)
}

// Size reports how many jobs are currently in flight.
func (g *InFlightGuard) Size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.ids)
}
