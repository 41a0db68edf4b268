package supervisor

import (
	"sync"

	"github.com/agenthost/agenthost/internal/process"
)

// Registry is the ordered collection of live process handles. One lock
// guards the whole collection: mutations are infrequent and coarse-grained
// (push during startup, drain during shutdown), and shutdown may be
// triggered from more than one host callback at once.
type Registry struct {
	mu    sync.Mutex
	procs []*process.ManagedProcess
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Add appends a handle. The registry owns it from this point on.
func (r *Registry) Add(p *process.ManagedProcess) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.procs = append(r.procs, p)
}

// Len returns the number of tracked processes.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.procs)
}

// Live counts tracked processes that have not exited.
func (r *Registry) Live() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	live := 0
	for _, p := range r.procs {
		if p.Alive() {
			live++
		}
	}
	return live
}

// Snapshot returns a copy of the tracked handles for read-only iteration
// outside the lock.
func (r *Registry) Snapshot() []*process.ManagedProcess {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*process.ManagedProcess, len(r.procs))
	copy(out, r.procs)
	return out
}

// Drain removes and returns every handle, leaving the registry empty. A
// second Drain returns nothing, which is what makes shutdown idempotent.
func (r *Registry) Drain() []*process.ManagedProcess {
	r.mu.Lock()
	defer r.mu.Unlock()
	procs := r.procs
	r.procs = nil
	return procs
}
