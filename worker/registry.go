package worker

import (
	"fmt"
	"sort"
	"sync"
)

// Registry holds the workers available to a supervisor, keyed by the agent
// tool name the supervisor's model uses to dispatch to them
// (ask_<worker>_agent).
type Registry struct {
	mu      sync.RWMutex
	workers map[string]*Worker
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{workers: map[string]*Worker{}}
}

// AgentToolName derives the dispatch tool name for a worker.
func AgentToolName(workerName string) string {
	return fmt.Sprintf("ask_%s_agent", workerName)
}

// Register adds a worker. Registering the same worker name twice replaces
// the earlier entry.
func (r *Registry) Register(w *Worker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.workers[AgentToolName(w.Name())] = w
}

// Lookup returns the worker dispatched by the given agent tool name.
func (r *Registry) Lookup(agentToolName string) (*Worker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.workers[agentToolName]
	return w, ok
}

// AgentToolNames returns the dispatch tool names in stable order.
func (r *Registry) AgentToolNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.workers))
	for name := range r.workers {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Workers returns all registered workers in stable dispatch-name order.
func (r *Registry) Workers() []*Worker {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.workers))
	for name := range r.workers {
		names = append(names, name)
	}
	sort.Strings(names)

	workers := make([]*Worker, len(names))
	for i, name := range names {
		workers[i] = r.workers[name]
	}

	return workers
}

// Len returns the number of registered workers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.workers)
}
