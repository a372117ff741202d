// Package registry tracks known deployed services, their health statuses,
// and inter-service connections. The state is process-local and rebuilt at
// start; it is an injectable object rather than ambient globals so tests can
// isolate and reset it.
package registry

import (
	"sort"
	"sync"
	"time"

	"github.com/joseph-ayodele/docingest/internal/common"
)

// HealthStatus is the last observed health of a registered service.
type HealthStatus string

const (
	HealthUnknown   HealthStatus = "unknown"
	HealthHealthy   HealthStatus = "healthy"
	HealthUnhealthy HealthStatus = "unhealthy"
)

// Service is one registered deployment.
type Service struct {
	Name      string       `json:"name"`
	URL       string       `json:"url"`
	Health    HealthStatus `json:"health"`
	CheckedAt *time.Time   `json:"checkedAt,omitempty"`
}

// Connection is a directed link between two registered services.
type Connection struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Registry is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	services    map[string]*Service
	connections map[Connection]struct{}
}

func New() *Registry {
	return &Registry{
		services:    make(map[string]*Service),
		connections: make(map[Connection]struct{}),
	}
}

func (r *Registry) Register(name, url string) *Service {
	r.mu.Lock()
	defer r.mu.Unlock()
	svc := &Service{Name: name, URL: url, Health: HealthUnknown}
	r.services[name] = svc
	return svc
}

func (r *Registry) SetHealth(name string, health HealthStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	svc, ok := r.services[name]
	if !ok {
		return common.NotFoundErrorf("service %s not registered", name)
	}
	now := time.Now().UTC()
	svc.Health = health
	svc.CheckedAt = &now
	return nil
}

func (r *Registry) Connect(from, to string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.services[from]; !ok {
		return common.NotFoundErrorf("service %s not registered", from)
	}
	if _, ok := r.services[to]; !ok {
		return common.NotFoundErrorf("service %s not registered", to)
	}
	r.connections[Connection{From: from, To: to}] = struct{}{}
	return nil
}

func (r *Registry) Disconnect(from, to string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.connections, Connection{From: from, To: to})
}

// Snapshot returns services sorted by name and connections sorted by
// endpoint pair. The returned values are copies.
func (r *Registry) Snapshot() ([]Service, []Connection) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	services := make([]Service, 0, len(r.services))
	for _, svc := range r.services {
		services = append(services, *svc)
	}
	sort.Slice(services, func(i, j int) bool { return services[i].Name < services[j].Name })

	connections := make([]Connection, 0, len(r.connections))
	for c := range r.connections {
		connections = append(connections, c)
	}
	sort.Slice(connections, func(i, j int) bool {
		if connections[i].From != connections[j].From {
			return connections[i].From < connections[j].From
		}
		return connections[i].To < connections[j].To
	})
	return services, connections
}

// Reset clears all state; test isolation hook.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.services = make(map[string]*Service)
	r.connections = make(map[Connection]struct{})
}
