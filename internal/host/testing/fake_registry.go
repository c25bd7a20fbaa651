// Package testing provides test doubles for the host package.
package testing

import (
	"context"
	"sync"

	"github.com/rileyhilliard/nekowatch/internal/host"
	"github.com/rileyhilliard/nekowatch/pkg/sshutil"
)

// FakeRegistry is an in-memory host.Registry whose contents tests can change
// between polls.
type FakeRegistry struct {
	mu    sync.Mutex
	hosts []host.Host
	err   error

	// ListCalls counts List invocations.
	ListCalls int
}

// NewFakeRegistry creates a registry holding hosts.
func NewFakeRegistry(hosts ...host.Host) *FakeRegistry {
	r := &FakeRegistry{}
	r.Set(hosts...)
	return r
}

// Set replaces the host list.
func (r *FakeRegistry) Set(hosts ...host.Host) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.hosts = append([]host.Host(nil), hosts...)
	host.Sort(r.hosts)
}

// SetStatus changes the status of one host.
func (r *FakeRegistry) SetStatus(id string, status host.Status) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range r.hosts {
		if r.hosts[i].ID == id {
			r.hosts[i].Status = status
		}
	}
}

// SetError makes List and Get fail.
func (r *FakeRegistry) SetError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

// List implements host.Registry.
func (r *FakeRegistry) List(ctx context.Context) ([]host.Host, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ListCalls++
	if r.err != nil {
		return nil, r.err
	}
	return append([]host.Host(nil), r.hosts...), nil
}

// Get implements host.Registry.
func (r *FakeRegistry) Get(ctx context.Context, id string) (host.Host, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return host.Host{}, r.err
	}
	for _, h := range r.hosts {
		if h.ID == id {
			return h, nil
		}
	}
	return host.Host{}, host.NotFound(id)
}

// Host builds an active host with an agent endpoint, for brevity in tests.
func Host(id, name, addr string, port int) host.Host {
	return host.Host{
		ID:     id,
		Name:   name,
		Status: host.StatusActive,
		SSH:    sshutil.Credential{Host: addr, Port: 22, Username: "root", Password: "secret"},
		API:    host.APIEndpoint{Port: port, Key: "secret"},
	}
}
