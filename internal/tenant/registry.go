// Package tenant provides the read path for tenant configuration lookups.
// The core has no write path: tenants are provisioned out of band (a
// control-plane API, a config file) and only ever looked up by name here.
//
// Grounded on the thread-safe in-memory store pattern in
// services/bifrost/internal/config/virtual_cluster.go.
package tenant

import (
	"sync"
	"time"

	"github.com/drewpayment/orbit-relay/internal/relaytypes"
)

// Config is what the relay core needs about a tenant. EnableTracing,
// when true, is logically OR'd onto every RelayRequest for the tenant
// (spec §8 invariant 6). KeepAliveIntervalMs and the Reconnect*Ms fields
// are the connector-side policy pushed over a Configure invocation
// whenever this tenant's entry changes (spec §4.5/§4.6).
type Config struct {
	Name                    string
	EnableTracing           bool
	RequestExpirationMs     int64
	KeepAliveIntervalMs     int64
	ReconnectMinimumDelayMs int64
	ReconnectMaximumDelayMs int64
}

// ToRelayTenantConfig converts the registry's storage shape into the wire
// envelope a connector receives over a Configure invocation.
func (c Config) ToRelayTenantConfig() relaytypes.TenantConfig {
	return relaytypes.TenantConfig{
		Name:                  c.Name,
		KeepAliveInterval:     time.Duration(c.KeepAliveIntervalMs) * time.Millisecond,
		ReconnectMinimumDelay: time.Duration(c.ReconnectMinimumDelayMs) * time.Millisecond,
		ReconnectMaximumDelay: time.Duration(c.ReconnectMaximumDelayMs) * time.Millisecond,
		EnableTracing:         c.EnableTracing,
		RequestExpiration:     time.Duration(c.RequestExpirationMs) * time.Millisecond,
	}
}

// Registry looks up tenant configuration by name.
type Registry interface {
	// LoadByName returns the tenant config, or ok=false if unknown.
	LoadByName(name string) (Config, bool)
}

// MutableRegistry additionally supports the out-of-band provisioning path
// (config file reload, admin API) that feeds the read-only Registry.
type MutableRegistry interface {
	Registry
	Upsert(cfg Config)
	Delete(name string)
	List() []Config
}

// InMemory is a thread-safe, map-backed tenant store.
type InMemory struct {
	mu   sync.RWMutex
	byID map[string]Config
}

// NewInMemory creates an empty in-memory tenant registry.
func NewInMemory() *InMemory {
	return &InMemory{byID: make(map[string]Config)}
}

// LoadByName implements Registry.
func (r *InMemory) LoadByName(name string) (Config, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.byID[name]
	return cfg, ok
}

// Upsert adds or replaces a tenant's configuration.
func (r *InMemory) Upsert(cfg Config) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byID[cfg.Name] = cfg
}

// Delete removes a tenant's configuration.
func (r *InMemory) Delete(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.byID, name)
}

// List returns a snapshot of all known tenants.
func (r *InMemory) List() []Config {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Config, 0, len(r.byID))
	for _, cfg := range r.byID {
		out = append(out, cfg)
	}
	return out
}
