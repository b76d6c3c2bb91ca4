package app

import (
	"sync"

	"github.com/aurora-ops/realtime/internal/core"
	"github.com/aurora-ops/realtime/internal/domain"
	"github.com/rs/zerolog/log"
)

type connEntry struct {
	Identity domain.ConnectionIdentity
	Conn     core.SignalConnection
}

// Registry indexes live connections by user and by organization. A ConnID
// sits in exactly one user bucket and one organization bucket; empty buckets
// are deleted.
type Registry struct {
	mu     sync.RWMutex
	conns  map[domain.ConnID]*connEntry
	byUser map[domain.UserID]map[domain.ConnID]struct{}
	byOrg  map[domain.OrganizationID]map[domain.ConnID]struct{}
}

func NewRegistry() *Registry {
	return &Registry{
		conns:  make(map[domain.ConnID]*connEntry),
		byUser: make(map[domain.UserID]map[domain.ConnID]struct{}),
		byOrg:  make(map[domain.OrganizationID]map[domain.ConnID]struct{}),
	}
}

// Register records the connection. It is idempotent and reports whether this
// is the user's first live connection.
func (r *Registry) Register(id domain.ConnectionIdentity, conn core.SignalConnection) (first bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.conns[id.ConnID]; ok {
		return false
	}
	r.conns[id.ConnID] = &connEntry{Identity: id, Conn: conn}

	users, ok := r.byUser[id.UserID]
	if !ok {
		users = make(map[domain.ConnID]struct{})
		r.byUser[id.UserID] = users
	}
	users[id.ConnID] = struct{}{}

	orgs, ok := r.byOrg[id.OrganizationID]
	if !ok {
		orgs = make(map[domain.ConnID]struct{})
		r.byOrg[id.OrganizationID] = orgs
	}
	orgs[id.ConnID] = struct{}{}

	log.Info().Str("module", "app.registry").Str("conn", string(id.ConnID)).Str("user", string(id.UserID)).Str("org", string(id.OrganizationID)).Int("user_conns", len(users)).Msg("registered connection")
	return len(users) == 1
}

// Unregister removes the connection and reports whether it was the user's
// last one. A second call for the same ConnID reports false.
func (r *Registry) Unregister(connID domain.ConnID) (id domain.ConnectionIdentity, last bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.conns[connID]
	if !ok {
		return domain.ConnectionIdentity{}, false
	}
	delete(r.conns, connID)
	id = e.Identity

	if orgs, ok := r.byOrg[id.OrganizationID]; ok {
		delete(orgs, connID)
		if len(orgs) == 0 {
			delete(r.byOrg, id.OrganizationID)
		}
	}
	if users, ok := r.byUser[id.UserID]; ok {
		delete(users, connID)
		if len(users) == 0 {
			delete(r.byUser, id.UserID)
			last = true
		}
	}
	log.Info().Str("module", "app.registry").Str("conn", string(connID)).Str("user", string(id.UserID)).Bool("last", last).Msg("unregistered connection")
	return id, last
}

func (r *Registry) Lookup(connID domain.ConnID) (domain.ConnectionIdentity, core.SignalConnection, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.conns[connID]
	if !ok {
		return domain.ConnectionIdentity{}, nil, false
	}
	return e.Identity, e.Conn, true
}

func (r *Registry) Has(connID domain.ConnID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[connID]
	return ok
}

func (r *Registry) UserConnections(userID domain.UserID) []domain.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return keys(r.byUser[userID])
}

func (r *Registry) OrganizationConnections(orgID domain.OrganizationID) []domain.ConnID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return keys(r.byOrg[orgID])
}

type RegistryStats struct {
	Connections   int `json:"connections"`
	Users         int `json:"users"`
	Organizations int `json:"organizations"`
}

func (r *Registry) Stats() RegistryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return RegistryStats{
		Connections:   len(r.conns),
		Users:         len(r.byUser),
		Organizations: len(r.byOrg),
	}
}

// Clear drops every entry and returns the connections that were live so the
// caller can close them.
func (r *Registry) Clear() []core.SignalConnection {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]core.SignalConnection, 0, len(r.conns))
	for _, e := range r.conns {
		if e.Conn != nil {
			out = append(out, e.Conn)
		}
	}
	r.conns = make(map[domain.ConnID]*connEntry)
	r.byUser = make(map[domain.UserID]map[domain.ConnID]struct{})
	r.byOrg = make(map[domain.OrganizationID]map[domain.ConnID]struct{})
	log.Info().Str("module", "app.registry").Int("closed", len(out)).Msg("registry cleared")
	return out
}

func keys(set map[domain.ConnID]struct{}) []domain.ConnID {
	out := make([]domain.ConnID, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	return out
}
