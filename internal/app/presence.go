package app

import (
	"sort"
	"sync"
	"time"

	"github.com/aurora-ops/realtime/internal/domain"
	"github.com/rs/zerolog/log"
)

// Presence tracks which users have been announced online in which
// organizations. Transitions are driven by registry occupancy: Connected on
// every registration, Disconnected only once the registry reports the user's
// last connection gone.
type Presence struct {
	mu     sync.Mutex
	online map[domain.UserID]map[domain.OrganizationID]time.Time
	now    func() time.Time
}

func NewPresence(now func() time.Time) *Presence {
	if now == nil {
		now = time.Now
	}
	return &Presence{
		online: make(map[domain.UserID]map[domain.OrganizationID]time.Time),
		now:    now,
	}
}

// Connected reports an online event when the user was not yet visible in the
// identity's organization. Extra tabs in the same organization report false.
func (p *Presence) Connected(id domain.Identity) (domain.PresenceEvent, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	orgs, ok := p.online[id.UserID]
	if !ok {
		orgs = make(map[domain.OrganizationID]time.Time)
		p.online[id.UserID] = orgs
	}
	if _, seen := orgs[id.OrganizationID]; seen {
		return domain.PresenceEvent{}, false
	}
	now := p.now()
	orgs[id.OrganizationID] = now
	log.Info().Str("module", "app.presence").Str("user", string(id.UserID)).Str("org", string(id.OrganizationID)).Msg("online")
	return domain.PresenceEvent{UserID: id.UserID, Status: domain.PresenceOnline, Timestamp: now}, true
}

// Disconnected flips the user offline and returns the organizations that must
// hear about it. A user already offline yields no organizations.
func (p *Presence) Disconnected(userID domain.UserID) (domain.PresenceEvent, []domain.OrganizationID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	orgs, ok := p.online[userID]
	if !ok {
		return domain.PresenceEvent{}, nil
	}
	delete(p.online, userID)
	out := make([]domain.OrganizationID, 0, len(orgs))
	for org := range orgs {
		out = append(out, org)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	log.Info().Str("module", "app.presence").Str("user", string(userID)).Int("orgs", len(out)).Msg("offline")
	return domain.PresenceEvent{UserID: userID, Status: domain.PresenceOffline, Timestamp: p.now()}, out
}

// Online lists users currently visible in the organization.
func (p *Presence) Online(orgID domain.OrganizationID) []domain.UserID {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.UserID
	for user, orgs := range p.online {
		if _, ok := orgs[orgID]; ok {
			out = append(out, user)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
