package orch

import (
	"context"
	"sync"
	"time"

	"github.com/aurora-ops/realtime/internal/app"
	"github.com/aurora-ops/realtime/internal/backplane"
	"github.com/aurora-ops/realtime/internal/core"
	"github.com/aurora-ops/realtime/internal/domain"
	"github.com/rs/zerolog/log"
)

const publishTimeout = 2 * time.Second

// Orchestrator owns connection lifecycle and room delivery. It is the only
// component that mutates the registry, the rooms and presence together.
type Orchestrator struct {
	// lifecycle serializes registry occupancy with presence transitions and
	// their broadcasts, so online and offline reach watchers in order.
	lifecycle sync.Mutex

	Registry  *app.Registry
	Rooms     *app.RoomManager
	Presence  *app.Presence
	Policy    app.Policy
	Backplane backplane.Backplane
	NodeID    string
	Now       func() time.Time
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now().UTC()
}

// Connect registers an authenticated connection, joins it to its
// organization room and announces the user there if this is their first
// connection in that organization.
func (o *Orchestrator) Connect(id domain.ConnectionIdentity, conn core.SignalConnection) {
	o.lifecycle.Lock()
	o.Registry.Register(id, conn)
	org := domain.OrgRoom(id.OrganizationID)
	o.Rooms.Join(id.ConnID, org, conn)
	var slow []domain.ConnID
	if ev, ok := o.Presence.Connected(id.Identity); ok {
		slow = o.emit(org, domain.EventUserPresence, ev, id.ConnID)
	}
	o.lifecycle.Unlock()

	log.Info().
		Str("module", "orch").
		Str("conn", string(id.ConnID)).
		Str("user", string(id.UserID)).
		Str("org", string(id.OrganizationID)).
		Msg("connected")
	o.kickAll(slow)
}

// Disconnect removes every trace of a connection. The user goes offline in
// each organization they were announced in once their last connection is gone.
// Calling it twice for the same connection is a no-op.
func (o *Orchestrator) Disconnect(connID domain.ConnID) {
	o.lifecycle.Lock()
	if !o.Registry.Has(connID) {
		o.lifecycle.Unlock()
		return
	}
	o.Rooms.LeaveAll(connID)
	id, last := o.Registry.Unregister(connID)
	var slow []domain.ConnID
	if last {
		ev, orgs := o.Presence.Disconnected(id.UserID)
		for _, org := range orgs {
			slow = append(slow, o.emit(domain.OrgRoom(org), domain.EventUserPresence, ev)...)
		}
	}
	o.lifecycle.Unlock()

	log.Info().
		Str("module", "orch").
		Str("conn", string(connID)).
		Str("user", string(id.UserID)).
		Bool("last", last).
		Msg("disconnected")
	o.kickAll(slow)
}

// Kick disconnects and closes a connection.
func (o *Orchestrator) Kick(connID domain.ConnID) {
	_, conn, ok := o.Registry.Lookup(connID)
	o.Disconnect(connID)
	if ok {
		conn.Close()
	}
}

// Emit delivers an event to local members of the room and hands it to the
// backplane for the other instances.
func (o *Orchestrator) Emit(key domain.RoomKey, event string, data any, except ...domain.ConnID) {
	o.kickAll(o.emit(key, event, data, except...))
}

// emit delivers and publishes without kicking, so it is safe under the
// lifecycle lock. It returns the members the policy wants gone.
func (o *Orchestrator) emit(key domain.RoomKey, event string, data any, except ...domain.ConnID) []domain.ConnID {
	frame, err := domain.NewEnvelope(event, data)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("event", event).Msg("encode failed")
		return nil
	}
	slow := o.deliver(key, frame, except...)

	if o.Backplane == nil {
		return slow
	}
	ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
	defer cancel()
	env := backplane.Envelope{Node: o.NodeID, Room: key, Frame: frame, Except: except}
	if err := o.Backplane.Publish(ctx, env); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("room", string(key)).Msg("backplane publish failed")
	}
	return slow
}

// Send delivers an event to a single connection.
func (o *Orchestrator) Send(connID domain.ConnID, event string, data any) bool {
	_, conn, ok := o.Registry.Lookup(connID)
	if !ok {
		return false
	}
	frame, err := domain.NewEnvelope(event, data)
	if err != nil {
		log.Error().Err(err).Str("module", "orch").Str("event", event).Msg("encode failed")
		return false
	}
	if err := conn.TrySend(frame); err != nil {
		log.Warn().Err(err).Str("module", "orch").Str("conn", string(connID)).Msg("send failed")
		o.Kick(connID)
		return false
	}
	return true
}

func (o *Orchestrator) deliver(key domain.RoomKey, frame core.Frame, except ...domain.ConnID) []domain.ConnID {
	res := o.Rooms.Broadcast(key, frame, except...)
	if o.Policy == nil {
		return nil
	}
	var kick []domain.ConnID
	for _, slow := range res.Dropped {
		switch o.Policy.OnBackPressure(key, slow) {
		case app.KickMember:
			log.Warn().Str("module", "orch").Str("room", string(key)).Str("conn", string(slow)).Msg("kicking slow member")
			kick = append(kick, slow)
		case app.DropFrame, app.NoAction:
		}
	}
	return kick
}

func (o *Orchestrator) kickAll(ids []domain.ConnID) {
	for _, id := range ids {
		o.Kick(id)
	}
}

// Run relays envelopes published by other instances until ctx is done.
func (o *Orchestrator) Run(ctx context.Context) error {
	if o.Backplane == nil {
		<-ctx.Done()
		return nil
	}
	return o.Backplane.Subscribe(ctx, func(env backplane.Envelope) {
		if env.Node == o.NodeID {
			return
		}
		// Kicks may emit and publish again; keep them off the subscriber.
		if slow := o.deliver(env.Room, core.Frame(env.Frame), env.Except...); len(slow) > 0 {
			go o.kickAll(slow)
		}
	})
}

// Shared reports whether broadcasts may have audiences on other instances.
func (o *Orchestrator) Shared() bool {
	if o.Backplane == nil {
		return false
	}
	_, noop := o.Backplane.(backplane.Noop)
	return !noop
}

// Shutdown closes every live connection.
func (o *Orchestrator) Shutdown() {
	o.lifecycle.Lock()
	conns := o.Registry.Clear()
	o.lifecycle.Unlock()
	for _, c := range conns {
		c.Close()
	}
	log.Info().Str("module", "orch").Int("closed", len(conns)).Msg("connections closed")
}
