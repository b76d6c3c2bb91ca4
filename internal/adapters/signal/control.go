package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aurora-ops/realtime/internal/domain"
	"github.com/rs/zerolog/log"
)

func (ctl *SignalWSController) handlePing(_ context.Context, id domain.ConnectionIdentity, _ json.RawMessage) error {
	ctl.Orch.Send(id.ConnID, domain.EventPong, struct {
		Timestamp time.Time `json:"timestamp"`
	}{time.Now().UTC()})
	return nil
}

// loadNotifications sends the unread backlog right after connect.
func (ctl *SignalWSController) loadNotifications(ctx context.Context, id domain.ConnectionIdentity) {
	if ctl.Notifications == nil {
		return
	}
	list, err := ctl.Notifications.Unread(ctx, id.Identity, ctl.Options.NotificationsLimit)
	if err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("conn", string(id.ConnID)).Msg("notifications not loaded")
		return
	}
	ctl.Orch.Send(id.ConnID, domain.EventNotificationsLoad, domain.NotificationsLoad{Notifications: list})
}
