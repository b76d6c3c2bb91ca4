package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/aurora-ops/realtime/internal/domain"
)

func (ctl *SignalWSController) handleNotificationRead(ctx context.Context, id domain.ConnectionIdentity, data json.RawMessage) error {
	var p domain.NotificationReadPayload
	if err := ctl.decode(data, &p); err != nil {
		return err
	}
	if err := ctl.Notifications.MarkRead(ctx, id.Identity, p.NotificationID); err != nil {
		return err
	}
	ctl.Orch.Send(id.ConnID, domain.EventNotificationAck, domain.NotificationAck{
		NotificationID: p.NotificationID,
		Timestamp:      time.Now().UTC(),
	})
	return nil
}
