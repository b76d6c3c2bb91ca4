package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aurora-ops/realtime/internal/domain"
)

type typingPayload struct {
	TaskID    domain.TaskID    `json:"taskId" validate:"required,max=64"`
	ProjectID domain.ProjectID `json:"projectId" validate:"required,max=64"`
}

func (ctl *SignalWSController) handleTyping(_ context.Context, id domain.ConnectionIdentity, data json.RawMessage) error {
	return ctl.typing(id, data, domain.EventUserTyping)
}

func (ctl *SignalWSController) handleStopTyping(_ context.Context, id domain.ConnectionIdentity, data json.RawMessage) error {
	return ctl.typing(id, data, domain.EventUserStopTyping)
}

// typing is relayed only into a project room the connection has joined;
// joining is where the organization check happens.
func (ctl *SignalWSController) typing(id domain.ConnectionIdentity, data json.RawMessage, event string) error {
	var p typingPayload
	if err := ctl.decode(data, &p); err != nil {
		return err
	}
	room := domain.ProjectRoom(p.ProjectID)
	if !ctl.Orch.Rooms.IsMember(id.ConnID, room) {
		return fmt.Errorf("not joined to project %s: %w", p.ProjectID, domain.ErrForbidden)
	}
	ctl.Orch.Emit(room, event, domain.TypingEvent{
		UserID:    id.UserID,
		Email:     id.Email,
		TaskID:    p.TaskID,
		ProjectID: p.ProjectID,
		Timestamp: time.Now().UTC(),
	}, id.ConnID)
	return nil
}
