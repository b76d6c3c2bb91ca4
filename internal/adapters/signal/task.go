package signal

import (
	"context"
	"encoding/json"

	"github.com/aurora-ops/realtime/internal/domain"
)

// Task mutations go through the task service, which broadcasts after the
// write commits. Handlers here only decode and report failures.

func (ctl *SignalWSController) handleTaskCreate(ctx context.Context, id domain.ConnectionIdentity, data json.RawMessage) error {
	var p domain.TaskCreatePayload
	if err := ctl.decode(data, &p); err != nil {
		return err
	}
	_, err := ctl.Tasks.Create(ctx, id.Identity, p.ProjectID, p.TaskData)
	return err
}

func (ctl *SignalWSController) handleTaskUpdate(ctx context.Context, id domain.ConnectionIdentity, data json.RawMessage) error {
	var p domain.TaskUpdatePayload
	if err := ctl.decode(data, &p); err != nil {
		return err
	}
	_, err := ctl.Tasks.Update(ctx, id.Identity, p.TaskID, p.Updates)
	return err
}

func (ctl *SignalWSController) handleTaskDelete(ctx context.Context, id domain.ConnectionIdentity, data json.RawMessage) error {
	var p domain.TaskRefPayload
	if err := ctl.decode(data, &p); err != nil {
		return err
	}
	_, err := ctl.Tasks.Delete(ctx, id.Identity, p.TaskID)
	return err
}

func (ctl *SignalWSController) handleTaskComment(ctx context.Context, id domain.ConnectionIdentity, data json.RawMessage) error {
	var p domain.TaskCommentPayload
	if err := ctl.decode(data, &p); err != nil {
		return err
	}
	_, err := ctl.Tasks.Comment(ctx, id.Identity, p.TaskID, p.Comment)
	return err
}
