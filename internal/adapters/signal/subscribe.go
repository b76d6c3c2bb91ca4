package signal

import (
	"context"
	"encoding/json"

	"github.com/aurora-ops/realtime/internal/domain"
)

func (ctl *SignalWSController) handleStatsSubscribe(ctx context.Context, id domain.ConnectionIdentity, _ json.RawMessage) error {
	ctl.Orch.Join(id.ConnID, domain.StatsRoom(id.OrganizationID, id.UserID))
	stats, err := ctl.Tasks.Stats(ctx, id.UserID, id.OrganizationID)
	if err != nil {
		return err
	}
	ctl.Orch.Send(id.ConnID, domain.EventStatsUpdate, stats)
	return nil
}

func (ctl *SignalWSController) handleStatsUnsubscribe(_ context.Context, id domain.ConnectionIdentity, _ json.RawMessage) error {
	ctl.Orch.Leave(id.ConnID, domain.StatsRoom(id.OrganizationID, id.UserID))
	return nil
}

func (ctl *SignalWSController) handleTasksSubscribe(ctx context.Context, id domain.ConnectionIdentity, _ json.RawMessage) error {
	ctl.Orch.Join(id.ConnID, domain.UserTasksRoom(id.OrganizationID, id.UserID))
	tasks, err := ctl.Tasks.Recent(ctx, id.UserID, id.OrganizationID, ctl.Options.TasksLimit)
	if err != nil {
		return err
	}
	ctl.Orch.Send(id.ConnID, domain.EventTasksLoaded, domain.TasksLoaded{Tasks: tasks})
	return nil
}

func (ctl *SignalWSController) handleTasksUnsubscribe(_ context.Context, id domain.ConnectionIdentity, _ json.RawMessage) error {
	ctl.Orch.Leave(id.ConnID, domain.UserTasksRoom(id.OrganizationID, id.UserID))
	return nil
}
