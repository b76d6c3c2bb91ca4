package signal

import (
	"context"
	"encoding/json"

	"github.com/aurora-ops/realtime/internal/domain"
)

// handleJoinProject only admits projects of the connection's organization.
func (ctl *SignalWSController) handleJoinProject(ctx context.Context, id domain.ConnectionIdentity, data json.RawMessage) error {
	var p domain.ProjectPayload
	if err := ctl.decode(data, &p); err != nil {
		return err
	}
	if err := ctl.Tasks.CheckProject(ctx, id.Identity, p.ProjectID); err != nil {
		return err
	}
	// The connection may have gone while the lookup ran.
	if !ctl.Orch.Registry.Has(id.ConnID) {
		return nil
	}
	ctl.Orch.JoinProject(id.ConnID, p.ProjectID)
	return nil
}

func (ctl *SignalWSController) handleLeaveProject(_ context.Context, id domain.ConnectionIdentity, data json.RawMessage) error {
	var p domain.ProjectPayload
	if err := ctl.decode(data, &p); err != nil {
		return err
	}
	ctl.Orch.LeaveProject(id.ConnID, p.ProjectID)
	return nil
}
