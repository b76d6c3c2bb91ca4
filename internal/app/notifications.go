package app

import (
	"context"
	"fmt"
	"time"

	"github.com/aurora-ops/realtime/internal/core"
	"github.com/aurora-ops/realtime/internal/domain"
)

type NotificationService struct {
	Store       core.NotificationStore
	Permissions core.Permissions
	Timeout     time.Duration
}

func (s *NotificationService) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.Timeout > 0 {
		return context.WithTimeout(ctx, s.Timeout)
	}
	return context.WithCancel(ctx)
}

// Unread returns up to limit unread notifications of the actor.
func (s *NotificationService) Unread(ctx context.Context, actor domain.Identity, limit int) ([]domain.Notification, error) {
	ctx, cancel := s.bound(ctx)
	defer cancel()
	list, err := s.Store.ListUnread(ctx, actor.UserID, actor.OrganizationID, limit)
	if err != nil {
		return nil, fmt.Errorf("list unread: %w", err)
	}
	if list == nil {
		list = []domain.Notification{}
	}
	return list, nil
}

// MarkRead marks one of the actor's notifications read. Notifications of
// other users are reported as not found.
func (s *NotificationService) MarkRead(ctx context.Context, actor domain.Identity, id domain.NotificationID) error {
	if s.Permissions != nil && !s.Permissions.Can(actor.Role, domain.ActionNotificationRead) {
		return fmt.Errorf("%s cannot read notifications: %w", actor.Role, domain.ErrForbidden)
	}
	ctx, cancel := s.bound(ctx)
	defer cancel()
	if err := s.Store.MarkRead(ctx, actor.UserID, id); err != nil {
		return fmt.Errorf("mark read %s: %w", id, err)
	}
	return nil
}
