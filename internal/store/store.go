// Package store opens the collaborator store selected in configuration.
package store

import (
	"context"
	"fmt"

	"github.com/aurora-ops/realtime/internal/config"
	"github.com/aurora-ops/realtime/internal/core"
	"github.com/aurora-ops/realtime/internal/store/mongostore"
	"github.com/aurora-ops/realtime/internal/store/sqlite"
)

// Open connects the configured backend and applies its schema.
func Open(ctx context.Context, cfg config.Store) (core.Store, error) {
	switch cfg.Driver {
	case "", "sqlite":
		return sqlite.Open(ctx, cfg.SQLitePath)
	case "mongo":
		s, err := mongostore.Open(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, err
		}
		if err := s.Migrate(ctx); err != nil {
			_ = s.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
