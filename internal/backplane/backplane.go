// Package backplane relays room broadcasts between server instances so a
// member connected to node B sees a write committed on node A.
package backplane

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aurora-ops/realtime/internal/config"
	"github.com/aurora-ops/realtime/internal/domain"
)

// Envelope is one room broadcast crossing instances. Node is the origin;
// receivers drop their own envelopes.
type Envelope struct {
	Node   string          `json:"node"`
	Room   domain.RoomKey  `json:"room"`
	Frame  json.RawMessage `json:"frame"`
	Except []domain.ConnID `json:"except,omitempty"`
}

// Backplane publishes envelopes to, and receives them from, every instance.
type Backplane interface {
	Publish(ctx context.Context, env Envelope) error
	// Subscribe blocks delivering envelopes to fn until ctx is done.
	Subscribe(ctx context.Context, fn func(Envelope)) error
	Close() error
}

// Noop is the single-instance backplane.
type Noop struct{}

func (Noop) Publish(context.Context, Envelope) error { return nil }

func (Noop) Subscribe(ctx context.Context, _ func(Envelope)) error {
	<-ctx.Done()
	return nil
}

func (Noop) Close() error { return nil }

// New connects the backplane selected by cfg.Driver.
func New(cfg config.Backplane) (Backplane, error) {
	switch cfg.Driver {
	case "", "none":
		return Noop{}, nil
	case "redis":
		return NewRedis(cfg.RedisAddr, cfg.Channel)
	case "nats":
		return NewNATS(cfg.NatsURL, cfg.Channel)
	default:
		return nil, fmt.Errorf("unknown backplane driver %q", cfg.Driver)
	}
}

func decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("decode envelope: %w", err)
	}
	return env, nil
}
