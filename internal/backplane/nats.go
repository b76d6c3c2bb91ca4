package backplane

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

const dialTimeout = 5 * time.Second

// NATS fans envelopes out over a core NATS subject. No queue group: every
// instance needs every envelope.
type NATS struct {
	nc      *nats.Conn
	subject string
}

func NewNATS(url, subject string) (*NATS, error) {
	nc, err := nats.Connect(url,
		nats.Name("aurora-realtime"),
		nats.Timeout(dialTimeout),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
	)
	if err != nil {
		return nil, fmt.Errorf("nats connect %s: %w", url, err)
	}
	return &NATS{nc: nc, subject: subject}, nil
}

func (n *NATS) Publish(_ context.Context, env Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	return n.nc.Publish(n.subject, data)
}

func (n *NATS) Subscribe(ctx context.Context, fn func(Envelope)) error {
	sub, err := n.nc.Subscribe(n.subject, func(msg *nats.Msg) {
		env, err := decode(msg.Data)
		if err != nil {
			log.Warn().Err(err).Str("module", "backplane.nats").Msg("skip envelope")
			return
		}
		fn(env)
	})
	if err != nil {
		return fmt.Errorf("nats subscribe %s: %w", n.subject, err)
	}
	<-ctx.Done()
	return sub.Unsubscribe()
}

func (n *NATS) Close() error {
	n.nc.Close()
	return nil
}
