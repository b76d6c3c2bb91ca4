// Package client is the consumer side of the realtime layer: a websocket
// client that keeps a Reconciler fresh and a REST fallback for reads and
// mutations.
package client

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sort"
	"sync"
	"time"

	"github.com/aurora-ops/realtime/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var ErrNotConnected = errors.New("not connected")

type Options struct {
	// URL of the websocket endpoint, e.g. ws://localhost:8080/ws.
	URL            string
	Token          string
	OrganizationID domain.OrganizationID
	Dialer         *websocket.Dialer
	MinBackoff     time.Duration
	MaxBackoff     time.Duration
	WriteWait      time.Duration
}

// Client holds one websocket and replays subscriptions after every
// reconnect, since the server does not remember room membership.
type Client struct {
	opts Options
	rec  *Reconciler

	mu       sync.Mutex
	conn     *websocket.Conn
	projects map[domain.ProjectID]struct{}
	stats    bool
	tasks    bool
}

func New(opts Options, rec *Reconciler) *Client {
	if opts.Dialer == nil {
		opts.Dialer = websocket.DefaultDialer
	}
	if opts.MinBackoff <= 0 {
		opts.MinBackoff = 500 * time.Millisecond
	}
	if opts.MaxBackoff < opts.MinBackoff {
		opts.MaxBackoff = 30 * time.Second
	}
	if opts.WriteWait <= 0 {
		opts.WriteWait = 5 * time.Second
	}
	return &Client{opts: opts, rec: rec, projects: make(map[domain.ProjectID]struct{})}
}

// Run keeps the connection alive until ctx is done. Without an
// organization it stays paused.
func (c *Client) Run(ctx context.Context) error {
	if c.opts.OrganizationID == "" {
		c.rec.SetStatus(StatusPaused)
		<-ctx.Done()
		return nil
	}

	backoff := c.opts.MinBackoff
	for {
		c.rec.SetStatus(StatusConnecting)
		conn, err := c.dial(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn().Err(err).Str("module", "client").Dur("retry_in", backoff).Msg("dial failed")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(backoff):
			}
			backoff = nextBackoff(backoff, c.opts.MaxBackoff)
			continue
		}
		backoff = c.opts.MinBackoff

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		c.rec.SetStatus(StatusConnected)
		c.resubscribe()

		c.readLoop(ctx, conn)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()
		if ctx.Err() != nil {
			return nil
		}
	}
}

func nextBackoff(cur, limit time.Duration) time.Duration {
	next := cur * 2
	if next > limit {
		return limit
	}
	return next
}

func (c *Client) dial(ctx context.Context) (*websocket.Conn, error) {
	u, err := url.Parse(c.opts.URL)
	if err != nil {
		return nil, err
	}
	q := u.Query()
	q.Set("organizationId", string(c.opts.OrganizationID))
	u.RawQuery = q.Encode()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.opts.Token)
	conn, _, err := c.opts.Dialer.DialContext(ctx, u.String(), header)
	return conn, err
}

func (c *Client) readLoop(ctx context.Context, conn *websocket.Conn) {
	stop := context.AfterFunc(ctx, func() { _ = conn.Close() })
	defer stop()
	for {
		var env domain.Envelope
		if err := conn.ReadJSON(&env); err != nil {
			if ctx.Err() == nil {
				log.Info().Err(err).Str("module", "client").Msg("connection lost")
			}
			return
		}
		if err := c.rec.Handle(env); err != nil {
			log.Warn().Err(err).Str("module", "client").Msg("frame rejected")
		}
	}
}

func (c *Client) resubscribe() {
	c.mu.Lock()
	projects := make([]domain.ProjectID, 0, len(c.projects))
	for p := range c.projects {
		projects = append(projects, p)
	}
	stats, tasks := c.stats, c.tasks
	c.mu.Unlock()
	sort.Slice(projects, func(i, j int) bool { return projects[i] < projects[j] })

	for _, p := range projects {
		c.trySend(domain.EventJoinProject, domain.ProjectPayload{ProjectID: p})
	}
	if stats {
		c.trySend(domain.EventStatsSubscribe, nil)
	}
	if tasks {
		c.trySend(domain.EventTasksSubscribe, nil)
	}
}

func (c *Client) trySend(event string, data any) {
	if err := c.Emit(event, data); err != nil && !errors.Is(err, ErrNotConnected) {
		log.Warn().Err(err).Str("module", "client").Str("event", event).Msg("send failed")
	}
}

// Emit writes one event on the live connection.
func (c *Client) Emit(event string, data any) error {
	frame, err := domain.NewEnvelope(event, data)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conn == nil {
		return ErrNotConnected
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
	return c.conn.WriteMessage(websocket.TextMessage, frame)
}

// JoinProject remembers the project and joins it now if connected.
func (c *Client) JoinProject(id domain.ProjectID) {
	c.mu.Lock()
	c.projects[id] = struct{}{}
	c.mu.Unlock()
	c.trySend(domain.EventJoinProject, domain.ProjectPayload{ProjectID: id})
}

func (c *Client) LeaveProject(id domain.ProjectID) {
	c.mu.Lock()
	delete(c.projects, id)
	c.mu.Unlock()
	c.trySend(domain.EventLeaveProject, domain.ProjectPayload{ProjectID: id})
}

func (c *Client) SubscribeStats() {
	c.mu.Lock()
	c.stats = true
	c.mu.Unlock()
	c.trySend(domain.EventStatsSubscribe, nil)
}

func (c *Client) SubscribeTasks() {
	c.mu.Lock()
	c.tasks = true
	c.mu.Unlock()
	c.trySend(domain.EventTasksSubscribe, nil)
}
