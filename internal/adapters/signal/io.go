package signal

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aurora-ops/realtime/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

type handlerFunc func(ctx context.Context, id domain.ConnectionIdentity, data json.RawMessage) error

func (ctl *SignalWSController) routes() map[string]handlerFunc {
	return map[string]handlerFunc{
		domain.EventPing:             ctl.handlePing,
		domain.EventJoinProject:      ctl.handleJoinProject,
		domain.EventLeaveProject:     ctl.handleLeaveProject,
		domain.EventTaskCreate:       ctl.handleTaskCreate,
		domain.EventTaskUpdate:       ctl.handleTaskUpdate,
		domain.EventTaskDelete:       ctl.handleTaskDelete,
		domain.EventTaskComment:      ctl.handleTaskComment,
		domain.EventNotificationRead: ctl.handleNotificationRead,
		domain.EventTyping:           ctl.handleTyping,
		domain.EventStopTyping:       ctl.handleStopTyping,
		domain.EventStatsSubscribe:   ctl.handleStatsSubscribe,
		domain.EventStatsUnsubscribe: ctl.handleStatsUnsubscribe,
		domain.EventTasksSubscribe:   ctl.handleTasksSubscribe,
		domain.EventTasksUnsubscribe: ctl.handleTasksUnsubscribe,
	}
}

func (ctl *SignalWSController) writePump(ctx context.Context, cancel context.CancelFunc, c *WsSignalConn) {
	ticker := time.NewTicker(ctl.Options.PingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		_ = c.conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case data, ok := <-c.send:
			if !ok {
				_ = c.conn.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
					time.Now().Add(ctl.Options.WriteWait))
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(ctl.Options.WriteWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		case <-ticker.C:
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(ctl.Options.WriteWait)); err != nil {
				log.Debug().Err(err).Str("module", "signal").Msg("writePump ping error")
				return
			}
		}
	}
}

func (ctl *SignalWSController) readPump(ctx context.Context, cancel context.CancelFunc, id domain.ConnectionIdentity, c *WsSignalConn) {
	defer func() {
		log.Debug().Str("module", "signal").Str("conn", string(id.ConnID)).Msg("readPump closing")
		cancel()
		ctl.Orch.Disconnect(id.ConnID)
		if ctl.Limiter != nil {
			ctl.Limiter.Forget(id.ConnID)
		}
		c.Close()
	}()

	c.conn.SetReadLimit(ctl.Options.ReadLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(ctl.Options.PongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(ctl.Options.PongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Warn().Err(err).Str("module", "signal").Str("conn", string(id.ConnID)).Msg("readPump read error")
			}
			return
		}
		if ctx.Err() != nil {
			return
		}
		ctl.dispatch(ctx, id, data)
	}
}

// dispatch runs one inbound event. Failures are reported to the originating
// connection only and never end the connection.
func (ctl *SignalWSController) dispatch(ctx context.Context, id domain.ConnectionIdentity, data []byte) {
	var env domain.Envelope
	if err := json.Unmarshal(data, &env); err != nil || env.Event == "" {
		ctl.sendError(id, "", fmt.Errorf("malformed envelope: %w", domain.ErrInvalidPayload))
		return
	}

	defer func() {
		if r := recover(); r != nil {
			log.Error().Str("module", "signal").Str("event", env.Event).Interface("panic", r).Msg("handler panic")
			ctl.sendError(id, env.Event, fmt.Errorf("panic: %v", r))
		}
	}()

	if ctl.Limiter != nil && !ctl.Limiter.Allow(id.ConnID) {
		ctl.sendError(id, env.Event, domain.ErrRateLimited)
		return
	}
	h, ok := ctl.handlers[env.Event]
	if !ok {
		ctl.sendError(id, env.Event, fmt.Errorf("unknown event %q: %w", env.Event, domain.ErrInvalidPayload))
		return
	}
	if err := h(ctx, id, env.Data); err != nil {
		ctl.sendError(id, env.Event, err)
	}
}

func (ctl *SignalWSController) decode(data json.RawMessage, v any) error {
	if len(data) == 0 {
		data = json.RawMessage("{}")
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	if err := ctl.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrInvalidPayload, err)
	}
	return nil
}

func (ctl *SignalWSController) sendError(id domain.ConnectionIdentity, event string, err error) {
	code := domain.ErrorCode(err)
	msg := err.Error()
	if code == "internal" {
		log.Error().Err(err).Str("module", "signal").Str("conn", string(id.ConnID)).Str("event", event).Msg("handler failed")
		msg = "internal error"
	} else {
		log.Debug().Err(err).Str("module", "signal").Str("conn", string(id.ConnID)).Str("event", event).Msg("handler rejected")
	}
	ctl.Orch.Send(id.ConnID, domain.EventError, domain.ErrorEvent{Message: msg, Code: code, Event: event})
}
