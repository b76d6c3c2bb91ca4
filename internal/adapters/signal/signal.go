package signal

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/aurora-ops/realtime/internal/app"
	"github.com/aurora-ops/realtime/internal/app/orch"
	"github.com/aurora-ops/realtime/internal/core"
	"github.com/aurora-ops/realtime/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

var (
	ErrBackpressure = errors.New("backpressure")
	errClosed       = errors.New("connection closed")
)

// SessionOrganizationKey is the cookie-session key holding the active
// organization, used when the handshake names none.
const SessionOrganizationKey = "organizationId"

type Options struct {
	ReadLimit          int64
	PingPeriod         time.Duration
	PongWait           time.Duration
	WriteWait          time.Duration
	SendBuffer         int
	NotificationsLimit int
	TasksLimit         int
	// AllowedOrigins empty means any origin.
	AllowedOrigins []string
}

func (o Options) withDefaults() Options {
	if o.ReadLimit <= 0 {
		o.ReadLimit = 32 << 10
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = o.PongWait * 9 / 10
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 5 * time.Second
	}
	if o.SendBuffer <= 0 {
		o.SendBuffer = 64
	}
	if o.NotificationsLimit <= 0 {
		o.NotificationsLimit = 20
	}
	if o.TasksLimit <= 0 {
		o.TasksLimit = 20
	}
	return o
}

type SignalWSController struct {
	Orch          *orch.Orchestrator
	Auth          *app.Authenticator
	Tasks         *app.TaskService
	Notifications *app.NotificationService
	Limiter       *RateLimiter
	Options       Options

	validate *validator.Validate
	upgrader websocket.Upgrader
	handlers map[string]handlerFunc
}

func NewSignalWSController(o *orch.Orchestrator, auth *app.Authenticator, tasks *app.TaskService, notifications *app.NotificationService, limiter *RateLimiter, opts Options) *SignalWSController {
	ctl := &SignalWSController{
		Orch:          o,
		Auth:          auth,
		Tasks:         tasks,
		Notifications: notifications,
		Limiter:       limiter,
		Options:       opts.withDefaults(),
		validate:      validator.New(validator.WithRequiredStructEnabled()),
	}
	ctl.upgrader = websocket.Upgrader{CheckOrigin: ctl.checkOrigin}
	ctl.handlers = ctl.routes()
	return ctl
}

func (ctl *SignalWSController) checkOrigin(r *http.Request) bool {
	if len(ctl.Options.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	for _, allowed := range ctl.Options.AllowedOrigins {
		if allowed == origin || allowed == u.Host {
			return true
		}
	}
	return false
}

type WsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *WsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errClosed
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *WsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	c.mu.Unlock()
}

// handshake reads the credential and the organization hint. The credential
// comes from the token query parameter or the Authorization header; the
// organization from the query, the X-Organization-Id header or the session.
func handshake(c *gin.Context) domain.Handshake {
	cred := c.Query("token")
	if cred == "" {
		cred = domain.BearerToken(c.GetHeader("Authorization"))
	}
	org := c.Query("organizationId")
	if org == "" {
		org = c.GetHeader("X-Organization-Id")
	}
	if _, hasSession := c.Get(sessions.DefaultKey); org == "" && hasSession {
		if v, ok := sessions.Default(c).Get(SessionOrganizationKey).(string); ok {
			org = v
		}
	}
	return domain.Handshake{Credential: cred, OrganizationID: domain.OrganizationID(org)}
}

// HandleSignal authenticates the handshake and only then upgrades. A
// rejected handshake never reaches the registry.
func (ctl *SignalWSController) HandleSignal(ctx context.Context, c *gin.Context) {
	identity, err := ctl.Auth.Authenticate(c.Request.Context(), handshake(c))
	if err != nil {
		status := http.StatusInternalServerError
		switch {
		case errors.Is(err, domain.ErrAuthentication):
			status = http.StatusUnauthorized
		case errors.Is(err, domain.ErrAuthorization):
			status = http.StatusForbidden
		}
		log.Warn().Err(err).Str("module", "signal").Int("status", status).Msg("handshake rejected")
		c.AbortWithStatusJSON(status, gin.H{"error": http.StatusText(status), "code": domain.ErrorCode(err)})
		return
	}

	ws, err := ctl.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &WsSignalConn{
		conn: ws,
		send: make(chan core.Frame, ctl.Options.SendBuffer),
	}
	id := domain.ConnectionIdentity{Identity: identity, ConnID: domain.ConnID(uuid.NewString())}
	ctl.Orch.Connect(id, conn)

	ctx, cancel := context.WithCancel(ctx)
	go ctl.writePump(ctx, cancel, conn)
	go ctl.readPump(ctx, cancel, id, conn)
	go ctl.loadNotifications(ctx, id)
}
