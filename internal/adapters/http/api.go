package http

import (
	"errors"
	"net/http"

	"github.com/aurora-ops/realtime/internal/adapters/signal"
	"github.com/aurora-ops/realtime/internal/domain"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog/log"
)

const identityKey = "identity"

type apiHandlers struct {
	deps     Deps
	validate *validator.Validate
}

func (h *apiHandlers) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *apiHandlers) stats(c *gin.Context) {
	s := h.deps.Orch.Registry.Stats()
	c.JSON(http.StatusOK, gin.H{
		"rooms":         len(h.deps.Orch.Rooms.List()),
		"connections":   s.Connections,
		"users":         s.Users,
		"organizations": s.Organizations,
	})
}

// requireIdentity authenticates the bearer token against the organization
// named by X-Organization-Id, falling back to the session's active one.
func (h *apiHandlers) requireIdentity(c *gin.Context) {
	hs := domain.Handshake{
		Credential:     domain.BearerToken(c.GetHeader("Authorization")),
		OrganizationID: domain.OrganizationID(c.GetHeader("X-Organization-Id")),
	}
	if hs.OrganizationID == "" {
		if v, ok := sessions.Default(c).Get(signal.SessionOrganizationKey).(string); ok {
			hs.OrganizationID = domain.OrganizationID(v)
		}
	}
	id, err := h.deps.Auth.Authenticate(c.Request.Context(), hs)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.Set(identityKey, id)
	c.Next()
}

func identityOf(c *gin.Context) domain.Identity {
	id, _ := c.MustGet(identityKey).(domain.Identity)
	return id
}

func (h *apiHandlers) listTasks(c *gin.Context) {
	tasks, err := h.deps.Tasks.List(c.Request.Context(), identityOf(c), domain.ProjectID(c.Query("projectId")))
	if err != nil {
		abortWithError(c, err)
		return
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	c.JSON(http.StatusOK, gin.H{"tasks": tasks})
}

// updateTask shares the write path with the websocket task:update event, so
// joined rooms see the same task:updated broadcast.
func (h *apiHandlers) updateTask(c *gin.Context) {
	var patch domain.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		abortWithError(c, errors.Join(domain.ErrInvalidPayload, err))
		return
	}
	if err := h.validate.Struct(patch); err != nil {
		abortWithError(c, errors.Join(domain.ErrInvalidPayload, err))
		return
	}
	task, err := h.deps.Tasks.Update(c.Request.Context(), identityOf(c), domain.TaskID(c.Param("id")), patch)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"task": task})
}

func (h *apiHandlers) presence(c *gin.Context) {
	online := h.deps.Orch.Presence.Online(identityOf(c).OrganizationID)
	if online == nil {
		online = []domain.UserID{}
	}
	c.JSON(http.StatusOK, gin.H{"online": online})
}

type organizationRequest struct {
	OrganizationID domain.OrganizationID `json:"organizationId" validate:"required,max=64"`
}

// setOrganization switches the session's active organization after checking
// the caller is an active member there.
func (h *apiHandlers) setOrganization(c *gin.Context) {
	var req organizationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, errors.Join(domain.ErrInvalidPayload, err))
		return
	}
	if err := h.validate.Struct(req); err != nil {
		abortWithError(c, errors.Join(domain.ErrInvalidPayload, err))
		return
	}
	id, err := h.deps.Auth.Authenticate(c.Request.Context(), domain.Handshake{
		Credential:     domain.BearerToken(c.GetHeader("Authorization")),
		OrganizationID: req.OrganizationID,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	s := sessions.Default(c)
	s.Set(signal.SessionOrganizationKey, string(id.OrganizationID))
	if err := s.Save(); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"identity": id})
}

func abortWithError(c *gin.Context, err error) {
	code := domain.ErrorCode(err)
	status := http.StatusInternalServerError
	switch code {
	case "unauthenticated":
		status = http.StatusUnauthorized
	case "forbidden":
		status = http.StatusForbidden
	case "not_found":
		status = http.StatusNotFound
	case "bad_payload":
		status = http.StatusBadRequest
	case "rate_limited":
		status = http.StatusTooManyRequests
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		log.Error().Err(err).Str("module", "adapters.http").Str("path", c.FullPath()).Msg("request failed")
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "code": code})
}
