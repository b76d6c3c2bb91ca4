package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/aurora-ops/realtime/internal/domain"
	"github.com/rs/zerolog/log"
)

// REST is the fallback transport: reads seed the reconciler and mutations
// go here rather than through the socket.
type REST struct {
	BaseURL        string
	Token          string
	OrganizationID domain.OrganizationID
	HTTP           *http.Client
	Timeout        time.Duration
	Rec            *Reconciler
}

func (r *REST) client() *http.Client {
	if r.HTTP != nil {
		return r.HTTP
	}
	return http.DefaultClient
}

func (r *REST) do(ctx context.Context, method, path string, body, out any) error {
	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}
	var rd *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(b)
	} else {
		rd = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.BaseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+r.Token)
	req.Header.Set("X-Organization-Id", string(r.OrganizationID))
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := r.client().Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		var e struct {
			Error string `json:"error"`
			Code  string `json:"code"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&e)
		return fmt.Errorf("%s %s: %d %s (%s)", method, path, resp.StatusCode, e.Error, e.Code)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// RefreshTasks fetches the organization's tasks, optionally one project's.
func (r *REST) RefreshTasks(ctx context.Context, projectID domain.ProjectID) ([]domain.Task, error) {
	path := "/api/tasks"
	if projectID != "" {
		path += "?projectId=" + url.QueryEscape(string(projectID))
	}
	var out struct {
		Tasks []domain.Task `json:"tasks"`
	}
	fetchedAt := time.Now().UTC()
	if err := r.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	if r.Rec != nil {
		r.Rec.SetRESTTasks(projectID, out.Tasks, fetchedAt)
	}
	return out.Tasks, nil
}

// UpdateTask sends the mutation over REST and then refetches as a fallback
// for a delayed or lost broadcast. The refetch is best-effort; the socket
// may deliver the same update too, which the reconciler absorbs.
func (r *REST) UpdateTask(ctx context.Context, id domain.TaskID, patch domain.TaskPatch) (domain.Task, error) {
	var out struct {
		Task domain.Task `json:"task"`
	}
	if err := r.do(ctx, http.MethodPatch, "/api/tasks/"+url.PathEscape(string(id)), patch, &out); err != nil {
		return domain.Task{}, err
	}
	if r.Rec != nil {
		r.Rec.ApplyTask(out.Task)
	}
	if _, err := r.RefreshTasks(ctx, out.Task.ProjectID); err != nil {
		log.Warn().Err(err).Str("module", "client.rest").Msg("refetch after update failed")
	}
	return out.Task, nil
}
