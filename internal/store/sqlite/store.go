// Package sqlite is the embedded collaborator store: memberships, projects,
// tasks, comments and notifications in a single SQLite file.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/aurora-ops/realtime/internal/domain"
	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// Fixed width so lexical order in SQLite equals chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type Store struct {
	db *sql.DB
}

// Open creates the parent directory if needed, opens the database with WAL
// mode and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "." && path != ":memory:" {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("sqlite: create data dir: %w", err)
		}
	}
	db, err := openDB("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open database: %w", err)
	}
	// One writer; avoids SQLITE_BUSY between pooled connections.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite: pragma %q: %w", p, err)
		}
	}

	s := &Store{db: db}
	if err := s.Migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite: migration: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Migrate applies the schema. It is idempotent.
func (s *Store) Migrate(ctx context.Context) error {
	schema := `
		CREATE TABLE IF NOT EXISTS memberships (
			user_id         TEXT NOT NULL,
			organization_id TEXT NOT NULL,
			role            TEXT NOT NULL,
			status          TEXT NOT NULL,
			created_at      TEXT NOT NULL,
			PRIMARY KEY (user_id, organization_id)
		);

		CREATE TABLE IF NOT EXISTS projects (
			id              TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL,
			name            TEXT NOT NULL,
			created_at      TEXT NOT NULL,
			updated_at      TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS tasks (
			id              TEXT PRIMARY KEY,
			organization_id TEXT NOT NULL,
			project_id      TEXT NOT NULL,
			title           TEXT NOT NULL,
			description     TEXT NOT NULL DEFAULT '',
			status          TEXT NOT NULL,
			priority        TEXT NOT NULL DEFAULT '',
			assignee_id     TEXT NOT NULL DEFAULT '',
			created_by      TEXT NOT NULL,
			created_at      TEXT NOT NULL,
			updated_at      TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_tasks_project  ON tasks(organization_id, project_id);
		CREATE INDEX IF NOT EXISTS idx_tasks_assignee ON tasks(organization_id, assignee_id, updated_at);

		CREATE TABLE IF NOT EXISTS comments (
			id         TEXT PRIMARY KEY,
			task_id    TEXT NOT NULL REFERENCES tasks(id) ON DELETE CASCADE,
			user_id    TEXT NOT NULL,
			body       TEXT NOT NULL,
			created_at TEXT NOT NULL
		);

		CREATE TABLE IF NOT EXISTS notifications (
			id              TEXT PRIMARY KEY,
			user_id         TEXT NOT NULL,
			organization_id TEXT NOT NULL,
			type            TEXT NOT NULL,
			message         TEXT NOT NULL,
			read            INTEGER NOT NULL DEFAULT 0,
			created_at      TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_notifications_unread ON notifications(user_id, organization_id, read, created_at);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// ─── Memberships & projects ──────────────────────────────────────────────────

func (s *Store) AddMembership(ctx context.Context, m domain.Membership) error {
	if m.Status == "" {
		m.Status = domain.MembershipActive
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO memberships (user_id, organization_id, role, status, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, organization_id) DO UPDATE SET role = excluded.role, status = excluded.status`,
		m.UserID, m.OrganizationID, m.Role, m.Status, formatTime(m.CreatedAt))
	return err
}

// FindActiveMembership returns the active membership in orgID, or the oldest
// active one when orgID is empty.
func (s *Store) FindActiveMembership(ctx context.Context, userID domain.UserID, orgID domain.OrganizationID) (domain.Membership, error) {
	q := `SELECT user_id, organization_id, role, status, created_at FROM memberships
		WHERE user_id = ? AND status = ?`
	args := []any{userID, domain.MembershipActive}
	if orgID != "" {
		q += ` AND organization_id = ?`
		args = append(args, orgID)
	}
	q += ` ORDER BY created_at ASC LIMIT 1`

	var (
		m       domain.Membership
		created string
	)
	err := s.db.QueryRowContext(ctx, q, args...).Scan(&m.UserID, &m.OrganizationID, &m.Role, &m.Status, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Membership{}, domain.ErrNotFound
	}
	if err != nil {
		return domain.Membership{}, err
	}
	m.CreatedAt = parseTime(created)
	return m, nil
}

func (s *Store) CreateProject(ctx context.Context, p domain.Project) (domain.Project, error) {
	now := time.Now()
	if p.CreatedAt.IsZero() {
		p.CreatedAt = now
	}
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = p.CreatedAt
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO projects (id, organization_id, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		p.ID, p.OrganizationID, p.Name, formatTime(p.CreatedAt), formatTime(p.UpdatedAt))
	if err != nil {
		return domain.Project{}, err
	}
	return p, nil
}

func (s *Store) ProjectOrganization(ctx context.Context, projectID domain.ProjectID) (domain.OrganizationID, error) {
	var org domain.OrganizationID
	err := s.db.QueryRowContext(ctx, `SELECT organization_id FROM projects WHERE id = ?`, projectID).Scan(&org)
	if errors.Is(err, sql.ErrNoRows) {
		return "", domain.ErrNotFound
	}
	return org, err
}

// ─── Tasks ───────────────────────────────────────────────────────────────────

const taskColumns = `id, organization_id, project_id, title, description, status, priority, assignee_id, created_by, created_at, updated_at`

func (s *Store) CreateTask(ctx context.Context, t domain.Task) (domain.Task, error) {
	_, err := s.db.ExecContext(ctx, `INSERT INTO tasks (`+taskColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.OrganizationID, t.ProjectID, t.Title, t.Description, t.Status, t.Priority,
		t.AssigneeID, t.CreatedBy, formatTime(t.CreatedAt), formatTime(t.UpdatedAt))
	if err != nil {
		return domain.Task{}, err
	}
	return t, nil
}

func (s *Store) GetTask(ctx context.Context, orgID domain.OrganizationID, id domain.TaskID) (domain.Task, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM tasks WHERE id = ? AND organization_id = ?`, id, orgID)
	t, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Task{}, domain.ErrNotFound
	}
	return t, err
}

func (s *Store) UpdateTask(ctx context.Context, orgID domain.OrganizationID, id domain.TaskID, patch domain.TaskPatch, at time.Time) (domain.Task, error) {
	sets := []string{"updated_at = ?"}
	args := []any{formatTime(at)}
	if patch.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *patch.Title)
	}
	if patch.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *patch.Description)
	}
	if patch.Status != nil {
		sets = append(sets, "status = ?")
		args = append(args, *patch.Status)
	}
	if patch.Priority != nil {
		sets = append(sets, "priority = ?")
		args = append(args, *patch.Priority)
	}
	if patch.AssigneeID != nil {
		sets = append(sets, "assignee_id = ?")
		args = append(args, *patch.AssigneeID)
	}
	args = append(args, id, orgID)

	res, err := s.db.ExecContext(ctx, `UPDATE tasks SET `+strings.Join(sets, ", ")+` WHERE id = ? AND organization_id = ?`, args...)
	if err != nil {
		return domain.Task{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.Task{}, domain.ErrNotFound
	}
	return s.GetTask(ctx, orgID, id)
}

func (s *Store) DeleteTask(ctx context.Context, orgID domain.OrganizationID, id domain.TaskID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ? AND organization_id = ?`, id, orgID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) ListTasks(ctx context.Context, orgID domain.OrganizationID, projectID domain.ProjectID) ([]domain.Task, error) {
	q := `SELECT ` + taskColumns + ` FROM tasks WHERE organization_id = ?`
	args := []any{orgID}
	if projectID != "" {
		q += ` AND project_id = ?`
		args = append(args, projectID)
	}
	q += ` ORDER BY created_at ASC`
	return s.queryTasks(ctx, q, args...)
}

func (s *Store) ListTasksByAssignee(ctx context.Context, userID domain.UserID, orgID domain.OrganizationID, limit int) ([]domain.Task, error) {
	return s.queryTasks(ctx, `SELECT `+taskColumns+` FROM tasks
		WHERE organization_id = ? AND assignee_id = ?
		ORDER BY updated_at DESC LIMIT ?`, orgID, userID, limit)
}

func (s *Store) CountTasksByStatus(ctx context.Context, assigneeID domain.UserID, orgID domain.OrganizationID) (map[domain.TaskStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM tasks
		WHERE organization_id = ? AND assignee_id = ? GROUP BY status`, orgID, assigneeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[domain.TaskStatus]int)
	for rows.Next() {
		var (
			status domain.TaskStatus
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, err
		}
		out[status] = n
	}
	return out, rows.Err()
}

func (s *Store) queryTasks(ctx context.Context, q string, args ...any) ([]domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Task{}
	for rows.Next() {
		t, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanTask(row scanner) (domain.Task, error) {
	var (
		t                domain.Task
		created, updated string
	)
	err := row.Scan(&t.ID, &t.OrganizationID, &t.ProjectID, &t.Title, &t.Description, &t.Status,
		&t.Priority, &t.AssigneeID, &t.CreatedBy, &created, &updated)
	if err != nil {
		return domain.Task{}, err
	}
	t.CreatedAt = parseTime(created)
	t.UpdatedAt = parseTime(updated)
	return t, nil
}

// ─── Comments & notifications ────────────────────────────────────────────────

func (s *Store) AddComment(ctx context.Context, c domain.Comment) (domain.Comment, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO comments (id, task_id, user_id, body, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.TaskID, c.UserID, c.Body, formatTime(c.CreatedAt))
	if err != nil {
		return domain.Comment{}, err
	}
	return c, nil
}

func (s *Store) CreateNotification(ctx context.Context, n domain.Notification) (domain.Notification, error) {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO notifications (id, user_id, organization_id, type, message, read, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		n.ID, n.UserID, n.OrganizationID, n.Type, n.Message, n.Read, formatTime(n.CreatedAt))
	if err != nil {
		return domain.Notification{}, err
	}
	return n, nil
}

// MarkRead only touches the user's own notification; anything else is
// reported as not found.
func (s *Store) MarkRead(ctx context.Context, userID domain.UserID, id domain.NotificationID) error {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET read = 1 WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) ListUnread(ctx context.Context, userID domain.UserID, orgID domain.OrganizationID, limit int) ([]domain.Notification, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, user_id, organization_id, type, message, read, created_at
		FROM notifications WHERE user_id = ? AND organization_id = ? AND read = 0
		ORDER BY created_at DESC LIMIT ?`, userID, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []domain.Notification{}
	for rows.Next() {
		var (
			n       domain.Notification
			created string
		)
		if err := rows.Scan(&n.ID, &n.UserID, &n.OrganizationID, &n.Type, &n.Message, &n.Read, &created); err != nil {
			return nil, err
		}
		n.CreatedAt = parseTime(created)
		out = append(out, n)
	}
	return out, rows.Err()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}
	}
	return t
}
