package repo

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/chative-salesdesk/server/internal/agent/model"
	errx "github.com/chative-salesdesk/server/internal/core/error"
	logx "github.com/chative-salesdesk/server/pkg/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// SQLiteStore persists clients, history, agents and assignments in one SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (or creates) salesdesk.db in dataDir and runs pending migrations.
// Pass ":memory:" for an in-memory database.
func OpenSQLite(dataDir string) (*SQLiteStore, error) {
	dsn := ":memory:"
	if dataDir != ":memory:" {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, "salesdesk.db")
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// one connection: avoids "database is locked" and keeps :memory: a single database
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{"PRAGMA busy_timeout = 5000", "PRAGMA journal_mode=WAL", "PRAGMA foreign_keys = ON"} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// migrate applies embedded migrations that are not yet recorded in schema_version.
func (s *SQLiteStore) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name() < entries[j].Name() })

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}
		var version int
		if _, err := fmt.Sscanf(entry.Name(), "%d_", &version); err != nil {
			return fmt.Errorf("parsing migration version from %q: %w", entry.Name(), err)
		}

		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}
		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}
		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
		logx.Debug().Int("version", version).Msg("sqlite migration applied")
	}
	return nil
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339Nano, s)
}

type rowScanner interface {
	Scan(dest ...any) error
}

const clientColumns = `id, display_name, status, last_outcome, message_count, created_at, updated_at, last_message_at`

func scanClient(row rowScanner) (*model.ClientRecord, error) {
	var c model.ClientRecord
	var created, updated, last string
	if err := row.Scan(&c.ID, &c.DisplayName, &c.Status, &c.LastOutcome, &c.MessageCount, &created, &updated, &last); err != nil {
		return nil, err
	}
	var err error
	if c.CreatedAt, err = parseTime(created); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if c.UpdatedAt, err = parseTime(updated); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}
	if c.LastMessageAt, err = parseTime(last); err != nil {
		return nil, fmt.Errorf("parsing last_message_at: %w", err)
	}
	return &c, nil
}

func (s *SQLiteStore) GetClient(ctx context.Context, id string) (*model.ClientRecord, error) {
	c, err := scanClient(s.db.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id))
	if err != nil {
		return nil, errx.WrapSQL(err)
	}
	return c, nil
}

func (s *SQLiteStore) UpsertClient(ctx context.Context, id string, patch model.ClientPatch) (*model.ClientRecord, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errx.WrapSQL(err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	c, err := scanClient(tx.QueryRowContext(ctx, `SELECT `+clientColumns+` FROM clients WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		c = newClient(id, now)
	} else if err != nil {
		return nil, errx.WrapSQL(err)
	}
	applyPatch(c, patch, now)

	_, err = tx.ExecContext(ctx, `
		INSERT INTO clients (`+clientColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			display_name = excluded.display_name,
			status = excluded.status,
			last_outcome = excluded.last_outcome,
			message_count = excluded.message_count,
			updated_at = excluded.updated_at,
			last_message_at = excluded.last_message_at`,
		c.ID, c.DisplayName, c.Status, c.LastOutcome, c.MessageCount,
		formatTime(c.CreatedAt), formatTime(c.UpdatedAt), formatTime(c.LastMessageAt),
	)
	if err != nil {
		logx.Error().Err(err).Str("client_id", id).Msg("failed to upsert client in sqlite")
		return nil, errx.WrapSQL(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, errx.WrapSQL(err)
	}
	return c, nil
}

func (s *SQLiteStore) ListClients(ctx context.Context, limit int) ([]model.ClientRecord, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY updated_at DESC, id ASC LIMIT ?`, limit)
	if err != nil {
		return nil, errx.WrapSQL(err)
	}
	defer rows.Close()

	out := []model.ClientRecord{}
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ResetClient(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errx.WrapSQL(err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM clients WHERE id = ?`, id)
	if err != nil {
		return errx.WrapSQL(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errx.NotFound("client %s", id)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE client_id = ?`, id); err != nil {
		return errx.WrapSQL(err)
	}
	if _, err := completeActive(ctx, tx, id, time.Now().UTC()); err != nil {
		return err
	}
	return errx.WrapSQL(tx.Commit())
}

func (s *SQLiteStore) AppendMessage(ctx context.Context, clientID string, role model.Role, text string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO messages (client_id, role, text, created_at) VALUES (?, ?, ?, ?)`,
		clientID, role, text, formatTime(time.Now()),
	)
	if err != nil {
		logx.Error().Err(err).Str("client_id", clientID).Msg("failed to append message in sqlite")
		return errx.WrapSQL(err)
	}
	return nil
}

func (s *SQLiteStore) RecentMessages(ctx context.Context, clientID string, limit int) ([]model.Message, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT client_id, role, text, created_at FROM (
			SELECT id, client_id, role, text, created_at FROM messages
			WHERE client_id = ? ORDER BY id DESC LIMIT ?
		) ORDER BY id ASC`, clientID, limit)
	if err != nil {
		return nil, errx.WrapSQL(err)
	}
	defer rows.Close()

	out := []model.Message{}
	for rows.Next() {
		var m model.Message
		var created string
		if err := rows.Scan(&m.ClientID, &m.Role, &m.Text, &created); err != nil {
			return nil, err
		}
		if m.CreatedAt, err = parseTime(created); err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

const assignmentColumns = `id, client_id, agent_id, status, assigned_at, completed_at`

func scanAssignment(row rowScanner) (*model.Assignment, error) {
	var a model.Assignment
	var assigned string
	var completed sql.NullString
	if err := row.Scan(&a.ID, &a.ClientID, &a.AgentID, &a.Status, &assigned, &completed); err != nil {
		return nil, err
	}
	var err error
	if a.AssignedAt, err = parseTime(assigned); err != nil {
		return nil, fmt.Errorf("parsing assigned_at: %w", err)
	}
	if completed.Valid && completed.String != "" {
		t, err := parseTime(completed.String)
		if err != nil {
			return nil, fmt.Errorf("parsing completed_at: %w", err)
		}
		a.CompletedAt = &t
	}
	return &a, nil
}

// optionalAssignment turns sql.ErrNoRows into nil, nil.
func optionalAssignment(a *model.Assignment, err error) (*model.Assignment, error) {
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errx.WrapSQL(err)
	}
	return a, nil
}

func (s *SQLiteStore) ActiveAssignment(ctx context.Context, clientID string) (*model.Assignment, error) {
	return optionalAssignment(scanAssignment(s.db.QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE client_id = ? AND status = 'active'`, clientID)))
}

func (s *SQLiteStore) LastAssignment(ctx context.Context) (*model.Assignment, error) {
	return optionalAssignment(scanAssignment(s.db.QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` FROM assignments ORDER BY seq DESC LIMIT 1`)))
}

func completeActive(ctx context.Context, tx *sql.Tx, clientID string, now time.Time) (*model.Assignment, error) {
	a, err := optionalAssignment(scanAssignment(tx.QueryRowContext(ctx,
		`SELECT `+assignmentColumns+` FROM assignments WHERE client_id = ? AND status = 'active'`, clientID)))
	if err != nil || a == nil {
		return nil, err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE assignments SET status = 'completed', completed_at = ? WHERE id = ?`,
		formatTime(now), a.ID,
	); err != nil {
		return nil, errx.WrapSQL(err)
	}
	a.Status = model.AssignmentCompleted
	a.CompletedAt = &now
	return a, nil
}

func (s *SQLiteStore) CreateAssignment(ctx context.Context, clientID, agentID string) (*model.Assignment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errx.WrapSQL(err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE agents SET lifetime_assignment_count = lifetime_assignment_count + 1 WHERE id = ?`, agentID)
	if err != nil {
		return nil, errx.WrapSQL(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, errx.NotFound("agent %s", agentID)
	}

	now := time.Now().UTC()
	if _, err := completeActive(ctx, tx, clientID, now); err != nil {
		return nil, err
	}
	a := &model.Assignment{
		ID:         uuid.NewString(),
		ClientID:   clientID,
		AgentID:    agentID,
		Status:     model.AssignmentActive,
		AssignedAt: now,
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO assignments (id, client_id, agent_id, status, assigned_at) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.ClientID, a.AgentID, a.Status, formatTime(a.AssignedAt),
	); err != nil {
		logx.Error().Err(err).Str("client_id", clientID).Msg("failed to insert assignment in sqlite")
		return nil, errx.WrapSQL(err)
	}
	if err := tx.Commit(); err != nil {
		return nil, errx.WrapSQL(err)
	}
	return a, nil
}

func (s *SQLiteStore) CompleteAssignment(ctx context.Context, clientID string) (*model.Assignment, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errx.WrapSQL(err)
	}
	defer tx.Rollback()

	a, err := completeActive(ctx, tx, clientID, time.Now().UTC())
	if err != nil || a == nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, errx.WrapSQL(err)
	}
	return a, nil
}

func (s *SQLiteStore) listAgents(ctx context.Context, where string) ([]model.Agent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, name, contact_handle, active, position, lifetime_assignment_count
		FROM agents `+where+` ORDER BY position ASC, id ASC`)
	if err != nil {
		return nil, errx.WrapSQL(err)
	}
	defer rows.Close()

	out := []model.Agent{}
	for rows.Next() {
		var a model.Agent
		if err := rows.Scan(&a.ID, &a.Name, &a.ContactHandle, &a.Active, &a.Position, &a.LifetimeAssignmentCount); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLiteStore) ListAgents(ctx context.Context) ([]model.Agent, error) {
	return s.listAgents(ctx, "")
}

func (s *SQLiteStore) ListActiveAgents(ctx context.Context) ([]model.Agent, error) {
	return s.listAgents(ctx, "WHERE active = 1")
}

func (s *SQLiteStore) UpsertAgent(ctx context.Context, agent model.Agent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO agents (id, name, contact_handle, active, position) VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			contact_handle = excluded.contact_handle,
			active = excluded.active,
			position = excluded.position`,
		agent.ID, agent.Name, agent.ContactHandle, agent.Active, agent.Position,
	)
	return errx.WrapSQL(err)
}

func (s *SQLiteStore) SetAgentActive(ctx context.Context, id string, active bool) error {
	res, err := s.db.ExecContext(ctx, `UPDATE agents SET active = ? WHERE id = ?`, active, id)
	if err != nil {
		return errx.WrapSQL(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return errx.NotFound("agent %s", id)
	}
	return nil
}

func (s *SQLiteStore) Stats(ctx context.Context) (*model.Stats, error) {
	st := &model.Stats{}
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM clients),
			(SELECT COUNT(*) FROM clients WHERE status = 'escalated'),
			(SELECT COUNT(*) FROM assignments WHERE status = 'active')`,
	).Scan(&st.Clients, &st.EscalatedClients, &st.ActiveAssignments)
	if err != nil {
		return nil, errx.WrapSQL(err)
	}
	if st.Agents, err = s.ListAgents(ctx); err != nil {
		return nil, err
	}
	return st, nil
}

var _ model.Store = (*SQLiteStore)(nil)
