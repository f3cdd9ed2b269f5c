package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	logx "github.com/fieldops-copilot/server/pkg/logger"

	"github.com/fieldops-copilot/server/internal/copilot/model"
)

// schema is idempotent; compose migrations may own it in larger deployments.
const schema = `
CREATE TABLE IF NOT EXISTS audit_log (
    id              TEXT PRIMARY KEY,
    user_id         TEXT NOT NULL,
    conversation_id TEXT,
    category        TEXT NOT NULL,
    tool            TEXT,
    action          TEXT NOT NULL,
    success         BOOLEAN NOT NULL,
    input           JSONB,
    output          JSONB,
    created_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS audit_log_user_time ON audit_log (user_id, created_at DESC);
`

// Open opens a PostgreSQL connection using the pgx stdlib driver and
// verifies connectivity.
func Open(dsn string) (*sql.DB, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres DSN is empty")
	}
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// PostgresSink persists audit entries in Postgres.
type PostgresSink struct {
	db *sql.DB
}

// NewPostgresSink builds a sink over an open database and ensures the table
// exists.
func NewPostgresSink(ctx context.Context, db *sql.DB) (*PostgresSink, error) {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return nil, fmt.Errorf("ensure audit schema: %w", err)
	}
	return &PostgresSink{db: db}, nil
}

// Log implements Sink. Write failures are logged and swallowed.
func (s *PostgresSink) Log(ctx context.Context, entry model.AuditEntry) {
	prepare(&entry)

	input, err := json.Marshal(entry.Input)
	if err != nil {
		input = []byte("{}")
	}
	output, err := json.Marshal(entry.Output)
	if err != nil {
		output = []byte("{}")
	}

	_, err = s.db.ExecContext(ctx, `
        INSERT INTO audit_log (id, user_id, conversation_id, category, tool, action, success, input, output, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)
    `, entry.ID, entry.UserID, entry.ConversationID, entry.Category, entry.Tool, entry.Action, entry.Success, input, output, entry.CreatedAt)
	if err != nil {
		logx.Error().Err(err).Str("category", string(entry.Category)).Msg("audit sink write failed")
	}
}

// LogsForUser implements Sink.
func (s *PostgresSink) LogsForUser(ctx context.Context, userID string, q model.AuditQuery) (*model.AuditPage, error) {
	q = normalizeQuery(q)

	where := "user_id = $1"
	args := []any{userID}
	if q.Category != "" {
		args = append(args, string(q.Category))
		where += fmt.Sprintf(" AND category = $%d", len(args))
	}
	if !q.From.IsZero() {
		args = append(args, q.From)
		where += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if !q.To.IsZero() {
		args = append(args, q.To)
		where += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}

	var total int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM audit_log WHERE "+where, args...).Scan(&total); err != nil {
		return nil, err
	}

	args = append(args, q.Limit, q.Offset)
	query := fmt.Sprintf(`
        SELECT id, user_id, conversation_id, category, tool, action, success, input, output, created_at
        FROM audit_log WHERE %s
        ORDER BY created_at DESC
        LIMIT $%d OFFSET $%d
    `, where, len(args)-1, len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	page := &model.AuditPage{Total: total, Entries: []model.AuditEntry{}}
	for rows.Next() {
		var entry model.AuditEntry
		var conversationID sql.NullString
		var tool sql.NullString
		var input, output []byte
		if err := rows.Scan(&entry.ID, &entry.UserID, &conversationID, &entry.Category, &tool, &entry.Action, &entry.Success, &input, &output, &entry.CreatedAt); err != nil {
			return nil, err
		}
		entry.ConversationID = conversationID.String
		entry.Tool = tool.String
		if len(input) > 0 {
			_ = json.Unmarshal(input, &entry.Input)
		}
		if len(output) > 0 {
			_ = json.Unmarshal(output, &entry.Output)
		}
		page.Entries = append(page.Entries, entry)
	}
	return page, rows.Err()
}

// CountFailed implements Sink.
func (s *PostgresSink) CountFailed(ctx context.Context, userID string, window time.Duration) (int, error) {
	cutoff := time.Now().UTC().Add(-window)
	var count int
	err := s.db.QueryRowContext(ctx, `
        SELECT COUNT(*) FROM audit_log
        WHERE user_id = $1 AND success = FALSE AND created_at > $2
    `, userID, cutoff).Scan(&count)
	return count, err
}
