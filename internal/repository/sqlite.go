package repository

import (
	"context"
	"database/sql"
	"math/rand"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/oklog/ulid/v2"

	"github.com/abrezinsky/kioskfeedback/internal/models"
)

// Repository provides data access methods for the kiosk journal
type Repository struct {
	db *sql.DB

	idMu    sync.Mutex
	entropy *ulid.MonotonicEntropy
	now     func() time.Time
}

// New creates a new Repository
func New(dbPath string) (*Repository, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Set connection pool settings
	db.SetMaxOpenConns(1) // SQLite works best with single connection
	db.SetMaxIdleConns(1)

	repo := newRepository(db)

	if err := repo.migrate(); err != nil {
		db.Close()
		return nil, err
	}

	return repo, nil
}

func newRepository(db *sql.DB) *Repository {
	return &Repository{
		db:      db,
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
		now:     time.Now,
	}
}

// DB returns the underlying database connection
func (r *Repository) DB() *sql.DB {
	return r.db
}

// Close closes the database connection
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping checks if the database connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// newID returns a time-ordered ULID
func (r *Repository) newID(t time.Time) string {
	r.idMu.Lock()
	defer r.idMu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), r.entropy).String()
}

// migrate runs database migrations
func (r *Repository) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS journal_events (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			device_id TEXT NOT NULL,
			session_id TEXT,
			order_id TEXT,
			detail TEXT,
			created_at DATETIME NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS submission_attempts (
			id TEXT PRIMARY KEY,
			device_id TEXT NOT NULL,
			session_id TEXT NOT NULL,
			order_id TEXT NOT NULL,
			attempt INTEGER NOT NULL,
			success BOOLEAN NOT NULL,
			error_kind TEXT,
			error_message TEXT,
			overall_rating INTEGER,
			item_count INTEGER,
			created_at DATETIME NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_events_kind ON journal_events(kind)`,
		`CREATE INDEX IF NOT EXISTS idx_events_session ON journal_events(session_id)`,
		`CREATE INDEX IF NOT EXISTS idx_events_created ON journal_events(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_attempts_session ON submission_attempts(session_id)`,
	}

	for _, migration := range migrations {
		if _, err := r.db.Exec(migration); err != nil {
			return err
		}
	}
	return nil
}

// ==================== Event Methods ====================

// RecordEvent stores a journal event and returns its id.
// A zero CreatedAt is stamped with the current time.
func (r *Repository) RecordEvent(ctx context.Context, event models.JournalEvent) (string, error) {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = r.now()
	}
	event.CreatedAt = event.CreatedAt.UTC()
	id := r.newID(event.CreatedAt)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO journal_events (id, kind, device_id, session_id, order_id, detail, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, id, event.Kind, event.DeviceID, nullString(event.SessionID), nullString(event.OrderID), nullString(event.Detail), event.CreatedAt)
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetEvent retrieves a single event
func (r *Repository) GetEvent(ctx context.Context, id string) (*models.JournalEvent, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, kind, device_id, session_id, order_id, detail, created_at
		FROM journal_events WHERE id = ?
	`, id)
	event, err := scanEvent(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return event, nil
}

// ListEvents returns the most recent events first. An empty kind matches all kinds.
func (r *Repository) ListEvents(ctx context.Context, kind string, limit int) ([]models.JournalEvent, error) {
	if limit <= 0 {
		limit = 100
	}
	query := `
		SELECT id, kind, device_id, session_id, order_id, detail, created_at
		FROM journal_events`
	args := []interface{}{}
	if kind != "" {
		query += ` WHERE kind = ?`
		args = append(args, kind)
	}
	query += ` ORDER BY id DESC LIMIT ?`
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

// ListSessionEvents returns every event of one session in order
func (r *Repository) ListSessionEvents(ctx context.Context, sessionID string) ([]models.JournalEvent, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, kind, device_id, session_id, order_id, detail, created_at
		FROM journal_events WHERE session_id = ? ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanEvents(rows)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*models.JournalEvent, error) {
	var e models.JournalEvent
	var sessionID, orderID, detail sql.NullString
	if err := row.Scan(&e.ID, &e.Kind, &e.DeviceID, &sessionID, &orderID, &detail, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.SessionID = sessionID.String
	e.OrderID = orderID.String
	e.Detail = detail.String
	return &e, nil
}

func scanEvents(rows *sql.Rows) ([]models.JournalEvent, error) {
	var events []models.JournalEvent
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *e)
	}
	return events, rows.Err()
}

// ==================== Attempt Methods ====================

// RecordAttempt stores a submission attempt and returns its id
func (r *Repository) RecordAttempt(ctx context.Context, a models.SubmissionAttempt) (string, error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = r.now()
	}
	a.CreatedAt = a.CreatedAt.UTC()
	id := r.newID(a.CreatedAt)

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO submission_attempts
			(id, device_id, session_id, order_id, attempt, success, error_kind, error_message, overall_rating, item_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id, a.DeviceID, a.SessionID, a.OrderID, a.Attempt, a.Success,
		nullString(a.ErrorKind), nullString(a.ErrorMessage), a.OverallRating, a.ItemCount, a.CreatedAt)
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListAttempts returns the attempts of one session in order
func (r *Repository) ListAttempts(ctx context.Context, sessionID string) ([]models.SubmissionAttempt, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, device_id, session_id, order_id, attempt, success, error_kind, error_message,
			overall_rating, item_count, created_at
		FROM submission_attempts WHERE session_id = ? ORDER BY id
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var attempts []models.SubmissionAttempt
	for rows.Next() {
		var a models.SubmissionAttempt
		var errKind, errMsg sql.NullString
		if err := rows.Scan(&a.ID, &a.DeviceID, &a.SessionID, &a.OrderID, &a.Attempt, &a.Success,
			&errKind, &errMsg, &a.OverallRating, &a.ItemCount, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.ErrorKind = errKind.String
		a.ErrorMessage = errMsg.String
		attempts = append(attempts, a)
	}
	return attempts, rows.Err()
}

// ==================== Stats Methods ====================

// GetStats summarizes the journal from since onwards
func (r *Repository) GetStats(ctx context.Context, since time.Time) (*models.JournalStats, error) {
	since = since.UTC()
	stats := &models.JournalStats{Resets: map[string]int{}}

	err := r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN kind = ? THEN 1 ELSE 0 END), 0)
		FROM journal_events WHERE created_at >= ?
	`, models.EventSessionStarted, models.EventEscalated, since).Scan(&stats.SessionsStarted, &stats.Escalations)
	if err != nil {
		return nil, err
	}

	err = r.db.QueryRowContext(ctx, `
		SELECT
			COALESCE(SUM(CASE WHEN success THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN success THEN 0 ELSE 1 END), 0),
			COALESCE(AVG(CASE WHEN success THEN overall_rating END), 0)
		FROM submission_attempts WHERE created_at >= ?
	`, since).Scan(&stats.Submitted, &stats.FailedAttempts, &stats.AverageRating)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT COALESCE(detail, ''), COUNT(*) FROM journal_events
		WHERE kind = ? AND created_at >= ?
		GROUP BY detail
	`, models.EventSessionReset, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var reason string
		var count int
		if err := rows.Scan(&reason, &count); err != nil {
			return nil, err
		}
		stats.Resets[reason] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var last time.Time
	err = r.db.QueryRowContext(ctx, `
		SELECT created_at FROM submission_attempts
		WHERE success = 1 AND created_at >= ?
		ORDER BY created_at DESC LIMIT 1
	`, since).Scan(&last)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}
	if err == nil {
		stats.LastSubmittedAt = &last
	}

	return stats, nil
}

// PruneBefore deletes journal rows older than cutoff and returns how many were removed
func (r *Repository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	cutoff = cutoff.UTC()
	var total int64
	for _, table := range []string{"journal_events", "submission_attempts"} {
		result, err := r.db.ExecContext(ctx, `DELETE FROM `+table+` WHERE created_at < ?`, cutoff)
		if err != nil {
			return total, err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
