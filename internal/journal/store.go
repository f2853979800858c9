package journal

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // PostgreSQL driver
	"github.com/specialistvlad/extforge/internal/ctxlog"
	_ "modernc.org/sqlite"
)

// EventType names a journal row.
type EventType string

const (
	EventBuildStart    EventType = "build_start"
	EventStepStart     EventType = "step_start"
	EventStepFinished  EventType = "step_finished"
	EventBuildFinished EventType = "build_finished"
)

// Event is one stored journal row.
type Event struct {
	BuildID  string
	At       time.Time
	Type     EventType
	Step     string
	State    string
	Duration time.Duration
	Detail   string
}

// dialect holds what differs between the supported databases.
type dialect struct {
	name   string
	driver string
	schema []string
	// numbered selects $1-style placeholders.
	numbered bool
}

var (
	sqliteDialect = dialect{
		name:   "sqlite",
		driver: "sqlite",
		schema: []string{`
			CREATE TABLE IF NOT EXISTS build_events (
				id INTEGER PRIMARY KEY AUTOINCREMENT,
				build_id TEXT NOT NULL,
				at INTEGER NOT NULL,
				type TEXT NOT NULL,
				step TEXT NOT NULL DEFAULT '',
				state TEXT NOT NULL DEFAULT '',
				duration INTEGER NOT NULL DEFAULT 0,
				detail TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE INDEX IF NOT EXISTS idx_build_events_build_id ON build_events(build_id, id)`,
		},
	}
	postgresDialect = dialect{
		name:   "postgres",
		driver: "pgx",
		schema: []string{`
			CREATE TABLE IF NOT EXISTS build_events (
				id BIGSERIAL PRIMARY KEY,
				build_id TEXT NOT NULL,
				at BIGINT NOT NULL,
				type TEXT NOT NULL,
				step TEXT NOT NULL DEFAULT '',
				state TEXT NOT NULL DEFAULT '',
				duration BIGINT NOT NULL DEFAULT 0,
				detail TEXT NOT NULL DEFAULT ''
			)`,
			`CREATE INDEX IF NOT EXISTS idx_build_events_build_id ON build_events(build_id, id)`,
		},
		numbered: true,
	}
)

// rebind rewrites ? placeholders for dialects that number them.
func (d dialect) rebind(query string) string {
	if !d.numbered {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// Store keeps events in the build_events table of a SQLite or PostgreSQL
// database. Write failures are logged and otherwise ignored so a broken
// journal never fails a build.
type Store struct {
	db      *sql.DB
	dialect dialect
}

var _ Observer = (*Store)(nil)

// Open opens (or creates) a journal at dsn. postgres:// and postgresql://
// URLs select PostgreSQL through pgx; anything else is a SQLite path or
// ":memory:".
func Open(dsn string) (*Store, error) {
	d := sqliteDialect
	if isPostgresDSN(dsn) {
		d = postgresDialect
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open journal %s: %w", redact(dsn), err)
	}
	if d.name == sqliteDialect.name {
		// Every connection to ":memory:" is a separate database.
		db.SetMaxOpenConns(1)
	}

	j, err := newStore(db, d)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize journal %s: %w", redact(dsn), err)
	}
	return j, nil
}

// NewSQLite initializes the schema in a SQLite db. The caller owns db.
func NewSQLite(db *sql.DB) (*Store, error) {
	return newStore(db, sqliteDialect)
}

// NewPostgres initializes the schema in a PostgreSQL db opened with the
// "pgx" driver. The caller owns db.
func NewPostgres(db *sql.DB) (*Store, error) {
	return newStore(db, postgresDialect)
}

func newStore(db *sql.DB, d dialect) (*Store, error) {
	j := &Store{db: db, dialect: d}
	for _, stmt := range d.schema {
		if _, err := db.Exec(stmt); err != nil {
			return nil, err
		}
	}
	return j, nil
}

func isPostgresDSN(dsn string) bool {
	return strings.HasPrefix(dsn, "postgres://") || strings.HasPrefix(dsn, "postgresql://")
}

// redact drops the password of a URL-style DSN for messages.
func redact(dsn string) string {
	if !isPostgresDSN(dsn) {
		return dsn
	}
	scheme, rest, _ := strings.Cut(dsn, "://")
	creds, host, ok := strings.Cut(rest, "@")
	if !ok {
		return dsn
	}
	user, _, _ := strings.Cut(creds, ":")
	return scheme + "://" + user + ":xxxxx@" + host
}

// Dialect names the backing database, "sqlite" or "postgres".
func (j *Store) Dialect() string {
	return j.dialect.name
}

// Close closes the underlying database.
func (j *Store) Close() error {
	return j.db.Close()
}

// Append stores one event.
func (j *Store) Append(ctx context.Context, ev Event) error {
	at := ev.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := j.db.ExecContext(ctx, j.dialect.rebind(`
		INSERT INTO build_events (build_id, at, type, step, state, duration, detail)
		VALUES (?, ?, ?, ?, ?, ?, ?)`),
		ev.BuildID,
		at.UnixNano(),
		string(ev.Type),
		ev.Step,
		ev.State,
		ev.Duration.Nanoseconds(),
		ev.Detail,
	)
	return err
}

// Events lists the events of one build in insertion order.
func (j *Store) Events(ctx context.Context, buildID string) ([]Event, error) {
	rows, err := j.db.QueryContext(ctx, j.dialect.rebind(`
		SELECT build_id, at, type, step, state, duration, detail
		FROM build_events
		WHERE build_id = ?
		ORDER BY id ASC`), buildID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			ev       Event
			atN      int64
			typ      string
			duration int64
		)
		if err := rows.Scan(&ev.BuildID, &atN, &typ, &ev.Step, &ev.State, &duration, &ev.Detail); err != nil {
			return nil, err
		}
		ev.At = time.Unix(0, atN)
		ev.Type = EventType(typ)
		ev.Duration = time.Duration(duration)
		out = append(out, ev)
	}
	return out, rows.Err()
}

func (j *Store) OnBuildStart(ctx context.Context, ev BuildEvent) {
	j.record(ctx, Event{
		BuildID: ev.BuildID,
		At:      ev.At,
		Type:    EventBuildStart,
		Detail:  fmt.Sprintf("steps=%d", ev.Steps),
	})
}

func (j *Store) OnStepStart(ctx context.Context, ev StepEvent) {
	j.record(ctx, Event{
		BuildID: ev.BuildID,
		At:      ev.At,
		Type:    EventStepStart,
		Step:    ev.Step,
	})
}

func (j *Store) OnStepFinished(ctx context.Context, ev StepEvent) {
	j.record(ctx, Event{
		BuildID:  ev.BuildID,
		At:       ev.At,
		Type:     EventStepFinished,
		Step:     ev.Step,
		State:    ev.State,
		Duration: ev.Duration,
		Detail:   errorText(ev.Err),
	})
}

func (j *Store) OnBuildFinished(ctx context.Context, ev BuildEvent) {
	j.record(ctx, Event{
		BuildID:  ev.BuildID,
		At:       ev.At,
		Type:     EventBuildFinished,
		Duration: ev.Duration,
		Detail:   errorText(ev.Err),
	})
}

func (j *Store) record(ctx context.Context, ev Event) {
	// A cancelled build still gets its closing events.
	if err := j.Append(context.WithoutCancel(ctx), ev); err != nil {
		ctxlog.FromContext(ctx).Warn("Failed to write journal event.", "type", ev.Type, "step", ev.Step, "error", err)
	}
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
