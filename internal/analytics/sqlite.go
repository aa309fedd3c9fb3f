package analytics

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// DefaultQueueSize bounds the number of events waiting to be written.
const DefaultQueueSize = 256

// SQLiteTracker stores events in a local SQLite database. Writes happen on
// a background goroutine; when the queue is full new events are dropped.
type SQLiteTracker struct {
	db     *sql.DB
	log    *zap.SugaredLogger
	queue  chan QueryEvent
	wg     sync.WaitGroup
	mu     sync.RWMutex
	closed bool
}

// NewSQLiteTracker opens (or creates) the event database at dbPath.
func NewSQLiteTracker(ctx context.Context, dbPath string, log *zap.SugaredLogger) (*SQLiteTracker, error) {
	dsn := dbPath + "?_journal_mode=WAL&_busy_timeout=5000"

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open analytics database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping analytics database: %w", err)
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS query_events (
		event_id   INTEGER PRIMARY KEY AUTOINCREMENT,
		query_id   TEXT NOT NULL,
		thread_id  TEXT NOT NULL,
		repo_ref   TEXT,
		user_id    TEXT,
		kind       TEXT NOT NULL,
		name       TEXT NOT NULL,
		payload    TEXT NOT NULL,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_query_events_query ON query_events(query_id);
	`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize analytics schema: %w", err)
	}

	if log == nil {
		log = zap.NewNop().Sugar()
	}
	t := &SQLiteTracker{
		db:    db,
		log:   log,
		queue: make(chan QueryEvent, DefaultQueueSize),
	}
	t.wg.Add(1)
	go t.run()
	return t, nil
}

// TrackQuery enqueues ev for writing.
func (t *SQLiteTracker) TrackQuery(ev QueryEvent) {
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}

	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.closed {
		t.log.Warnw("analytics tracker closed, dropping event", "query_id", ev.QueryID, "stage", ev.Data.Name)
		return
	}
	select {
	case t.queue <- ev:
	default:
		t.log.Warnw("analytics queue full, dropping event", "query_id", ev.QueryID, "stage", ev.Data.Name)
	}
}

func (t *SQLiteTracker) run() {
	defer t.wg.Done()
	for ev := range t.queue {
		if err := t.insert(context.Background(), ev); err != nil {
			t.log.Errorw("failed to record query event", "query_id", ev.QueryID, "stage", ev.Data.Name, "error", err)
		}
	}
}

func (t *SQLiteTracker) insert(ctx context.Context, ev QueryEvent) error {
	payload, err := ev.Data.PayloadJSON()
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}
	_, err = t.db.ExecContext(ctx, `
		INSERT INTO query_events (query_id, thread_id, repo_ref, user_id, kind, name, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, ev.QueryID, ev.ThreadID, ev.RepoRef, ev.User, string(ev.Data.Kind), ev.Data.Name, string(payload), ev.Timestamp.UnixMilli())
	return err
}

// StoredEvent is an event as read back from the database.
type StoredEvent struct {
	QueryID   string
	ThreadID  string
	Kind      StageKind
	Name      string
	Payload   string
	CreatedAt time.Time
}

// Events returns every stored event for a query, oldest first.
func (t *SQLiteTracker) Events(ctx context.Context, queryID string) ([]StoredEvent, error) {
	rows, err := t.db.QueryContext(ctx, `
		SELECT query_id, thread_id, kind, name, payload, created_at
		FROM query_events WHERE query_id = ? ORDER BY event_id
	`, queryID)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []StoredEvent
	for rows.Next() {
		var ev StoredEvent
		var kind string
		var created int64
		if err := rows.Scan(&ev.QueryID, &ev.ThreadID, &kind, &ev.Name, &ev.Payload, &created); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		ev.Kind = StageKind(kind)
		ev.CreatedAt = time.UnixMilli(created)
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Close flushes queued events and closes the database.
func (t *SQLiteTracker) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	close(t.queue)
	t.mu.Unlock()

	t.wg.Wait()
	return t.db.Close()
}
