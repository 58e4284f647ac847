package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nerrad567/nodelink/internal/database"
	"github.com/nerrad567/nodelink/internal/entity"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// schema is the state_history table. Created on open; a single table
// needs no migration framework.
const schema = `
CREATE TABLE IF NOT EXISTS state_history (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	key        INTEGER NOT NULL,
	name       TEXT    NOT NULL,
	kind       TEXT    NOT NULL,
	state      TEXT    NOT NULL,
	created_at TEXT    NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_state_history_key
	ON state_history (key, created_at);
`

// Entry is one recorded state change.
type Entry struct {
	ID        int64
	Key       entity.Key
	Name      string
	Kind      entity.Kind
	State     entity.State
	CreatedAt time.Time
}

// stateRecord is the JSON shape stored in the state column.
type stateRecord struct {
	On         bool    `json:"on,omitempty"`
	Value      float32 `json:"value,omitempty"`
	Missing    bool    `json:"missing,omitempty"`
	Brightness float32 `json:"brightness,omitempty"`
	Red        float32 `json:"red,omitempty"`
	Green      float32 `json:"green,omitempty"`
	Blue       float32 `json:"blue,omitempty"`
}

// Repository stores entity state changes in SQLite.
type Repository struct {
	db *database.DB
}

// NewRepository creates the repository and ensures its schema exists.
//
// Parameters:
//   - db: Open database used for all queries
//
// Returns:
//   - *Repository: Repository instance ready for use
//   - error: If the schema cannot be created
func NewRepository(db *database.DB) (*Repository, error) {
	if _, err := db.ExecContext(context.Background(), schema); err != nil {
		return nil, fmt.Errorf("creating state_history schema: %w", err)
	}
	return &Repository{db: db}, nil
}

// Record inserts one state change.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - e: Entity snapshot to persist
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (r *Repository) Record(ctx context.Context, e entity.Entity) error {
	stateJSON, err := json.Marshal(stateRecord{
		On:         e.State.On,
		Value:      e.State.Value,
		Missing:    e.State.Missing,
		Brightness: e.State.Brightness,
		Red:        e.State.Red,
		Green:      e.State.Green,
		Blue:       e.State.Blue,
	})
	if err != nil {
		return fmt.Errorf("marshalling state: %w", err)
	}

	_, err = r.db.ExecContext(ctx,
		"INSERT INTO state_history (key, name, kind, state, created_at) VALUES (?, ?, ?, ?, ?)",
		uint32(e.Key),
		e.Name,
		e.Kind.String(),
		string(stateJSON),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("inserting state history: %w", err)
	}
	return nil
}

// GetHistory returns recent state changes for one entity, newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - key: Entity key
//   - limit: Maximum entries to return (default 50, max 200)
//
// Returns:
//   - []Entry: History entries ordered by created_at DESC
//   - error: nil on success, otherwise the underlying query error
func (r *Repository) GetHistory(ctx context.Context, key entity.Key, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, key, name, kind, state, created_at
		 FROM state_history
		 WHERE key = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		uint32(key),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying state history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, limit)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating state history: %w", err)
	}
	return entries, nil
}

func scanEntry(rows *sql.Rows) (Entry, error) {
	var entry Entry
	var rawKey uint32
	var kind string
	var stateJSON string
	var createdAt string

	if err := rows.Scan(&entry.ID, &rawKey, &entry.Name, &kind, &stateJSON, &createdAt); err != nil {
		return Entry{}, fmt.Errorf("scanning state history: %w", err)
	}
	entry.Key = entity.Key(rawKey)
	entry.Kind = entity.KindFromString(kind)

	var record stateRecord
	if err := json.Unmarshal([]byte(stateJSON), &record); err != nil {
		return Entry{}, fmt.Errorf("unmarshalling state: %w", err)
	}
	entry.State = entity.State{
		Kind:       entry.Kind,
		On:         record.On,
		Value:      record.Value,
		Missing:    record.Missing,
		Brightness: record.Brightness,
		Red:        record.Red,
		Green:      record.Green,
		Blue:       record.Blue,
	}

	timestamp, err := time.Parse(time.RFC3339, createdAt)
	if err != nil {
		return Entry{}, fmt.Errorf("parsing created_at: %w", err)
	}
	entry.CreatedAt = timestamp

	return entry, nil
}

// Prune deletes entries older than the given duration.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - olderThan: Retention window; entries older than now-olderThan go
//
// Returns:
//   - int64: Number of rows deleted
//   - error: nil on success, otherwise the underlying database error
func (r *Repository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, fmt.Errorf("olderThan must be positive")
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(time.RFC3339)
	result, err := r.db.ExecContext(ctx,
		"DELETE FROM state_history WHERE created_at < ?",
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("deleting state history: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("checking rows affected: %w", err)
	}
	return rowsAffected, nil
}
