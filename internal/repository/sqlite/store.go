package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/jaakkos/planforge/internal/app"
	"github.com/jaakkos/planforge/internal/domain"
)

// Each plan is stored as one whole JSON document keyed by id. Saves are
// complete overwrites; there is no partial-update format.
const schema = `
CREATE TABLE IF NOT EXISTS plans (
	id TEXT PRIMARY KEY,
	doc TEXT NOT NULL,
	updated_at TEXT NOT NULL
);
`

// Store implements app.PlanRepository using SQLite.
type Store struct {
	db *sql.DB
}

// New opens the SQLite database at path (creating parent dirs and schema)
// and returns a PlanRepository.
func New(path string) (app.PlanRepository, error) {
	dir := filepath.Dir(path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("sqlite mkdir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the database connection. Call on shutdown for clean exit.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// LoadAll implements app.PlanRepository. Records written before the activity
// log existed are upgraded in place: a single "created" entry is synthesized
// and the record is re-saved immediately.
func (s *Store) LoadAll() (map[string]*domain.Plan, error) {
	rows, err := s.db.Query("SELECT id, doc FROM plans")
	if err != nil {
		return nil, fmt.Errorf("plans: %w", err)
	}
	type rawRecord struct {
		id  string
		doc []byte
	}
	var records []rawRecord
	for rows.Next() {
		var r rawRecord
		var doc string
		if err := rows.Scan(&r.id, &doc); err != nil {
			_ = rows.Close()
			return nil, err
		}
		r.doc = []byte(doc)
		records = append(records, r)
	}
	_ = rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("plans iteration: %w", err)
	}

	plans := make(map[string]*domain.Plan, len(records))
	for _, r := range records {
		var plan domain.Plan
		if err := json.Unmarshal(r.doc, &plan); err != nil {
			return nil, fmt.Errorf("plan %s: %w", r.id, err)
		}
		if needsLogMigration(r.doc) {
			plan.Log = []domain.LogEntry{{
				Timestamp: plan.CreatedAt,
				Event:     "created",
				Detail:    "log synthesized on load",
			}}
			if err := s.Save(&plan); err != nil {
				return nil, fmt.Errorf("plan %s migration: %w", r.id, err)
			}
		}
		if plan.Log == nil {
			plan.Log = []domain.LogEntry{}
		}
		plans[plan.ID] = &plan
	}
	return plans, nil
}

// needsLogMigration reports whether the stored document predates the
// activity-log field entirely (key absent, not merely empty).
func needsLogMigration(doc []byte) bool {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(doc, &probe); err != nil {
		return false
	}
	_, ok := probe["log"]
	return !ok
}

// Save implements app.PlanRepository. The whole document is overwritten.
func (s *Store) Save(plan *domain.Plan) error {
	if plan == nil {
		return fmt.Errorf("plan is nil")
	}
	doc, err := json.Marshal(plan)
	if err != nil {
		return fmt.Errorf("marshal plan %s: %w", plan.ID, err)
	}
	_, err = s.db.Exec(
		"INSERT INTO plans (id, doc, updated_at) VALUES (?, ?, ?) ON CONFLICT(id) DO UPDATE SET doc = excluded.doc, updated_at = excluded.updated_at",
		plan.ID, string(doc), plan.UpdatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save plan %s: %w", plan.ID, err)
	}
	return nil
}

// Delete implements app.PlanRepository.
func (s *Store) Delete(id string) error {
	if _, err := s.db.Exec("DELETE FROM plans WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete plan %s: %w", id, err)
	}
	return nil
}
