// Package audit appends familiarity updates to an event log so score changes
// stay traceable after the fact.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type Event struct {
	ID        string
	Type      string // e.g. familiarity.updated
	Key       string // natural key: userID/quizID
	DataJSON  string
	CreatedAt int64
}

type Recorder struct{ db *sql.DB }

func NewRecorder(db *sql.DB) *Recorder { return &Recorder{db: db} }

func (r *Recorder) Append(ctx context.Context, typ, key string, data any) error {
	buf, err := json.Marshal(data)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO event_log (id, typ, key, data, created_at)
		 VALUES ($1,$2,$3,$4,$5)`,
		uuid.NewString(), typ, key, string(buf), time.Now().Unix())
	return err
}

// ListByKey returns events for one natural key, oldest first.
func (r *Recorder) ListByKey(ctx context.Context, key string) ([]Event, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, typ, key, data, created_at FROM event_log WHERE key=$1 ORDER BY created_at ASC, id ASC`,
		key)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.Type, &e.Key, &e.DataJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
