package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/quizlearn/quizlearn/internal/db"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dsn := "file:" + filepath.Join(t.TempDir(), "audit.db") +
		"?_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
	conn, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func TestAppendAndListByKey(t *testing.T) {
	rec := NewRecorder(openTestDB(t))
	ctx := context.Background()

	for _, fam := range []string{"10.00", "18.00"} {
		if err := rec.Append(ctx, "familiarity.updated", "u1/7", map[string]any{
			"familiarity": fam,
			"difficulty":  "beginner",
			"updated":     true,
		}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}
	if err := rec.Append(ctx, "familiarity.updated", "u2/7", map[string]any{
		"familiarity": "20.00",
	}); err != nil {
		t.Fatalf("Append other key: %v", err)
	}

	events, err := rec.ListByKey(ctx, "u1/7")
	if err != nil {
		t.Fatalf("ListByKey: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("got %d events, want 2", len(events))
	}
	for i, e := range events {
		if e.Type != "familiarity.updated" || e.Key != "u1/7" || e.ID == "" {
			t.Fatalf("event %d malformed: %+v", i, e)
		}
		var data map[string]any
		if err := json.Unmarshal([]byte(e.DataJSON), &data); err != nil {
			t.Fatalf("event %d data: %v", i, err)
		}
		if data["difficulty"] != "beginner" {
			t.Errorf("event %d difficulty = %v", i, data["difficulty"])
		}
	}
	if events[0].DataJSON == events[1].DataJSON {
		t.Errorf("events not distinct: %s", events[0].DataJSON)
	}

	if other, _ := rec.ListByKey(ctx, "nobody/0"); len(other) != 0 {
		t.Errorf("unexpected events for unused key: %v", other)
	}
}
