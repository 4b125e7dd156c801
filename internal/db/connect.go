package db

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

type Driver string

const (
	DriverSQLite   Driver = "sqlite"
	DriverPostgres Driver = "postgres"
)

// Open opens a DB and ensures schema exists.
//
// The SQLite default DSN starts every transaction in immediate mode so a
// read-modify-write takes the write lock up front; together with the busy
// timeout this serializes concurrent familiarity updates without deadlocks.
// Pragmas live in the DSN because they are per-connection and the pool opens
// connections lazily.
func Open(ctx context.Context, driver Driver, dsn string) (*sql.DB, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite" // modernc driver
		if dsn == "" {
			dsn = "file:quizlearn.db?mode=rwc&_txlock=immediate&_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)"
		}
	case DriverPostgres:
		drvName = "pgx" // pgx stdlib driver
		if dsn == "" {
			dsn = "postgres://localhost:5432/quizlearn?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported driver: %s", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}

	if err := ensureSchema(ctx, db, driver); err != nil {
		return nil, err
	}
	return db, nil
}

func ensureSchema(ctx context.Context, db *sql.DB, driver Driver) error {
	var schema string
	switch driver {
	case DriverSQLite:
		schema = schemaSQLite
	case DriverPostgres:
		schema = schemaPostgres
	}
	_, err := db.ExecContext(ctx, schema)
	return err
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS quizzes (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  quiz_topic TEXT NOT NULL,
  user_id TEXT,
  created_at INTEGER NOT NULL,
  updated_at INTEGER,
  deleted_at INTEGER
);

CREATE TABLE IF NOT EXISTS notes (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  quiz_id INTEGER NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
  user_id TEXT NOT NULL,
  title TEXT,
  content TEXT,
  created_at INTEGER NOT NULL,
  updated_at INTEGER,
  deleted_at INTEGER
);

CREATE TABLE IF NOT EXISTS difficulty_levels (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  level_name TEXT NOT NULL UNIQUE,
  familiarity_cap NUMERIC(5,2) NOT NULL DEFAULT 0,
  weight_coefficients TEXT NOT NULL DEFAULT '{}',
  created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS user_familiarity (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  user_id TEXT NOT NULL,
  quiz_id INTEGER NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
  note_id INTEGER REFERENCES notes(id) ON DELETE SET NULL,
  difficulty_id INTEGER REFERENCES difficulty_levels(id) ON DELETE SET NULL,
  total_questions INTEGER NOT NULL DEFAULT 0 CHECK (total_questions >= 0),
  correct_answers INTEGER NOT NULL DEFAULT 0 CHECK (correct_answers >= 0 AND correct_answers <= total_questions),
  weighted_total NUMERIC(8,2) NOT NULL DEFAULT 0,
  weighted_correct NUMERIC(8,2) NOT NULL DEFAULT 0,
  cap_weighted_sum NUMERIC(8,2) NOT NULL DEFAULT 0,
  familiarity NUMERIC(5,2) NOT NULL DEFAULT 0,
  updated_at INTEGER NOT NULL,
  UNIQUE (user_id, quiz_id)
);
CREATE INDEX IF NOT EXISTS idx_user_familiarity_user ON user_familiarity(user_id);

CREATE TABLE IF NOT EXISTS event_log (
  id TEXT PRIMARY KEY,
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_event_log_key ON event_log(key);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS quizzes (
  id BIGSERIAL PRIMARY KEY,
  quiz_topic TEXT NOT NULL,
  user_id TEXT,
  created_at BIGINT NOT NULL,
  updated_at BIGINT,
  deleted_at BIGINT
);

CREATE TABLE IF NOT EXISTS notes (
  id BIGSERIAL PRIMARY KEY,
  quiz_id BIGINT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
  user_id TEXT NOT NULL,
  title TEXT,
  content TEXT,
  created_at BIGINT NOT NULL,
  updated_at BIGINT,
  deleted_at BIGINT
);

CREATE TABLE IF NOT EXISTS difficulty_levels (
  id BIGSERIAL PRIMARY KEY,
  level_name TEXT NOT NULL UNIQUE,
  familiarity_cap NUMERIC(5,2) NOT NULL DEFAULT 0,
  weight_coefficients TEXT NOT NULL DEFAULT '{}',
  created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS user_familiarity (
  id BIGSERIAL PRIMARY KEY,
  user_id TEXT NOT NULL,
  quiz_id BIGINT NOT NULL REFERENCES quizzes(id) ON DELETE CASCADE,
  note_id BIGINT REFERENCES notes(id) ON DELETE SET NULL,
  difficulty_id BIGINT REFERENCES difficulty_levels(id) ON DELETE SET NULL,
  total_questions BIGINT NOT NULL DEFAULT 0 CHECK (total_questions >= 0),
  correct_answers BIGINT NOT NULL DEFAULT 0 CHECK (correct_answers >= 0 AND correct_answers <= total_questions),
  weighted_total NUMERIC(8,2) NOT NULL DEFAULT 0,
  weighted_correct NUMERIC(8,2) NOT NULL DEFAULT 0,
  cap_weighted_sum NUMERIC(8,2) NOT NULL DEFAULT 0,
  familiarity NUMERIC(5,2) NOT NULL DEFAULT 0,
  updated_at BIGINT NOT NULL,
  UNIQUE (user_id, quiz_id)
);
CREATE INDEX IF NOT EXISTS idx_user_familiarity_user ON user_familiarity(user_id);

CREATE TABLE IF NOT EXISTS event_log (
  id TEXT PRIMARY KEY,
  typ TEXT NOT NULL,
  key TEXT NOT NULL,
  data TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_event_log_key ON event_log(key);
`
