package familiarity

import (
	"context"
	"database/sql"
	"time"

	"github.com/shopspring/decimal"
)

// SQLStore persists records in the user_familiarity table. It works against
// both supported drivers: Postgres gets a per-row SELECT ... FOR UPDATE lock,
// SQLite serializes writers through immediate transactions (see db.Open's
// default DSN).
type SQLStore struct {
	db     *sql.DB
	driver string // "sqlite" or "postgres"
}

func NewSQLStore(db *sql.DB, driver string) *SQLStore {
	return &SQLStore{db: db, driver: driver}
}

const recordColumns = `user_id, quiz_id, note_id, difficulty_id,
	total_questions, correct_answers,
	weighted_total, weighted_correct, cap_weighted_sum,
	familiarity, updated_at`

func (s *SQLStore) Mutate(ctx context.Context, key Key, fn func(Record) (Change, error)) (Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Record{}, err
	}
	defer tx.Rollback()

	// Race-free get-or-create: when two submitters race on a new pair, one
	// insert wins and the other falls through to the existing row.
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO user_familiarity (user_id, quiz_id, updated_at)
		 VALUES ($1,$2,$3)
		 ON CONFLICT (user_id, quiz_id) DO NOTHING`,
		key.UserID, key.QuizID, time.Now().Unix()); err != nil {
		return Record{}, err
	}

	q := `SELECT ` + recordColumns + ` FROM user_familiarity WHERE user_id=$1 AND quiz_id=$2`
	if s.driver == "postgres" {
		q += " FOR UPDATE"
	}
	rec, err := scanRecord(tx.QueryRowContext(ctx, q, key.UserID, key.QuizID))
	if err != nil {
		return Record{}, err
	}

	ch, err := fn(rec)
	if err != nil {
		return Record{}, err
	}

	// Counters are applied in place so the increments stay additive even if
	// another writer got in before our lock on a fresh row.
	if _, err := tx.ExecContext(ctx,
		`UPDATE user_familiarity SET
			familiarity = $1,
			total_questions = total_questions + $2,
			correct_answers = correct_answers + $3,
			weighted_total = weighted_total + $4,
			weighted_correct = weighted_correct + $5,
			cap_weighted_sum = cap_weighted_sum + $6,
			difficulty_id = $7,
			note_id = COALESCE($8, note_id),
			updated_at = $9
		 WHERE user_id=$10 AND quiz_id=$11`,
		ch.Familiarity.StringFixed(2), ch.AddTotal, ch.AddCorrect,
		ch.AddWeightedTotal.StringFixed(2), ch.AddWeightedCorrect.StringFixed(2),
		ch.AddCapWeight.StringFixed(2),
		ch.DifficultyID, ch.NoteID, time.Now().Unix(),
		key.UserID, key.QuizID); err != nil {
		return Record{}, err
	}

	out, err := scanRecord(tx.QueryRowContext(ctx,
		`SELECT `+recordColumns+` FROM user_familiarity WHERE user_id=$1 AND quiz_id=$2`,
		key.UserID, key.QuizID))
	if err != nil {
		return Record{}, err
	}
	if err := tx.Commit(); err != nil {
		return Record{}, err
	}
	return out, nil
}

func (s *SQLStore) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+recordColumns+` FROM user_familiarity WHERE user_id=$1 ORDER BY updated_at DESC, quiz_id ASC`,
		userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (Record, error) {
	var (
		rec       Record
		noteID    sql.NullInt64
		diffID    sql.NullInt64
		wTotal    string
		wCorrect  string
		capWeight string
		famStr    string
		updatedAt int64
	)
	if err := row.Scan(&rec.UserID, &rec.QuizID, &noteID, &diffID,
		&rec.TotalQuestions, &rec.CorrectAnswers,
		&wTotal, &wCorrect, &capWeight, &famStr, &updatedAt); err != nil {
		return Record{}, err
	}
	if noteID.Valid {
		rec.NoteID = &noteID.Int64
	}
	if diffID.Valid {
		rec.DifficultyID = &diffID.Int64
	}
	var err error
	if rec.WeightedTotal, err = decimal.NewFromString(wTotal); err != nil {
		return Record{}, err
	}
	if rec.WeightedCorrect, err = decimal.NewFromString(wCorrect); err != nil {
		return Record{}, err
	}
	if rec.CapWeightedSum, err = decimal.NewFromString(capWeight); err != nil {
		return Record{}, err
	}
	if rec.Familiarity, err = decimal.NewFromString(famStr); err != nil {
		return Record{}, err
	}
	rec.UpdatedAt = time.Unix(updatedAt, 0)
	return rec, nil
}
