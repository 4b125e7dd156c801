package familiarity

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Record is the per-(user, quiz-topic) familiarity row. Exactly one exists
// per pair; it is created lazily with zeroed counters on the first submission
// and mutated only through Store.Mutate.
type Record struct {
	UserID       string
	QuizID       int64
	NoteID       *int64
	DifficultyID *int64

	// Lifetime counters. correct_answers ≤ total_questions always holds.
	TotalQuestions int64
	CorrectAnswers int64

	// Cap-weighted accumulations kept for analytics; they never feed the
	// score itself.
	WeightedTotal   decimal.Decimal
	WeightedCorrect decimal.Decimal
	CapWeightedSum  decimal.Decimal

	// Familiarity is the externally visible 0..100 score, two decimals.
	Familiarity decimal.Decimal

	UpdatedAt time.Time
}

// Key identifies one record.
type Key struct {
	UserID string
	QuizID int64
}

// Change is one normalized read-modify-write against a record. The Add*
// fields are deltas the store applies as in-place atomic increments; the
// remaining fields overwrite.
type Change struct {
	Familiarity decimal.Decimal

	AddTotal   int64
	AddCorrect int64

	AddWeightedTotal   decimal.Decimal
	AddWeightedCorrect decimal.Decimal
	AddCapWeight       decimal.Decimal

	DifficultyID int64
	// NoteID, when set, replaces the record's note reference.
	NoteID *int64
}

// Store persists familiarity records.
type Store interface {
	// Mutate runs fn with the record for key held under an exclusive lock,
	// creating a zeroed record first when none exists, then applies the
	// returned change atomically and returns the resulting record. Mutations
	// of the same key are linearized; different keys proceed independently.
	// An error from fn, or a cancelled ctx, rolls the whole operation back.
	Mutate(ctx context.Context, key Key, fn func(Record) (Change, error)) (Record, error)

	// ListByUser returns every record for a user, most recently updated
	// first.
	ListByUser(ctx context.Context, userID string) ([]Record, error)
}
