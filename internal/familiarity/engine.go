package familiarity

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/quizlearn/quizlearn/internal/difficulty"
	"github.com/quizlearn/quizlearn/internal/errs"
)

const (
	// calcPlaces is the fixed-point precision of intermediate arithmetic.
	calcPlaces = 4
	// storePlaces is the precision of every externally visible value.
	storePlaces = 2
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// RunResult is one quiz run's outcome: either a direct accuracy fraction or
// raw question counts. It is built once at the boundary and passed through
// unchanged.
type RunResult struct {
	accuracy  decimal.Decimal
	hasCounts bool
	correct   int64
	total     int64
}

// AccuracyResult wraps a direct accuracy fraction, clamped to [0,1].
func AccuracyResult(fraction float64) RunResult {
	return RunResult{accuracy: clamp01(decimal.NewFromFloat(fraction).Round(calcPlaces))}
}

// CountResult derives accuracy from raw counts. Counts outside the
// correct ≤ total invariant are rejected, not clamped.
func CountResult(correct, total int64) (RunResult, error) {
	if total <= 0 {
		return RunResult{}, fmt.Errorf("%w: total_questions must be > 0", errs.ErrInvalidArgument)
	}
	if correct < 0 || correct > total {
		return RunResult{}, fmt.Errorf("%w: correct_answers must be between 0 and total_questions", errs.ErrInvalidArgument)
	}
	acc := decimal.NewFromInt(correct).DivRound(decimal.NewFromInt(total), calcPlaces)
	return RunResult{accuracy: clamp01(acc), hasCounts: true, correct: correct, total: total}, nil
}

func (r RunResult) Accuracy() decimal.Decimal { return r.accuracy }

// Counts reports the raw counts, when the run was built from them.
func (r RunResult) Counts() (correct, total int64, ok bool) {
	return r.correct, r.total, r.hasCounts
}

// ReachedCap reports whether a score already sits at or above the level's
// ceiling, both expressed as 0..100 percentages. Once there, further runs
// under the level leave the score unchanged while counters keep accumulating.
func ReachedCap(oldPct decimal.Decimal, pol difficulty.Policy) bool {
	return oldPct.GreaterThanOrEqual(pol.CapPct())
}

// Compute returns the next familiarity percentage after one run.
//
// The update is an exponentially weighted average over [0,1] fractions:
//
//	new = old*(1-alpha) + (accuracy*cap)*alpha
//
// The per-run contribution is scaled by the level's cap, so a perfect run at
// a low-cap level cannot push the score past that level's ceiling. The result
// is scaled back to 0..100 and rounded half-up to two decimals.
//
// Compute is pure; persistence belongs to the Store. Policies are validated
// when loaded, not here.
func Compute(oldPct decimal.Decimal, pol difficulty.Policy, run RunResult) decimal.Decimal {
	if ReachedCap(oldPct, pol) {
		return oldPct
	}
	old := clamp01(oldPct.DivRound(hundred, calcPlaces))
	thisRun := run.accuracy.Mul(pol.Cap).Round(calcPlaces)
	next := old.Mul(one.Sub(pol.Alpha)).Add(thisRun.Mul(pol.Alpha))
	return clamp01(next).Mul(hundred).Round(storePlaces)
}

func clamp01(d decimal.Decimal) decimal.Decimal {
	switch {
	case d.IsNegative():
		return decimal.Zero
	case d.GreaterThan(one):
		return one
	default:
		return d
	}
}
