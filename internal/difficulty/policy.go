package difficulty

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quizlearn/quizlearn/internal/errs"
)

// ErrInvalidPolicy marks a difficulty level whose stored parameters cannot
// drive the familiarity update. An alpha of zero would freeze every score
// under that level forever, so it is reported at load time rather than
// clamped.
var ErrInvalidPolicy = errors.New("invalid difficulty policy")

// DefaultAlpha applies when a level's weight coefficients carry no "alpha".
var DefaultAlpha = decimal.NewFromFloat(0.20)

var one = decimal.NewFromInt(1)

// Policy is one difficulty level's scoring parameters.
type Policy struct {
	ID   int64
	Name string

	// Cap is the maximum attainable familiarity under this level, as a
	// fraction in [0,1].
	Cap decimal.Decimal

	// Alpha is the exponential update rate in (0,1].
	Alpha decimal.Decimal

	// Weights holds per-question-type coefficients. They feed secondary
	// statistics only, never the score itself.
	Weights map[string]float64

	CreatedAt time.Time
}

func (p Policy) Validate() error {
	if p.Cap.IsNegative() || p.Cap.GreaterThan(one) {
		return fmt.Errorf("%w: %q cap %s outside [0,1]", ErrInvalidPolicy, p.Name, p.Cap)
	}
	if !p.Alpha.IsPositive() || p.Alpha.GreaterThan(one) {
		return fmt.Errorf("%w: %q alpha %s outside (0,1]", ErrInvalidPolicy, p.Name, p.Alpha)
	}
	return nil
}

// CapPct is the level's ceiling expressed as a 0..100 percentage.
func (p Policy) CapPct() decimal.Decimal {
	return p.Cap.Mul(decimal.NewFromInt(100))
}

// Selector names a difficulty level by id or by unique name, never both.
type Selector struct {
	ID   *int64
	Name string
}

func (s Selector) Validate() error {
	if s.ID == nil && s.Name == "" {
		return fmt.Errorf("%w: difficulty id or name required", errs.ErrInvalidArgument)
	}
	if s.ID != nil && s.Name != "" {
		return fmt.Errorf("%w: difficulty id and name are mutually exclusive", errs.ErrInvalidArgument)
	}
	return nil
}

type Resolver interface {
	// Resolve returns the unique level matching sel. The returned policy has
	// been validated.
	Resolve(ctx context.Context, sel Selector) (Policy, error)
}
