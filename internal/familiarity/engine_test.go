package familiarity

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/quizlearn/quizlearn/internal/difficulty"
	"github.com/quizlearn/quizlearn/internal/errs"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("bad decimal literal %q: %v", s, err)
	}
	return d
}

func testPolicy(t *testing.T, capStr, alphaStr string) difficulty.Policy {
	t.Helper()
	return difficulty.Policy{ID: 1, Name: "test", Cap: dec(t, capStr), Alpha: dec(t, alphaStr)}
}

func TestComputeFirstRun(t *testing.T) {
	// cap=0.5, alpha=0.2, old=0, accuracy=1.0:
	// this_run=0.5, new = 0*0.8 + 0.5*0.2 = 0.10 -> 10.00
	pol := testPolicy(t, "0.5", "0.2")
	got := Compute(decimal.Zero, pol, AccuracyResult(1.0))
	if !got.Equal(dec(t, "10.00")) {
		t.Fatalf("Compute = %s, want 10.00", got)
	}
}

func TestComputeApproachesCapWithoutReachingIt(t *testing.T) {
	pol := testPolicy(t, "0.5", "0.2")
	want := []string{"10.00", "18.00", "24.40", "29.52", "33.62", "36.90"}

	cur := decimal.Zero
	for i, w := range want {
		cur = Compute(cur, pol, AccuracyResult(1.0))
		if !cur.Equal(dec(t, w)) {
			t.Fatalf("run %d: familiarity = %s, want %s", i+1, cur, w)
		}
		if cur.GreaterThanOrEqual(dec(t, "50")) {
			t.Fatalf("run %d: familiarity %s exceeded cap 50.00", i+1, cur)
		}
	}
}

func TestComputeMonotoneConvergence(t *testing.T) {
	pol := testPolicy(t, "0.5", "0.2")
	cur := decimal.Zero
	for i := 0; i < 300; i++ {
		next := Compute(cur, pol, AccuracyResult(1.0))
		if next.LessThan(cur) {
			t.Fatalf("run %d: familiarity decreased %s -> %s", i+1, cur, next)
		}
		if next.GreaterThan(dec(t, "50")) {
			t.Fatalf("run %d: familiarity %s above cap", i+1, next)
		}
		cur = next
	}
	if cur.LessThan(dec(t, "49.9")) {
		t.Fatalf("familiarity %s did not converge toward 50.00", cur)
	}
}

func TestComputeCapShortCircuit(t *testing.T) {
	pol := testPolicy(t, "0.5", "0.2")
	for _, old := range []string{"50.00", "70.00", "100.00"} {
		oldPct := dec(t, old)
		if !ReachedCap(oldPct, pol) {
			t.Fatalf("ReachedCap(%s) = false, want true", old)
		}
		got := Compute(oldPct, pol, AccuracyResult(1.0))
		if !got.Equal(oldPct) {
			t.Fatalf("Compute(%s) = %s, want unchanged", old, got)
		}
	}
	if ReachedCap(dec(t, "49.99"), pol) {
		t.Fatal("ReachedCap(49.99) = true, want false")
	}
}

func TestComputeBounded(t *testing.T) {
	caps := []string{"0.3", "0.5", "0.7", "1.0"}
	olds := []string{"0", "0.01", "33.33", "49.99", "50.00", "99.99", "100.00"}
	accs := []float64{0, 0.2, 0.5, 0.99, 1.0}
	for _, c := range caps {
		pol := testPolicy(t, c, "0.25")
		for _, o := range olds {
			oldPct := dec(t, o)
			for _, a := range accs {
				got := Compute(oldPct, pol, AccuracyResult(a))
				if got.IsNegative() || got.GreaterThan(dec(t, "100")) {
					t.Fatalf("cap=%s old=%s acc=%v: %s outside [0,100]", c, o, a, got)
				}
				// Below the ceiling, an update can never overshoot it.
				if oldPct.LessThan(pol.CapPct()) && got.GreaterThan(pol.CapPct()) {
					t.Fatalf("cap=%s old=%s acc=%v: %s above ceiling %s", c, o, a, got, pol.CapPct())
				}
			}
		}
	}
}

func TestAccuracyResultClamped(t *testing.T) {
	if got := AccuracyResult(1.7).Accuracy(); !got.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("accuracy 1.7 clamped to %s, want 1", got)
	}
	if got := AccuracyResult(-0.2).Accuracy(); !got.IsZero() {
		t.Fatalf("accuracy -0.2 clamped to %s, want 0", got)
	}
}

func TestCountResult(t *testing.T) {
	run, err := CountResult(4, 5)
	if err != nil {
		t.Fatalf("CountResult(4,5): %v", err)
	}
	if !run.Accuracy().Equal(dec(t, "0.8")) {
		t.Fatalf("accuracy = %s, want 0.8", run.Accuracy())
	}
	correct, total, ok := run.Counts()
	if !ok || correct != 4 || total != 5 {
		t.Fatalf("Counts() = (%d,%d,%v), want (4,5,true)", correct, total, ok)
	}

	invalid := []struct {
		name           string
		correct, total int64
	}{
		{"zero total", 3, 0},
		{"negative total", 3, -1},
		{"correct above total", 6, 5},
		{"negative correct", -1, 5},
	}
	for _, tc := range invalid {
		if _, err := CountResult(tc.correct, tc.total); !errors.Is(err, errs.ErrInvalidArgument) {
			t.Errorf("%s: CountResult(%d,%d) err = %v, want ErrInvalidArgument", tc.name, tc.correct, tc.total, err)
		}
	}
}
