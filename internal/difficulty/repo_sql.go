package difficulty

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quizlearn/quizlearn/internal/errs"
)

type SQLRepo struct {
	db *sql.DB
}

func NewSQLRepo(db *sql.DB) *SQLRepo { return &SQLRepo{db: db} }

const policyColumns = `id, level_name, familiarity_cap, weight_coefficients, created_at`

func (r *SQLRepo) Resolve(ctx context.Context, sel Selector) (Policy, error) {
	if err := sel.Validate(); err != nil {
		return Policy{}, err
	}
	var row *sql.Row
	if sel.ID != nil {
		row = r.db.QueryRowContext(ctx,
			`SELECT `+policyColumns+` FROM difficulty_levels WHERE id=$1`, *sel.ID)
	} else {
		row = r.db.QueryRowContext(ctx,
			`SELECT `+policyColumns+` FROM difficulty_levels WHERE level_name=$1`, sel.Name)
	}
	p, err := scanPolicy(row)
	if errors.Is(err, sql.ErrNoRows) {
		if sel.ID != nil {
			return Policy{}, fmt.Errorf("%w: difficulty level %d", errs.ErrNotFound, *sel.ID)
		}
		return Policy{}, fmt.Errorf("%w: difficulty level %q", errs.ErrNotFound, sel.Name)
	}
	if err != nil {
		return Policy{}, err
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

func (r *SQLRepo) List(ctx context.Context) ([]Policy, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+policyColumns+` FROM difficulty_levels ORDER BY familiarity_cap ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []Policy
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanPolicy(row scanner) (Policy, error) {
	var (
		p         Policy
		capStr    string
		weightsJS string
		createdAt int64
	)
	if err := row.Scan(&p.ID, &p.Name, &capStr, &weightsJS, &createdAt); err != nil {
		return Policy{}, err
	}
	c, err := decimal.NewFromString(capStr)
	if err != nil {
		return Policy{}, fmt.Errorf("difficulty level %q: bad cap %q: %w", p.Name, capStr, err)
	}
	p.Cap = c
	p.Weights = map[string]float64{}
	if weightsJS != "" {
		if err := json.Unmarshal([]byte(weightsJS), &p.Weights); err != nil {
			return Policy{}, fmt.Errorf("difficulty level %q: bad weight coefficients: %w", p.Name, err)
		}
	}
	p.Alpha = DefaultAlpha
	if a, ok := p.Weights["alpha"]; ok {
		p.Alpha = decimal.NewFromFloat(a).Round(4)
	}
	p.CreatedAt = time.Unix(createdAt, 0)
	return p, nil
}

// Seed inserts the stock levels when they are missing. Existing rows are left
// untouched so a deployment can tune caps and alphas in place.
func (r *SQLRepo) Seed(ctx context.Context) error {
	stock := []struct {
		name string
		cap  string
	}{
		{"beginner", "0.30"},
		{"intermediate", "0.50"},
		{"advanced", "0.70"},
		{"master", "1.00"},
	}
	for _, lvl := range stock {
		_, err := r.db.ExecContext(ctx,
			`INSERT INTO difficulty_levels (level_name, familiarity_cap, weight_coefficients, created_at)
			 VALUES ($1,$2,$3,$4)
			 ON CONFLICT (level_name) DO NOTHING`,
			lvl.name, lvl.cap, `{"alpha": 0.20}`, time.Now().Unix())
		if err != nil {
			return fmt.Errorf("seed difficulty %q: %w", lvl.name, err)
		}
	}
	return nil
}
