// Package quiz exposes the keyed reads the familiarity core needs from the
// quiz data the surrounding CRUD layer owns. Rows are soft-deleted there, so
// every lookup filters on deleted_at.
package quiz

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/quizlearn/quizlearn/internal/errs"
	"github.com/quizlearn/quizlearn/internal/familiarity"
)

type SQLRepo struct {
	db *sql.DB
}

func NewSQLRepo(db *sql.DB) *SQLRepo { return &SQLRepo{db: db} }

func (r *SQLRepo) GetTopic(ctx context.Context, id int64) (familiarity.Topic, error) {
	var t familiarity.Topic
	err := r.db.QueryRowContext(ctx,
		`SELECT id, quiz_topic FROM quizzes WHERE id=$1 AND deleted_at IS NULL`, id).
		Scan(&t.ID, &t.Title)
	if errors.Is(err, sql.ErrNoRows) {
		return familiarity.Topic{}, fmt.Errorf("%w: quiz topic %d", errs.ErrNotFound, id)
	}
	if err != nil {
		return familiarity.Topic{}, err
	}
	return t, nil
}

func (r *SQLRepo) NoteExists(ctx context.Context, id int64) (bool, error) {
	var exist int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM notes WHERE id=$1 AND deleted_at IS NULL`, id).Scan(&exist)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
