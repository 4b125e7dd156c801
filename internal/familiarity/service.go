package familiarity

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/quizlearn/quizlearn/internal/difficulty"
	"github.com/quizlearn/quizlearn/internal/errs"
)

// DeletedTopicTitle stands in for topics that no longer exist when listing
// familiarities; records are never silently omitted.
const DeletedTopicTitle = "deleted"

// Topic is the minimal quiz-topic view the intake needs.
type Topic struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// TopicDirectory is the keyed-read surface the surrounding data layer owns.
type TopicDirectory interface {
	// GetTopic returns errs.ErrNotFound for unknown or soft-deleted topics.
	GetTopic(ctx context.Context, id int64) (Topic, error)
	NoteExists(ctx context.Context, id int64) (bool, error)
}

// AuditLog receives one event per applied familiarity update.
type AuditLog interface {
	Append(ctx context.Context, typ, key string, data any) error
}

// Service is the attempt intake: it normalizes a submission, drives the
// engine against the locked record, and persists the outcome atomically.
type Service struct {
	store    Store
	policies difficulty.Resolver
	topics   TopicDirectory
	audit    AuditLog // optional
}

func NewService(store Store, policies difficulty.Resolver, topics TopicDirectory, audit AuditLog) *Service {
	return &Service{store: store, policies: policies, topics: topics, audit: audit}
}

// SubmitInput is one quiz-run submission. Exactly one of Accuracy or the
// (TotalQuestions, CorrectAnswers) pair must be present, and exactly one of
// DifficultyID or DifficultyName.
type SubmitInput struct {
	UserID string
	QuizID int64

	DifficultyID   *int64
	DifficultyName string

	Accuracy       *float64
	TotalQuestions *int64
	CorrectAnswers *int64

	NoteID *int64
}

func (in SubmitInput) runResult() (RunResult, error) {
	hasAcc := in.Accuracy != nil
	hasCounts := in.TotalQuestions != nil || in.CorrectAnswers != nil
	switch {
	case hasAcc && hasCounts:
		return RunResult{}, fmt.Errorf("%w: accuracy and question counts are mutually exclusive", errs.ErrInvalidArgument)
	case hasAcc:
		return AccuracyResult(*in.Accuracy), nil
	case in.TotalQuestions != nil && in.CorrectAnswers != nil:
		return CountResult(*in.CorrectAnswers, *in.TotalQuestions)
	default:
		return RunResult{}, fmt.Errorf("%w: provide accuracy or both total_questions and correct_answers", errs.ErrInvalidArgument)
	}
}

type SubmitResult struct {
	Familiarity       float64
	Difficulty        string
	DifficultyCap     float64 // percentage, 0..100
	AlreadyReachedCap bool
	Updated           bool
}

type TopicFamiliarity struct {
	Topic       Topic
	Familiarity float64
}

// SubmitAttempt applies one run to the (user, quiz-topic) record. The whole
// read-modify-write happens inside one Store.Mutate call, so concurrent
// submissions for the same pair apply strictly one after another and a
// failure leaves no partial state behind.
func (s *Service) SubmitAttempt(ctx context.Context, in SubmitInput) (SubmitResult, error) {
	pol, err := s.policies.Resolve(ctx, difficulty.Selector{ID: in.DifficultyID, Name: in.DifficultyName})
	if err != nil {
		return SubmitResult{}, err
	}
	run, err := in.runResult()
	if err != nil {
		return SubmitResult{}, err
	}
	if _, err := s.topics.GetTopic(ctx, in.QuizID); err != nil {
		return SubmitResult{}, err
	}

	noteID := in.NoteID
	if noteID != nil {
		ok, err := s.topics.NoteExists(ctx, *noteID)
		if err != nil {
			return SubmitResult{}, err
		}
		if !ok {
			// A stale note reference is dropped, not an error.
			noteID = nil
		}
	}

	res := SubmitResult{
		Difficulty:    pol.Name,
		DifficultyCap: pol.CapPct().InexactFloat64(),
	}
	rec, err := s.store.Mutate(ctx, Key{UserID: in.UserID, QuizID: in.QuizID}, func(old Record) (Change, error) {
		reached := ReachedCap(old.Familiarity, pol)
		next := old.Familiarity
		if !reached {
			next = Compute(old.Familiarity, pol, run)
		}
		ch := Change{
			Familiarity:  next,
			DifficultyID: pol.ID,
			NoteID:       noteID,
		}
		if correct, total, ok := run.Counts(); ok {
			ch.AddTotal = total
			ch.AddCorrect = correct
			ch.AddWeightedTotal = decimal.NewFromInt(total).Mul(pol.Cap).Round(storePlaces)
			ch.AddWeightedCorrect = decimal.NewFromInt(correct).Mul(pol.Cap).Round(storePlaces)
			ch.AddCapWeight = pol.Cap.Round(storePlaces)
		}
		res.AlreadyReachedCap = reached
		res.Updated = !reached
		return ch, nil
	})
	if err != nil {
		return SubmitResult{}, err
	}
	res.Familiarity = rec.Familiarity.InexactFloat64()

	if s.audit != nil {
		if err := s.audit.Append(ctx, "familiarity.updated",
			fmt.Sprintf("%s/%d", in.UserID, in.QuizID),
			map[string]any{
				"familiarity": rec.Familiarity.StringFixed(2),
				"difficulty":  pol.Name,
				"updated":     res.Updated,
			}); err != nil {
			log.Printf("audit append: %v", err)
		}
	}
	return res, nil
}

// ListFamiliarities returns every familiarity record for a user with its
// topic title resolved; vanished topics keep a placeholder entry.
func (s *Service) ListFamiliarities(ctx context.Context, userID string) ([]TopicFamiliarity, error) {
	recs, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := make([]TopicFamiliarity, 0, len(recs))
	for _, r := range recs {
		t, err := s.topics.GetTopic(ctx, r.QuizID)
		if errors.Is(err, errs.ErrNotFound) {
			t = Topic{ID: r.QuizID, Title: DeletedTopicTitle}
		} else if err != nil {
			return nil, err
		}
		out = append(out, TopicFamiliarity{Topic: t, Familiarity: r.Familiarity.InexactFloat64()})
	}
	return out, nil
}
