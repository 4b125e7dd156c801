package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	auth "github.com/quizlearn/quizlearn/internal/auth/middleware"
	"github.com/quizlearn/quizlearn/internal/errs"
	"github.com/quizlearn/quizlearn/internal/familiarity"
	"github.com/quizlearn/quizlearn/internal/rbac"
)

// Two historical payload shapes are accepted:
//
//	{"quiz_topic_id":123, "difficulty_level_id":1, "total_questions":5, "correct_answers":4}
//	{"topic_id":123, "difficulty":"advanced", "accuracy":0.8}
type submitAttemptRequest struct {
	QuizTopicID *int64 `json:"quiz_topic_id"`
	TopicID     *int64 `json:"topic_id"` // legacy alias

	DifficultyLevelID *int64 `json:"difficulty_level_id"`
	DifficultyLevel   string `json:"difficulty_level"`
	Difficulty        string `json:"difficulty"` // legacy alias

	Accuracy       *float64 `json:"accuracy"`
	TotalQuestions *int64   `json:"total_questions"`
	CorrectAnswers *int64   `json:"correct_answers"`

	NoteID *int64 `json:"note_id"`
}

type submitAttemptResponse struct {
	Familiarity       float64 `json:"familiarity"`
	QuizTopicID       int64   `json:"quiz_topic_id"`
	DifficultyLevel   string  `json:"difficulty_level"`
	DifficultyCap     float64 `json:"difficulty_cap"`
	AlreadyReachedCap bool    `json:"already_reached_cap"`
	Updated           bool    `json:"updated"`
}

// POST /familiarity/attempts
func SubmitAttemptHandler(svc *familiarity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := auth.SubjectFromContext(r.Context())
		if sub == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		var req submitAttemptRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		quizID := req.QuizTopicID
		if quizID == nil {
			quizID = req.TopicID
		}
		if quizID == nil {
			http.Error(w, "quiz_topic_id (or topic_id) required", http.StatusBadRequest)
			return
		}
		name := req.DifficultyLevel
		if name == "" {
			name = req.Difficulty
		}
		res, err := svc.SubmitAttempt(r.Context(), familiarity.SubmitInput{
			UserID:         sub,
			QuizID:         *quizID,
			DifficultyID:   req.DifficultyLevelID,
			DifficultyName: name,
			Accuracy:       req.Accuracy,
			TotalQuestions: req.TotalQuestions,
			CorrectAnswers: req.CorrectAnswers,
			NoteID:         req.NoteID,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(submitAttemptResponse{
			Familiarity:       res.Familiarity,
			QuizTopicID:       *quizID,
			DifficultyLevel:   res.Difficulty,
			DifficultyCap:     res.DifficultyCap,
			AlreadyReachedCap: res.AlreadyReachedCap,
			Updated:           res.Updated,
		})
	}
}

type familiarityEntry struct {
	QuizTopic   familiarity.Topic `json:"quiz_topic"`
	Familiarity float64           `json:"familiarity"`
}

// GET /familiarity?user_id=...
// Callers with familiarity:view-all may list any user; everyone else is
// scoped to their own subject.
func ListFamiliaritiesHandler(svc *familiarity.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sub := auth.SubjectFromContext(r.Context())
		role := rbac.RoleFromContext(r.Context())

		userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
		if userID == "" || !rbac.Can(role, "familiarity:view-all") {
			userID = sub
		}
		if userID == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		list, err := svc.ListFamiliarities(r.Context(), userID)
		if err != nil {
			writeError(w, err)
			return
		}
		out := make([]familiarityEntry, 0, len(list))
		for _, tf := range list {
			out = append(out, familiarityEntry{QuizTopic: tf.Topic, Familiarity: tf.Familiarity})
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(out)
	}
}

func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrInvalidArgument):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, errs.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
