package familiarity

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// memoryStore keeps records in process memory with one mutex per key, so
// concurrent mutations of the same pair serialize while distinct pairs run in
// parallel. Used in tests and offline mode.
type memoryStore struct {
	mu    sync.Mutex
	locks map[Key]*sync.Mutex
	recs  map[Key]Record
}

func NewInMemoryStore() Store {
	return &memoryStore{
		locks: map[Key]*sync.Mutex{},
		recs:  map[Key]Record{},
	}
}

func (m *memoryStore) lockFor(key Key) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lk, ok := m.locks[key]
	if !ok {
		lk = &sync.Mutex{}
		m.locks[key] = lk
	}
	return lk
}

func (m *memoryStore) Mutate(ctx context.Context, key Key, fn func(Record) (Change, error)) (Record, error) {
	lk := m.lockFor(key)
	lk.Lock()
	defer lk.Unlock()

	if err := ctx.Err(); err != nil {
		return Record{}, err
	}

	m.mu.Lock()
	rec, ok := m.recs[key]
	m.mu.Unlock()
	if !ok {
		rec = Record{
			UserID:          key.UserID,
			QuizID:          key.QuizID,
			WeightedTotal:   decimal.Zero,
			WeightedCorrect: decimal.Zero,
			CapWeightedSum:  decimal.Zero,
			Familiarity:     decimal.Zero,
		}
	}

	ch, err := fn(rec)
	if err != nil {
		return Record{}, err
	}

	rec.Familiarity = ch.Familiarity
	rec.TotalQuestions += ch.AddTotal
	rec.CorrectAnswers += ch.AddCorrect
	rec.WeightedTotal = rec.WeightedTotal.Add(ch.AddWeightedTotal)
	rec.WeightedCorrect = rec.WeightedCorrect.Add(ch.AddWeightedCorrect)
	rec.CapWeightedSum = rec.CapWeightedSum.Add(ch.AddCapWeight)
	diffID := ch.DifficultyID
	rec.DifficultyID = &diffID
	if ch.NoteID != nil {
		rec.NoteID = ch.NoteID
	}
	rec.UpdatedAt = time.Now()

	m.mu.Lock()
	m.recs[key] = rec
	m.mu.Unlock()
	return rec, nil
}

func (m *memoryStore) ListByUser(ctx context.Context, userID string) ([]Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Record
	for k, r := range m.recs {
		if k.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].QuizID < out[j].QuizID
		}
		return out[i].UpdatedAt.After(out[j].UpdatedAt)
	})
	return out, nil
}
