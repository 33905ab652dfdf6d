package questionset

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/quizdrill/backend/internal/id"
)

type Difficulty string

const (
	DifficultyEasy   Difficulty = "easy"
	DifficultyMedium Difficulty = "medium"
	DifficultyHard   Difficulty = "hard"
)

// Valid reports whether d is one of the three known levels.
func (d Difficulty) Valid() bool {
	return d == DifficultyEasy || d == DifficultyMedium || d == DifficultyHard
}

// QuestionSet is a named, ordered collection of practice questions
// owned by the user who created it.
type QuestionSet struct {
	ID        string
	OwnerID   string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
	Questions []Question
}

// Question belongs to one set. Position is the author-chosen sort key;
// ties break by insertion order.
type Question struct {
	ID         string
	Text       string
	Difficulty Difficulty
	Tags       string // comma-separated
	Position   int
}

func New(ownerID, name string, now time.Time) (*QuestionSet, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, errors.New("question set name cannot be empty")
	}
	return &QuestionSet{
		ID:        id.GenerateID(),
		OwnerID:   ownerID,
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
		Questions: []Question{},
	}, nil
}

// AddQuestion appends a question to the set. An empty difficulty
// defaults to medium; an unknown one is rejected.
func (qs *QuestionSet) AddQuestion(text string, difficulty Difficulty, tags string, position int) (Question, error) {
	if strings.TrimSpace(text) == "" {
		return Question{}, errors.New("question text cannot be empty")
	}
	if difficulty == "" {
		difficulty = DifficultyMedium
	}
	if !difficulty.Valid() {
		return Question{}, errors.New("difficulty must be easy, medium, or hard")
	}

	q := Question{
		ID:         id.GenerateID(),
		Text:       text,
		Difficulty: difficulty,
		Tags:       tags,
		Position:   position,
	}
	qs.Questions = append(qs.Questions, q)
	return q, nil
}

// QuestionIDs returns the ids of the set's questions in their fixed order.
func (qs *QuestionSet) QuestionIDs() []string {
	ids := make([]string, len(qs.Questions))
	for i, q := range qs.Questions {
		ids[i] = q.ID
	}
	return ids
}

// SortQuestions orders the slice by (position, insertion). Stored rows
// come back already ordered; this covers in-memory sets.
func SortQuestions(questions []Question) {
	sort.SliceStable(questions, func(i, j int) bool {
		return questions[i].Position < questions[j].Position
	})
}

// NormalizeName is the case-insensitive key used to deduplicate sets.
func NormalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// DedupeByName keeps one set per normalized name. The input is expected
// most-recently-updated first, so the survivor per name is the freshest.
func DedupeByName(sets []*QuestionSet) []*QuestionSet {
	seen := make(map[string]bool, len(sets))
	result := make([]*QuestionSet, 0, len(sets))
	for _, qs := range sets {
		key := NormalizeName(qs.Name)
		if seen[key] {
			continue
		}
		seen[key] = true
		result = append(result, qs)
	}
	return result
}

// CanEdit reports whether the user may modify the set: ownerless sets
// are editable by anyone, otherwise only by the owner.
func (qs *QuestionSet) CanEdit(userID string) bool {
	return qs.OwnerID == "" || qs.OwnerID == userID
}
