package store

import (
	"context"
	"errors"

	practicesession "github.com/quizdrill/backend/internal/domain/practice_session"
	"github.com/quizdrill/backend/internal/domain/questionset"
	"github.com/quizdrill/backend/internal/domain/user"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// SessionOverview is a session joined with the facts history and stats
// need: the set it ran against and how far it got.
type SessionOverview struct {
	Session       *practicesession.PracticeSession
	SetName       string
	QuestionCount int
	AnsweredCount int
}

// RatingTotals aggregates self-ratings over a user's responses,
// optionally restricted to one set. Count excludes unrated responses.
type RatingTotals struct {
	Sum   int
	Count int
}

// Store is the persistence surface the services depend on. *SQLiteStore
// is the only production implementation.
type Store interface {
	// Users
	SaveUser(ctx context.Context, u *user.User) error
	GetUser(ctx context.Context, id string) (*user.User, error)
	GetUserByUsername(ctx context.Context, username string) (*user.User, error)

	// Question sets
	SaveQuestionSet(ctx context.Context, qs *questionset.QuestionSet) error
	GetQuestionSet(ctx context.Context, id string) (*questionset.QuestionSet, error)
	ListQuestionSets(ctx context.Context) ([]*questionset.QuestionSet, error)
	ListQuestionSetsByOwner(ctx context.Context, ownerID string) ([]*questionset.QuestionSet, error)
	FindQuestionSetByName(ctx context.Context, name string) (*questionset.QuestionSet, error)
	RenameQuestionSet(ctx context.Context, id, name string, updatedAt int64) error
	DeleteQuestionSet(ctx context.Context, id string) error

	// Questions
	AddQuestion(ctx context.Context, setID string, q questionset.Question, updatedAt int64) error
	UpdateQuestion(ctx context.Context, setID string, q questionset.Question, updatedAt int64) error
	DeleteQuestion(ctx context.Context, setID, questionID string, updatedAt int64) error

	// Sessions
	SaveSession(ctx context.Context, s *practicesession.PracticeSession) error
	GetSession(ctx context.Context, id string) (*practicesession.PracticeSession, error)
	UpdateSessionTimer(ctx context.Context, s *practicesession.PracticeSession) error
	ListUserSessions(ctx context.Context, userID string) ([]SessionOverview, error)
	ListUserSessionsBySet(ctx context.Context, userID, setID string) ([]SessionOverview, error)

	// Responses
	UpsertResponse(ctx context.Context, r *practicesession.Response) error
	ListResponses(ctx context.Context, sessionID string) ([]practicesession.Response, error)
	GetRatingTotals(ctx context.Context, userID, setID string) (RatingTotals, error)
}
