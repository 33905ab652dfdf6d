package service

import (
	"context"
	"log/slog"
	"sort"
	"time"

	practicesession "github.com/quizdrill/backend/internal/domain/practice_session"
	"github.com/quizdrill/backend/internal/store"
	"github.com/quizdrill/backend/internal/worker"
)

// SetBreakdown aggregates one user's sessions against one set.
type SetBreakdown struct {
	SetID         string
	SetName       string
	Sessions      int
	Completed     int
	TimedOut      int
	Answered      int
	AvgSelfRating float64 // 0 when nothing was rated
}

// Dashboard is the per-user statistics page.
type Dashboard struct {
	TotalSessions     int
	CompletedSessions int
	TimedOutSessions  int
	TotalResponses    int
	AvgSelfRating     float64
	Sets              []SetBreakdown
}

const statsWorkers = 4

// StatsService computes dashboard aggregates. Per-set rollups are
// independent, so they fan out over the worker pool.
type StatsService struct {
	store  store.Store
	logger *slog.Logger

	// Now is swappable in tests; defaults to time.Now.
	Now func() time.Time
}

func NewStatsService(s store.Store, logger *slog.Logger) *StatsService {
	return &StatsService{store: s, logger: logger, Now: time.Now}
}

func (ss *StatsService) Dashboard(ctx context.Context, userID string) (*Dashboard, error) {
	now := ss.Now().UTC()

	overviews, err := ss.store.ListUserSessions(ctx, userID)
	if err != nil {
		return nil, err
	}

	bySet := make(map[string][]store.SessionOverview)
	for _, o := range overviews {
		bySet[o.Session.QuestionSetID] = append(bySet[o.Session.QuestionSetID], o)
	}

	dash := &Dashboard{}
	for _, o := range overviews {
		// Sessions the user abandoned mid-countdown are expired here so
		// the counts see them as ended. The overviews and bySet share
		// session pointers, so the per-set jobs see the same states.
		o.Session.ExpireIfOverdue(now)
		dash.TotalSessions++
		dash.TotalResponses += o.AnsweredCount
		unanswered := o.AnsweredCount < o.QuestionCount
		if o.Session.State() == practicesession.StateEnded || !unanswered {
			dash.CompletedSessions++
		}
		if o.Session.TimeRanOut(unanswered) {
			dash.TimedOutSessions++
		}
	}

	totals, err := ss.store.GetRatingTotals(ctx, userID, "")
	if err != nil {
		return nil, err
	}
	if totals.Count > 0 {
		dash.AvgSelfRating = float64(totals.Sum) / float64(totals.Count)
	}

	if len(bySet) == 0 {
		return dash, nil
	}

	pool := worker.NewPool[SetBreakdown](statsWorkers, len(bySet))
	for setID, sessions := range bySet {
		pool.Submit(setID, ss.breakdownJob(ctx, userID, setID, sessions))
	}
	pool.Close()

	for result := range pool.Results() {
		dash.Sets = append(dash.Sets, result.Output)
	}
	sort.Slice(dash.Sets, func(i, j int) bool { return dash.Sets[i].SetName < dash.Sets[j].SetName })

	return dash, nil
}

func (ss *StatsService) breakdownJob(ctx context.Context, userID, setID string, sessions []store.SessionOverview) worker.Job[SetBreakdown] {
	return func() SetBreakdown {
		b := SetBreakdown{SetID: setID}
		for _, o := range sessions {
			b.SetName = o.SetName
			b.Sessions++
			b.Answered += o.AnsweredCount
			unanswered := o.AnsweredCount < o.QuestionCount
			if o.Session.State() == practicesession.StateEnded || !unanswered {
				b.Completed++
			}
			if o.Session.TimeRanOut(unanswered) {
				b.TimedOut++
			}
		}

		totals, err := ss.store.GetRatingTotals(ctx, userID, setID)
		if err != nil {
			ss.logger.Error("rating totals failed", "set_id", setID, "error", err)
			return b
		}
		if totals.Count > 0 {
			b.AvgSelfRating = float64(totals.Sum) / float64(totals.Count)
		}
		return b
	}
}
