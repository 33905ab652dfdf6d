package api

import (
	"net/http"
	"time"
)

// ── Response types ──────────────────────────────────────────────────────────

type HistoryEntryResponse struct {
	SessionID       string `json:"session_id"`
	SetName         string `json:"set_name"`
	StartedAt       string `json:"started_at"`
	State           string `json:"state"`
	QuestionCount   int    `json:"question_count"`
	AnsweredCount   int    `json:"answered_count"`
	DurationSeconds int64  `json:"duration_seconds"`
	Complete        bool   `json:"complete"`
	TimeRanOut      bool   `json:"time_ran_out"`
}

type SetBreakdownResponse struct {
	SetID         string  `json:"set_id"`
	SetName       string  `json:"set_name"`
	Sessions      int     `json:"sessions"`
	Completed     int     `json:"completed"`
	TimedOut      int     `json:"timed_out"`
	Answered      int     `json:"answered"`
	AvgSelfRating float64 `json:"avg_self_rating"`
}

type DashboardResponse struct {
	TotalSessions     int                    `json:"total_sessions"`
	CompletedSessions int                    `json:"completed_sessions"`
	TimedOutSessions  int                    `json:"timed_out_sessions"`
	TotalResponses    int                    `json:"total_responses"`
	AvgSelfRating     float64                `json:"avg_self_rating"`
	Sets              []SetBreakdownResponse `json:"sets"`
}

// ── Handlers ────────────────────────────────────────────────────────────────

// GET /history
func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	entries, err := h.practice.History(r.Context(), userID(r))
	if err != nil {
		h.logger.Error("failed to load history", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	response := make([]HistoryEntryResponse, len(entries))
	for i, e := range entries {
		response[i] = HistoryEntryResponse{
			SessionID:       e.Session.ID,
			SetName:         e.SetName,
			StartedAt:       e.Session.StartedAt.Format(time.RFC3339),
			State:           string(e.Session.State()),
			QuestionCount:   e.QuestionCount,
			AnsweredCount:   e.AnsweredCount,
			DurationSeconds: e.DurationSecs,
			Complete:        e.Complete,
			TimeRanOut:      e.TimeRanOut,
		}
	}
	respondJSON(w, http.StatusOK, response)
}

// GET /dashboard
func (h *Handler) dashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.stats.Dashboard(r.Context(), userID(r))
	if err != nil {
		h.logger.Error("failed to build dashboard", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to load dashboard")
		return
	}

	sets := make([]SetBreakdownResponse, len(dash.Sets))
	for i, b := range dash.Sets {
		sets[i] = SetBreakdownResponse{
			SetID:         b.SetID,
			SetName:       b.SetName,
			Sessions:      b.Sessions,
			Completed:     b.Completed,
			TimedOut:      b.TimedOut,
			Answered:      b.Answered,
			AvgSelfRating: b.AvgSelfRating,
		}
	}

	respondJSON(w, http.StatusOK, DashboardResponse{
		TotalSessions:     dash.TotalSessions,
		CompletedSessions: dash.CompletedSessions,
		TimedOutSessions:  dash.TimedOutSessions,
		TotalResponses:    dash.TotalResponses,
		AvgSelfRating:     dash.AvgSelfRating,
		Sets:              sets,
	})
}
