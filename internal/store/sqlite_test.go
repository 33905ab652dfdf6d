package store_test

import (
	"context"
	"errors"
	"testing"
	"time"

	practicesession "github.com/quizdrill/backend/internal/domain/practice_session"
	"github.com/quizdrill/backend/internal/domain/questionset"
	"github.com/quizdrill/backend/internal/domain/user"
	"github.com/quizdrill/backend/internal/store"
)

var t0 = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	db, err := store.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func newTestUser(t *testing.T, db *store.SQLiteStore, username string) *user.User {
	t.Helper()
	u, err := user.New(username, username+"@example.com", "secret-password", t0)
	if err != nil {
		t.Fatalf("failed to build user: %v", err)
	}
	if err := db.SaveUser(context.Background(), u); err != nil {
		t.Fatalf("failed to save user: %v", err)
	}
	return u
}

func newTestSet(t *testing.T, db *store.SQLiteStore, ownerID, name string, questionCount int) *questionset.QuestionSet {
	t.Helper()
	qs, err := questionset.New(ownerID, name, t0)
	if err != nil {
		t.Fatalf("failed to build set: %v", err)
	}
	for i := 0; i < questionCount; i++ {
		if _, err := qs.AddQuestion("question text", questionset.DifficultyMedium, "", i); err != nil {
			t.Fatalf("failed to add question: %v", err)
		}
	}
	if err := db.SaveQuestionSet(context.Background(), qs); err != nil {
		t.Fatalf("failed to save set: %v", err)
	}
	return qs
}

func newTestSession(t *testing.T, db *store.SQLiteStore, userID, setID string, cfg practicesession.Config) *practicesession.PracticeSession {
	t.Helper()
	sess := practicesession.New(userID, setID, cfg, t0)
	if err := db.SaveSession(context.Background(), sess); err != nil {
		t.Fatalf("failed to save session: %v", err)
	}
	return sess
}

func intPtr(v int) *int { return &v }

// ── Users ───────────────────────────────────────────────────────────────────

func TestSaveUser_DuplicateUsername(t *testing.T) {
	db := newTestStore(t)
	newTestUser(t, db, "alice")

	dup, err := user.New("alice", "other@example.com", "secret-password", t0)
	if err != nil {
		t.Fatalf("failed to build user: %v", err)
	}
	if err := db.SaveUser(context.Background(), dup); !errors.Is(err, store.ErrConflict) {
		t.Errorf("expected ErrConflict, got %v", err)
	}
}

func TestGetUserByUsername(t *testing.T) {
	db := newTestStore(t)
	u := newTestUser(t, db, "alice")

	got, err := db.GetUserByUsername(context.Background(), "alice")
	if err != nil {
		t.Fatalf("failed to get user: %v", err)
	}
	if got.ID != u.ID || got.Email != u.Email {
		t.Errorf("got %+v, want %+v", got, u)
	}
	if !got.CheckPassword("secret-password") {
		t.Error("stored hash rejects the original password")
	}

	if _, err := db.GetUserByUsername(context.Background(), "nobody"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// ── Question sets ───────────────────────────────────────────────────────────

func TestQuestionSet_SaveAndGetKeepsOrder(t *testing.T) {
	db := newTestStore(t)
	qs, err := questionset.New("owner", "Algorithms", t0)
	if err != nil {
		t.Fatalf("failed to build set: %v", err)
	}
	// Positions deliberately out of insertion order.
	qs.AddQuestion("third", questionset.DifficultyHard, "", 3)
	qs.AddQuestion("first", questionset.DifficultyEasy, "sorting", 1)
	qs.AddQuestion("second", questionset.DifficultyMedium, "", 2)
	if err := db.SaveQuestionSet(context.Background(), qs); err != nil {
		t.Fatalf("failed to save set: %v", err)
	}

	got, err := db.GetQuestionSet(context.Background(), qs.ID)
	if err != nil {
		t.Fatalf("failed to get set: %v", err)
	}
	if got.Name != "Algorithms" || got.OwnerID != "owner" {
		t.Errorf("unexpected set: %+v", got)
	}
	if len(got.Questions) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(got.Questions))
	}
	for i, want := range []string{"first", "second", "third"} {
		if got.Questions[i].Text != want {
			t.Errorf("question %d: got %q, want %q", i, got.Questions[i].Text, want)
		}
	}
	if got.Questions[0].Tags != "sorting" {
		t.Errorf("expected tags to survive, got %q", got.Questions[0].Tags)
	}
}

func TestListQuestionSetsByOwner(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	newTestSet(t, db, "alice", "Hers", 2)
	newTestSet(t, db, "alice", "Also Hers", 0)
	newTestSet(t, db, "bob", "His", 1)

	sets, err := db.ListQuestionSetsByOwner(ctx, "alice")
	if err != nil {
		t.Fatalf("failed to list by owner: %v", err)
	}
	if len(sets) != 2 {
		t.Fatalf("expected alice's 2 sets, got %d", len(sets))
	}

	byName := make(map[string]int, len(sets))
	for _, qs := range sets {
		if qs.OwnerID != "alice" {
			t.Errorf("foreign set leaked: %+v", qs)
		}
		byName[qs.Name] = len(qs.Questions)
	}
	if byName["Hers"] != 2 || byName["Also Hers"] != 0 {
		t.Errorf("expected questions attached per set, got %v", byName)
	}

	empty, err := db.ListQuestionSetsByOwner(ctx, "nobody")
	if err != nil {
		t.Fatalf("failed to list for unknown owner: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("expected no sets for unknown owner, got %d", len(empty))
	}
}

func TestFindQuestionSetByName_CaseInsensitive(t *testing.T) {
	db := newTestStore(t)
	qs := newTestSet(t, db, "owner", "Graph Theory", 1)

	got, err := db.FindQuestionSetByName(context.Background(), "  graph THEORY ")
	if err != nil {
		t.Fatalf("failed to find set: %v", err)
	}
	if got.ID != qs.ID {
		t.Errorf("got set %s, want %s", got.ID, qs.ID)
	}
	if len(got.Questions) != 1 {
		t.Errorf("expected questions to be loaded, got %d", len(got.Questions))
	}

	if _, err := db.FindQuestionSetByName(context.Background(), "no such set"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRenameQuestionSet(t *testing.T) {
	db := newTestStore(t)
	qs := newTestSet(t, db, "owner", "Old Name", 0)

	if err := db.RenameQuestionSet(context.Background(), qs.ID, "New Name", t0.Add(time.Hour).Unix()); err != nil {
		t.Fatalf("failed to rename: %v", err)
	}
	got, err := db.GetQuestionSet(context.Background(), qs.ID)
	if err != nil {
		t.Fatalf("failed to get set: %v", err)
	}
	if got.Name != "New Name" {
		t.Errorf("got name %q, want %q", got.Name, "New Name")
	}
	if !got.UpdatedAt.After(got.CreatedAt) {
		t.Error("expected updated_at to move forward")
	}

	if err := db.RenameQuestionSet(context.Background(), "missing", "x", t0.Unix()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteQuestionSet_CascadesToSessionsAndResponses(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	u := newTestUser(t, db, "alice")
	qs := newTestSet(t, db, u.ID, "Doomed", 2)
	sess := newTestSession(t, db, u.ID, qs.ID, practicesession.Config{TimerEnabled: true})

	resp := &practicesession.Response{
		SessionID:  sess.ID,
		QuestionID: qs.Questions[0].ID,
		Text:       "an answer",
		SavedAt:    t0,
	}
	if err := db.UpsertResponse(ctx, resp); err != nil {
		t.Fatalf("failed to save response: %v", err)
	}

	if err := db.DeleteQuestionSet(ctx, qs.ID); err != nil {
		t.Fatalf("failed to delete set: %v", err)
	}

	if _, err := db.GetQuestionSet(ctx, qs.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected set gone, got %v", err)
	}
	if _, err := db.GetSession(ctx, sess.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected session gone, got %v", err)
	}
	responses, err := db.ListResponses(ctx, sess.ID)
	if err != nil {
		t.Fatalf("failed to list responses: %v", err)
	}
	if len(responses) != 0 {
		t.Errorf("expected responses gone, got %d", len(responses))
	}

	if err := db.DeleteQuestionSet(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// ── Questions ───────────────────────────────────────────────────────────────

func TestQuestionLifecycle(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	qs := newTestSet(t, db, "owner", "Sets", 1)
	q := qs.Questions[0]

	q.Text = "updated text"
	q.Difficulty = questionset.DifficultyHard
	if err := db.UpdateQuestion(ctx, qs.ID, q, t0.Add(time.Minute).Unix()); err != nil {
		t.Fatalf("failed to update question: %v", err)
	}

	got, err := db.GetQuestionSet(ctx, qs.ID)
	if err != nil {
		t.Fatalf("failed to get set: %v", err)
	}
	if got.Questions[0].Text != "updated text" || got.Questions[0].Difficulty != questionset.DifficultyHard {
		t.Errorf("update not persisted: %+v", got.Questions[0])
	}

	if err := db.DeleteQuestion(ctx, qs.ID, q.ID, t0.Add(2*time.Minute).Unix()); err != nil {
		t.Fatalf("failed to delete question: %v", err)
	}
	got, _ = db.GetQuestionSet(ctx, qs.ID)
	if len(got.Questions) != 0 {
		t.Errorf("expected empty set after delete, got %d questions", len(got.Questions))
	}

	if err := db.DeleteQuestion(ctx, qs.ID, "missing", t0.Unix()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	if err := db.UpdateQuestion(ctx, qs.ID, questionset.Question{ID: "missing"}, t0.Unix()); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

// ── Sessions ────────────────────────────────────────────────────────────────

func TestSession_RoundtripNullableFields(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	u := newTestUser(t, db, "alice")
	qs := newTestSet(t, db, u.ID, "Timed", 1)

	timed := newTestSession(t, db, u.ID, qs.ID, practicesession.Config{
		TimeLimitMinutes: intPtr(5),
		TimerEnabled:     true,
	})
	untimed := newTestSession(t, db, u.ID, qs.ID, practicesession.Config{TimerEnabled: false})

	got, err := db.GetSession(ctx, timed.ID)
	if err != nil {
		t.Fatalf("failed to get session: %v", err)
	}
	if got.TimeLimitMinutes == nil || *got.TimeLimitMinutes != 5 {
		t.Errorf("expected limit 5, got %v", got.TimeLimitMinutes)
	}
	if !got.TimerEnabled || got.EndedAt != nil || got.PausedAt != nil {
		t.Errorf("unexpected session: %+v", got)
	}
	if !got.StartedAt.Equal(t0) {
		t.Errorf("got started_at %v, want %v", got.StartedAt, t0)
	}

	got, err = db.GetSession(ctx, untimed.ID)
	if err != nil {
		t.Fatalf("failed to get session: %v", err)
	}
	if got.TimeLimitMinutes != nil || got.TimerEnabled {
		t.Errorf("expected untimed session, got %+v", got)
	}

	if _, err := db.GetSession(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestUpdateSessionTimer(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	u := newTestUser(t, db, "alice")
	qs := newTestSet(t, db, u.ID, "Timed", 1)
	sess := newTestSession(t, db, u.ID, qs.ID, practicesession.Config{TimerEnabled: true})

	sess.Pause(t0.Add(10 * time.Second))
	sess.Resume(t0.Add(40 * time.Second))
	sess.End(t0.Add(100 * time.Second))
	if err := db.UpdateSessionTimer(ctx, sess); err != nil {
		t.Fatalf("failed to update timer: %v", err)
	}

	got, err := db.GetSession(ctx, sess.ID)
	if err != nil {
		t.Fatalf("failed to get session: %v", err)
	}
	if got.TotalPausedSeconds != 30 {
		t.Errorf("expected 30 paused seconds, got %d", got.TotalPausedSeconds)
	}
	if got.EndedAt == nil || !got.EndedAt.Equal(t0.Add(100*time.Second)) {
		t.Errorf("unexpected ended_at: %v", got.EndedAt)
	}
	if got.PausedAt != nil {
		t.Error("expected paused_at to be cleared")
	}

	missing := practicesession.New(u.ID, qs.ID, practicesession.Config{}, t0)
	if err := db.UpdateSessionTimer(ctx, missing); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestListUserSessions_OverviewCounts(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	alice := newTestUser(t, db, "alice")
	bob := newTestUser(t, db, "bob")
	qs := newTestSet(t, db, alice.ID, "Shared", 3)

	sess := newTestSession(t, db, alice.ID, qs.ID, practicesession.Config{TimerEnabled: true})
	newTestSession(t, db, bob.ID, qs.ID, practicesession.Config{TimerEnabled: true})

	for _, q := range qs.Questions[:2] {
		err := db.UpsertResponse(ctx, &practicesession.Response{
			SessionID:  sess.ID,
			QuestionID: q.ID,
			Text:       "answer",
			SavedAt:    t0,
		})
		if err != nil {
			t.Fatalf("failed to save response: %v", err)
		}
	}

	overviews, err := db.ListUserSessions(ctx, alice.ID)
	if err != nil {
		t.Fatalf("failed to list sessions: %v", err)
	}
	if len(overviews) != 1 {
		t.Fatalf("expected only alice's session, got %d", len(overviews))
	}
	o := overviews[0]
	if o.SetName != "Shared" || o.QuestionCount != 3 || o.AnsweredCount != 2 {
		t.Errorf("unexpected overview: %+v", o)
	}
	if o.Session.ID != sess.ID {
		t.Errorf("got session %s, want %s", o.Session.ID, sess.ID)
	}

	bySet, err := db.ListUserSessionsBySet(ctx, alice.ID, qs.ID)
	if err != nil {
		t.Fatalf("failed to list by set: %v", err)
	}
	if len(bySet) != 1 {
		t.Errorf("expected 1 session for the set, got %d", len(bySet))
	}
}

// ── Responses ───────────────────────────────────────────────────────────────

func TestUpsertResponse_Overwrites(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	u := newTestUser(t, db, "alice")
	qs := newTestSet(t, db, u.ID, "Sets", 1)
	sess := newTestSession(t, db, u.ID, qs.ID, practicesession.Config{TimerEnabled: true})
	qid := qs.Questions[0].ID

	first := &practicesession.Response{
		SessionID: sess.ID, QuestionID: qid, Text: "first try", SelfRating: intPtr(2), SavedAt: t0,
	}
	second := &practicesession.Response{
		SessionID: sess.ID, QuestionID: qid, Text: "second try", SelfRating: intPtr(4), SavedAt: t0.Add(time.Minute),
	}
	if err := db.UpsertResponse(ctx, first); err != nil {
		t.Fatalf("failed to save response: %v", err)
	}
	if err := db.UpsertResponse(ctx, second); err != nil {
		t.Fatalf("failed to upsert response: %v", err)
	}

	responses, err := db.ListResponses(ctx, sess.ID)
	if err != nil {
		t.Fatalf("failed to list responses: %v", err)
	}
	if len(responses) != 1 {
		t.Fatalf("expected 1 response after resubmit, got %d", len(responses))
	}
	got := responses[0]
	if got.Text != "second try" || got.SelfRating == nil || *got.SelfRating != 4 {
		t.Errorf("unexpected response: %+v", got)
	}
	if !got.SavedAt.Equal(t0.Add(time.Minute)) {
		t.Errorf("got saved_at %v, want %v", got.SavedAt, t0.Add(time.Minute))
	}
}

func TestGetRatingTotals(t *testing.T) {
	db := newTestStore(t)
	ctx := context.Background()
	u := newTestUser(t, db, "alice")
	setA := newTestSet(t, db, u.ID, "Set A", 2)
	setB := newTestSet(t, db, u.ID, "Set B", 1)
	sessA := newTestSession(t, db, u.ID, setA.ID, practicesession.Config{TimerEnabled: true})
	sessB := newTestSession(t, db, u.ID, setB.ID, practicesession.Config{TimerEnabled: true})

	save := func(sess *practicesession.PracticeSession, qid string, rating *int) {
		t.Helper()
		err := db.UpsertResponse(ctx, &practicesession.Response{
			SessionID: sess.ID, QuestionID: qid, Text: "x", SelfRating: rating, SavedAt: t0,
		})
		if err != nil {
			t.Fatalf("failed to save response: %v", err)
		}
	}
	save(sessA, setA.Questions[0].ID, intPtr(5))
	save(sessA, setA.Questions[1].ID, nil) // unrated, excluded from Count
	save(sessB, setB.Questions[0].ID, intPtr(3))

	all, err := db.GetRatingTotals(ctx, u.ID, "")
	if err != nil {
		t.Fatalf("failed to get totals: %v", err)
	}
	if all.Sum != 8 || all.Count != 2 {
		t.Errorf("got %+v, want sum 8 count 2", all)
	}

	onlyA, err := db.GetRatingTotals(ctx, u.ID, setA.ID)
	if err != nil {
		t.Fatalf("failed to get totals: %v", err)
	}
	if onlyA.Sum != 5 || onlyA.Count != 1 {
		t.Errorf("got %+v, want sum 5 count 1", onlyA)
	}
}
