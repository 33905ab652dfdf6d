// internal/store/sqlite.go
package store

import (
	"context"
	"database/sql"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	practicesession "github.com/quizdrill/backend/internal/domain/practice_session"
	"github.com/quizdrill/backend/internal/domain/questionset"
	"github.com/quizdrill/backend/internal/domain/user"
)

const schema = `
CREATE TABLE IF NOT EXISTS users (
    id TEXT PRIMARY KEY,
    username TEXT NOT NULL UNIQUE,
    email TEXT NOT NULL,
    password_hash TEXT NOT NULL,
    created_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS question_sets (
    id TEXT PRIMARY KEY,
    owner_id TEXT NOT NULL DEFAULT '',
    name TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS questions (
    id TEXT PRIMARY KEY,
    set_id TEXT NOT NULL,
    text TEXT NOT NULL,
    difficulty TEXT NOT NULL DEFAULT 'medium',
    tags TEXT NOT NULL DEFAULT '',
    position INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (set_id) REFERENCES question_sets(id)
);

CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    user_id TEXT NOT NULL,
    set_id TEXT NOT NULL,
    started_at INTEGER NOT NULL,
    time_limit_min INTEGER,
    timer_enabled INTEGER NOT NULL DEFAULT 1,
    ended_at INTEGER,
    paused_at INTEGER,
    total_paused_seconds INTEGER NOT NULL DEFAULT 0,
    FOREIGN KEY (user_id) REFERENCES users(id),
    FOREIGN KEY (set_id) REFERENCES question_sets(id)
);

CREATE TABLE IF NOT EXISTS responses (
    session_id TEXT NOT NULL,
    question_id TEXT NOT NULL,
    text TEXT NOT NULL DEFAULT '',
    self_rating INTEGER,
    saved_at INTEGER NOT NULL,
    PRIMARY KEY (session_id, question_id),
    FOREIGN KEY (session_id) REFERENCES sessions(id)
);
`

type SQLiteStore struct {
	db *sql.DB
}

func NewSQLite(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		return nil, err
	}

	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Timestamps are stored as unix seconds; nullable ones via NullInt64.

func unixOrNil(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Unix()
}

func timeFromNull(n sql.NullInt64) *time.Time {
	if !n.Valid {
		return nil
	}
	t := time.Unix(n.Int64, 0).UTC()
	return &t
}

func mapConstraintErr(err error) error {
	if err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed") {
		return ErrConflict
	}
	return err
}

// ============================================================================
// Users
// ============================================================================

func (s *SQLiteStore) SaveUser(ctx context.Context, u *user.User) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, username, email, password_hash, created_at) VALUES (?, ?, ?, ?, ?)",
		u.ID, u.Username, u.Email, u.PasswordHash, u.CreatedAt.Unix(),
	)
	return mapConstraintErr(err)
}

func (s *SQLiteStore) GetUser(ctx context.Context, id string) (*user.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, created_at FROM users WHERE id = ?", id))
}

func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*user.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, username, email, password_hash, created_at FROM users WHERE username = ?", username))
}

func (s *SQLiteStore) scanUser(row *sql.Row) (*user.User, error) {
	var u user.User
	var createdAt int64
	err := row.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	u.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &u, nil
}

// ============================================================================
// Question sets
// ============================================================================

func (s *SQLiteStore) SaveQuestionSet(ctx context.Context, qs *questionset.QuestionSet) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO question_sets (id, owner_id, name, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		qs.ID, qs.OwnerID, qs.Name, qs.CreatedAt.Unix(), qs.UpdatedAt.Unix(),
	)
	if err != nil {
		return err
	}

	for _, q := range qs.Questions {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO questions (id, set_id, text, difficulty, tags, position) VALUES (?, ?, ?, ?, ?, ?)",
			q.ID, qs.ID, q.Text, string(q.Difficulty), q.Tags, q.Position,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) GetQuestionSet(ctx context.Context, id string) (*questionset.QuestionSet, error) {
	var qs questionset.QuestionSet
	var createdAt, updatedAt int64

	err := s.db.QueryRowContext(ctx,
		"SELECT id, owner_id, name, created_at, updated_at FROM question_sets WHERE id = ?", id,
	).Scan(&qs.ID, &qs.OwnerID, &qs.Name, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	qs.CreatedAt = time.Unix(createdAt, 0).UTC()
	qs.UpdatedAt = time.Unix(updatedAt, 0).UTC()

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, text, difficulty, tags, position FROM questions WHERE set_id = ? ORDER BY position, rowid", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var q questionset.Question
		var difficulty string
		if err := rows.Scan(&q.ID, &q.Text, &difficulty, &q.Tags, &q.Position); err != nil {
			return nil, err
		}
		q.Difficulty = questionset.Difficulty(difficulty)
		qs.Questions = append(qs.Questions, q)
	}
	return &qs, rows.Err()
}

func (s *SQLiteStore) ListQuestionSets(ctx context.Context) ([]*questionset.QuestionSet, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, owner_id, name, created_at, updated_at FROM question_sets ORDER BY updated_at DESC, rowid DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sets []*questionset.QuestionSet
	for rows.Next() {
		var qs questionset.QuestionSet
		var createdAt, updatedAt int64
		if err := rows.Scan(&qs.ID, &qs.OwnerID, &qs.Name, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		qs.CreatedAt = time.Unix(createdAt, 0).UTC()
		qs.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		sets = append(sets, &qs)
	}
	return sets, rows.Err()
}

// ListQuestionSetsByOwner loads one user's sets with their questions
// attached, in two queries. Backs the export endpoint.
func (s *SQLiteStore) ListQuestionSetsByOwner(ctx context.Context, ownerID string) ([]*questionset.QuestionSet, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, owner_id, name, created_at, updated_at FROM question_sets WHERE owner_id = ? ORDER BY updated_at DESC, rowid DESC",
		ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sets []*questionset.QuestionSet
	byID := make(map[string]*questionset.QuestionSet)
	for rows.Next() {
		var qs questionset.QuestionSet
		var createdAt, updatedAt int64
		if err := rows.Scan(&qs.ID, &qs.OwnerID, &qs.Name, &createdAt, &updatedAt); err != nil {
			return nil, err
		}
		qs.CreatedAt = time.Unix(createdAt, 0).UTC()
		qs.UpdatedAt = time.Unix(updatedAt, 0).UTC()
		sets = append(sets, &qs)
		byID[qs.ID] = &qs
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	qrows, err := s.db.QueryContext(ctx,
		`SELECT set_id, id, text, difficulty, tags, position FROM questions
		 WHERE set_id IN (SELECT id FROM question_sets WHERE owner_id = ?)
		 ORDER BY set_id, position, rowid`, ownerID)
	if err != nil {
		return nil, err
	}
	defer qrows.Close()

	for qrows.Next() {
		var setID, difficulty string
		var q questionset.Question
		if err := qrows.Scan(&setID, &q.ID, &q.Text, &difficulty, &q.Tags, &q.Position); err != nil {
			return nil, err
		}
		q.Difficulty = questionset.Difficulty(difficulty)
		if qs, ok := byID[setID]; ok {
			qs.Questions = append(qs.Questions, q)
		}
	}
	return sets, qrows.Err()
}

// FindQuestionSetByName matches case-insensitively, preferring the most
// recently updated set. Backs the append-to-existing-set behavior.
func (s *SQLiteStore) FindQuestionSetByName(ctx context.Context, name string) (*questionset.QuestionSet, error) {
	var setID string
	err := s.db.QueryRowContext(ctx,
		"SELECT id FROM question_sets WHERE name = ? COLLATE NOCASE ORDER BY updated_at DESC, rowid DESC LIMIT 1",
		strings.TrimSpace(name),
	).Scan(&setID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return s.GetQuestionSet(ctx, setID)
}

func (s *SQLiteStore) RenameQuestionSet(ctx context.Context, id, name string, updatedAt int64) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE question_sets SET name = ?, updated_at = ? WHERE id = ?", name, updatedAt, id)
	if err != nil {
		return err
	}
	return requireRows(result)
}

// DeleteQuestionSet cascades manually: sessions (and their responses)
// go away only here, never on their own.
func (s *SQLiteStore) DeleteQuestionSet(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"DELETE FROM responses WHERE session_id IN (SELECT id FROM sessions WHERE set_id = ?)", id)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, "DELETE FROM sessions WHERE set_id = ?", id)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, "DELETE FROM questions WHERE set_id = ?", id)
	if err != nil {
		return err
	}

	result, err := tx.ExecContext(ctx, "DELETE FROM question_sets WHERE id = ?", id)
	if err != nil {
		return err
	}
	if err := requireRows(result); err != nil {
		return err
	}

	return tx.Commit()
}

// ============================================================================
// Questions
// ============================================================================

func (s *SQLiteStore) AddQuestion(ctx context.Context, setID string, q questionset.Question, updatedAt int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO questions (id, set_id, text, difficulty, tags, position) VALUES (?, ?, ?, ?, ?, ?)",
		q.ID, setID, q.Text, string(q.Difficulty), q.Tags, q.Position,
	)
	if err != nil {
		return err
	}
	if err := touchSet(ctx, tx, setID, updatedAt); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) UpdateQuestion(ctx context.Context, setID string, q questionset.Question, updatedAt int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"UPDATE questions SET text = ?, difficulty = ?, tags = ?, position = ? WHERE id = ? AND set_id = ?",
		q.Text, string(q.Difficulty), q.Tags, q.Position, q.ID, setID,
	)
	if err != nil {
		return err
	}
	if err := requireRows(result); err != nil {
		return err
	}
	if err := touchSet(ctx, tx, setID, updatedAt); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) DeleteQuestion(ctx context.Context, setID, questionID string, updatedAt int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		"DELETE FROM questions WHERE id = ? AND set_id = ?", questionID, setID)
	if err != nil {
		return err
	}
	if err := requireRows(result); err != nil {
		return err
	}
	if err := touchSet(ctx, tx, setID, updatedAt); err != nil {
		return err
	}
	return tx.Commit()
}

func touchSet(ctx context.Context, tx *sql.Tx, setID string, updatedAt int64) error {
	_, err := tx.ExecContext(ctx, "UPDATE question_sets SET updated_at = ? WHERE id = ?", updatedAt, setID)
	return err
}

func requireRows(result sql.Result) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ============================================================================
// Sessions
// ============================================================================

func (s *SQLiteStore) SaveSession(ctx context.Context, sess *practicesession.PracticeSession) error {
	var limit any
	if sess.TimeLimitMinutes != nil {
		limit = *sess.TimeLimitMinutes
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO sessions (id, user_id, set_id, started_at, time_limit_min, timer_enabled, ended_at, paused_at, total_paused_seconds)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.ID, sess.UserID, sess.QuestionSetID, sess.StartedAt.Unix(), limit,
		sess.TimerEnabled, unixOrNil(sess.EndedAt), unixOrNil(sess.PausedAt), sess.TotalPausedSeconds,
	)
	return err
}

const sessionColumns = `id, user_id, set_id, started_at, time_limit_min, timer_enabled, ended_at, paused_at, total_paused_seconds`

func (s *SQLiteStore) GetSession(ctx context.Context, id string) (*practicesession.PracticeSession, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE id = ?", id)

	sess, err := scanSession(row.Scan)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	return sess, err
}

func scanSession(scan func(...any) error) (*practicesession.PracticeSession, error) {
	var sess practicesession.PracticeSession
	var startedAt int64
	var limit, endedAt, pausedAt sql.NullInt64

	err := scan(&sess.ID, &sess.UserID, &sess.QuestionSetID, &startedAt,
		&limit, &sess.TimerEnabled, &endedAt, &pausedAt, &sess.TotalPausedSeconds)
	if err != nil {
		return nil, err
	}

	sess.StartedAt = time.Unix(startedAt, 0).UTC()
	if limit.Valid {
		v := int(limit.Int64)
		sess.TimeLimitMinutes = &v
	}
	sess.EndedAt = timeFromNull(endedAt)
	sess.PausedAt = timeFromNull(pausedAt)
	return &sess, nil
}

// UpdateSessionTimer persists exactly the fields the timer transitions
// mutate. StartedAt and the timer configuration are immutable.
func (s *SQLiteStore) UpdateSessionTimer(ctx context.Context, sess *practicesession.PracticeSession) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE sessions SET ended_at = ?, paused_at = ?, total_paused_seconds = ? WHERE id = ?",
		unixOrNil(sess.EndedAt), unixOrNil(sess.PausedAt), sess.TotalPausedSeconds, sess.ID,
	)
	if err != nil {
		return err
	}
	return requireRows(result)
}

const sessionOverviewQuery = `
SELECT s.id, s.user_id, s.set_id, s.started_at, s.time_limit_min, s.timer_enabled,
       s.ended_at, s.paused_at, s.total_paused_seconds,
       qs.name,
       (SELECT COUNT(*) FROM questions q WHERE q.set_id = s.set_id),
       (SELECT COUNT(*) FROM responses r WHERE r.session_id = s.id)
FROM sessions s
JOIN question_sets qs ON qs.id = s.set_id
WHERE s.user_id = ?`

func (s *SQLiteStore) ListUserSessions(ctx context.Context, userID string) ([]SessionOverview, error) {
	rows, err := s.db.QueryContext(ctx, sessionOverviewQuery+" ORDER BY s.started_at DESC, s.rowid DESC", userID)
	if err != nil {
		return nil, err
	}
	return collectOverviews(rows)
}

func (s *SQLiteStore) ListUserSessionsBySet(ctx context.Context, userID, setID string) ([]SessionOverview, error) {
	rows, err := s.db.QueryContext(ctx,
		sessionOverviewQuery+" AND s.set_id = ? ORDER BY s.started_at DESC, s.rowid DESC", userID, setID)
	if err != nil {
		return nil, err
	}
	return collectOverviews(rows)
}

func collectOverviews(rows *sql.Rows) ([]SessionOverview, error) {
	defer rows.Close()

	var overviews []SessionOverview
	for rows.Next() {
		var o SessionOverview
		sess, err := scanSessionOverview(rows, &o)
		if err != nil {
			return nil, err
		}
		o.Session = sess
		overviews = append(overviews, o)
	}
	return overviews, rows.Err()
}

func scanSessionOverview(rows *sql.Rows, o *SessionOverview) (*practicesession.PracticeSession, error) {
	var sess practicesession.PracticeSession
	var startedAt int64
	var limit, endedAt, pausedAt sql.NullInt64

	err := rows.Scan(&sess.ID, &sess.UserID, &sess.QuestionSetID, &startedAt,
		&limit, &sess.TimerEnabled, &endedAt, &pausedAt, &sess.TotalPausedSeconds,
		&o.SetName, &o.QuestionCount, &o.AnsweredCount)
	if err != nil {
		return nil, err
	}

	sess.StartedAt = time.Unix(startedAt, 0).UTC()
	if limit.Valid {
		v := int(limit.Int64)
		sess.TimeLimitMinutes = &v
	}
	sess.EndedAt = timeFromNull(endedAt)
	sess.PausedAt = timeFromNull(pausedAt)
	return &sess, nil
}

// ============================================================================
// Responses
// ============================================================================

// UpsertResponse is keyed on (session, question): resubmission
// overwrites rather than duplicating, which is the only double-submit
// safeguard the domain needs.
func (s *SQLiteStore) UpsertResponse(ctx context.Context, r *practicesession.Response) error {
	var rating any
	if r.SelfRating != nil {
		rating = *r.SelfRating
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO responses (session_id, question_id, text, self_rating, saved_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(session_id, question_id)
		 DO UPDATE SET text = excluded.text, self_rating = excluded.self_rating, saved_at = excluded.saved_at`,
		r.SessionID, r.QuestionID, r.Text, rating, r.SavedAt.Unix(),
	)
	return err
}

func (s *SQLiteStore) ListResponses(ctx context.Context, sessionID string) ([]practicesession.Response, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT session_id, question_id, text, self_rating, saved_at FROM responses WHERE session_id = ? ORDER BY rowid",
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var responses []practicesession.Response
	for rows.Next() {
		var r practicesession.Response
		var rating sql.NullInt64
		var savedAt int64
		if err := rows.Scan(&r.SessionID, &r.QuestionID, &r.Text, &rating, &savedAt); err != nil {
			return nil, err
		}
		if rating.Valid {
			v := int(rating.Int64)
			r.SelfRating = &v
		}
		r.SavedAt = time.Unix(savedAt, 0).UTC()
		responses = append(responses, r)
	}
	return responses, rows.Err()
}

// GetRatingTotals sums self-ratings across a user's responses. Pass an
// empty setID to aggregate over every set.
func (s *SQLiteStore) GetRatingTotals(ctx context.Context, userID, setID string) (RatingTotals, error) {
	query := `
		SELECT COALESCE(SUM(r.self_rating), 0), COUNT(r.self_rating)
		FROM responses r
		JOIN sessions s ON s.id = r.session_id
		WHERE s.user_id = ?`
	args := []any{userID}
	if setID != "" {
		query += " AND s.set_id = ?"
		args = append(args, setID)
	}

	var totals RatingTotals
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&totals.Sum, &totals.Count)
	return totals, err
}
