package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
)

// CrisisEvent is one detected incident and its intervention/follow-up
// lifecycle. Events are never hard-deleted. JSON tags are the canonical
// interchange contract with the platform's other services.
type CrisisEvent struct {
	ID                string            `json:"id"`
	UserID            string            `json:"userId"`
	DetectionSource   DetectionSource   `json:"detectionSource"`
	Severity          Severity          `json:"severity"`
	MatchedKeywords   []string          `json:"matchedKeywords"`
	ContentExcerpt    string            `json:"contentExcerpt"`
	SentimentScore    float64           `json:"sentimentScore"`
	InterventionTaken Intervention      `json:"interventionTaken"`
	UserResponse      UserResponse      `json:"userResponse,omitempty"`
	FollowUpScheduled *time.Time        `json:"followUpScheduled,omitempty"`
	FollowUpCompleted bool              `json:"followUpCompleted"`
	FollowUpResponse  *FollowUpResponse `json:"followUpResponse,omitempty"`
	Resolved          bool              `json:"resolved"`
	ResolvedAt        *time.Time        `json:"resolvedAt,omitempty"`
	Notes             string            `json:"notes,omitempty"`
	CreatedAt         time.Time         `json:"createdAt"`
}

type FollowUpResponse struct {
	Mood      int    `json:"mood"`
	Feeling   string `json:"feeling,omitempty"`
	NeedsHelp bool   `json:"needsHelp"`
	Notes     string `json:"notes,omitempty"`
}

type CrisisEventFilter struct {
	UserID   string
	Severity Severity
	Resolved *bool
	Limit    int
	Offset   int
}

type CrisisEventsStore interface {
	CreateEvent(ctx context.Context, ev *CrisisEvent) error
	GetEvent(ctx context.Context, id string) (*CrisisEvent, error)
	ListEvents(ctx context.Context, filter CrisisEventFilter) ([]CrisisEvent, error)

	// MarkResponded records the user's reaction to the intervention; a non-nil
	// resolvedAt also closes the event.
	MarkResponded(ctx context.Context, id string, response UserResponse, resolvedAt *time.Time) (*CrisisEvent, error)

	// StoreFollowUp records a follow-up response. completed=false together with
	// a non-nil nextFollowUp reopens a new pending follow-up window; the
	// pending timestamp is overwritten, never appended.
	StoreFollowUp(ctx context.Context, id string, resp FollowUpResponse, completed bool, nextFollowUp *time.Time, resolvedAt *time.Time) (*CrisisEvent, error)

	// UpdateAdminFields mutates the administrative surface only; severity and
	// detection fields are immutable after creation.
	UpdateAdminFields(ctx context.Context, id string, intervention *Intervention, notes *string) (*CrisisEvent, error)

	// ListPendingFollowUps is the read-only due query. Safe to call on every
	// scheduler tick; returning the same event across ticks is expected.
	ListPendingFollowUps(ctx context.Context, now time.Time, limit int) ([]CrisisEvent, error)
}

type crisisEventsStore struct {
	db *DB
}

func NewCrisisEventsStore(db *DB) CrisisEventsStore {
	return &crisisEventsStore{db: db}
}

const crisisEventColumns = `id, user_id, detection_source, severity, matched_keywords, content_excerpt,
	sentiment_score, intervention_taken, user_response, follow_up_scheduled, follow_up_completed,
	follow_up_mood, follow_up_feeling, follow_up_needs_help, follow_up_notes,
	resolved, resolved_at, notes, created_at`

func (s *crisisEventsStore) CreateEvent(ctx context.Context, ev *CrisisEvent) error {
	if ev == nil {
		return errors.New("nil event")
	}
	if strings.TrimSpace(ev.ID) == "" {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		ev.ID = id.String()
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	if ev.InterventionTaken == "" {
		ev.InterventionTaken = InterventionNone
	}
	_, err := s.db.ExecContext(ctx, s.db.Q(`
		INSERT INTO crisis_events(`+crisisEventColumns+`)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?,?)`),
		ev.ID, ev.UserID, string(ev.DetectionSource), string(ev.Severity), keywordsToJSON(ev.MatchedKeywords),
		ev.ContentExcerpt, ev.SentimentScore, string(ev.InterventionTaken), string(ev.UserResponse),
		nullableTime(ev.FollowUpScheduled), ev.FollowUpCompleted,
		followUpMood(ev.FollowUpResponse), followUpFeeling(ev.FollowUpResponse),
		followUpNeedsHelp(ev.FollowUpResponse), followUpNotes(ev.FollowUpResponse),
		ev.Resolved, nullableTime(ev.ResolvedAt), ev.Notes, ev.CreatedAt)
	return err
}

func (s *crisisEventsStore) GetEvent(ctx context.Context, id string) (*CrisisEvent, error) {
	row := s.db.QueryRowContext(ctx, s.db.Q(`
		SELECT `+crisisEventColumns+` FROM crisis_events WHERE id=?`), id)
	return scanCrisisEvent(row)
}

func (s *crisisEventsStore) ListEvents(ctx context.Context, filter CrisisEventFilter) ([]CrisisEvent, error) {
	var clauses []string
	var args []any
	if strings.TrimSpace(filter.UserID) != "" {
		clauses = append(clauses, "user_id=?")
		args = append(args, filter.UserID)
	}
	if filter.Severity != "" {
		clauses = append(clauses, "severity=?")
		args = append(args, string(filter.Severity))
	}
	if filter.Resolved != nil {
		clauses = append(clauses, "resolved=?")
		args = append(args, *filter.Resolved)
	}
	query := `SELECT ` + crisisEventColumns + ` FROM crisis_events`
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}
	rows, err := s.db.QueryContext(ctx, s.db.Q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CrisisEvent
	for rows.Next() {
		ev, err := scanCrisisEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ev)
	}
	return out, rows.Err()
}

func (s *crisisEventsStore) MarkResponded(ctx context.Context, id string, response UserResponse, resolvedAt *time.Time) (*CrisisEvent, error) {
	var res sql.Result
	var err error
	if resolvedAt != nil {
		res, err = s.db.ExecContext(ctx, s.db.Q(`
			UPDATE crisis_events SET user_response=?, resolved=?, resolved_at=? WHERE id=?`),
			string(response), true, resolvedAt.UTC(), id)
	} else {
		res, err = s.db.ExecContext(ctx, s.db.Q(`
			UPDATE crisis_events SET user_response=? WHERE id=?`),
			string(response), id)
	}
	if err != nil {
		return nil, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, ErrNotFound
	}
	return s.GetEvent(ctx, id)
}

func (s *crisisEventsStore) StoreFollowUp(ctx context.Context, id string, resp FollowUpResponse, completed bool, nextFollowUp *time.Time, resolvedAt *time.Time) (*CrisisEvent, error) {
	query := `
		UPDATE crisis_events
		SET follow_up_completed=?, follow_up_mood=?, follow_up_feeling=?, follow_up_needs_help=?, follow_up_notes=?`
	args := []any{completed, resp.Mood, resp.Feeling, resp.NeedsHelp, resp.Notes}
	if nextFollowUp != nil {
		query += ", follow_up_scheduled=?"
		args = append(args, nextFollowUp.UTC())
	}
	if resolvedAt != nil {
		query += ", resolved=?, resolved_at=?"
		args = append(args, true, resolvedAt.UTC())
	}
	query += " WHERE id=?"
	args = append(args, id)
	res, err := s.db.ExecContext(ctx, s.db.Q(query), args...)
	if err != nil {
		return nil, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, ErrNotFound
	}
	return s.GetEvent(ctx, id)
}

func (s *crisisEventsStore) UpdateAdminFields(ctx context.Context, id string, intervention *Intervention, notes *string) (*CrisisEvent, error) {
	var sets []string
	var args []any
	if intervention != nil {
		sets = append(sets, "intervention_taken=?")
		args = append(args, string(*intervention))
	}
	if notes != nil {
		sets = append(sets, "notes=?")
		args = append(args, *notes)
	}
	if len(sets) == 0 {
		return s.GetEvent(ctx, id)
	}
	args = append(args, id)
	res, err := s.db.ExecContext(ctx, s.db.Q(`
		UPDATE crisis_events SET `+strings.Join(sets, ", ")+` WHERE id=?`), args...)
	if err != nil {
		return nil, err
	}
	if affected, _ := res.RowsAffected(); affected == 0 {
		return nil, ErrNotFound
	}
	return s.GetEvent(ctx, id)
}

func (s *crisisEventsStore) ListPendingFollowUps(ctx context.Context, now time.Time, limit int) ([]CrisisEvent, error) {
	query := `
		SELECT ` + crisisEventColumns + ` FROM crisis_events
		WHERE follow_up_scheduled IS NOT NULL AND follow_up_scheduled<=?
		  AND follow_up_completed=? AND resolved=?
		ORDER BY follow_up_scheduled ASC`
	args := []any{now.UTC(), false, false}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, s.db.Q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []CrisisEvent
	for rows.Next() {
		ev, err := scanCrisisEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *ev)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCrisisEvent(row rowScanner) (*CrisisEvent, error) {
	var ev CrisisEvent
	var source, severity, intervention, response, keywordsJSON string
	var followUpScheduled, resolvedAt sql.NullTime
	var mood sql.NullInt64
	var feeling, fuNotes string
	var needsHelp bool
	err := row.Scan(&ev.ID, &ev.UserID, &source, &severity, &keywordsJSON, &ev.ContentExcerpt,
		&ev.SentimentScore, &intervention, &response, &followUpScheduled, &ev.FollowUpCompleted,
		&mood, &feeling, &needsHelp, &fuNotes,
		&ev.Resolved, &resolvedAt, &ev.Notes, &ev.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	ev.DetectionSource = DetectionSource(source)
	ev.Severity = Severity(severity)
	ev.InterventionTaken = Intervention(intervention)
	ev.UserResponse = UserResponse(response)
	ev.MatchedKeywords = keywordsFromJSON(keywordsJSON)
	if followUpScheduled.Valid {
		t := followUpScheduled.Time.UTC()
		ev.FollowUpScheduled = &t
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time.UTC()
		ev.ResolvedAt = &t
	}
	if mood.Valid {
		ev.FollowUpResponse = &FollowUpResponse{
			Mood:      int(mood.Int64),
			Feeling:   feeling,
			NeedsHelp: needsHelp,
			Notes:     fuNotes,
		}
	}
	ev.CreatedAt = ev.CreatedAt.UTC()
	return &ev, nil
}

func keywordsToJSON(keywords []string) string {
	if len(keywords) == 0 {
		return "[]"
	}
	raw, err := json.Marshal(keywords)
	if err != nil {
		return "[]"
	}
	return string(raw)
}

func keywordsFromJSON(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func nullableTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func followUpMood(r *FollowUpResponse) any {
	if r == nil {
		return nil
	}
	return r.Mood
}

func followUpFeeling(r *FollowUpResponse) string {
	if r == nil {
		return ""
	}
	return r.Feeling
}

func followUpNeedsHelp(r *FollowUpResponse) bool {
	if r == nil {
		return false
	}
	return r.NeedsHelp
}

func followUpNotes(r *FollowUpResponse) string {
	if r == nil {
		return ""
	}
	return r.Notes
}
