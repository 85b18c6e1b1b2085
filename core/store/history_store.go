package store

import (
	"context"
	"time"

	"mindguard/core/history"
)

// HistoryStore satisfies the six history source ports over the shared
// database. The underlying tables are written by the platform's mood,
// journal, assessment, chat, goal and activity services; this store only
// reads them.
type HistoryStore struct {
	db *DB
}

func NewHistoryStore(db *DB) *HistoryStore {
	return &HistoryStore{db: db}
}

// Sources bundles the store as all six aggregator ports.
func (s *HistoryStore) Sources() history.Sources {
	return history.Sources{
		Mood:       s,
		Journal:    s,
		Assessment: s,
		Chat:       s,
		Goal:       s,
		Activity:   s,
	}
}

func (s *HistoryStore) ListMoodEntries(ctx context.Context, userID string, since time.Time, limit int) ([]history.MoodEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Q(`
		SELECT id, user_id, mood, note, created_at FROM mood_entries
		WHERE user_id=? AND created_at>=? ORDER BY created_at DESC LIMIT ?`),
		userID, since.UTC(), boundedLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []history.MoodEntry
	for rows.Next() {
		var e history.MoodEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Mood, &e.Note, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *HistoryStore) ListJournalEntries(ctx context.Context, userID string, since time.Time, limit int) ([]history.JournalEntry, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Q(`
		SELECT id, user_id, content, tags, created_at FROM journal_entries
		WHERE user_id=? AND created_at>=? ORDER BY created_at DESC LIMIT ?`),
		userID, since.UTC(), boundedLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []history.JournalEntry
	for rows.Next() {
		var e history.JournalEntry
		var tagsJSON string
		if err := rows.Scan(&e.ID, &e.UserID, &e.Content, &tagsJSON, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.Tags = keywordsFromJSON(tagsJSON)
		e.CreatedAt = e.CreatedAt.UTC()
		out = append(out, e)
	}
	return out, rows.Err()
}

func (s *HistoryStore) ListAssessmentRecords(ctx context.Context, userID string, since time.Time, limit int) ([]history.AssessmentRecord, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Q(`
		SELECT id, user_id, instrument, score, created_at FROM assessment_records
		WHERE user_id=? AND created_at>=? ORDER BY created_at DESC LIMIT ?`),
		userID, since.UTC(), boundedLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []history.AssessmentRecord
	for rows.Next() {
		var r history.AssessmentRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.Instrument, &r.Score, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.CreatedAt = r.CreatedAt.UTC()
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *HistoryStore) ListChatMessages(ctx context.Context, userID string, since time.Time, limit int) ([]history.ChatMessage, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Q(`
		SELECT id, user_id, topic, body, created_at FROM chat_messages
		WHERE user_id=? AND created_at>=? ORDER BY created_at DESC LIMIT ?`),
		userID, since.UTC(), boundedLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []history.ChatMessage
	for rows.Next() {
		var m history.ChatMessage
		if err := rows.Scan(&m.ID, &m.UserID, &m.Topic, &m.Body, &m.CreatedAt); err != nil {
			return nil, err
		}
		m.CreatedAt = m.CreatedAt.UTC()
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *HistoryStore) ListGoals(ctx context.Context, userID string, since time.Time, limit int) ([]history.Goal, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Q(`
		SELECT id, user_id, title, completed, created_at FROM goals
		WHERE user_id=? AND created_at>=? ORDER BY created_at DESC LIMIT ?`),
		userID, since.UTC(), boundedLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []history.Goal
	for rows.Next() {
		var g history.Goal
		if err := rows.Scan(&g.ID, &g.UserID, &g.Title, &g.Completed, &g.CreatedAt); err != nil {
			return nil, err
		}
		g.CreatedAt = g.CreatedAt.UTC()
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *HistoryStore) ListActivities(ctx context.Context, userID string, since time.Time, limit int) ([]history.Activity, error) {
	rows, err := s.db.QueryContext(ctx, s.db.Q(`
		SELECT id, user_id, kind, created_at FROM activities
		WHERE user_id=? AND created_at>=? ORDER BY created_at DESC LIMIT ?`),
		userID, since.UTC(), boundedLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []history.Activity
	for rows.Next() {
		var a history.Activity
		if err := rows.Scan(&a.ID, &a.UserID, &a.Kind, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.CreatedAt = a.CreatedAt.UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}

func boundedLimit(limit int) int {
	if limit <= 0 || limit > 500 {
		return 500
	}
	return limit
}
