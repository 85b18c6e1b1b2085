// Package history aggregates a user's recent wellness activity across the
// platform's data sources into a single in-memory context for risk scoring.
package history

import (
	"context"
	"time"
)

// Record types mirror the collaborator-owned datasets. Only the fields the
// aggregator and scorer consume are carried.

type MoodEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Mood      int       `json:"mood"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type JournalEntry struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Content   string    `json:"content"`
	Tags      []string  `json:"tags,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type AssessmentRecord struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Instrument string    `json:"instrument"`
	Score      int       `json:"score"`
	CreatedAt  time.Time `json:"createdAt"`
}

type ChatMessage struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Topic     string    `json:"topic,omitempty"`
	Body      string    `json:"body,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

type Goal struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Title     string    `json:"title"`
	Completed bool      `json:"completed"`
	CreatedAt time.Time `json:"createdAt"`
}

type Activity struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"createdAt"`
}

// Source ports. Each read is bounded: trailing window start plus a row limit.
// Implementations return records most-recent first.

type MoodSource interface {
	ListMoodEntries(ctx context.Context, userID string, since time.Time, limit int) ([]MoodEntry, error)
}

type JournalSource interface {
	ListJournalEntries(ctx context.Context, userID string, since time.Time, limit int) ([]JournalEntry, error)
}

type AssessmentSource interface {
	ListAssessmentRecords(ctx context.Context, userID string, since time.Time, limit int) ([]AssessmentRecord, error)
}

type ChatSource interface {
	ListChatMessages(ctx context.Context, userID string, since time.Time, limit int) ([]ChatMessage, error)
}

type GoalSource interface {
	ListGoals(ctx context.Context, userID string, since time.Time, limit int) ([]Goal, error)
}

type ActivitySource interface {
	ListActivities(ctx context.Context, userID string, since time.Time, limit int) ([]Activity, error)
}

// Sources bundles the six ports the aggregator fans out over.
type Sources struct {
	Mood       MoodSource
	Journal    JournalSource
	Assessment AssessmentSource
	Chat       ChatSource
	Goal       GoalSource
	Activity   ActivitySource
}
