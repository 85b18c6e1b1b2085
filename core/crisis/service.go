// Package crisis owns the crisis event lifecycle: creation on detection,
// user response, follow-up completion and the due-follow-up query.
package crisis

import (
	"context"
	"errors"
	"strings"
	"time"

	"mindguard/config"
	"mindguard/core/detect"
	"mindguard/core/store"
	"mindguard/core/utils"
)

var (
	ErrEmptyText   = errors.New("text is required")
	ErrInvalidMood = errors.New("mood must be between 1 and 10")
)

// ScanResult is what a collaborator gets back from one text scan. It is
// always computed in memory first; Recorded reports whether the event was
// also durably stored. Persistence failure never alters the safety-relevant
// fields.
type ScanResult struct {
	IsCrisis       bool
	Severity       store.Severity
	Keywords       []string
	SentimentScore float64
	EventID        string
	Message        string
	Recorded       bool
}

type Service struct {
	events  store.CrisisEventsStore
	scanner *detect.Scanner
	cfg     *config.AppConfig
	logger  *utils.Logger
}

func NewService(events store.CrisisEventsStore, scanner *detect.Scanner, cfg *config.AppConfig, logger *utils.Logger) *Service {
	return &Service{events: events, scanner: scanner, cfg: cfg, logger: logger}
}

func (s *Service) followUpDelay() time.Duration {
	return time.Duration(s.cfg.FollowUpDelayHours()) * time.Hour
}

// Scan classifies text and, on a positive detection, opens a crisis event
// with a follow-up already scheduled. Every qualifying message opens a new
// event; repeated signals from the same user are independent data points, not
// duplicates to merge.
func (s *Service) Scan(ctx context.Context, text, userID string, source store.DetectionSource) (*ScanResult, error) {
	if strings.TrimSpace(text) == "" {
		return nil, ErrEmptyText
	}
	d := s.scanner.Scan(text)
	if !d.IsCrisis {
		if len(d.Keywords) > 0 && s.logger != nil {
			s.logger.Debug("sub-threshold signal", "user_id", userID, "source", source, "keywords", d.Keywords)
		}
		return &ScanResult{IsCrisis: false}, nil
	}

	now := time.Now().UTC()
	followUp := now.Add(s.followUpDelay())
	ev := &store.CrisisEvent{
		UserID:            userID,
		DetectionSource:   source,
		Severity:          d.Severity,
		MatchedKeywords:   d.Keywords,
		ContentExcerpt:    truncateRunes(text, s.cfg.ExcerptMaxChars()),
		SentimentScore:    d.SentimentScore,
		InterventionTaken: store.InterventionModalShown,
		FollowUpScheduled: &followUp,
		CreatedAt:         now,
	}
	result := &ScanResult{
		IsCrisis:       true,
		Severity:       d.Severity,
		Keywords:       d.Keywords,
		SentimentScore: d.SentimentScore,
		Message:        detect.Message(d.Severity),
		Recorded:       true,
	}
	if err := s.events.CreateEvent(ctx, ev); err != nil {
		// The detection still stands; the caller sees it either way.
		result.Recorded = false
		if s.logger != nil {
			s.logger.Error("persist crisis event", "user_id", userID, "severity", d.Severity, "err", err)
		}
		return result, nil
	}
	result.EventID = ev.ID
	if s.logger != nil {
		s.logger.Warn("crisis detected",
			"event_id", ev.ID,
			"user_id", userID,
			"source", source,
			"severity", d.Severity,
			"sentiment", d.SentimentScore)
	}
	return result, nil
}

// Respond records the user's reaction to the intervention modal. Contacting
// help resolves the event; acknowledging or dismissing leaves it open for the
// scheduled follow-up.
func (s *Service) Respond(ctx context.Context, eventID string, response store.UserResponse) (*store.CrisisEvent, error) {
	var resolvedAt *time.Time
	if response == store.ResponseContactedHelp {
		now := time.Now().UTC()
		resolvedAt = &now
	}
	return s.events.MarkResponded(ctx, eventID, response, resolvedAt)
}

// CompleteFollowUp stores a follow-up response and applies the resolution
// rule: a good mood without a help request resolves the event; a help request
// reopens a fresh follow-up window instead, overwriting the pending
// timestamp.
func (s *Service) CompleteFollowUp(ctx context.Context, eventID string, resp store.FollowUpResponse) (*store.CrisisEvent, error) {
	if resp.Mood < 1 || resp.Mood > 10 {
		return nil, ErrInvalidMood
	}
	now := time.Now().UTC()
	completed := true
	var next *time.Time
	var resolvedAt *time.Time
	switch {
	case resp.Mood >= 6 && !resp.NeedsHelp:
		resolvedAt = &now
	case resp.NeedsHelp:
		reschedule := now.Add(s.followUpDelay())
		next = &reschedule
		completed = false
	}
	ev, err := s.events.StoreFollowUp(ctx, eventID, resp, completed, next, resolvedAt)
	if err != nil {
		return nil, err
	}
	if s.logger != nil {
		s.logger.Info("follow-up completed",
			"event_id", eventID,
			"mood", resp.Mood,
			"needs_help", resp.NeedsHelp,
			"resolved", ev.Resolved,
			"rescheduled", next != nil)
	}
	return ev, nil
}

func (s *Service) Get(ctx context.Context, eventID string) (*store.CrisisEvent, error) {
	return s.events.GetEvent(ctx, eventID)
}

func (s *Service) List(ctx context.Context, filter store.CrisisEventFilter) ([]store.CrisisEvent, error) {
	return s.events.ListEvents(ctx, filter)
}

// AdminUpdate records administrative actions (escalation, notes). Severity is
// immutable; an escalation shows up in InterventionTaken, never as a severity
// rewrite.
func (s *Service) AdminUpdate(ctx context.Context, eventID string, intervention *store.Intervention, notes *string) (*store.CrisisEvent, error) {
	return s.events.UpdateAdminFields(ctx, eventID, intervention, notes)
}

// PendingFollowUps is the idempotent due query for the periodic scheduler.
func (s *Service) PendingFollowUps(ctx context.Context, now time.Time, limit int) ([]store.CrisisEvent, error) {
	return s.events.ListPendingFollowUps(ctx, now, limit)
}

func truncateRunes(s string, max int) string {
	if max <= 0 {
		return s
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
