package tests

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"mindguard/config"
	"mindguard/core/crisis"
	"mindguard/core/detect"
	"mindguard/core/store"
	"mindguard/core/utils"
)

func setupCrisisEnv(t *testing.T) (*config.AppConfig, *store.DB, store.CrisisEventsStore, *crisis.Service) {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.AppConfig{
		DBDriver: "sqlite",
		DBPath:   filepath.Join(dir, "mindguard.db"),
	}
	logger := utils.NewNopLogger()
	db, err := store.NewDB(cfg, logger)
	if err != nil {
		t.Fatalf("db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := store.ApplyMigrations(context.Background(), db, logger); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	events := store.NewCrisisEventsStore(db)
	svc := crisis.NewService(events, detect.NewScanner(nil), cfg, logger)
	return cfg, db, events, svc
}

func TestScanPersistsEventRoundtrip(t *testing.T) {
	_, _, events, svc := setupCrisisEnv(t)
	ctx := context.Background()

	result, err := svc.Scan(ctx, "I'm hopeless and want to die", "student-7", store.SourceChat)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	if !result.IsCrisis || result.Severity != store.SeverityCritical {
		t.Fatalf("unexpected result: %+v", result)
	}
	if !result.Recorded || result.EventID == "" {
		t.Fatalf("event not recorded: %+v", result)
	}

	ev, err := events.GetEvent(ctx, result.EventID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if ev.UserID != "student-7" || ev.DetectionSource != store.SourceChat {
		t.Fatalf("stored event mismatch: %+v", ev)
	}
	if len(ev.MatchedKeywords) == 0 {
		t.Fatalf("keywords lost in roundtrip")
	}
	if ev.InterventionTaken != store.InterventionModalShown {
		t.Fatalf("intervention: got %s", ev.InterventionTaken)
	}
	if ev.FollowUpScheduled == nil || ev.Resolved {
		t.Fatalf("new event should be open with a follow-up: %+v", ev)
	}
}

func TestScanTruncatesExcerpt(t *testing.T) {
	cfg, _, events, svc := setupCrisisEnv(t)
	cfg.Detection.ExcerptMaxChars = 20
	ctx := context.Background()

	long := "I feel hopeless about everything in my life right now and nothing helps"
	result, err := svc.Scan(ctx, long, "student-7", store.SourceJournal)
	if err != nil {
		t.Fatalf("scan: %v", err)
	}
	ev, err := events.GetEvent(ctx, result.EventID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got := len([]rune(ev.ContentExcerpt)); got != 20 {
		t.Fatalf("excerpt should be capped at 20 runes, got %d", got)
	}
}

func TestRespondContactedHelpResolvesStoredEvent(t *testing.T) {
	_, _, events, svc := setupCrisisEnv(t)
	ctx := context.Background()
	result, _ := svc.Scan(ctx, "I can't go on anymore", "student-7", store.SourceChat)

	ev, err := svc.Respond(ctx, result.EventID, store.ResponseContactedHelp)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if ev.UserResponse != store.ResponseContactedHelp || !ev.Resolved || ev.ResolvedAt == nil {
		t.Fatalf("unexpected event: %+v", ev)
	}

	// Resolved events never show up in the due query, even once overdue.
	due, err := events.ListPendingFollowUps(ctx, time.Now().UTC().Add(48*time.Hour), 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("resolved event must not be due: %+v", due)
	}
}

func TestFollowUpLifecycle(t *testing.T) {
	_, db, events, svc := setupCrisisEnv(t)
	ctx := context.Background()
	result, _ := svc.Scan(ctx, "I feel hopeless", "student-7", store.SourceMood)

	// Nothing is due before the scheduled time.
	due, err := events.ListPendingFollowUps(ctx, time.Now().UTC(), 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(due) != 0 {
		t.Fatalf("nothing should be due yet: %+v", due)
	}

	// Backdate the schedule to make the event due.
	past := time.Now().UTC().Add(-time.Hour)
	if _, err := db.ExecContext(ctx, db.Q(`UPDATE crisis_events SET follow_up_scheduled=? WHERE id=?`), past, result.EventID); err != nil {
		t.Fatalf("backdate: %v", err)
	}
	due, err = events.ListPendingFollowUps(ctx, time.Now().UTC(), 10)
	if err != nil {
		t.Fatalf("pending: %v", err)
	}
	if len(due) != 1 || due[0].ID != result.EventID {
		t.Fatalf("expected one due event: %+v", due)
	}

	// Help request reschedules instead of completing.
	ev, err := svc.CompleteFollowUp(ctx, result.EventID, store.FollowUpResponse{Mood: 3, Feeling: "still rough", NeedsHelp: true})
	if err != nil {
		t.Fatalf("follow-up: %v", err)
	}
	if ev.FollowUpCompleted || ev.Resolved {
		t.Fatalf("help request must keep the event open: %+v", ev)
	}
	if ev.FollowUpScheduled == nil || !ev.FollowUpScheduled.After(time.Now().UTC()) {
		t.Fatalf("follow-up should be rescheduled into the future: %+v", ev.FollowUpScheduled)
	}
	due, _ = events.ListPendingFollowUps(ctx, time.Now().UTC(), 10)
	if len(due) != 0 {
		t.Fatalf("rescheduled event is not due yet: %+v", due)
	}

	// A later good check-in resolves it.
	ev, err = svc.CompleteFollowUp(ctx, result.EventID, store.FollowUpResponse{Mood: 8, Feeling: "much better"})
	if err != nil {
		t.Fatalf("second follow-up: %v", err)
	}
	if !ev.FollowUpCompleted || !ev.Resolved || ev.ResolvedAt == nil {
		t.Fatalf("good check-in should resolve: %+v", ev)
	}
	if ev.FollowUpResponse == nil || ev.FollowUpResponse.Mood != 8 {
		t.Fatalf("latest follow-up response should be stored: %+v", ev.FollowUpResponse)
	}
}

func TestListEventsFilters(t *testing.T) {
	_, _, events, svc := setupCrisisEnv(t)
	ctx := context.Background()
	a, _ := svc.Scan(ctx, "I want to die", "student-1", store.SourceChat)
	b, _ := svc.Scan(ctx, "I feel hopeless", "student-2", store.SourceJournal)
	if _, err := svc.Respond(ctx, b.EventID, store.ResponseContactedHelp); err != nil {
		t.Fatalf("respond: %v", err)
	}

	bySeverity, err := events.ListEvents(ctx, store.CrisisEventFilter{Severity: store.SeverityCritical})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(bySeverity) != 1 || bySeverity[0].ID != a.EventID {
		t.Fatalf("severity filter: %+v", bySeverity)
	}

	open := false
	unresolved, err := events.ListEvents(ctx, store.CrisisEventFilter{Resolved: &open})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(unresolved) != 1 || unresolved[0].ID != a.EventID {
		t.Fatalf("resolved filter: %+v", unresolved)
	}

	byUser, err := events.ListEvents(ctx, store.CrisisEventFilter{UserID: "student-2"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(byUser) != 1 || byUser[0].ID != b.EventID {
		t.Fatalf("user filter: %+v", byUser)
	}
}

func TestAdminUpdateLeavesDetectionFieldsAlone(t *testing.T) {
	_, _, _, svc := setupCrisisEnv(t)
	ctx := context.Background()
	result, _ := svc.Scan(ctx, "I want to die", "student-1", store.SourceChat)

	escalated := store.InterventionCounselorNotified
	notes := "counselor paged, meeting tomorrow 9am"
	ev, err := svc.AdminUpdate(ctx, result.EventID, &escalated, &notes)
	if err != nil {
		t.Fatalf("admin update: %v", err)
	}
	if ev.InterventionTaken != escalated || ev.Notes != notes {
		t.Fatalf("admin fields not applied: %+v", ev)
	}
	if ev.Severity != store.SeverityCritical {
		t.Fatalf("severity must stay immutable: %s", ev.Severity)
	}
}
