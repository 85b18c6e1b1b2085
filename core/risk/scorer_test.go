package risk

import (
	"reflect"
	"testing"
	"time"

	"mindguard/core/history"
	"mindguard/core/store"
)

func baselineContext() *history.UserContext {
	return &history.UserContext{
		MoodData: history.MoodData{AverageMood: 5, Trend: history.TrendStable, Volatility: 1},
		AssessmentData: history.AssessmentData{
			LatestScores: map[string]history.AssessmentRecord{},
			Trends:       map[string]string{},
		},
		ChatData:     history.ChatData{TotalMessages: 20},
		ActivityData: history.ActivityData{TotalActivities: 10, Consistency: "moderate"},
		Metadata:     history.Metadata{EngagementScore: 100},
	}
}

func TestScoreStackedIndicators(t *testing.T) {
	scorer := NewScorer(nil)
	uc := baselineContext()
	uc.MoodData.AverageMood = 2.1
	uc.MoodData.Volatility = 2.4
	uc.AssessmentData.LatestScores["phq9"] = history.AssessmentRecord{Instrument: "phq9", Score: 20}
	uc.AssessmentData.LatestScores["gad7"] = history.AssessmentRecord{Instrument: "gad7", Score: 17}
	uc.Metadata.EngagementScore = 12
	uc.ChatData.TotalMessages = 3
	uc.ActivityData.TotalActivities = 1

	a := scorer.Score("user-1", uc, time.Now().UTC())
	// 15 + 10 + 30 + 25 + 15 + 15
	if a.Score != 110 {
		t.Fatalf("expected score 110, got %d", a.Score)
	}
	if a.Level != store.RiskCritical {
		t.Fatalf("expected critical, got %s", a.Level)
	}
	if !a.RequiresIntervention {
		t.Fatalf("critical level must require intervention")
	}
	if len(a.Indicators) != 6 {
		t.Fatalf("expected 6 indicators, got %d", len(a.Indicators))
	}
	if a.Recommendations[0] == "" || len(a.Recommendations) < 4 {
		t.Fatalf("expected crisis-line and general recommendations, got %v", a.Recommendations)
	}
}

func TestScoreDepressionBandsAreExclusive(t *testing.T) {
	scorer := NewScorer(nil)
	uc := baselineContext()
	uc.AssessmentData.LatestScores["phq9"] = history.AssessmentRecord{Instrument: "phq9", Score: 12}

	a := scorer.Score("user-1", uc, time.Now().UTC())
	if a.Score != 20 {
		t.Fatalf("moderate band alone should score 20, got %d", a.Score)
	}
	if a.Level != store.RiskLow {
		t.Fatalf("expected low, got %s", a.Level)
	}
	if a.RequiresIntervention {
		t.Fatalf("low level must not require intervention")
	}
	for _, ind := range a.Indicators {
		if ind.Type == "severe-depression" {
			t.Fatalf("severe band must not fire at phq9=12")
		}
	}
}

func TestScoreNegativeJournals(t *testing.T) {
	scorer := NewScorer(nil)
	uc := baselineContext()
	for i := 0; i < 6; i++ {
		uc.JournalData.Entries = append(uc.JournalData.Entries, history.JournalEntry{
			Content: "everything is awful and I feel worthless",
		})
	}
	uc.JournalData.TotalEntries = len(uc.JournalData.Entries)

	a := scorer.Score("user-1", uc, time.Now().UTC())
	if a.Score != 25 {
		t.Fatalf("expected 25 from persistent negative thoughts, got %d", a.Score)
	}
}

func TestScoreNegativeJournalsBelowThreshold(t *testing.T) {
	scorer := NewScorer(nil)
	uc := baselineContext()
	for i := 0; i < 5; i++ {
		uc.JournalData.Entries = append(uc.JournalData.Entries, history.JournalEntry{
			Content: "everything is awful and I feel worthless",
		})
	}

	a := scorer.Score("user-1", uc, time.Now().UTC())
	if a.Score != 0 {
		t.Fatalf("five negative entries must not fire the indicator, got %d", a.Score)
	}
	if a.Level != store.RiskNone {
		t.Fatalf("expected none, got %s", a.Level)
	}
}

func TestScoreQuietContextScoresZero(t *testing.T) {
	scorer := NewScorer(nil)
	a := scorer.Score("user-1", baselineContext(), time.Now().UTC())
	if a.Score != 0 || a.Level != store.RiskNone {
		t.Fatalf("baseline context should be risk-free, got score=%d level=%s", a.Score, a.Level)
	}
	if a.RequiresIntervention {
		t.Fatalf("risk-free context must not require intervention")
	}
	if len(a.Recommendations) == 0 {
		t.Fatalf("general recommendations should always be present")
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	scorer := NewScorer(nil)
	uc := baselineContext()
	uc.MoodData.AverageMood = 2.5
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	a := scorer.Score("user-1", uc, now)
	b := scorer.Score("user-1", uc, now)
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("identical input must yield identical assessments:\n%+v\n%+v", a, b)
	}
}
