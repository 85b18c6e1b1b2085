// Package risk turns an aggregated user context into a graded crisis-risk
// assessment.
package risk

import (
	"time"

	"mindguard/core/detect"
	"mindguard/core/history"
	"mindguard/core/store"
)

// Indicator weights. Additive except the PHQ-9 bands, which are mutually
// exclusive. The sum is deliberately unclamped; stacking indicators past 100
// still orders users correctly by risk.
const (
	pointsLowMood           = 15
	pointsMoodVolatility    = 10
	pointsSevereDepression  = 30
	pointsModerateDeprn     = 20
	pointsSevereAnxiety     = 25
	pointsNegativeThoughts  = 25
	pointsLowEngagement     = 15
	pointsSocialWithdrawal  = 15
	lowMoodFloor            = 3.0
	volatilityCeiling       = 2.0
	phq9SevereFloor         = 15
	phq9ModerateFloor       = 10
	gad7SevereFloor         = 15
	journalScanWindow       = 10
	negativeJournalMinCount = 5
	veryNegativeSentiment   = -0.3
	lowEngagementFloor      = 30
	withdrawalActivityMax   = 5
	withdrawalChatMax       = 10
)

// Level thresholds over the indicator sum.
const (
	levelCriticalFloor = 70
	levelHighFloor     = 50
	levelModerateFloor = 30
	levelLowFloor      = 15
)

type Scorer struct {
	scanner *detect.Scanner
}

func NewScorer(scanner *detect.Scanner) *Scorer {
	if scanner == nil {
		scanner = detect.NewScanner(nil)
	}
	return &Scorer{scanner: scanner}
}

// Score grades one user context. Pure: identical context and timestamp yield
// an identical assessment.
func (s *Scorer) Score(userID string, uc *history.UserContext, now time.Time) *store.RiskAssessment {
	now = now.UTC()
	var indicators []store.RiskIndicator
	score := 0
	add := func(points int, indicatorType, severity string) {
		score += points
		indicators = append(indicators, store.RiskIndicator{
			Type:     indicatorType,
			Severity: severity,
			Detected: now,
		})
	}

	if uc.MoodData.AverageMood < lowMoodFloor {
		add(pointsLowMood, "low-mood", "moderate")
	}
	if uc.MoodData.Volatility > volatilityCeiling {
		add(pointsMoodVolatility, "mood-volatility", "moderate")
	}
	if phq9, ok := uc.AssessmentData.LatestScores["phq9"]; ok {
		if phq9.Score > phq9SevereFloor {
			add(pointsSevereDepression, "severe-depression", "high")
		} else if phq9.Score > phq9ModerateFloor {
			add(pointsModerateDeprn, "moderate-depression", "moderate")
		}
	}
	if gad7, ok := uc.AssessmentData.LatestScores["gad7"]; ok && gad7.Score > gad7SevereFloor {
		add(pointsSevereAnxiety, "severe-anxiety", "high")
	}
	if s.negativeJournalCount(uc.JournalData.Entries) > negativeJournalMinCount {
		add(pointsNegativeThoughts, "persistent-negative-thoughts", "high")
	}
	if uc.Metadata.EngagementScore < lowEngagementFloor {
		add(pointsLowEngagement, "low-engagement", "low")
	}
	if uc.ActivityData.TotalActivities < withdrawalActivityMax && uc.ChatData.TotalMessages < withdrawalChatMax {
		add(pointsSocialWithdrawal, "social-withdrawal", "moderate")
	}

	level := levelFor(score)
	return &store.RiskAssessment{
		UserID:               userID,
		Type:                 "crisis-risk",
		Level:                level,
		Score:                score,
		Indicators:           indicators,
		Recommendations:      recommendations(level, indicators),
		RequiresIntervention: level == store.RiskHigh || level == store.RiskCritical,
		SourceCounts: store.SourceCounts{
			MoodEntries:    len(uc.MoodData.Entries),
			JournalEntries: uc.JournalData.TotalEntries,
			Assessments:    len(uc.AssessmentData.Records),
			ChatMessages:   uc.ChatData.TotalMessages,
			Goals:          uc.GoalsData.TotalGoals,
			Activities:     uc.ActivityData.TotalActivities,
		},
		DataRange: store.DataRange{
			Start: uc.Metadata.DataRange.Start,
			End:   uc.Metadata.DataRange.End,
		},
		AnalyzedAt: now,
	}
}

// negativeJournalCount grades the most recent journal entries: an entry
// counts when its lexical sentiment is very negative or it contains
// crisis-tier phrases.
func (s *Scorer) negativeJournalCount(entries []history.JournalEntry) int {
	if len(entries) > journalScanWindow {
		entries = entries[:journalScanWindow]
	}
	count := 0
	for _, e := range entries {
		if s.scanner.Sentiment(e.Content) < veryNegativeSentiment || s.scanner.HasCrisisIndicators(e.Content) {
			count++
		}
	}
	return count
}

func levelFor(score int) store.RiskLevel {
	switch {
	case score >= levelCriticalFloor:
		return store.RiskCritical
	case score >= levelHighFloor:
		return store.RiskHigh
	case score >= levelModerateFloor:
		return store.RiskModerate
	case score >= levelLowFloor:
		return store.RiskLow
	default:
		return store.RiskNone
	}
}

func recommendations(level store.RiskLevel, indicators []store.RiskIndicator) []string {
	var out []string
	if level == store.RiskHigh || level == store.RiskCritical {
		out = append(out,
			"Contact the 988 Suicide & Crisis Lifeline (call or text 988) if you are in immediate distress",
			"Schedule an appointment with a mental health professional as soon as possible")
	}
	for _, ind := range indicators {
		switch ind.Type {
		case "severe-depression", "moderate-depression":
			out = append(out, "Your recent screening suggests depressive symptoms; a counselor can help you work through them")
		case "social-withdrawal":
			out = append(out, "Reconnecting with one trusted person this week can ease isolation")
		}
	}
	out = append(out,
		"Keep logging your mood daily so changes are caught early",
		"A short journal entry each evening helps track how you're really doing")
	return out
}
