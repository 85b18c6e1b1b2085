package history

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"mindguard/core/utils"
)

const (
	TrendImproving = "improving"
	TrendStable    = "stable"
	TrendDeclining = "declining"
	TrendWorsening = "worsening"
)

// Instruments the platform administers. Lower scores are better on all four.
var Instruments = []string{"phq9", "gad7", "stress", "burnout"}

const (
	defaultWindowDays = 30
	readLimit         = 200
	trendWindow       = 7
	themeLimit        = 5
	topicLimit        = 5
)

// UserContext is the in-memory aggregate over one user's trailing window.
// Built fresh per request; owned exclusively by the caller.
type UserContext struct {
	MoodData       MoodData       `json:"moodData"`
	JournalData    JournalData    `json:"journalData"`
	AssessmentData AssessmentData `json:"assessmentData"`
	ChatData       ChatData       `json:"chatData"`
	GoalsData      GoalsData      `json:"goalsData"`
	ActivityData   ActivityData   `json:"activityData"`
	Metadata       Metadata       `json:"metadata"`
}

type MoodData struct {
	Entries     []MoodEntry `json:"entries"`
	AverageMood float64     `json:"averageMood"`
	Trend       string      `json:"trend"`
	Volatility  float64     `json:"volatility"`
}

type JournalData struct {
	Entries      []JournalEntry `json:"entries"`
	TotalEntries int            `json:"totalEntries"`
	Themes       []string       `json:"themes"`
}

type AssessmentData struct {
	Records      []AssessmentRecord          `json:"records"`
	LatestScores map[string]AssessmentRecord `json:"latestScores"`
	Trends       map[string]string           `json:"trends"`
}

type ChatData struct {
	Messages      []ChatMessage `json:"messages"`
	TotalMessages int           `json:"totalMessages"`
	RecentTopics  []string      `json:"recentTopics"`
}

type GoalsData struct {
	ActiveGoals    int     `json:"activeGoals"`
	TotalGoals     int     `json:"totalGoals"`
	CompletedGoals int     `json:"completedGoals"`
	CompletionRate float64 `json:"completionRate"`
}

type ActivityData struct {
	TotalActivities int    `json:"totalActivities"`
	Consistency     string `json:"consistency"`
}

type Metadata struct {
	DataRange       DataRange `json:"dataRange"`
	TotalDataPoints int       `json:"totalDataPoints"`
	EngagementScore int       `json:"engagementScore"`
}

type DataRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type Aggregator struct {
	sources Sources
	logger  *utils.Logger
}

func NewAggregator(sources Sources, logger *utils.Logger) *Aggregator {
	return &Aggregator{sources: sources, logger: logger}
}

// BuildUserContext fans out one bounded read per source for the trailing
// days-long window and joins the results. Any failed read aborts the whole
// build; no partial context is fabricated.
func (a *Aggregator) BuildUserContext(ctx context.Context, userID string, days int) (*UserContext, error) {
	if days <= 0 {
		days = defaultWindowDays
	}
	end := time.Now().UTC()
	start := end.AddDate(0, 0, -days)

	var (
		moods       []MoodEntry
		journals    []JournalEntry
		assessments []AssessmentRecord
		chats       []ChatMessage
		goals       []Goal
		activities  []Activity
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if moods, err = a.sources.Mood.ListMoodEntries(gctx, userID, start, readLimit); err != nil {
			return fmt.Errorf("mood entries: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if journals, err = a.sources.Journal.ListJournalEntries(gctx, userID, start, readLimit); err != nil {
			return fmt.Errorf("journal entries: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if assessments, err = a.sources.Assessment.ListAssessmentRecords(gctx, userID, start, readLimit); err != nil {
			return fmt.Errorf("assessment records: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if chats, err = a.sources.Chat.ListChatMessages(gctx, userID, start, readLimit); err != nil {
			return fmt.Errorf("chat messages: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if goals, err = a.sources.Goal.ListGoals(gctx, userID, start, readLimit); err != nil {
			return fmt.Errorf("goals: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		if activities, err = a.sources.Activity.ListActivities(gctx, userID, start, readLimit); err != nil {
			return fmt.Errorf("activities: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("build user context for %s: %w", userID, err)
	}

	uc := &UserContext{
		MoodData: MoodData{
			Entries:     moods,
			AverageMood: averageMood(moods),
			Trend:       moodTrend(moods),
			Volatility:  moodVolatility(moods),
		},
		JournalData: JournalData{
			Entries:      journals,
			TotalEntries: len(journals),
			Themes:       journalThemes(journals),
		},
		AssessmentData: assessmentData(assessments),
		ChatData: ChatData{
			Messages:      chats,
			TotalMessages: len(chats),
			RecentTopics:  chatTopics(chats),
		},
		GoalsData:    goalsData(goals),
		ActivityData: activityData(activities),
	}
	uc.Metadata = Metadata{
		DataRange:       DataRange{Start: start, End: end},
		TotalDataPoints: len(moods) + len(journals) + len(assessments) + len(chats) + len(goals) + len(activities),
		EngagementScore: engagementScore(len(moods), len(journals), len(chats), len(activities)),
	}
	if a.logger != nil {
		a.logger.Debug("user context built",
			"user_id", userID,
			"days", days,
			"data_points", uc.Metadata.TotalDataPoints,
			"engagement", uc.Metadata.EngagementScore)
	}
	return uc, nil
}

func averageMood(entries []MoodEntry) float64 {
	if len(entries) == 0 {
		return 5
	}
	sum := 0
	for _, e := range entries {
		sum += e.Mood
	}
	return float64(sum) / float64(len(entries))
}

// moodTrend compares the most-recent window against the one before it.
// Entries arrive most-recent first.
func moodTrend(entries []MoodEntry) string {
	if len(entries) <= trendWindow {
		return TrendStable
	}
	recent := entries[:trendWindow]
	prevEnd := 2 * trendWindow
	if prevEnd > len(entries) {
		prevEnd = len(entries)
	}
	previous := entries[trendWindow:prevEnd]
	diff := averageMood(recent) - averageMood(previous)
	switch {
	case diff > 0.5:
		return TrendImproving
	case diff < -0.5:
		return TrendDeclining
	default:
		return TrendStable
	}
}

// moodVolatility is the population standard deviation of the mood scores.
func moodVolatility(entries []MoodEntry) float64 {
	if len(entries) < 2 {
		return 0
	}
	mean := averageMood(entries)
	var sum float64
	for _, e := range entries {
		d := float64(e.Mood) - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(entries)))
}

func journalThemes(entries []JournalEntry) []string {
	counts := map[string]int{}
	for _, e := range entries {
		for _, tag := range e.Tags {
			if tag != "" {
				counts[tag]++
			}
		}
	}
	return topByCount(counts, themeLimit)
}

func chatTopics(messages []ChatMessage) []string {
	counts := map[string]int{}
	for _, m := range messages {
		if m.Topic != "" {
			counts[m.Topic]++
		}
	}
	return topByCount(counts, topicLimit)
}

// topByCount returns the most frequent labels, ties broken alphabetically so
// the result is deterministic.
func topByCount(counts map[string]int, limit int) []string {
	labels := make([]string, 0, len(counts))
	for label := range counts {
		labels = append(labels, label)
	}
	sort.Slice(labels, func(i, j int) bool {
		if counts[labels[i]] != counts[labels[j]] {
			return counts[labels[i]] > counts[labels[j]]
		}
		return labels[i] < labels[j]
	})
	if len(labels) > limit {
		labels = labels[:limit]
	}
	return labels
}

func assessmentData(records []AssessmentRecord) AssessmentData {
	out := AssessmentData{
		Records:      records,
		LatestScores: map[string]AssessmentRecord{},
		Trends:       map[string]string{},
	}
	byInstrument := map[string][]AssessmentRecord{}
	for _, r := range records {
		byInstrument[r.Instrument] = append(byInstrument[r.Instrument], r)
	}
	for _, instrument := range Instruments {
		recs := byInstrument[instrument]
		if len(recs) == 0 {
			continue
		}
		sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt.After(recs[j].CreatedAt) })
		out.LatestScores[instrument] = recs[0]
		out.Trends[instrument] = assessmentTrend(recs)
	}
	return out
}

// assessmentTrend compares the latest record against the oldest of the last
// five. Lower is better on every instrument.
func assessmentTrend(recs []AssessmentRecord) string {
	if len(recs) < 2 {
		return TrendStable
	}
	window := recs
	if len(window) > 5 {
		window = window[:5]
	}
	latest := window[0].Score
	oldest := window[len(window)-1].Score
	switch {
	case latest < oldest:
		return TrendImproving
	case latest > oldest:
		return TrendWorsening
	default:
		return TrendStable
	}
}

func goalsData(goals []Goal) GoalsData {
	out := GoalsData{TotalGoals: len(goals)}
	for _, g := range goals {
		if g.Completed {
			out.CompletedGoals++
		} else {
			out.ActiveGoals++
		}
	}
	if out.TotalGoals > 0 {
		out.CompletionRate = float64(out.CompletedGoals) / float64(out.TotalGoals) * 100
	}
	return out
}

func activityData(activities []Activity) ActivityData {
	days := map[string]struct{}{}
	for _, a := range activities {
		days[a.CreatedAt.UTC().Format("2006-01-02")] = struct{}{}
	}
	consistency := "low"
	switch {
	case len(days) >= 20:
		consistency = "high"
	case len(days) >= 10:
		consistency = "moderate"
	}
	return ActivityData{TotalActivities: len(activities), Consistency: consistency}
}

// engagementScore weights reflective behaviors (journaling, mood logging)
// above passive ones.
func engagementScore(moodCount, journalCount, chatCount, activityCount int) int {
	return 2*moodCount + 5*journalCount + 1*chatCount + 3*activityCount
}
