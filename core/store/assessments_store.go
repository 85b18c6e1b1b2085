package store

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
)

// RiskAssessment is a point-in-time composite risk record. Created once,
// never mutated; the table is an append-only audit trail.
type RiskAssessment struct {
	ID                   string          `json:"id"`
	UserID               string          `json:"userId"`
	Type                 string          `json:"type"`
	Level                RiskLevel       `json:"level"`
	Score                int             `json:"score"`
	Indicators           []RiskIndicator `json:"indicators"`
	Recommendations      []string        `json:"recommendations"`
	RequiresIntervention bool            `json:"requiresIntervention"`
	SourceCounts         SourceCounts    `json:"sourceData"`
	DataRange            DataRange       `json:"dataRange"`
	AnalyzedAt           time.Time       `json:"analyzedAt"`
}

type RiskIndicator struct {
	Type     string    `json:"type"`
	Severity string    `json:"severity"`
	Detected time.Time `json:"detected"`
}

// SourceCounts snapshots how many records of each kind fed the assessment.
type SourceCounts struct {
	MoodEntries    int `json:"moodEntries"`
	JournalEntries int `json:"journalEntries"`
	Assessments    int `json:"assessments"`
	ChatMessages   int `json:"chatMessages"`
	Goals          int `json:"goals"`
	Activities     int `json:"activities"`
}

type DataRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type AssessmentFilter struct {
	UserID string
	Limit  int
}

type AssessmentsStore interface {
	CreateAssessment(ctx context.Context, a *RiskAssessment) error
	ListAssessments(ctx context.Context, filter AssessmentFilter) ([]RiskAssessment, error)
}

type assessmentsStore struct {
	db *DB
}

func NewAssessmentsStore(db *DB) AssessmentsStore {
	return &assessmentsStore{db: db}
}

func (s *assessmentsStore) CreateAssessment(ctx context.Context, a *RiskAssessment) error {
	if a == nil {
		return errors.New("nil assessment")
	}
	if strings.TrimSpace(a.ID) == "" {
		id, err := uuid.NewV4()
		if err != nil {
			return err
		}
		a.ID = id.String()
	}
	if a.Type == "" {
		a.Type = "crisis-risk"
	}
	if a.AnalyzedAt.IsZero() {
		a.AnalyzedAt = time.Now().UTC()
	}
	indicators, err := json.Marshal(a.Indicators)
	if err != nil {
		return err
	}
	recommendations, err := json.Marshal(a.Recommendations)
	if err != nil {
		return err
	}
	counts, err := json.Marshal(a.SourceCounts)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, s.db.Q(`
		INSERT INTO risk_assessments(id, user_id, assessment_type, level, score, indicators, recommendations,
			requires_intervention, source_counts, range_start, range_end, analyzed_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?)`),
		a.ID, a.UserID, a.Type, string(a.Level), a.Score, string(indicators), string(recommendations),
		a.RequiresIntervention, string(counts), a.DataRange.Start.UTC(), a.DataRange.End.UTC(), a.AnalyzedAt.UTC())
	return err
}

func (s *assessmentsStore) ListAssessments(ctx context.Context, filter AssessmentFilter) ([]RiskAssessment, error) {
	query := `
		SELECT id, user_id, assessment_type, level, score, indicators, recommendations,
			requires_intervention, source_counts, range_start, range_end, analyzed_at
		FROM risk_assessments`
	var args []any
	if strings.TrimSpace(filter.UserID) != "" {
		query += " WHERE user_id=?"
		args = append(args, filter.UserID)
	}
	query += " ORDER BY analyzed_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	rows, err := s.db.QueryContext(ctx, s.db.Q(query), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []RiskAssessment
	for rows.Next() {
		var a RiskAssessment
		var level, indicatorsJSON, recsJSON, countsJSON string
		if err := rows.Scan(&a.ID, &a.UserID, &a.Type, &level, &a.Score, &indicatorsJSON, &recsJSON,
			&a.RequiresIntervention, &countsJSON, &a.DataRange.Start, &a.DataRange.End, &a.AnalyzedAt); err != nil {
			return nil, err
		}
		a.Level = RiskLevel(level)
		_ = json.Unmarshal([]byte(indicatorsJSON), &a.Indicators)
		_ = json.Unmarshal([]byte(recsJSON), &a.Recommendations)
		_ = json.Unmarshal([]byte(countsJSON), &a.SourceCounts)
		a.DataRange.Start = a.DataRange.Start.UTC()
		a.DataRange.End = a.DataRange.End.UTC()
		a.AnalyzedAt = a.AnalyzedAt.UTC()
		out = append(out, a)
	}
	return out, rows.Err()
}
