package risk

import (
	"context"
	"time"

	"mindguard/core/history"
	"mindguard/core/store"
	"mindguard/core/utils"
)

type Service struct {
	aggregator  *history.Aggregator
	scorer      *Scorer
	assessments store.AssessmentsStore
	logger      *utils.Logger
}

func NewService(aggregator *history.Aggregator, scorer *Scorer, assessments store.AssessmentsStore, logger *utils.Logger) *Service {
	return &Service{aggregator: aggregator, scorer: scorer, assessments: assessments, logger: logger}
}

// AssessCrisisRisk builds the user's context, scores it and appends the
// assessment to the audit trail. A failed source read aborts the whole call —
// scoring partial data would understate risk. A failed persist does not: the
// computed assessment is still returned with recorded=false so the caller can
// retry persistence without recomputation.
func (s *Service) AssessCrisisRisk(ctx context.Context, userID string, days int) (*store.RiskAssessment, bool, error) {
	uc, err := s.aggregator.BuildUserContext(ctx, userID, days)
	if err != nil {
		return nil, false, err
	}
	assessment := s.scorer.Score(userID, uc, time.Now().UTC())
	recorded := true
	if err := s.assessments.CreateAssessment(ctx, assessment); err != nil {
		recorded = false
		if s.logger != nil {
			s.logger.Error("persist risk assessment", "user_id", userID, "err", err)
		}
	}
	if s.logger != nil {
		s.logger.Info("risk assessed",
			"user_id", userID,
			"score", assessment.Score,
			"level", assessment.Level,
			"requires_intervention", assessment.RequiresIntervention,
			"recorded", recorded)
	}
	return assessment, recorded, nil
}

func (s *Service) ListAssessments(ctx context.Context, filter store.AssessmentFilter) ([]store.RiskAssessment, error) {
	return s.assessments.ListAssessments(ctx, filter)
}
