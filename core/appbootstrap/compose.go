package appbootstrap

import (
	"mindguard/api"
	"mindguard/config"
	"mindguard/core/crisis"
	"mindguard/core/detect"
	"mindguard/core/history"
	"mindguard/core/notify"
	"mindguard/core/rbac"
	"mindguard/core/risk"
	"mindguard/core/store"
	"mindguard/core/utils"
)

type runtimeComposition struct {
	server  *api.Server
	workers []api.BackgroundWorker
}

func composeRuntime(cfg *config.AppConfig, db *store.DB, logger *utils.Logger) (*runtimeComposition, error) {
	events := store.NewCrisisEventsStore(db)
	assessments := store.NewAssessmentsStore(db)
	historyStore := store.NewHistoryStore(db)

	scanner := detect.NewScanner(detect.DefaultLexicon())
	crisisSvc := crisis.NewService(events, scanner, cfg, logger)

	aggregator := history.NewAggregator(historyStore.Sources(), logger)
	riskSvc := risk.NewService(aggregator, risk.NewScorer(scanner), assessments, logger)

	policy, err := rbac.NewPolicy()
	if err != nil {
		return nil, err
	}

	var sender notify.Sender = notify.NopSender{}
	if cfg.Notifier.Enabled {
		sender = notify.NewHTTPWebhookSender(cfg.Notifier)
	}
	scheduler := crisis.NewFollowUpScheduler(cfg.Scheduler, crisisSvc, sender, logger)

	return &runtimeComposition{
		server:  api.NewServer(cfg, db, crisisSvc, riskSvc, policy, logger),
		workers: []api.BackgroundWorker{scheduler},
	}, nil
}
