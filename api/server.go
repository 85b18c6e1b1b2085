// Package api exposes the crisis and risk services over HTTP. Routes are
// guarded by API-key roles; end-user identity arrives in payloads from the
// collaborating platform services, never from this layer's auth.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"mindguard/api/handlers"
	"mindguard/config"
	"mindguard/core/crisis"
	"mindguard/core/rbac"
	"mindguard/core/risk"
	"mindguard/core/store"
	"mindguard/core/utils"
)

// BackgroundWorker is anything the composition root starts alongside the
// HTTP listener and stops during shutdown.
type BackgroundWorker interface {
	StartWithContext(ctx context.Context)
	StopWithContext(ctx context.Context) error
}

type Server struct {
	cfg       *config.AppConfig
	db        *store.DB
	crisisSvc *crisis.Service
	riskSvc   *risk.Service
	policy    *rbac.Policy
	logger    *utils.Logger
}

func NewServer(cfg *config.AppConfig, db *store.DB, crisisSvc *crisis.Service, riskSvc *risk.Service, policy *rbac.Policy, logger *utils.Logger) *Server {
	return &Server{cfg: cfg, db: db, crisisSvc: crisisSvc, riskSvc: riskSvc, policy: policy, logger: logger}
}

type routeHandlers struct {
	crisis *handlers.CrisisHandler
	risk   *handlers.RiskHandler
}

func (s *Server) newRouteHandlers() routeHandlers {
	return routeHandlers{
		crisis: handlers.NewCrisisHandler(s.crisisSvc, s.logger),
		risk:   handlers.NewRiskHandler(s.riskSvc, s.logger),
	}
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.recoverMiddleware, s.requestLogger)

	h := s.newRouteHandlers()

	r.Get("/api/health", s.handleHealth)

	r.Post("/api/crisis/scan", s.withRole(s.requirePermission(rbac.PermCrisisScan)(h.crisis.Scan)))
	r.Post("/api/crisis/events/{id}/respond", s.withRole(s.requirePermission(rbac.PermCrisisRespond)(h.crisis.Respond)))
	r.Post("/api/crisis/events/{id}/follow-up", s.withRole(s.requirePermission(rbac.PermCrisisRespond)(h.crisis.CompleteFollowUp)))
	r.Get("/api/crisis/events", s.withRole(s.requirePermission(rbac.PermCrisisRead)(h.crisis.List)))
	r.Get("/api/crisis/events/{id}", s.withRole(s.requirePermission(rbac.PermCrisisRead)(h.crisis.Get)))
	r.Patch("/api/crisis/events/{id}", s.withRole(s.requirePermission(rbac.PermCrisisManage)(h.crisis.AdminUpdate)))
	r.Get("/api/crisis/follow-ups/pending", s.withRole(s.requirePermission(rbac.PermCrisisRead)(h.crisis.PendingFollowUps)))

	r.Post("/api/risk/assess", s.withRole(s.requirePermission(rbac.PermRiskAssess)(h.risk.Assess)))
	r.Get("/api/risk/assessments", s.withRole(s.requirePermission(rbac.PermRiskRead)(h.risk.List)))

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()
	status := "ok"
	code := http.StatusOK
	if s.db != nil {
		if err := s.db.PingContext(ctx); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]any{"status": status, "time": time.Now().UTC()})
}
