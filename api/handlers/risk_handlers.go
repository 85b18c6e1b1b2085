package handlers

import (
	"net/http"
	"strings"

	"mindguard/core/risk"
	"mindguard/core/store"
	"mindguard/core/utils"
)

type RiskHandler struct {
	svc    *risk.Service
	logger *utils.Logger
}

func NewRiskHandler(svc *risk.Service, logger *utils.Logger) *RiskHandler {
	return &RiskHandler{svc: svc, logger: logger}
}

type assessRequest struct {
	UserID string `json:"userId"`
	Days   int    `json:"days"`
}

type assessResponse struct {
	*store.RiskAssessment
	Recorded bool `json:"recorded"`
}

// Assess builds the user's cross-source context and scores it. The handler
// refuses to answer from partial data: any source read failure is a 502, not
// a low-confidence score.
func (h *RiskHandler) Assess(w http.ResponseWriter, r *http.Request) {
	var req assessRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeErrorJSON(w, http.StatusBadRequest, "userId is required")
		return
	}
	assessment, recorded, err := h.svc.AssessCrisisRisk(r.Context(), req.UserID, req.Days)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("risk assessment", "user_id", req.UserID, "err", err)
		}
		writeErrorJSON(w, http.StatusBadGateway, "user context unavailable")
		return
	}
	writeJSON(w, http.StatusOK, assessResponse{RiskAssessment: assessment, Recorded: recorded})
}

func (h *RiskHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.AssessmentFilter{
		UserID: strings.TrimSpace(q.Get("userId")),
		Limit:  parseIntDefault(q.Get("limit"), 50),
	}
	items, err := h.svc.ListAssessments(r.Context(), filter)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
