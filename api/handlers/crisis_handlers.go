package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"mindguard/core/crisis"
	"mindguard/core/store"
	"mindguard/core/utils"
)

type CrisisHandler struct {
	svc    *crisis.Service
	logger *utils.Logger
}

func NewCrisisHandler(svc *crisis.Service, logger *utils.Logger) *CrisisHandler {
	return &CrisisHandler{svc: svc, logger: logger}
}

type scanRequest struct {
	Text   string `json:"text"`
	UserID string `json:"userId"`
	Source string `json:"source"`
}

type scanResponse struct {
	IsCrisis       bool     `json:"isCrisis"`
	Severity       string   `json:"severity,omitempty"`
	Keywords       []string `json:"keywords,omitempty"`
	SentimentScore float64  `json:"sentimentScore"`
	CrisisEventID  string   `json:"crisisEventId,omitempty"`
	Message        string   `json:"message,omitempty"`
	Recorded       bool     `json:"recorded"`
}

// Scan runs detection over a single message and opens a crisis event when it
// qualifies. A storage failure downgrades recorded, never the detection.
func (h *CrisisHandler) Scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.UserID) == "" {
		writeErrorJSON(w, http.StatusBadRequest, "userId is required")
		return
	}
	source := store.SourceChat
	if strings.TrimSpace(req.Source) != "" {
		parsed, err := store.ParseDetectionSource(req.Source)
		if err != nil {
			writeErrorJSON(w, http.StatusBadRequest, "unknown source")
			return
		}
		source = parsed
	}
	result, err := h.svc.Scan(r.Context(), req.Text, req.UserID, source)
	if err != nil {
		if errors.Is(err, crisis.ErrEmptyText) {
			writeErrorJSON(w, http.StatusBadRequest, "text is required")
			return
		}
		writeStoreError(w, err)
		return
	}
	resp := scanResponse{
		IsCrisis:       result.IsCrisis,
		SentimentScore: result.SentimentScore,
		Recorded:       result.Recorded,
	}
	if result.IsCrisis {
		resp.Severity = string(result.Severity)
		resp.Keywords = result.Keywords
		resp.CrisisEventID = result.EventID
		resp.Message = result.Message
	}
	writeJSON(w, http.StatusOK, resp)
}

type respondRequest struct {
	Response string `json:"response"`
}

func (h *CrisisHandler) Respond(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	var req respondRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	response, err := store.ParseUserResponse(req.Response)
	if err != nil || response == store.ResponseNone {
		writeErrorJSON(w, http.StatusBadRequest, "unknown response")
		return
	}
	ev, err := h.svc.Respond(r.Context(), id, response)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

type followUpRequest struct {
	Mood      int    `json:"mood"`
	Feeling   string `json:"feeling"`
	NeedsHelp bool   `json:"needsHelp"`
	Notes     string `json:"notes"`
}

func (h *CrisisHandler) CompleteFollowUp(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	var req followUpRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ev, err := h.svc.CompleteFollowUp(r.Context(), id, store.FollowUpResponse{
		Mood:      req.Mood,
		Feeling:   req.Feeling,
		NeedsHelp: req.NeedsHelp,
		Notes:     req.Notes,
	})
	if err != nil {
		if errors.Is(err, crisis.ErrInvalidMood) {
			writeErrorJSON(w, http.StatusBadRequest, err.Error())
			return
		}
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (h *CrisisHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := store.CrisisEventFilter{
		UserID:   strings.TrimSpace(q.Get("userId")),
		Resolved: parseBoolParam(q.Get("resolved")),
		Limit:    parseIntDefault(q.Get("limit"), 50),
		Offset:   parseIntDefault(q.Get("offset"), 0),
	}
	if raw := strings.TrimSpace(q.Get("severity")); raw != "" {
		sev, err := store.ParseSeverity(raw)
		if err != nil {
			writeErrorJSON(w, http.StatusBadRequest, "unknown severity")
			return
		}
		filter.Severity = sev
	}
	items, err := h.svc.List(r.Context(), filter)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *CrisisHandler) Get(w http.ResponseWriter, r *http.Request) {
	ev, err := h.svc.Get(r.Context(), urlParam(r, "id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

type adminUpdateRequest struct {
	InterventionTaken *string `json:"interventionTaken"`
	Notes             *string `json:"notes"`
}

// AdminUpdate records counselor actions on an open event. Severity is not
// part of the payload on purpose.
func (h *CrisisHandler) AdminUpdate(w http.ResponseWriter, r *http.Request) {
	id := urlParam(r, "id")
	var req adminUpdateRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.InterventionTaken == nil && req.Notes == nil {
		writeErrorJSON(w, http.StatusBadRequest, "nothing to update")
		return
	}
	var intervention *store.Intervention
	if req.InterventionTaken != nil {
		parsed, err := store.ParseIntervention(*req.InterventionTaken)
		if err != nil {
			writeErrorJSON(w, http.StatusBadRequest, "unknown intervention")
			return
		}
		intervention = &parsed
	}
	ev, err := h.svc.AdminUpdate(r.Context(), id, intervention, req.Notes)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ev)
}

func (h *CrisisHandler) PendingFollowUps(w http.ResponseWriter, r *http.Request) {
	limit := parseIntDefault(r.URL.Query().Get("limit"), 100)
	items, err := h.svc.PendingFollowUps(r.Context(), time.Now().UTC(), limit)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}
