package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"mindguard/api"
	"mindguard/config"
	"mindguard/core/crisis"
	"mindguard/core/detect"
	"mindguard/core/history"
	"mindguard/core/rbac"
	"mindguard/core/risk"
	"mindguard/core/store"
	"mindguard/core/utils"
)

const (
	serviceKey = "svc-key-1"
	adminKey   = "adm-key-1"
)

func setupAPIEnv(t *testing.T) *httptest.Server {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.AppConfig{
		DBDriver: "sqlite",
		DBPath:   filepath.Join(dir, "mindguard.db"),
		APIKeys: []config.APIKeyConfig{
			{Key: serviceKey, Role: rbac.RoleService},
			{Key: adminKey, Role: rbac.RoleAdmin},
		},
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

	scanner := detect.NewScanner(nil)
	crisisSvc := crisis.NewService(store.NewCrisisEventsStore(db), scanner, cfg, logger)
	aggregator := history.NewAggregator(store.NewHistoryStore(db).Sources(), logger)
	riskSvc := risk.NewService(aggregator, risk.NewScorer(scanner), store.NewAssessmentsStore(db), logger)
	policy, err := rbac.NewPolicy()
	if err != nil {
		t.Fatalf("policy: %v", err)
	}

	srv := httptest.NewServer(api.NewServer(cfg, db, crisisSvc, riskSvc, policy, logger).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, srv *httptest.Server, method, path, key string, body any) (*http.Response, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req, err := http.NewRequest(method, srv.URL+path, &buf)
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	defer resp.Body.Close()
	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestHealthIsPublic(t *testing.T) {
	srv := setupAPIEnv(t)
	resp, body := doJSON(t, srv, http.MethodGet, "/api/health", "", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["status"] != "ok" {
		t.Fatalf("unexpected health body: %v", body)
	}
}

func TestMissingKeyIsUnauthorized(t *testing.T) {
	srv := setupAPIEnv(t)
	resp, _ := doJSON(t, srv, http.MethodPost, "/api/crisis/scan", "", map[string]any{"text": "hi", "userId": "u1"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, srv, http.MethodPost, "/api/crisis/scan", "wrong-key", map[string]any{"text": "hi", "userId": "u1"})
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown key, got %d", resp.StatusCode)
	}
}

func TestServiceRoleCannotReadEvents(t *testing.T) {
	srv := setupAPIEnv(t)
	resp, _ := doJSON(t, srv, http.MethodGet, "/api/crisis/events", serviceKey, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestScanAndReadRoundtrip(t *testing.T) {
	srv := setupAPIEnv(t)

	resp, body := doJSON(t, srv, http.MethodPost, "/api/crisis/scan", serviceKey, map[string]any{
		"text":   "I feel hopeless and want to die",
		"userId": "student-1",
		"source": "chat",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("scan: expected 200, got %d (%v)", resp.StatusCode, body)
	}
	if body["isCrisis"] != true || body["severity"] != "critical" {
		t.Fatalf("unexpected scan body: %v", body)
	}
	if body["recorded"] != true || body["crisisEventId"] == "" {
		t.Fatalf("event not recorded: %v", body)
	}
	eventID, _ := body["crisisEventId"].(string)
	if eventID == "" {
		t.Fatalf("missing event id: %v", body)
	}

	// Admin inherits service permissions and adds read/manage.
	resp, body = doJSON(t, srv, http.MethodGet, "/api/crisis/events?userId=student-1", adminKey, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", resp.StatusCode)
	}
	items, _ := body["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected one event, got %v", body)
	}

	resp, body = doJSON(t, srv, http.MethodPost, "/api/crisis/events/"+eventID+"/respond", serviceKey, map[string]any{
		"response": "contacted_help",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("respond: expected 200, got %d (%v)", resp.StatusCode, body)
	}
	if body["resolved"] != true {
		t.Fatalf("contacted_help should resolve: %v", body)
	}
}

func TestScanBenignTextReturnsNoEvent(t *testing.T) {
	srv := setupAPIEnv(t)
	resp, body := doJSON(t, srv, http.MethodPost, "/api/crisis/scan", serviceKey, map[string]any{
		"text":   "lunch with friends was great",
		"userId": "student-1",
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if body["isCrisis"] != false {
		t.Fatalf("benign text flagged: %v", body)
	}
	if _, hasID := body["crisisEventId"]; hasID {
		t.Fatalf("no event id expected: %v", body)
	}
}

func TestScanValidation(t *testing.T) {
	srv := setupAPIEnv(t)
	resp, _ := doJSON(t, srv, http.MethodPost, "/api/crisis/scan", serviceKey, map[string]any{"text": "", "userId": "u1"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("empty text: expected 400, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, srv, http.MethodPost, "/api/crisis/scan", serviceKey, map[string]any{"text": "hello", "userId": ""})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing user: expected 400, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, srv, http.MethodPost, "/api/crisis/scan", serviceKey, map[string]any{"text": "hello", "userId": "u1", "source": "carrier-pigeon"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad source: expected 400, got %d", resp.StatusCode)
	}
}

func TestRiskAssessEndpoint(t *testing.T) {
	srv := setupAPIEnv(t)
	resp, body := doJSON(t, srv, http.MethodPost, "/api/risk/assess", serviceKey, map[string]any{
		"userId": "student-2",
		"days":   30,
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("assess: expected 200, got %d (%v)", resp.StatusCode, body)
	}
	if body["level"] != "none" || body["recorded"] != true {
		t.Fatalf("empty history should assess as none: %v", body)
	}

	resp, _ = doJSON(t, srv, http.MethodGet, "/api/risk/assessments?userId=student-2", serviceKey, nil)
	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("service role must not read assessments, got %d", resp.StatusCode)
	}
	resp, body = doJSON(t, srv, http.MethodGet, "/api/risk/assessments?userId=student-2", adminKey, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list: expected 200, got %d", resp.StatusCode)
	}
	items, _ := body["items"].([]any)
	if len(items) != 1 {
		t.Fatalf("expected one assessment, got %v", body)
	}
}

func TestUnknownEventIs404(t *testing.T) {
	srv := setupAPIEnv(t)
	resp, _ := doJSON(t, srv, http.MethodGet, "/api/crisis/events/no-such-id", adminKey, nil)
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, srv, http.MethodPost, "/api/crisis/events/no-such-id/respond", serviceKey, map[string]any{"response": "acknowledged"})
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
