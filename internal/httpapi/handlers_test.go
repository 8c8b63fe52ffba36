package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"callpower/internal/audit"
	"callpower/internal/auth"
	"callpower/internal/calls"
	"callpower/internal/campaign"
	"callpower/internal/config"
	"callpower/internal/political"
	"callpower/internal/reporting"

	"github.com/gin-gonic/gin"
)

var fixedNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type fixture struct {
	router  *gin.Engine
	targets *campaign.MemoryRepo
	calls   *calls.MemoryRepo
	audit   *audit.MemoryRepo
}

func identity(role string, campaigns ...int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := auth.WithIdentity(c.Request.Context(), auth.Grant{UserID: "admin-1", Role: role, CampaignIDs: campaigns})
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func newFixture(t *testing.T, role string, campaigns ...int64) fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	f := fixture{
		targets: campaign.NewMemoryRepo(),
		calls:   calls.NewMemoryRepo(),
		audit:   audit.NewMemoryRepo(),
	}
	h := Handlers{
		Importer: political.NewImporter(f.targets),
		Reports:  reporting.NewService(f.calls),
		Audit:    audit.NewService(f.audit),
		Now:      func() time.Time { return fixedNow },
	}

	r := gin.New()
	v1 := r.Group("/v1", identity(role, campaigns...))
	v1.POST("/targets/import", append(ImportRoles(), h.ImportTargets)...)
	v1.GET("/campaigns/:campaign_id/calls/summary", append(ReportRoles(), h.CallsSummary)...)
	v1.GET("/campaigns/:campaign_id/calls/chart", append(ReportRoles(), h.CallChart)...)
	f.router = r
	return f
}

func (f fixture) do(method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	f.router.ServeHTTP(w, req)
	return w
}

func (f fixture) seedLeg(t *testing.T, campaignID int64, status calls.CallStatus, at time.Time) {
	t.Helper()
	err := f.calls.Create(context.Background(), calls.CallRecord{
		ID:              at.String(),
		CampaignID:      campaignID,
		TargetID:        7,
		ProviderCallID:  "CA" + at.Format(time.RFC3339),
		Status:          status,
		DurationSeconds: 30,
		CreatedAt:       at,
	})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
}

const importBody = `{
	"source_key": "us:bioguide",
	"records": [
		{"key": "D000001", "data": {"first_name": "Jane", "last_name": "Doe", "phone": "555-1000"}},
		{"key": "D000002", "data": {"last_name": "Nofirst"}}
	]
}`

func TestImportTargets_StoresAndAudits(t *testing.T) {
	f := newFixture(t, "data_manager")

	w := f.do(http.MethodPost, "/v1/targets/import", importBody)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		Supported bool     `json:"supported"`
		Imported  int      `json:"imported"`
		Rejected  int      `json:"rejected"`
		TargetIDs []int64  `json:"target_ids"`
		Errors    []string `json:"errors"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !resp.Supported || resp.Imported != 1 || resp.Rejected != 1 || len(resp.TargetIDs) != 1 {
		t.Fatalf("unexpected result %+v", resp)
	}
	if len(resp.Errors) != 1 || !strings.Contains(resp.Errors[0], "D000002") {
		t.Fatalf("expected rejected record to be reported, got %v", resp.Errors)
	}

	target, err := f.targets.GetTarget(context.Background(), resp.TargetIDs[0])
	if err != nil || target.FullName() != "Jane Doe" {
		t.Fatalf("expected stored target, got %+v %v", target, err)
	}

	events := f.audit.Events(audit.EventTypeTargetImport)
	if len(events) != 1 {
		t.Fatalf("expected one import audit event, got %d", len(events))
	}
	if events[0].ActorUserID != "admin-1" || events[0].SourceKey != "us:bioguide" || events[0].ActorRole != "data_manager" {
		t.Fatalf("unexpected audit event %+v", events[0])
	}
}

func TestImportTargets_RejectsBadInput(t *testing.T) {
	f := newFixture(t, "owner")
	for _, body := range []string{`not json`, `{"source_key": "us:bioguide"}`, `{"records": [{"key": "x", "data": {}}]}`} {
		if w := f.do(http.MethodPost, "/v1/targets/import", body); w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %q, got %d", body, w.Code)
		}
	}
	if n := len(f.audit.Events()); n != 0 {
		t.Fatalf("rejected requests must not be audited, got %d events", n)
	}
}

func TestImportTargets_AnalystForbidden(t *testing.T) {
	f := newFixture(t, "analyst")
	if w := f.do(http.MethodPost, "/v1/targets/import", importBody); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}
}

func TestImportTargets_AuditFailureDoesNotFailImport(t *testing.T) {
	f := newFixture(t, "owner")
	f.audit.Err = errors.New("audit store down")
	if w := f.do(http.MethodPost, "/v1/targets/import", importBody); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
}

func TestCallsSummary_DefaultWindow(t *testing.T) {
	f := newFixture(t, "analyst", 1)
	f.seedLeg(t, 1, calls.CallStatusCompleted, fixedNow.Add(-time.Hour))
	f.seedLeg(t, 1, calls.CallStatusFailed, fixedNow.Add(-2*time.Hour))
	f.seedLeg(t, 1, calls.CallStatusCompleted, fixedNow.Add(-60*24*time.Hour))

	w := f.do(http.MethodGet, "/v1/campaigns/1/calls/summary", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var sum reporting.CallsSummary
	if err := json.Unmarshal(w.Body.Bytes(), &sum); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if sum.TotalCalls != 2 || sum.CompletedCalls != 1 || sum.FailedCalls != 1 {
		t.Fatalf("unexpected summary %+v", sum)
	}

	events := f.audit.Events(audit.EventTypeReportAccess)
	if len(events) != 1 || events[0].CampaignID != 1 || events[0].Message != "calls_summary" {
		t.Fatalf("unexpected audit events %+v", events)
	}
}

func TestCallsSummary_ExplicitWindow(t *testing.T) {
	f := newFixture(t, "owner")
	f.seedLeg(t, 1, calls.CallStatusCompleted, fixedNow.Add(-60*24*time.Hour))

	from := fixedNow.Add(-90 * 24 * time.Hour).Format(time.RFC3339)
	to := fixedNow.Format(time.RFC3339)
	w := f.do(http.MethodGet, "/v1/campaigns/1/calls/summary?from="+from+"&to="+to, "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	var sum reporting.CallsSummary
	_ = json.Unmarshal(w.Body.Bytes(), &sum)
	if sum.TotalCalls != 1 {
		t.Fatalf("expected the older leg inside the explicit window, got %+v", sum)
	}
}

func TestCallsSummary_BadInput(t *testing.T) {
	f := newFixture(t, "owner")
	cases := []string{
		"/v1/campaigns/1/calls/summary?from=yesterday",
		"/v1/campaigns/1/calls/summary?to=2026-13-01",
		"/v1/campaigns/1/calls/summary?from=2026-03-10T00:00:00Z&to=2026-03-01T00:00:00Z",
		"/v1/campaigns/abc/calls/summary",
	}
	for _, path := range cases {
		if w := f.do(http.MethodGet, path, ""); w.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for %s, got %d", path, w.Code)
		}
	}
}

func TestCallsSummary_CampaignScope(t *testing.T) {
	f := newFixture(t, "analyst", 2)
	if w := f.do(http.MethodGet, "/v1/campaigns/1/calls/summary", ""); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 outside token scope, got %d", w.Code)
	}

	f = newFixture(t, "data_manager")
	if w := f.do(http.MethodGet, "/v1/campaigns/1/calls/summary", ""); w.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for data_manager, got %d", w.Code)
	}

	f = newFixture(t, "super_admin", 2)
	if w := f.do(http.MethodGet, "/v1/campaigns/1/calls/summary", ""); w.Code != http.StatusOK {
		t.Fatalf("expected super_admin to bypass scope, got %d", w.Code)
	}
}

func TestCallChart_Buckets(t *testing.T) {
	f := newFixture(t, "owner")
	f.seedLeg(t, 1, calls.CallStatusCompleted, time.Date(2026, 3, 9, 10, 0, 0, 0, time.UTC))
	f.seedLeg(t, 1, calls.CallStatusCompleted, time.Date(2026, 3, 9, 11, 0, 0, 0, time.UTC))
	f.seedLeg(t, 1, calls.CallStatusCanceled, time.Date(2026, 3, 8, 11, 0, 0, 0, time.UTC))

	w := f.do(http.MethodGet, "/v1/campaigns/1/calls/chart?timespan=day", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var resp struct {
		CampaignID int64              `json:"campaign_id"`
		Series     []reporting.Series `json:"series"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.CampaignID != 1 || len(resp.Series) != 3 {
		t.Fatalf("unexpected chart %+v", resp)
	}
	if got := resp.Series[0].Data["2026-03-09"]; got != 2 {
		t.Fatalf("expected 2 completed on 2026-03-09, got %d", got)
	}
	if got := resp.Series[1].Data["2026-03-08"]; got != 1 {
		t.Fatalf("expected 1 canceled on 2026-03-08, got %d", got)
	}

	if w := f.do(http.MethodGet, "/v1/campaigns/1/calls/chart?timespan=fortnight", ""); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown timespan, got %d", w.Code)
	}
}

type onceReplay map[string]bool

func (r onceReplay) FirstUse(ctx context.Context, jti string, until time.Time) (bool, error) {
	if r[jti] {
		return false, nil
	}
	r[jti] = true
	return true, nil
}

func TestRefresh(t *testing.T) {
	gin.SetMode(gin.TestMode)
	m, err := auth.NewManager(config.AuthConfig{JWTSecret: "secret", AccessTokenTTL: time.Minute, RefreshTokenTTL: time.Hour})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	m.WithReplayGuard(onceReplay{})
	pair, _ := m.IssuePair(fixedNow, auth.Grant{UserID: "admin-1", Role: "owner"})

	h := Handlers{Auth: m, Now: func() time.Time { return fixedNow.Add(10 * time.Minute) }}
	r := gin.New()
	r.POST("/v1/auth/refresh", h.Refresh)
	post := func(body string) *httptest.ResponseRecorder {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodPost, "/v1/auth/refresh", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		r.ServeHTTP(w, req)
		return w
	}

	w := post(`{"refresh_token": "` + pair.RefreshToken + `"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	var next auth.TokenPair
	if err := json.Unmarshal(w.Body.Bytes(), &next); err != nil || next.AccessToken == "" {
		t.Fatalf("expected a new pair, got %s", w.Body.String())
	}

	if w := post(`{"refresh_token": "` + pair.RefreshToken + `"}`); w.Code != http.StatusUnauthorized {
		t.Fatalf("expected replayed token to be refused, got %d", w.Code)
	}
	if w := post(`{}`); w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without token, got %d", w.Code)
	}
}
