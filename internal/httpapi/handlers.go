package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"callpower/internal/audit"
	"callpower/internal/auth"
	"callpower/internal/political"
	"callpower/internal/rbac"
	"callpower/internal/reporting"
	"callpower/pkg/logger"

	"github.com/gin-gonic/gin"
)

// Handlers groups admin HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Auth     *auth.Manager
	Importer *political.Importer
	Reports  *reporting.Service
	Audit    *audit.Service

	// Now is overridable in tests.
	Now func() time.Time
}

const defaultReportWindow = 30 * 24 * time.Hour

func (h Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

// --- Auth ---

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// Refresh exchanges a refresh token for a new pair. Tokens are first issued
// out of band by the admin CLI.
func (h Handlers) Refresh(c *gin.Context) {
	if h.Auth == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "auth not configured"})
		return
	}
	var req refreshRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.RefreshToken == "" {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "refresh_token required"})
		return
	}
	pair, err := h.Auth.Refresh(c.Request.Context(), h.now(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenReused) {
			logger.FromGin(c).Warn("refresh token replayed", "ip", c.ClientIP())
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid refresh token"})
		return
	}
	c.JSON(http.StatusOK, pair)
}

// --- Targets ---

type importRequest struct {
	SourceKey string                  `json:"source_key"`
	Records   []political.KeyedRecord `json:"records"`
}

type importResponse struct {
	political.ImportResult
	Errors []string `json:"errors,omitempty"`
}

// ImportTargets adapts a batch of upstream records and stores them as targets.
// RBAC: owner, data_manager or super_admin.
func (h Handlers) ImportTargets(c *gin.Context) {
	if h.Importer == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "importer not configured"})
		return
	}
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if req.SourceKey == "" || len(req.Records) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "source_key and records required"})
		return
	}

	res, err := h.Importer.Import(c.Request.Context(), req.SourceKey, req.Records)
	if err != nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "import failed"})
		return
	}

	out := importResponse{ImportResult: res}
	for _, e := range res.Errors {
		out.Errors = append(out.Errors, e.Error())
	}

	if h.Audit != nil {
		actor, _ := auth.UserID(c.Request.Context())
		role, _ := auth.Role(c.Request.Context())
		sum := audit.ImportSummary{Imported: res.Imported, Rejected: res.Rejected, Errors: out.Errors}
		if err := h.Audit.LogTargetImport(c.Request.Context(), actor, role, c.ClientIP(), req.SourceKey, sum); err != nil {
			logger.FromGin(c).Warn("audit append failed", "event", audit.EventTypeTargetImport, "err", err)
		}
	}
	c.JSON(http.StatusOK, out)
}

// --- Reports ---

// CallsSummary returns aggregate leg metrics for one campaign.
// RBAC: owner, analyst or super_admin, scoped to the token's campaigns.
func (h Handlers) CallsSummary(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reports not configured"})
		return
	}
	campaignID, rng, ok := h.reportInput(c)
	if !ok {
		return
	}
	sum, err := h.Reports.CallsSummary(c.Request.Context(), reporting.CallsSummaryRequest{CampaignID: campaignID, Range: rng})
	if err != nil {
		reportError(c, err)
		return
	}
	h.auditReport(c, campaignID, "calls_summary")
	c.JSON(http.StatusOK, sum)
}

// CallChart returns per-status leg counts bucketed by ?timespan.
func (h Handlers) CallChart(c *gin.Context) {
	if h.Reports == nil {
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "reports not configured"})
		return
	}
	campaignID, rng, ok := h.reportInput(c)
	if !ok {
		return
	}
	series, err := h.Reports.CallChart(c.Request.Context(), reporting.CallChartRequest{
		CampaignID: campaignID,
		Range:      rng,
		Timespan:   reporting.Timespan(c.Query("timespan")),
	})
	if err != nil {
		reportError(c, err)
		return
	}
	h.auditReport(c, campaignID, "call_chart")
	c.JSON(http.StatusOK, gin.H{"campaign_id": campaignID, "series": series})
}

// reportInput reads :campaign_id and the optional RFC3339 from/to window.
// A missing window ends now and spans defaultReportWindow.
func (h Handlers) reportInput(c *gin.Context) (int64, reporting.TimeRange, bool) {
	campaignID, err := strconv.ParseInt(c.Param("campaign_id"), 10, 64)
	if err != nil || campaignID <= 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid campaign_id"})
		return 0, reporting.TimeRange{}, false
	}

	rng := reporting.TimeRange{To: h.now().UTC()}
	if v := c.Query("to"); v != "" {
		if rng.To, err = time.Parse(time.RFC3339, v); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "to must be RFC3339"})
			return 0, reporting.TimeRange{}, false
		}
	}
	rng.From = rng.To.Add(-defaultReportWindow)
	if v := c.Query("from"); v != "" {
		if rng.From, err = time.Parse(time.RFC3339, v); err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "from must be RFC3339"})
			return 0, reporting.TimeRange{}, false
		}
	}
	return campaignID, rng, true
}

func (h Handlers) auditReport(c *gin.Context, campaignID int64, report string) {
	if h.Audit == nil {
		return
	}
	actor, _ := auth.UserID(c.Request.Context())
	role, _ := auth.Role(c.Request.Context())
	if err := h.Audit.LogReportAccess(c.Request.Context(), actor, role, c.ClientIP(), campaignID, report); err != nil {
		logger.FromGin(c).Warn("audit append failed", "event", audit.EventTypeReportAccess, "err", err)
	}
}

func reportError(c *gin.Context, err error) {
	if errors.Is(err, reporting.ErrInvalidRequest) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid report request"})
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "report failed"})
}

// Convenience middleware bundles.

// ImportRoles may load political data.
func ImportRoles() []gin.HandlerFunc {
	return []gin.HandlerFunc{rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleDataManager)}
}

// ReportRoles may read call data for the campaign named by :campaign_id.
func ReportRoles() []gin.HandlerFunc {
	return []gin.HandlerFunc{
		rbac.RequireAnyRole(rbac.RoleOwner, rbac.RoleAnalyst),
		rbac.RequireCampaignScope("campaign_id"),
	}
}
