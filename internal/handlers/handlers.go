package handlers

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/middleware"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/models"
	"github.com/sdkoncept/nigerian-real-estate-sub001/internal/service"
)

// HealthCheck pings one backing dependency.
type HealthCheck func(ctx context.Context) error

type Deps struct {
	Log           zerolog.Logger
	Environment   string
	Gate          *service.AccessGate
	SecurityLog   *service.SecurityLogService
	TwoFactor     *service.TwoFactorService
	Verifications *service.VerificationService
	Documents     *service.DocumentService
	Reports       *service.ReportService
	Audits        *service.AuditService
	Admin         *service.AdminService
	// Limiters may be nil, which disables rate limiting.
	LoginLimiter  middleware.Limiter
	StepUpLimiter middleware.Limiter
	Checks        map[string]HealthCheck
}

type HandlerSet struct {
	log           zerolog.Logger
	environment   string
	respond       middleware.Responder
	gate          *service.AccessGate
	securityLog   *service.SecurityLogService
	twoFactor     *service.TwoFactorService
	verifications *service.VerificationService
	documents     *service.DocumentService
	reports       *service.ReportService
	audits        *service.AuditService
	admin         *service.AdminService
	loginLimiter  middleware.Limiter
	stepUpLimiter middleware.Limiter
	checks        map[string]HealthCheck
	now           func() time.Time
}

func NewHandlerSet(deps Deps) HandlerSet {
	return HandlerSet{
		log:           deps.Log,
		environment:   deps.Environment,
		respond:       middleware.NewResponder(deps.Log, deps.Environment),
		gate:          deps.Gate,
		securityLog:   deps.SecurityLog,
		twoFactor:     deps.TwoFactor,
		verifications: deps.Verifications,
		documents:     deps.Documents,
		reports:       deps.Reports,
		audits:        deps.Audits,
		admin:         deps.Admin,
		loginLimiter:  deps.LoginLimiter,
		stepUpLimiter: deps.StepUpLimiter,
		checks:        deps.Checks,
		now:           time.Now,
	}
}

func (h HandlerSet) Register(router *gin.RouterGroup) {
	middleware.UseJSONFieldNames()

	router.GET("/healthz", h.Health)

	authenticated := middleware.Authenticate(h.gate, h.respond)
	roles := func(allowed ...models.Role) gin.HandlerFunc {
		return middleware.RequireRoles(h.gate, h.respond, allowed...)
	}

	auth := router.Group("/auth")
	auth.POST("/login-failed", h.rateLimit(h.loginLimiter, middleware.ByIP("login-failed")), h.LoginFailed)

	signedIn := router.Group("")
	signedIn.Use(authenticated)
	signedIn.GET("/me", h.Me)
	signedIn.GET("/security/2fa/status", h.TwoFactorStatus)
	signedIn.POST("/reports", h.CreateReport)
	signedIn.POST("/documents", roles(models.RoleSeller, models.RoleAgent, models.RoleAdmin), h.UploadDocument)
	signedIn.POST("/verifications", roles(models.RoleSeller, models.RoleAgent, models.RoleAdmin), h.SubmitPropertyVerification)

	agent := router.Group("/agent")
	agent.Use(authenticated, roles(models.RoleAgent))
	agent.POST("/verification/submit", h.SubmitAgentVerification)
	agent.GET("/verification/status", h.AgentVerificationStatus)

	security := router.Group("/security")
	security.Use(authenticated, roles(models.RoleAdmin))
	security.POST("/2fa/setup", h.TwoFactorSetup)
	security.POST("/2fa/verify", h.rateLimit(h.stepUpLimiter, middleware.ByIdentity("2fa-verify")), h.TwoFactorVerify)
	security.POST("/2fa/disable", h.TwoFactorDisable)
	security.POST("/2fa/backup-codes", h.rateLimit(h.stepUpLimiter, middleware.ByIdentity("2fa-verify")), h.RegenerateBackupCodes)
	security.GET("/events", h.ListEvents)
	security.GET("/events/unresolved", h.UnresolvedEvents)
	security.GET("/events/export", h.ExportEvents)
	security.POST("/events/:id/resolve", h.ResolveEvent)
	security.GET("/statistics", h.Statistics)
	security.GET("/audits", h.ListAudits)
	security.POST("/audits", h.ScheduleAudit)
	security.PUT("/audits/:id", h.UpdateAudit)

	admin := router.Group("/admin")
	admin.Use(authenticated, roles(models.RoleAdmin))
	admin.GET("/stats", h.AdminStats)
	admin.GET("/verifications", h.ListVerifications)
	admin.GET("/verifications/:id/document", h.VerificationDocument)
	admin.POST("/verifications/approve", h.ApproveVerification)
	admin.POST("/verifications/reject", h.RejectVerification)
	admin.GET("/reports", h.ListReports)
	admin.GET("/reports/:id", h.GetReport)
	admin.PATCH("/reports/:id", h.UpdateReport)
	admin.POST("/users/:id/lock", h.LockUser)
	admin.POST("/users/:id/unlock", h.UnlockUser)
	admin.POST("/users/:id/2fa/disable", h.AdminDisableTwoFactor)
}

func (h HandlerSet) rateLimit(limiter middleware.Limiter, key middleware.KeyFunc) gin.HandlerFunc {
	if limiter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return middleware.RateLimit(limiter, key, h.securityLog, h.log)
}

// identity is only called behind Authenticate.
func (h HandlerSet) identity(c *gin.Context) models.Identity {
	ident, _ := middleware.CurrentIdentity(c)
	return ident
}

// adminAction records a privileged action by the current identity.
func (h HandlerSet) adminAction(c *gin.Context, action string, details map[string]any) {
	if details == nil {
		details = map[string]any{}
	}
	details["action"] = action
	h.securityLog.Record(c.Request.Context(), service.EventInput{
		Type:     models.EventAdminAction,
		Severity: models.SeverityLow,
		UserID:   h.identity(c).ID,
		Origin:   middleware.Origin(c),
		Details:  details,
	})
}
