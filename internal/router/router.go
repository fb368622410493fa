// Package router wires every endpoint to its handler and middleware chain.
// Three surfaces exist: unauthenticated auth and health routes, anonymous
// rate-limited public routes (questionnaire forms and external assessment),
// and the JWT-protected /v1 API.
package router

import (
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/dentraining/portfolio-api/internal/config"
	"github.com/dentraining/portfolio-api/internal/handler"
	"github.com/dentraining/portfolio-api/internal/middleware"
	"github.com/dentraining/portfolio-api/internal/model"
)

// Deps carries everything Register needs. All handlers are constructed in
// main and passed down here.
type Deps struct {
	Cfg   config.Config
	Log   *zap.Logger
	Redis *redis.Client

	Auth        *handler.AuthHandler
	Org         *handler.OrgHandler
	UserAdmin   *handler.UserAdminHandler
	Assignments *handler.AssignmentHandler
	EPAs        *handler.EPAHandler
	Reflections *handler.ReflectionHandler
	PLTs        *handler.PLTHandler
	Events      *handler.SignificantEventHandler
	Needs       *handler.LearningNeedHandler
	Logs        *handler.ClinicalLogHandler
	SLEs        *handler.SLEHandler
	External    *handler.ExternalAssessmentHandler
	Inductions  *handler.InductionHandler
	Reviews     *handler.ReviewHandler
	Feedback    *handler.FeedbackHandler
	Documents   *handler.DocumentHandler
	Dashboard   *handler.DashboardHandler
}

// Register mounts all routes on the Echo instance.
func Register(e *echo.Echo, d Deps) {
	e.Use(middleware.RequestLogger(d.Log))

	e.GET("/healthz", handler.Health)

	// unauthenticated session endpoints
	auth := e.Group("/v1/auth")
	auth.POST("/login", d.Auth.Login)
	auth.POST("/refresh", d.Auth.Refresh)

	// anonymous surfaces carry no JWT; the limiter is their only gate
	limiter := middleware.RateLimit(d.Redis, d.Cfg.RateLimitPerMin, time.Minute)

	fb := e.Group("/v1/feedback", limiter)
	fb.GET("/:kind/:code", d.Feedback.PublicGet)
	fb.POST("/:kind/:code", d.Feedback.Submit)

	ext := e.Group("/v1/external-assessment", limiter)
	ext.GET("/:token", d.External.Get)
	ext.POST("/:token", d.External.Submit)

	// everything below requires a valid access token
	v1 := e.Group("/v1", middleware.JWTAuth(d.Cfg.JWTSecret), middleware.RequireRole(model.KnownRoles...))

	v1.GET("/auth/me", d.Auth.Me)
	v1.POST("/auth/logout", d.Auth.Logout)
	v1.POST("/auth/change-password", d.Auth.ChangePassword)

	// organisation: read for every role, writes for admins and superusers
	v1.GET("/areas", d.Org.ListAreas)
	v1.GET("/schemes", d.Org.ListSchemes)

	admin := v1.Group("", middleware.RequireRole(model.RoleAdmin, model.RoleSuperuser))
	admin.POST("/areas", d.Org.CreateArea)
	admin.PUT("/areas/:id", d.Org.RenameArea)
	admin.POST("/schemes", d.Org.CreateScheme)
	admin.DELETE("/schemes/:id", d.Org.DeleteScheme)
	admin.POST("/users", d.UserAdmin.CreateUser)
	admin.GET("/users", d.UserAdmin.ListUsers)
	admin.PUT("/users/:id/placement", d.UserAdmin.UpdatePlacement)
	admin.PUT("/users/:id/password", d.UserAdmin.ResetPassword)
	admin.PUT("/users/:id/active", d.UserAdmin.SetActive)
	admin.POST("/assignments", d.Assignments.Create)
	admin.DELETE("/assignments/:id", d.Assignments.Deactivate)
	admin.PUT("/temp-access/:id/approve", d.Assignments.ApproveTempAccess)

	v1.GET("/assignments", d.Assignments.List)
	v1.POST("/temp-access", d.Assignments.RequestTempAccess,
		middleware.RequireRole(model.RoleES, model.RoleTPD))
	v1.GET("/temp-access", d.Assignments.ListTempAccess)

	v1.GET("/epas", d.EPAs.ListCatalog)

	// trainee-authored entities: the EYD operates on their own portfolio,
	// viewers address a trainee through /trainees/:eydID
	eyd := middleware.RequireRole(model.RoleEYD)

	v1.POST("/reflections", d.Reflections.Create, eyd)
	v1.GET("/reflections", d.Reflections.List)
	v1.GET("/reflections/:id", d.Reflections.Get)
	v1.PUT("/reflections/:id", d.Reflections.Update, eyd)
	v1.POST("/reflections/:id/lock", d.Reflections.Lock, eyd)
	v1.GET("/trainees/:eydID/reflections", d.Reflections.List)

	v1.POST("/plts", d.PLTs.Create, eyd)
	v1.GET("/plts", d.PLTs.List)
	v1.GET("/plts/:id", d.PLTs.Get)
	v1.PUT("/plts/:id", d.PLTs.Update, eyd)
	v1.POST("/plts/:id/lock", d.PLTs.Lock, eyd)
	v1.GET("/trainees/:eydID/plts", d.PLTs.List)

	v1.POST("/significant-events", d.Events.Create, eyd)
	v1.GET("/significant-events", d.Events.List)
	v1.GET("/significant-events/:id", d.Events.Get)
	v1.PUT("/significant-events/:id", d.Events.Update, eyd)
	v1.POST("/significant-events/:id/signoff/es", d.Events.SignOffES)
	v1.POST("/significant-events/:id/signoff/tpd", d.Events.SignOffTPD)
	v1.GET("/trainees/:eydID/significant-events", d.Events.List)

	v1.POST("/learning-needs", d.Needs.Create, eyd)
	v1.GET("/learning-needs", d.Needs.List)
	v1.GET("/learning-needs/:id", d.Needs.Get)
	v1.PUT("/learning-needs/:id", d.Needs.Update, eyd)
	v1.POST("/learning-needs/:id/submit", d.Needs.Submit, eyd)
	v1.POST("/learning-needs/:id/revert", d.Needs.Revert, eyd)
	v1.POST("/learning-needs/:id/complete", d.Needs.Complete)
	v1.GET("/trainees/:eydID/learning-needs", d.Needs.List)

	v1.POST("/clinical-logs", d.Logs.Create, eyd)
	v1.GET("/clinical-logs", d.Logs.List)
	v1.PUT("/clinical-logs/:id", d.Logs.Update, eyd)
	v1.GET("/trainees/:eydID/clinical-logs", d.Logs.List)

	v1.POST("/sles", d.SLEs.Create, eyd)
	v1.GET("/sles", d.SLEs.List)
	v1.GET("/sles/assessor-queue", d.SLEs.AssessorQueue)
	v1.GET("/sles/:id", d.SLEs.Get)
	v1.PUT("/sles/:id", d.SLEs.Update, eyd)
	v1.POST("/sles/:id/assess", d.SLEs.Assess)
	v1.POST("/sles/:id/reflect", d.SLEs.Reflect, eyd)
	v1.GET("/trainees/:eydID/sles", d.SLEs.List)

	v1.POST("/inductions", d.Inductions.Create)
	v1.GET("/induction", d.Inductions.GetForEYD)
	v1.PUT("/inductions/:id", d.Inductions.Update)
	v1.POST("/inductions/:id/complete", d.Inductions.Complete)
	v1.POST("/inductions/:id/reopen", d.Inductions.Reopen)
	v1.GET("/trainees/:eydID/induction", d.Inductions.GetForEYD)

	v1.POST("/reviews", d.Reviews.Create)
	v1.GET("/reviews", d.Reviews.List)
	v1.GET("/reviews/:id", d.Reviews.Get)
	v1.PUT("/reviews/:id/es-section", d.Reviews.SaveESSection)
	v1.PUT("/reviews/:id/eyd-section", d.Reviews.SaveEYDSection, eyd)
	v1.PUT("/reviews/:id/panel-section", d.Reviews.CompletePanelSection)
	v1.POST("/reviews/:id/epa-assessments", d.Reviews.AddEPAAssessment)
	v1.GET("/trainees/:eydID/reviews", d.Reviews.List)

	v1.POST("/questionnaires", d.Feedback.Create, eyd)
	v1.GET("/questionnaires", d.Feedback.List)
	v1.POST("/questionnaires/:id/close", d.Feedback.Close, eyd)
	v1.GET("/questionnaires/:id/summary", d.Feedback.Summary)
	v1.GET("/questionnaires/:id/qr", d.Feedback.QR, eyd)
	v1.GET("/trainees/:eydID/questionnaires", d.Feedback.List)

	v1.POST("/documents", d.Documents.Upload)
	v1.GET("/documents", d.Documents.List)
	v1.GET("/trainees/:eydID/documents", d.Documents.List)

	v1.GET("/dashboard", d.Dashboard.Summary)
	v1.GET("/trainees/:eydID/summary", d.Dashboard.TraineeSummary)
	v1.GET("/epa-matrix", d.Dashboard.Matrix)
	v1.GET("/epa-matrix/export", d.Dashboard.MatrixExport)
	v1.GET("/trainees/:eydID/epa-matrix", d.Dashboard.Matrix)
	v1.GET("/trainees/:eydID/epa-matrix/export", d.Dashboard.MatrixExport)
}
