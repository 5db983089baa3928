package handler

import (
	"database/sql"
	"time"

	"github.com/gofiber/fiber/v2"

	"habilitaciones/internal/admin"
	"habilitaciones/internal/auth"
	"habilitaciones/internal/http/middleware"
	"habilitaciones/internal/intake"
	"habilitaciones/internal/service"
	"habilitaciones/internal/storage"
)

// Dependencies are the components the routes are served by.
type Dependencies struct {
	DB          *sql.DB
	Submissions service.SubmissionService
	Sessions    *admin.Sessions
	Intake      *intake.Service
	Files       storage.Storage
	Gate        *auth.Gate
	// UIRedirectURL receives the session token after sign-in; empty answers JSON.
	UIRedirectURL string
	Location      *time.Location
}

// RegisterRoutes attaches HTTP routes to the provided Fiber app.
func RegisterRoutes(app *fiber.App, d Dependencies) {
	app.Get("/health", HealthCheck(d.DB))
	app.Get("/healthz", Liveness())

	forms := app.Group("/api/forms")
	forms.Get("/slots", ListSlots())
	forms.Post("/", CreateForm(d.Intake))
	forms.Get("/:id", GetForm(d.Intake))
	forms.Patch("/:id/fields", SetFormFields(d.Intake))
	forms.Post("/:id/next", NextSection(d.Intake))
	forms.Post("/:id/back", PreviousSection(d.Intake))
	forms.Post("/:id/attachments/:slot", AddAttachment(d.Intake))
	forms.Delete("/:id/attachments/:attachmentID", RemoveAttachment(d.Intake))
	forms.Post("/:id/submit", SubmitForm(d.Intake))

	requireSession := middleware.RequireSession(d.Gate)

	authGroup := app.Group("/auth")
	authGroup.Get("/google/start", StartSignIn(d.Gate))
	authGroup.Get("/google/callback", SignInCallback(d.Gate, d.UIRedirectURL))
	authGroup.Post("/signout", requireSession, SignOut(d.Gate))
	authGroup.Get("/me", requireSession, Me())

	app.Get("/files/:name", requireSession, GetFile(d.Files))

	adm := app.Group("/api/admin", requireSession)

	subs := adm.Group("/submissions")
	subs.Get("/", ListSubmissions(d.Submissions))
	subs.Get("/count", CountSubmissions(d.Submissions))
	subs.Get("/export.xlsx", ExportSubmissions(d.Submissions, d.Location))
	subs.Get("/:id", GetSubmission(d.Submissions, d.Location))
	subs.Patch("/:id/status", UpdateSubmissionStatus(d.Submissions))
	subs.Patch("/:id/review", SaveSubmissionReview(d.Submissions))
	subs.Delete("/:id", DeleteSubmission(d.Submissions))

	tbl := adm.Group("/table")
	tbl.Get("/", GetTable(d.Sessions))
	tbl.Post("/more", LoadMoreRows(d.Sessions))
	tbl.Post("/sort", SortTable(d.Sessions))
	tbl.Post("/filter", FilterTable(d.Sessions))
	tbl.Post("/search", SearchTable(d.Sessions))
	tbl.Patch("/rows/:id/status", UpdateRowStatus(d.Sessions))
	tbl.Patch("/rows/:id/review", SaveRowReview(d.Sessions))
	tbl.Delete("/rows/:id", DeleteRow(d.Sessions))
}
