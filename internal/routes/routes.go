// Package routes defines HTTP route constants for the application.
package routes

// Path variables
const (
	VarPageID  = "pageId"
	VarVersion = "version"
)

// API Routes
const (
	APIPages        = "/api/pages"
	APIPage         = "/api/pages/{pageId}"
	APIPageState    = "/api/pages/{pageId}/state"
	APIPageVersions = "/api/pages/{pageId}/versions"
	APIPageVersion  = "/api/pages/{pageId}/versions/{version:[0-9]+}"
	APIPageAudit    = "/api/pages/{pageId}/audit"
	APIPageDrafts   = "/api/pages/{pageId}/drafts"
	APIPagePublish  = "/api/pages/{pageId}/publish"
	APIPageRevert   = "/api/pages/{pageId}/revert"
	APIPageEvents   = "/api/pages/{pageId}/events"
	HealthPath      = "/healthz"
)
