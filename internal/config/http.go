package config

const (
	HCType        = "Content-Type"
	HCacheControl = "Cache-Control"
	HAuthorID     = "X-Author-Id"

	CTypeJSON        = "application/json"
	CTypeEventStream = "text/event-stream"
)

const (
	HTTPErrMethodNotAllowed = "Method not allowed"
	HTTPErrAuthorRequired   = "X-Author-Id header required"
)
