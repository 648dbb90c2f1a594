package handler

const (
	// RouterRootPath is the root path of a route group.
	RouterRootPath = "/"

	// APIBasePath prefixes all JSON API routes.
	APIBasePath = "/api"

	// ErrNilACDFatalLogMsg is used if app, cfg or deps var pointer is nil.
	ErrNilACDFatalLogMsg = "app, cfg or deps is nil"
)
