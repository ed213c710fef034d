// Package api exposes the resolver, publish workflow and audit trail as a
// JSON HTTP API.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"

	"github.com/debemdeboas/redux-content/internal/auth"
	"github.com/debemdeboas/redux-content/internal/config"
	"github.com/debemdeboas/redux-content/internal/content"
	"github.com/debemdeboas/redux-content/internal/model"
	"github.com/debemdeboas/redux-content/internal/routes"
	"github.com/debemdeboas/redux-content/internal/sse"
)

const maxBodyBytes = 1 << 20

var apiLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	apiLogger = l
}

type Handler struct {
	resolver *content.Resolver
	workflow *content.Workflow
	auditor  *content.Auditor
	clients  *sse.SSEClients
	authors  auth.AuthorProvider
}

func NewHandler(resolver *content.Resolver, workflow *content.Workflow, auditor *content.Auditor, clients *sse.SSEClients, authors auth.AuthorProvider) *Handler {
	return &Handler{
		resolver: resolver,
		workflow: workflow,
		auditor:  auditor,
		clients:  clients,
		authors:  authors,
	}
}

// Router registers every API route.
func (h *Handler) Router() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc(routes.HealthPath, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
	}).Methods(http.MethodGet)

	r.HandleFunc(routes.APIPages, h.listPages).Methods(http.MethodGet)
	r.HandleFunc(routes.APIPage, h.resolvePage).Methods(http.MethodGet)
	r.HandleFunc(routes.APIPageState, h.pageState).Methods(http.MethodGet)
	r.HandleFunc(routes.APIPageVersions, h.listVersions).Methods(http.MethodGet)
	r.HandleFunc(routes.APIPageVersion, h.getVersion).Methods(http.MethodGet)
	r.HandleFunc(routes.APIPageAudit, h.auditTrail).Methods(http.MethodGet)
	r.HandleFunc(routes.APIPageDrafts, h.saveDraft).Methods(http.MethodPost)
	r.HandleFunc(routes.APIPagePublish, h.publish).Methods(http.MethodPost)
	r.HandleFunc(routes.APIPageRevert, h.revert).Methods(http.MethodPost)
	r.HandleFunc(routes.APIPageEvents, h.events).Methods(http.MethodGet)

	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, r, http.StatusMethodNotAllowed, errorResponse{Error: config.HTTPErrMethodNotAllowed})
	})

	return r
}

// Wrap installs the middleware chain: request logging, author identity,
// panic recovery and CORS.
func (h *Handler) Wrap(next http.Handler, logger zerolog.Logger, allowedOrigins []string) http.Handler {
	chain := h.authors.WithAuthor()(next)
	chain = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		hlog.FromRequest(r).Info().
			Str("method", r.Method).
			Stringer("url", r.URL).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("Request")
	})(chain)
	chain = hlog.RemoteAddrHandler("ip")(chain)
	chain = hlog.RequestIDHandler("req_id", "X-Request-Id")(chain)
	chain = hlog.NewHandler(logger)(chain)

	chain = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{}),
		handlers.PrintRecoveryStack(false),
	)(chain)

	return handlers.CORS(
		handlers.AllowedOrigins(allowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{config.HCType, config.HAuthorID}),
	)(chain)
}

type recoveryLogger struct{}

func (recoveryLogger) Println(v ...interface{}) {
	apiLogger.Error().Interface("panic", v).Msg("Recovered from panic in handler")
}

type errorResponse struct {
	Error     string `json:"error"`
	ElementID string `json:"elementId,omitempty"`
	Field     string `json:"field,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrMalformedElement):
		return http.StatusUnprocessableEntity
	case errors.Is(err, model.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrPageConfigNotFound), errors.Is(err, model.ErrVersionNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage hides the cause of server-side failures. Driver messages and
// file paths stay in the log.
func publicMessage(err error, status int) string {
	if status < http.StatusInternalServerError {
		return err.Error()
	}
	for _, sentinel := range []error{model.ErrStorageUnavailable, model.ErrConcurrentVersionConflict} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return http.StatusText(status)
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)

	body := errorResponse{Error: publicMessage(err, status)}
	var malformed *model.MalformedElementError
	if errors.As(err, &malformed) {
		body.ElementID = malformed.ElementID
		body.Field = malformed.Field
	}

	l := hlog.FromRequest(r)
	if status >= http.StatusInternalServerError {
		l.Error().Err(err).Int("status", status).Msg("Request failed")
	} else {
		l.Debug().Err(err).Int("status", status).Msg("Request rejected")
	}

	writeJSON(w, r, status, body)
}

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set(config.HCType, config.CTypeJSON)
	w.Header().Set(config.HCacheControl, "no-cache")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("Error writing response")
	}
}
