// Package auth carries the caller's author identity through a request. The
// identity is supplied and validated upstream; nothing here authenticates.
package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/debemdeboas/redux-content/internal/config"
	"github.com/debemdeboas/redux-content/internal/model"
)

var authLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	authLogger = l
}

var ErrNoAuthor = errors.New("no author identity on request")

type AuthorProvider interface {
	// WithAuthor puts the request's author, when present, into its context.
	WithAuthor() func(http.Handler) http.Handler

	// EnforceAuthor writes a 401 and returns ErrNoAuthor when the request
	// carries no author.
	EnforceAuthor(w http.ResponseWriter, r *http.Request) (model.AuthorID, error)
}

// HeaderAuthorProvider trusts a header set by the gateway in front of the
// service.
type HeaderAuthorProvider struct { // implements AuthorProvider
	headerName string
}

func NewHeaderAuthorProvider(headerName string) *HeaderAuthorProvider {
	return &HeaderAuthorProvider{headerName: headerName}
}

func (p *HeaderAuthorProvider) WithAuthor() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			author := strings.TrimSpace(r.Header.Get(p.headerName))
			if author == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := ContextWithAuthorID(r.Context(), model.AuthorID(author))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (p *HeaderAuthorProvider) EnforceAuthor(w http.ResponseWriter, r *http.Request) (model.AuthorID, error) {
	author, ok := AuthorIDFromContext(r.Context())
	if !ok {
		authLogger.Debug().Str("path", r.URL.Path).Msg("Write without author")
		http.Error(w, config.HTTPErrAuthorRequired, http.StatusUnauthorized)
		return "", ErrNoAuthor
	}
	return author, nil
}
