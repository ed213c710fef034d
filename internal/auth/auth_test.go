package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/debemdeboas/redux-content/internal/model"
)

func TestContextAuthorID(t *testing.T) {
	ctx := ContextWithAuthorID(context.Background(), "editor-1")
	author, ok := AuthorIDFromContext(ctx)
	assert.True(t, ok)
	assert.Equal(t, model.AuthorID("editor-1"), author)

	_, ok = AuthorIDFromContext(context.Background())
	assert.False(t, ok)

	_, ok = AuthorIDFromContext(ContextWithAuthorID(context.Background(), ""))
	assert.False(t, ok)
}

func TestHeaderAuthorProvider(t *testing.T) {
	provider := NewHeaderAuthorProvider("X-Author-Id")

	var seen model.AuthorID
	var enforceErr error
	handler := provider.WithAuthor()(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, enforceErr = provider.EnforceAuthor(w, r)
		if enforceErr == nil {
			w.WriteHeader(http.StatusNoContent)
		}
	}))

	testCases := []struct {
		name           string
		header         string
		expectedStatus int
		expectedAuthor model.AuthorID
	}{
		{"Header present", "editor-1", http.StatusNoContent, "editor-1"},
		{"Header padded", "  editor-2 ", http.StatusNoContent, "editor-2"},
		{"Header missing", "", http.StatusUnauthorized, ""},
		{"Header blank", "   ", http.StatusUnauthorized, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/pages/home/drafts", nil)
			if tc.header != "" {
				req.Header.Set("X-Author-Id", tc.header)
			}
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, req)

			assert.Equal(t, tc.expectedStatus, rec.Code)
			assert.Equal(t, tc.expectedAuthor, seen)
			if tc.expectedStatus == http.StatusUnauthorized {
				assert.ErrorIs(t, enforceErr, ErrNoAuthor)
			}
		})
	}
}
