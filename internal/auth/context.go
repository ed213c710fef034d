package auth

import (
	"context"

	"github.com/debemdeboas/redux-content/internal/model"
)

// ContextKey is a type for context keys to avoid collisions
type ContextKey string

// ContextKeyAuthorID is the key for the author ID in request context
const ContextKeyAuthorID ContextKey = "authorID"

// ContextWithAuthorID returns a new context with the author ID set
func ContextWithAuthorID(ctx context.Context, authorID model.AuthorID) context.Context {
	return context.WithValue(ctx, ContextKeyAuthorID, authorID)
}

// AuthorIDFromContext extracts the author ID from context
func AuthorIDFromContext(ctx context.Context) (model.AuthorID, bool) {
	authorID, ok := ctx.Value(ContextKeyAuthorID).(model.AuthorID)
	return authorID, ok && authorID != ""
}
