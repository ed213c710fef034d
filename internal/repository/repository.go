// Package repository implements the append-only version store for page
// content. Every backend assigns version numbers itself, serializes writers
// per page and never exposes a half-applied append to readers.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/redux-content/internal/model"
)

var repoLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	repoLogger = l
}

type LatestOptions struct {
	PublishedOnly bool
}

// Repository is the version store contract.
type Repository interface {
	// Append stores a new version numbered one past the page's current
	// maximum. When publish is set, every earlier version of the page loses
	// its published flag in the same atomic step.
	Append(ctx context.Context, pageID model.PageID, elements []model.Element, authorID model.AuthorID, note string, publish bool) (*model.ContentVersion, error)

	// Latest returns the highest-numbered matching version, or nil when the
	// page has none.
	Latest(ctx context.Context, pageID model.PageID, opts LatestOptions) (*model.ContentVersion, error)

	// History returns every version of the page in ascending order.
	History(ctx context.Context, pageID model.PageID) ([]model.ContentVersion, error)

	// Get returns one version or model.ErrVersionNotFound.
	Get(ctx context.Context, pageID model.PageID, version int) (*model.ContentVersion, error)

	// PageIDs lists pages that have at least one version.
	PageIDs(ctx context.Context) ([]string, error)

	Close() error
}

// Importer is implemented by backends that can store a version record as is,
// keeping its id and creation time. Migrations use it to move history between
// backends; the editor always goes through Append.
type Importer interface {
	// Import stores v as the page's next version. v.Version must be exactly
	// one past the page's current maximum. A published import clears the flag
	// on earlier versions like Append does.
	Import(ctx context.Context, v model.ContentVersion) (*model.ContentVersion, error)
}

// buildVersion produces the record to store as version number next.
type buildVersion func(next int) (model.ContentVersion, error)

func appended(pageID model.PageID, elements []model.Element, authorID model.AuthorID, note string, publish bool) buildVersion {
	return func(next int) (model.ContentVersion, error) {
		return newVersion(pageID, next, elements, authorID, note, publish)
	}
}

// imported keeps the record's identity and timestamps. The content hash is
// recomputed so a damaged source can't carry a stale one over.
func imported(v model.ContentVersion) buildVersion {
	return func(next int) (model.ContentVersion, error) {
		if v.Version != next {
			return model.ContentVersion{}, fmt.Errorf("importing %q v%d onto v%d: %w", v.PageID, v.Version, next-1, model.ErrInvalidArgument)
		}

		out := v.Clone()
		if out.Elements == nil {
			out.Elements = []model.Element{}
		}

		hash, err := model.HashElements(out.Elements)
		if err != nil {
			return model.ContentVersion{}, fmt.Errorf("encoding elements: %w", err)
		}
		out.ContentHash = hash

		if out.ID == "" {
			id, err := uuid.NewV7()
			if err != nil {
				return model.ContentVersion{}, fmt.Errorf("generating version id: %w", err)
			}
			out.ID = id.String()
		}
		if out.CreatedAt.IsZero() {
			out.CreatedAt = time.Now()
		}
		out.CreatedAt = out.CreatedAt.UTC()

		return out, nil
	}
}

// newVersion builds the record for an append. Elements are deep-copied so the
// caller's slice can't alias stored state.
func newVersion(pageID model.PageID, number int, elements []model.Element, authorID model.AuthorID, note string, publish bool) (model.ContentVersion, error) {
	elements = model.CloneElements(elements)
	if elements == nil {
		elements = []model.Element{}
	}

	hash, err := model.HashElements(elements)
	if err != nil {
		return model.ContentVersion{}, fmt.Errorf("encoding elements: %w", err)
	}

	id, err := uuid.NewV7()
	if err != nil {
		return model.ContentVersion{}, fmt.Errorf("generating version id: %w", err)
	}

	return model.ContentVersion{
		ID:          id.String(),
		PageID:      pageID,
		Version:     number,
		Elements:    elements,
		AuthorID:    authorID,
		Note:        note,
		CreatedAt:   time.Now().UTC(),
		Published:   publish,
		ContentHash: hash,
	}, nil
}

// unavailable wraps a backend failure as model.ErrStorageUnavailable, keeping
// the cause. Errors that already carry a store sentinel pass through.
func unavailable(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, model.ErrStorageUnavailable) ||
		errors.Is(err, model.ErrConcurrentVersionConflict) ||
		errors.Is(err, model.ErrVersionNotFound) ||
		errors.Is(err, model.ErrInvalidArgument) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, model.ErrStorageUnavailable, err)
}

// conflict reports a broken single-writer invariant. It is logged at error
// level because it means history could have been corrupted.
func conflict(pageID model.PageID, version int, cause error) error {
	repoLogger.Error().
		Err(cause).
		Str("page_id", string(pageID)).
		Int("version", version).
		Msg("Concurrent version conflict: single-writer invariant violated")
	return fmt.Errorf("page %q version %d: %w: %w", pageID, version, model.ErrConcurrentVersionConflict, cause)
}

func versionNotFound(pageID model.PageID, version int) error {
	return fmt.Errorf("page %q version %d: %w", pageID, version, model.ErrVersionNotFound)
}

func checkPageID(pageID model.PageID) error {
	if pageID == "" {
		return fmt.Errorf("empty page id: %w", model.ErrInvalidArgument)
	}
	return nil
}
