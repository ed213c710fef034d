package content

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/debemdeboas/redux-content/internal/model"
	"github.com/debemdeboas/redux-content/internal/repository"
)

type WorkflowOptions struct {
	Timeout    time.Duration
	Validation model.ValidationOptions
}

// Workflow is the only writer of page versions. It validates snapshots before
// they reach the store and announces every successful write.
type Workflow struct {
	repo repository.Repository
	opts WorkflowOptions

	mu       sync.RWMutex
	notifier func(model.PageChange)
}

func NewWorkflow(repo repository.Repository, opts WorkflowOptions) *Workflow {
	return &Workflow{repo: repo, opts: opts}
}

func (w *Workflow) SetChangeNotifier(notifier func(model.PageChange)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.notifier = notifier
}

func (w *Workflow) notifyChange(change model.PageChange) {
	w.mu.RLock()
	notifier := w.notifier
	w.mu.RUnlock()

	if notifier != nil {
		notifier(change)
	}
}

func (w *Workflow) SaveDraft(ctx context.Context, pageID model.PageID, elements []model.Element, authorID model.AuthorID, note string) (*model.ContentVersion, error) {
	ctx, cancel := withTimeout(ctx, w.opts.Timeout)
	defer cancel()

	return w.save(ctx, pageID, elements, authorID, note, false, model.ChangeDraftSaved)
}

func (w *Workflow) SaveAndPublish(ctx context.Context, pageID model.PageID, elements []model.Element, authorID model.AuthorID, note string) (*model.ContentVersion, error) {
	ctx, cancel := withTimeout(ctx, w.opts.Timeout)
	defer cancel()

	return w.save(ctx, pageID, elements, authorID, note, true, model.ChangePublished)
}

// Revert publishes a copy of toVersion's elements as a new version. History
// is never rewritten.
func (w *Workflow) Revert(ctx context.Context, pageID model.PageID, toVersion int, authorID model.AuthorID) (*model.ContentVersion, error) {
	if err := checkWriteArgs(pageID, authorID); err != nil {
		return nil, err
	}

	ctx, cancel := withTimeout(ctx, w.opts.Timeout)
	defer cancel()

	target, err := w.repo.Get(ctx, pageID, toVersion)
	if err != nil {
		return nil, err
	}

	return w.save(ctx, pageID, target.Elements, authorID, fmt.Sprintf("reverted to v%d", toVersion), true, model.ChangeReverted)
}

func (w *Workflow) State(ctx context.Context, pageID model.PageID) (model.PageState, error) {
	if err := checkPageID(pageID); err != nil {
		return "", err
	}

	ctx, cancel := withTimeout(ctx, w.opts.Timeout)
	defer cancel()

	latest, err := w.repo.Latest(ctx, pageID, repository.LatestOptions{})
	if err != nil {
		return "", err
	}
	if latest == nil {
		return model.StateEmpty, nil
	}

	published, err := w.repo.Latest(ctx, pageID, repository.LatestOptions{PublishedOnly: true})
	if err != nil {
		return "", err
	}
	return model.DeriveState(latest, published), nil
}

func (w *Workflow) save(ctx context.Context, pageID model.PageID, elements []model.Element, authorID model.AuthorID, note string, publish bool, kind model.ChangeKind) (*model.ContentVersion, error) {
	if err := checkWriteArgs(pageID, authorID); err != nil {
		return nil, err
	}
	if err := model.ValidateElements(elements, w.opts.Validation); err != nil {
		contentLogger.Info().Err(err).Str("page_id", string(pageID)).Msg("Rejected malformed snapshot")
		return nil, err
	}

	// Slot types are pinned for fresh saves only. A revert may restore an
	// older type.
	if kind != model.ChangeReverted {
		latest, err := w.repo.Latest(ctx, pageID, repository.LatestOptions{})
		if err != nil {
			return nil, err
		}
		if latest != nil {
			if err := checkSlotTypes(latest.Elements, elements); err != nil {
				contentLogger.Info().Err(err).Str("page_id", string(pageID)).Msg("Rejected slot type change")
				return nil, err
			}
		}
	}

	v, err := w.repo.Append(ctx, pageID, elements, authorID, note, publish)
	if err != nil {
		contentLogger.Error().Err(err).
			Str("page_id", string(pageID)).
			Str("author_id", string(authorID)).
			Bool("published", publish).
			Msg("Error saving version")
		return nil, err
	}

	contentLogger.Info().
		Str("page_id", string(pageID)).
		Int("version", v.Version).
		Str("author_id", string(authorID)).
		Bool("published", v.Published).
		Str("kind", string(kind)).
		Msg("Version saved")

	w.notifyChange(model.PageChange{
		PageID:    pageID,
		Version:   v.Version,
		Kind:      kind,
		AuthorID:  authorID,
		Published: v.Published,
		At:        v.CreatedAt,
	})

	return v, nil
}

func checkWriteArgs(pageID model.PageID, authorID model.AuthorID) error {
	if err := checkPageID(pageID); err != nil {
		return err
	}
	if strings.TrimSpace(string(authorID)) == "" {
		return fmt.Errorf("author id is required: %w", model.ErrInvalidArgument)
	}
	return nil
}

// checkSlotTypes rejects a snapshot that keeps an id from the previous one but
// changes its type. Ids are unique across a snapshot, so list items are matched
// wherever they sit in the tree. Dropping the id in one save and re-adding it
// later is allowed.
func checkSlotTypes(previous, next []model.Element) error {
	types := make(map[string]model.ElementType)
	for _, el := range flatten(previous, nil) {
		types[el.ID] = el.Type
	}

	for _, el := range flatten(next, nil) {
		old, ok := types[el.ID]
		if !ok || old == el.Type {
			continue
		}
		return &model.MalformedElementError{
			ElementID: el.ID,
			Field:     "type",
			Reason:    fmt.Sprintf("slot type changed from %s to %s", old, el.Type),
		}
	}
	return nil
}

// flatten appends every element of the tree to out in document order.
func flatten(elements []model.Element, out []model.Element) []model.Element {
	for _, el := range elements {
		out = append(out, el)
		if items, ok := el.Content.(model.ListContent); ok {
			out = flatten(items, out)
		}
	}
	return out
}
