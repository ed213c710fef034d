package repository

import (
	"context"
	"sort"
	"sync/atomic"

	"github.com/debemdeboas/redux-content/internal/cache"
	"github.com/debemdeboas/redux-content/internal/model"
)

type memoryPage struct {
	// Readers load the current snapshot without locking; writers build a new
	// slice and swap it in.
	versions atomic.Pointer[[]model.ContentVersion]
}

func (p *memoryPage) load() []model.ContentVersion {
	if v := p.versions.Load(); v != nil {
		return *v
	}
	return nil
}

type MemoryRepository struct { // implements Repository, Importer
	pages *cache.Cache[model.PageID, *memoryPage]
	locks *cache.KeyedMutex[model.PageID]
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		pages: cache.NewCache[model.PageID, *memoryPage](),
		locks: cache.NewKeyedMutex[model.PageID](),
	}
}

func (r *MemoryRepository) Append(ctx context.Context, pageID model.PageID, elements []model.Element, authorID model.AuthorID, note string, publish bool) (*model.ContentVersion, error) {
	return r.write(ctx, pageID, "append", appended(pageID, elements, authorID, note, publish))
}

func (r *MemoryRepository) Import(ctx context.Context, v model.ContentVersion) (*model.ContentVersion, error) {
	return r.write(ctx, v.PageID, "import", imported(v))
}

func (r *MemoryRepository) write(ctx context.Context, pageID model.PageID, op string, build buildVersion) (*model.ContentVersion, error) {
	if err := checkPageID(pageID); err != nil {
		return nil, err
	}

	unlock, err := r.locks.LockContext(ctx, pageID)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer unlock()

	page := r.pages.GetOrSet(pageID, func() *memoryPage { return &memoryPage{} })
	current := page.load()

	v, err := build(len(current) + 1)
	if err != nil {
		return nil, unavailable(op, err)
	}

	next := make([]model.ContentVersion, len(current), len(current)+1)
	copy(next, current)
	if v.Published {
		for i := range next {
			next[i].Published = false
		}
	}
	next = append(next, v)
	page.versions.Store(&next)

	out := v.Clone()
	return &out, nil
}

func (r *MemoryRepository) Latest(ctx context.Context, pageID model.PageID, opts LatestOptions) (*model.ContentVersion, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("latest", err)
	}

	page, ok := r.pages.Get(pageID)
	if !ok {
		return nil, nil
	}

	versions := page.load()
	for i := len(versions) - 1; i >= 0; i-- {
		if opts.PublishedOnly && !versions[i].Published {
			continue
		}
		out := versions[i].Clone()
		return &out, nil
	}
	return nil, nil
}

func (r *MemoryRepository) History(ctx context.Context, pageID model.PageID) ([]model.ContentVersion, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("history", err)
	}

	page, ok := r.pages.Get(pageID)
	if !ok {
		return []model.ContentVersion{}, nil
	}

	versions := page.load()
	out := make([]model.ContentVersion, len(versions))
	for i, v := range versions {
		out[i] = v.Clone()
	}
	return out, nil
}

func (r *MemoryRepository) Get(ctx context.Context, pageID model.PageID, version int) (*model.ContentVersion, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("get", err)
	}

	page, ok := r.pages.Get(pageID)
	if !ok {
		return nil, versionNotFound(pageID, version)
	}

	// Versions are dense from 1, so the number doubles as an index.
	versions := page.load()
	if version < 1 || version > len(versions) {
		return nil, versionNotFound(pageID, version)
	}
	out := versions[version-1].Clone()
	return &out, nil
}

func (r *MemoryRepository) PageIDs(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, unavailable("page ids", err)
	}

	ids := make([]string, 0, r.pages.Len())
	for _, id := range r.pages.Keys() {
		if page, ok := r.pages.Get(id); ok && len(page.load()) > 0 {
			ids = append(ids, string(id))
		}
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *MemoryRepository) Close() error {
	return nil
}
