package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/debemdeboas/redux-content/internal/cache"
	"github.com/debemdeboas/redux-content/internal/model"
	"github.com/debemdeboas/redux-content/internal/util/compression"
)

var (
	ErrObjectNotFound     = errors.New("object not found")
	ErrPreconditionFailed = errors.New("object precondition failed")
)

type Object struct {
	Data []byte
	ETag string
}

// ObjectStore is a flat key/value blob store with compare-and-swap writes.
type ObjectStore interface {
	// Get returns ErrObjectNotFound when key is absent.
	Get(ctx context.Context, key string) (*Object, error)

	// Put replaces key atomically. An empty ifMatch requires that key does
	// not exist yet; otherwise the stored ETag must equal ifMatch. A failed
	// condition returns ErrPreconditionFailed.
	Put(ctx context.Context, key string, data []byte, ifMatch string) (etag string, err error)

	// List returns every key with the given prefix.
	List(ctx context.Context, prefix string) ([]string, error)
}

const logSuffix = ".log"

type pageLogDocument struct {
	PageID   model.PageID           `json:"pageId"`
	Versions []model.ContentVersion `json:"versions"`
}

// LogRepository keeps one compressed log object per page on an ObjectStore.
// Each append rewrites the page's object with a conditional put, so readers
// only ever see the object before or after the write.
type LogRepository struct { // implements Repository, Importer
	store      ObjectStore
	prefix     string
	compressor compression.Compressor
	locks      *cache.KeyedMutex[model.PageID]
}

func NewLogRepository(store ObjectStore, prefix string, compressor compression.Compressor) *LogRepository {
	if compressor == nil {
		compressor = compression.ZstdCompressor{}
	}

	return &LogRepository{
		store:      store,
		prefix:     prefix,
		compressor: compressor,
		locks:      cache.NewKeyedMutex[model.PageID](),
	}
}

func (r *LogRepository) key(pageID model.PageID) string {
	return r.prefix + url.PathEscape(string(pageID)) + logSuffix
}

func (r *LogRepository) load(ctx context.Context, pageID model.PageID) (*pageLogDocument, string, error) {
	obj, err := r.store.Get(ctx, r.key(pageID))
	if errors.Is(err, ErrObjectNotFound) {
		return &pageLogDocument{PageID: pageID}, "", nil
	}
	if err != nil {
		return nil, "", err
	}

	data, err := r.compressor.Decompress(obj.Data)
	if err != nil {
		return nil, "", fmt.Errorf("error decompressing page log: %w", err)
	}

	var doc pageLogDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, "", fmt.Errorf("error decoding page log: %w", err)
	}
	return &doc, obj.ETag, nil
}

func (r *LogRepository) Append(ctx context.Context, pageID model.PageID, elements []model.Element, authorID model.AuthorID, note string, publish bool) (*model.ContentVersion, error) {
	return r.write(ctx, pageID, "append", appended(pageID, elements, authorID, note, publish))
}

func (r *LogRepository) Import(ctx context.Context, v model.ContentVersion) (*model.ContentVersion, error) {
	return r.write(ctx, v.PageID, "import", imported(v))
}

func (r *LogRepository) write(ctx context.Context, pageID model.PageID, op string, build buildVersion) (*model.ContentVersion, error) {
	if err := checkPageID(pageID); err != nil {
		return nil, err
	}

	unlock, err := r.locks.LockContext(ctx, pageID)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer unlock()

	doc, etag, err := r.load(ctx, pageID)
	if err != nil {
		return nil, unavailable("load page log", err)
	}

	v, err := build(len(doc.Versions) + 1)
	if err != nil {
		return nil, unavailable(op, err)
	}

	if v.Published {
		for i := range doc.Versions {
			doc.Versions[i].Published = false
		}
	}
	doc.Versions = append(doc.Versions, v)

	data, err := json.Marshal(doc)
	if err != nil {
		return nil, unavailable("encode page log", err)
	}
	compressed, err := r.compressor.Compress(data)
	if err != nil {
		return nil, unavailable("compress page log", err)
	}

	if _, err := r.store.Put(ctx, r.key(pageID), compressed, etag); err != nil {
		if errors.Is(err, ErrPreconditionFailed) {
			return nil, conflict(pageID, v.Version, err)
		}
		return nil, unavailable("write page log", err)
	}

	repoLogger.Debug().
		Str("page_id", string(pageID)).
		Int("version", v.Version).
		Bool("published", v.Published).
		Int("log_bytes", len(compressed)).
		Msg("Version appended")

	out := v.Clone()
	return &out, nil
}

func (r *LogRepository) Latest(ctx context.Context, pageID model.PageID, opts LatestOptions) (*model.ContentVersion, error) {
	doc, _, err := r.load(ctx, pageID)
	if err != nil {
		return nil, unavailable("latest", err)
	}

	for i := len(doc.Versions) - 1; i >= 0; i-- {
		if opts.PublishedOnly && !doc.Versions[i].Published {
			continue
		}
		v := doc.Versions[i]
		return &v, nil
	}
	return nil, nil
}

func (r *LogRepository) History(ctx context.Context, pageID model.PageID) ([]model.ContentVersion, error) {
	doc, _, err := r.load(ctx, pageID)
	if err != nil {
		return nil, unavailable("history", err)
	}
	if doc.Versions == nil {
		return []model.ContentVersion{}, nil
	}
	return doc.Versions, nil
}

func (r *LogRepository) Get(ctx context.Context, pageID model.PageID, version int) (*model.ContentVersion, error) {
	doc, _, err := r.load(ctx, pageID)
	if err != nil {
		return nil, unavailable("get", err)
	}

	if version < 1 || version > len(doc.Versions) {
		return nil, versionNotFound(pageID, version)
	}
	v := doc.Versions[version-1]
	return &v, nil
}

func (r *LogRepository) PageIDs(ctx context.Context) ([]string, error) {
	keys, err := r.store.List(ctx, r.prefix)
	if err != nil {
		return nil, unavailable("page ids", err)
	}

	ids := make([]string, 0, len(keys))
	for _, key := range keys {
		name, ok := strings.CutSuffix(strings.TrimPrefix(key, r.prefix), logSuffix)
		if !ok || strings.Contains(name, "/") {
			continue
		}
		id, err := url.PathUnescape(name)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (r *LogRepository) Close() error {
	return nil
}
