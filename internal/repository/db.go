package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/debemdeboas/redux-content/internal/cache"
	"github.com/debemdeboas/redux-content/internal/db"
	"github.com/debemdeboas/redux-content/internal/model"
	"github.com/debemdeboas/redux-content/internal/util/compression"
)

const (
	selectVersionColumns = `SELECT id, page_id, version, elements, content_hash, author_id, note, created_at, published FROM content_versions`

	// Decoded snapshots are immutable, so they are cached by content hash.
	// The cache is dropped wholesale when it grows past this size.
	maxDecodedSnapshots = 1024
)

type DBRepository struct { // implements Repository, Importer
	db         db.DB
	compressor compression.Compressor
	locks      *cache.KeyedMutex[model.PageID]

	decoded *cache.Cache[string, []model.Element]
}

func NewDBRepository(database db.DB, compressor compression.Compressor) *DBRepository {
	if compressor == nil {
		compressor = compression.ZstdCompressor{}
	}

	return &DBRepository{
		db:         database,
		compressor: compressor,
		locks:      cache.NewKeyedMutex[model.PageID](),
		decoded:    cache.NewCache[string, []model.Element](),
	}
}

func (r *DBRepository) rebind(query string) string {
	return r.db.Dialect().Rebind(query)
}

func (r *DBRepository) Append(ctx context.Context, pageID model.PageID, elements []model.Element, authorID model.AuthorID, note string, publish bool) (*model.ContentVersion, error) {
	return r.write(ctx, pageID, "append", appended(pageID, elements, authorID, note, publish))
}

func (r *DBRepository) Import(ctx context.Context, v model.ContentVersion) (*model.ContentVersion, error) {
	return r.write(ctx, v.PageID, "import", imported(v))
}

func (r *DBRepository) write(ctx context.Context, pageID model.PageID, op string, build buildVersion) (*model.ContentVersion, error) {
	if err := checkPageID(pageID); err != nil {
		return nil, err
	}

	unlock, err := r.locks.LockContext(ctx, pageID)
	if err != nil {
		return nil, unavailable(op, err)
	}
	defer unlock()

	tx, err := r.db.Get().BeginTx(ctx, nil)
	if err != nil {
		return nil, unavailable("begin append", err)
	}
	defer tx.Rollback()

	if stmt := r.db.Dialect().PageLockStatement(); stmt != "" {
		if _, err := tx.ExecContext(ctx, stmt, string(pageID)); err != nil {
			return nil, unavailable("lock page", err)
		}
	}

	var current sql.NullInt64
	err = tx.QueryRowContext(ctx,
		r.rebind(`SELECT MAX(version) FROM content_versions WHERE page_id = ?`),
		string(pageID),
	).Scan(&current)
	if err != nil {
		return nil, unavailable("read max version", err)
	}

	v, err := build(int(current.Int64) + 1)
	if err != nil {
		return nil, unavailable(op, err)
	}

	encoded, err := model.EncodeElements(v.Elements)
	if err != nil {
		return nil, unavailable("encode elements", err)
	}
	compressed, err := r.compressor.Compress(encoded)
	if err != nil {
		return nil, unavailable("compress elements", err)
	}

	if v.Published {
		_, err := tx.ExecContext(ctx,
			r.rebind(`UPDATE content_versions SET published = ? WHERE page_id = ? AND published = ?`),
			false, string(pageID), true,
		)
		if err != nil {
			return nil, unavailable("clear published", err)
		}
	}

	_, err = tx.ExecContext(ctx,
		r.rebind(`INSERT INTO content_versions (id, page_id, version, elements, content_hash, author_id, note, created_at, published) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		v.ID, string(v.PageID), v.Version, compressed, v.ContentHash, string(v.AuthorID), v.Note, v.CreatedAt, v.Published,
	)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return nil, conflict(pageID, v.Version, err)
		}
		return nil, unavailable("insert version", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, unavailable("commit "+op, err)
	}

	repoLogger.Debug().
		Str("page_id", string(pageID)).
		Int("version", v.Version).
		Bool("published", v.Published).
		Int("compressed_bytes", len(compressed)).
		Str("op", op).
		Msg("Version appended")

	return &v, nil
}

func (r *DBRepository) Latest(ctx context.Context, pageID model.PageID, opts LatestOptions) (*model.ContentVersion, error) {
	query := selectVersionColumns + ` WHERE page_id = ?`
	args := []any{string(pageID)}
	if opts.PublishedOnly {
		query += ` AND published = ?`
		args = append(args, true)
	}
	query += ` ORDER BY version DESC LIMIT 1`

	row := r.db.Get().QueryRowContext(ctx, r.rebind(query), args...)
	v, err := r.scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, unavailable("latest", err)
	}
	return v, nil
}

func (r *DBRepository) History(ctx context.Context, pageID model.PageID) ([]model.ContentVersion, error) {
	rows, err := r.db.Get().QueryContext(ctx,
		r.rebind(selectVersionColumns+` WHERE page_id = ? ORDER BY version ASC`),
		string(pageID),
	)
	if err != nil {
		return nil, unavailable("history", err)
	}
	defer rows.Close()

	versions := make([]model.ContentVersion, 0)
	for rows.Next() {
		v, err := r.scanVersion(rows)
		if err != nil {
			return nil, unavailable("history", err)
		}
		versions = append(versions, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("history", err)
	}

	return versions, nil
}

func (r *DBRepository) Get(ctx context.Context, pageID model.PageID, version int) (*model.ContentVersion, error) {
	row := r.db.Get().QueryRowContext(ctx,
		r.rebind(selectVersionColumns+` WHERE page_id = ? AND version = ?`),
		string(pageID), version,
	)
	v, err := r.scanVersion(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, versionNotFound(pageID, version)
	}
	if err != nil {
		return nil, unavailable("get", err)
	}
	return v, nil
}

func (r *DBRepository) PageIDs(ctx context.Context) ([]string, error) {
	rows, err := r.db.Get().QueryContext(ctx, `SELECT DISTINCT page_id FROM content_versions ORDER BY page_id`)
	if err != nil {
		return nil, unavailable("page ids", err)
	}
	defer rows.Close()

	ids := make([]string, 0)
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, unavailable("page ids", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("page ids", err)
	}
	return ids, nil
}

func (r *DBRepository) Close() error {
	return r.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (r *DBRepository) scanVersion(row rowScanner) (*model.ContentVersion, error) {
	var (
		v          model.ContentVersion
		pageID     string
		authorID   string
		compressed []byte
		createdAt  time.Time
	)

	err := row.Scan(&v.ID, &pageID, &v.Version, &compressed, &v.ContentHash, &authorID, &v.Note, &createdAt, &v.Published)
	if err != nil {
		return nil, err
	}

	v.PageID = model.PageID(pageID)
	v.AuthorID = model.AuthorID(authorID)
	v.CreatedAt = createdAt.UTC()

	elements, err := r.decodeElements(v.ContentHash, compressed)
	if err != nil {
		return nil, fmt.Errorf("decoding version %d of %q: %w", v.Version, pageID, err)
	}
	v.Elements = elements

	return &v, nil
}

func (r *DBRepository) decodeElements(hash string, compressed []byte) ([]model.Element, error) {
	if cached, ok := r.decoded.Get(hash); ok {
		return model.CloneElements(cached), nil
	}

	data, err := r.compressor.Decompress(compressed)
	if err != nil {
		return nil, fmt.Errorf("error decompressing elements: %w", err)
	}

	elements, err := model.DecodeElements(data)
	if err != nil {
		return nil, fmt.Errorf("error decoding elements: %w", err)
	}

	if r.decoded.Len() >= maxDecodedSnapshots {
		r.decoded.Clear()
	}
	r.decoded.Set(hash, elements)

	return model.CloneElements(elements), nil
}
