package provider

import (
	"context"
	"database/sql"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/aryanzandi123/yesah/errors"
	"github.com/aryanzandi123/yesah/graph"
	"github.com/aryanzandi123/yesah/logger"
)

const cacheSchema = `
	CREATE TABLE IF NOT EXISTS payload_cache (
		protein TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		fetched_at INTEGER NOT NULL
	)`

// CacheStore keeps full payloads in SQLite keyed by protein
type CacheStore struct {
	db  *sql.DB
	ttl time.Duration
	now func() time.Time
}

// OpenCacheStore opens (creating if needed) the cache database at path
func OpenCacheStore(path string, ttl time.Duration) (*CacheStore, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open payload cache %s", path)
	}
	store := NewCacheStore(db, ttl)
	if err := store.Migrate(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// NewCacheStore wraps an open database. ttl <= 0 keeps entries forever.
func NewCacheStore(db *sql.DB, ttl time.Duration) *CacheStore {
	return &CacheStore{db: db, ttl: ttl, now: time.Now}
}

// Migrate creates the cache table
func (s *CacheStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, cacheSchema); err != nil {
		return errors.Wrap(err, "failed to create payload_cache table")
	}
	return nil
}

// Get returns the cached payload for protein. Missing and expired entries
// return ErrNotFound.
func (s *CacheStore) Get(ctx context.Context, protein string) ([]byte, time.Time, error) {
	var (
		payload []byte
		fetched int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT payload, fetched_at FROM payload_cache WHERE protein = ?`, protein).
		Scan(&payload, &fetched)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, errors.NewNotFoundError("no cached payload for %s", protein)
	}
	if err != nil {
		return nil, time.Time{}, errors.Wrapf(err, "failed to read cached payload for %s", protein)
	}

	at := time.Unix(fetched, 0)
	if s.ttl > 0 && s.now().Sub(at) > s.ttl {
		return nil, at, errors.NewNotFoundError("cached payload for %s expired", protein)
	}
	return payload, at, nil
}

// Put stores payload for protein, replacing any earlier entry
func (s *CacheStore) Put(ctx context.Context, protein string, payload []byte) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payload_cache (protein, payload, fetched_at) VALUES (?, ?, ?)
		 ON CONFLICT(protein) DO UPDATE SET payload = excluded.payload, fetched_at = excluded.fetched_at`,
		protein, payload, s.now().Unix())
	if err != nil {
		return errors.Wrapf(err, "failed to cache payload for %s", protein)
	}
	return nil
}

// Purge deletes entries older than the TTL and returns how many went
func (s *CacheStore) Purge(ctx context.Context) (int64, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM payload_cache WHERE fetched_at < ?`, s.now().Add(-s.ttl).Unix())
	if err != nil {
		return 0, errors.Wrap(err, "failed to purge payload cache")
	}
	return res.RowsAffected()
}

// Close closes the database
func (s *CacheStore) Close() error {
	return s.db.Close()
}

// CachingProvider serves full payloads from a CacheStore and answers pruned
// requests locally when the inner provider can only offer the full payload
type CachingProvider struct {
	inner  Provider
	store  *CacheStore
	logger *zap.SugaredLogger
}

// NewCachingProvider wraps inner with store
func NewCachingProvider(inner Provider, store *CacheStore, log *zap.SugaredLogger) *CachingProvider {
	return &CachingProvider{inner: inner, store: store, logger: log.Named("provider.cache")}
}

// FetchPruned asks the inner provider first. When it needs the full payload
// and the cache has one, the cached payload is pruned here.
func (p *CachingProvider) FetchPruned(ctx context.Context, req ExpandRequest) (*PrunedResult, error) {
	res, err := p.inner.FetchPruned(ctx, req)
	needsFull := errors.Is(err, errors.ErrNeedsFull) || (err == nil && res != nil && res.NeedsFull)
	if !needsFull {
		return res, err
	}

	full, _, cerr := p.store.Get(ctx, req.Protein)
	if cerr != nil {
		return &PrunedResult{JobID: JobID(req.Parent, req.Protein), NeedsFull: true}, nil
	}
	out, perr := PruneBytes(full, req)
	if perr != nil {
		p.logger.Warnw("Cached payload failed to prune",
			logger.FieldProtein, req.Protein, logger.FieldError, perr)
		return &PrunedResult{JobID: JobID(req.Parent, req.Protein), NeedsFull: true}, nil
	}
	p.logger.Debugw("Pruned from cache",
		logger.FieldProtein, req.Protein, logger.FieldCount, len(out.Kept))
	return out, nil
}

// FetchFull returns the cached payload or fetches and caches it
func (p *CachingProvider) FetchFull(ctx context.Context, protein string) ([]byte, error) {
	if payload, _, err := p.store.Get(ctx, protein); err == nil {
		p.logger.Debugw("Payload cache hit", logger.FieldProtein, protein)
		return payload, nil
	} else if !errors.IsNotFoundError(err) {
		p.logger.Warnw("Payload cache read failed", logger.FieldProtein, protein, logger.FieldError, err)
	}

	payload, err := p.inner.FetchFull(ctx, protein)
	if err != nil {
		return nil, err
	}
	if err := p.store.Put(ctx, protein, payload); err != nil {
		p.logger.Warnw("Payload cache write failed", logger.FieldProtein, protein, logger.FieldError, err)
	}
	return payload, nil
}

// PruneBytes decodes a full payload, prunes it for req and encodes the result
func PruneBytes(full []byte, req ExpandRequest) (*PrunedResult, error) {
	p, err := graph.DecodePayload(full)
	if err != nil {
		return nil, err
	}
	pr := Prune(p, req)
	data, err := graph.EncodePayload(pr.Payload)
	if err != nil {
		return nil, err
	}
	return &PrunedResult{
		JobID:   JobID(req.Parent, req.Protein),
		Payload: data,
		Kept:    pr.Kept,
	}, nil
}
