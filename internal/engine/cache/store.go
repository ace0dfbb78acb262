package cache

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"

	"github.com/rshade/finplan/internal/client"
	"github.com/rshade/finplan/internal/fingerprint"
	"github.com/rshade/finplan/internal/kvstore"
	"github.com/rshade/finplan/internal/logging"
)

// Storage layout.
const (
	// EntryKeyPrefix prefixes every entry key; the fingerprint follows it.
	EntryKeyPrefix = "finplan_rec:"

	// IndexKey holds the encoded MetadataIndex.
	IndexKey = "finplan_meta:index"
)

// Miss reasons reported to the Observer.
const (
	MissNotFound       = "not_found"
	MissExpired        = "expired"
	MissSchemaMismatch = "schema_mismatch"
	MissCorrupt        = "corrupt"
	MissDisabled       = "disabled"
)

// Eviction reasons reported to the Observer.
const (
	EvictExpired     = "expired"
	EvictCapacity    = "capacity"
	EvictInvalidated = "invalidated"
)

// Common cache errors.
var (
	ErrCacheDisabled = errors.New("cache is disabled")
	ErrStorageFull   = errors.New("cache storage is full")
)

// Stats is a read-only diagnostic view of the cache.
type Stats struct {
	TotalEntries   int     `json:"totalEntries"`
	ExpiredEntries int     `json:"expiredEntries"`
	ActiveEntries  int     `json:"activeEntries"`
	ApproxSizeKB   float64 `json:"approxSizeKB"`
}

// CleanupResult reports what a cleanup pass removed.
type CleanupResult struct {
	Expired    int `json:"expired"`
	Evicted    int `json:"evicted"`
	Reconciled int `json:"reconciled"`
}

// Observer receives cache events; telemetry implements it.
type Observer interface {
	CacheHit()
	CacheMiss(reason string)
	CacheEvicted(reason string, n int)
	CachePutFailed()
	CacheEntries(n int)
}

type noopObserver struct{}

func (noopObserver) CacheHit()                {}
func (noopObserver) CacheMiss(string)         {}
func (noopObserver) CacheEvicted(string, int) {}
func (noopObserver) CachePutFailed()          {}
func (noopObserver) CacheEntries(int)         {}

// Option configures a Store.
type Option func(*Store)

// WithMaxEntries sets the capacity cleanup trims down to.
func WithMaxEntries(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.maxEntries = n
		}
	}
}

// WithDefaultTTL sets the TTL used by Put.
func WithDefaultTTL(ttl time.Duration) Option {
	return func(s *Store) { s.defaultTTL = ttl }
}

// WithCleanupInterval sets the minimum time between opportunistic cleanups.
func WithCleanupInterval(d time.Duration) Option {
	return func(s *Store) { s.cleanupInterval = d }
}

// WithSchemaVersion sets the schema version written and accepted.
func WithSchemaVersion(v string) Option {
	return func(s *Store) { s.schemaVersion = v }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithObserver installs an event observer.
func WithObserver(o Observer) Option {
	return func(s *Store) {
		if o != nil {
			s.observer = o
		}
	}
}

// Store caches recommendation payloads by fingerprint on top of a
// kvstore.Store.
//
// One Store is created at startup and shared; its mutex serializes
// operations within the process. Processes sharing the same backing
// storage are not coordinated: concurrent Puts of one fingerprint resolve
// last-write-wins and the metadata index may briefly miss entries, which
// the next Cleanup reconciles.
type Store struct {
	kv              kvstore.Store
	maxEntries      int
	defaultTTL      time.Duration
	cleanupInterval time.Duration
	schemaVersion   string
	now             func() time.Time
	observer        Observer

	mu sync.Mutex
}

// New returns a Store over kv. A nil kv yields a disabled cache: every
// lookup misses and Put returns ErrCacheDisabled.
func New(kv kvstore.Store, opts ...Option) *Store {
	s := &Store{
		kv:              kv,
		maxEntries:      DefaultMaxEntries,
		defaultTTL:      DefaultTTL,
		cleanupInterval: DefaultCleanupInterval,
		schemaVersion:   DefaultSchemaVersion,
		now:             time.Now,
		observer:        noopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsEnabled reports whether the cache has backing storage.
func (s *Store) IsEnabled() bool {
	return s.kv != nil
}

// SchemaVersion returns the schema version this store reads and writes.
func (s *Store) SchemaVersion() string {
	return s.schemaVersion
}

// Fingerprint returns the cache key for goals and c at the store's clock.
func (s *Store) Fingerprint(goals []client.Goal, c client.Snapshot) string {
	return fingerprint.FingerprintAt(goals, c, s.now())
}

// Get returns the valid entry for goals and c. Expired, schema-mismatched
// and corrupt entries are deleted and reported as absent.
func (s *Store) Get(ctx context.Context, goals []client.Goal, c client.Snapshot) (*Entry, bool) {
	return s.GetByFingerprint(ctx, s.Fingerprint(goals, c))
}

// GetByFingerprint is Get for a precomputed fingerprint.
func (s *Store) GetByFingerprint(ctx context.Context, fp string) (*Entry, bool) {
	logger := s.logger(ctx, "get").With().Str("fingerprint", fp).Logger()

	if !s.IsEnabled() {
		s.observer.CacheMiss(MissDisabled)
		return nil, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := EntryKeyPrefix + fp
	raw, err := s.kv.Get(key)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			logger.Warn().Err(err).Msg("cache read failed, treating as miss")
		}
		s.observer.CacheMiss(MissNotFound)
		return nil, false
	}

	entry, err := decodeEntry(raw, fp)
	if err != nil {
		logger.Debug().Err(err).Msg("dropping corrupt cache entry")
		s.removeLocked(ctx, []string{fp})
		s.observer.CacheMiss(MissCorrupt)
		return nil, false
	}

	if entry.SchemaVersion != s.schemaVersion {
		logger.Debug().
			Str("entry_schema", entry.SchemaVersion).
			Str("current_schema", s.schemaVersion).
			Msg("dropping cache entry with foreign schema version")
		s.removeLocked(ctx, []string{fp})
		s.observer.CacheMiss(MissSchemaMismatch)
		return nil, false
	}

	if entry.IsExpiredAt(s.now()) {
		logger.Debug().Time("expires_at", entry.ExpiresAt).Msg("cache entry expired")
		s.removeLocked(ctx, []string{fp})
		s.observer.CacheMiss(MissExpired)
		s.observer.CacheEvicted(EvictExpired, 1)
		return nil, false
	}

	entry.FromCache = true
	s.observer.CacheHit()
	logger.Debug().Msg("cache hit")
	return entry, true
}

// Put stores recs for goals and c with the default TTL.
func (s *Store) Put(ctx context.Context, goals []client.Goal, c client.Snapshot, recs json.RawMessage) error {
	return s.PutWithTTL(ctx, goals, c, recs, s.defaultTTL)
}

// PutWithTTL stores recs for goals and c, valid for ttl.
//
// A failed write is logged and returned so the caller can carry on without
// the cache; it is never fatal. ErrStorageFull marks quota failures.
func (s *Store) PutWithTTL(ctx context.Context, goals []client.Goal, c client.Snapshot, recs json.RawMessage, ttl time.Duration) error {
	now := s.now()
	fp := fingerprint.FingerprintAt(goals, c, now)
	return s.put(ctx, NewEntry(fp, recs, now, ttl, len(goals), string(c.ID), s.schemaVersion))
}

// PutFingerprint is Put under a fingerprint computed earlier, so that a
// response fetched for fp lands under fp even if the clock moved on.
func (s *Store) PutFingerprint(ctx context.Context, fp string, goals []client.Goal, c client.Snapshot, recs json.RawMessage) error {
	return s.put(ctx, NewEntry(fp, recs, s.now(), s.defaultTTL, len(goals), string(c.ID), s.schemaVersion))
}

// PutEntry stores a fully formed entry; its fingerprint is used as the key.
// An empty SchemaVersion is set to the store's.
func (s *Store) PutEntry(ctx context.Context, e *Entry) error {
	if e.SchemaVersion == "" {
		e.SchemaVersion = s.schemaVersion
	}
	return s.put(ctx, e)
}

func (s *Store) put(ctx context.Context, e *Entry) error {
	logger := s.logger(ctx, "put").With().Str("fingerprint", e.Fingerprint).Logger()

	if !s.IsEnabled() {
		return ErrCacheDisabled
	}
	if len(e.Recommendations) == 0 || !json.Valid(e.Recommendations) {
		s.observer.CachePutFailed()
		return errors.New("recommendations must be a JSON value")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(e)
	if err != nil {
		s.observer.CachePutFailed()
		return fmt.Errorf("encoding cache entry: %w", err)
	}

	key := EntryKeyPrefix + e.Fingerprint
	if err = s.kv.Set(key, string(payload)); err != nil {
		s.observer.CachePutFailed()
		logger.Warn().Err(err).Msg("cache write failed, continuing without cache")
		return wrapStorageErr(err)
	}

	idx := s.loadIndexLocked(ctx)
	idx.Entries[e.Fingerprint] = IndexRecord{StorageKey: key, CreatedAt: e.CreatedAt, ExpiresAt: e.ExpiresAt}
	if err = s.saveIndexLocked(idx); err != nil {
		// Keep the index a subset of stored keys.
		_ = s.kv.Delete(key)
		s.observer.CachePutFailed()
		logger.Warn().Err(err).Msg("cache index write failed, continuing without cache")
		return wrapStorageErr(err)
	}

	logger.Debug().Time("expires_at", e.ExpiresAt).Int("goals", e.GoalsCount).Msg("cached recommendations")

	if s.now().Sub(idx.LastCleanupAt) >= s.cleanupInterval {
		s.cleanupLocked(ctx)
	} else {
		s.observer.CacheEntries(len(idx.Entries))
	}
	return nil
}

// Invalidate removes the entry for goals and c. It reports whether an
// entry was present.
func (s *Store) Invalidate(ctx context.Context, goals []client.Goal, c client.Snapshot) bool {
	return s.InvalidateFingerprint(ctx, s.Fingerprint(goals, c))
}

// InvalidateFingerprint is Invalidate for a precomputed fingerprint.
func (s *Store) InvalidateFingerprint(ctx context.Context, fp string) bool {
	if !s.IsEnabled() {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.kv.Get(EntryKeyPrefix + fp)
	existed := err == nil
	s.removeLocked(ctx, []string{fp})
	if existed {
		s.observer.CacheEvicted(EvictInvalidated, 1)
		s.logger(ctx, "invalidate").Debug().Str("fingerprint", fp).Msg("invalidated cache entry")
	}
	return existed
}

// ClearAll removes every cache entry and the index. It returns the number
// of entries removed.
func (s *Store) ClearAll(ctx context.Context) int {
	if !s.IsEnabled() {
		return 0
	}
	logger := s.logger(ctx, "clear_all")

	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make(map[string]struct{})
	for _, rec := range s.loadIndexLocked(ctx).Entries {
		keys[rec.StorageKey] = struct{}{}
	}
	if stored, err := s.kv.Keys(EntryKeyPrefix); err == nil {
		for _, k := range stored {
			keys[k] = struct{}{}
		}
	} else {
		logger.Warn().Err(err).Msg("listing cache keys failed, clearing indexed entries only")
	}

	removed := 0
	for k := range keys {
		if _, err := s.kv.Get(k); err != nil {
			continue
		}
		if err := s.kv.Delete(k); err != nil {
			logger.Warn().Err(err).Str("key", k).Msg("failed to delete cache entry")
			continue
		}
		removed++
	}
	if err := s.kv.Delete(IndexKey); err != nil {
		logger.Warn().Err(err).Msg("failed to delete cache index")
	}

	s.observer.CacheEntries(0)
	logger.Info().Int("removed", removed).Msg("cleared recommendation cache")
	return removed
}

// Stats returns entry counts and approximate stored size. It never
// modifies the cache.
func (s *Store) Stats(ctx context.Context) Stats {
	if !s.IsEnabled() {
		return Stats{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.loadIndexLocked(ctx)
	now := s.now()

	var stats Stats
	var bytes int
	for _, rec := range idx.Entries {
		raw, err := s.kv.Get(rec.StorageKey)
		if err != nil {
			continue
		}
		bytes += len(rec.StorageKey) + len(raw)
		stats.TotalEntries++
		if now.After(rec.ExpiresAt) || !rec.ExpiresAt.After(rec.CreatedAt) {
			stats.ExpiredEntries++
		}
	}
	stats.ActiveEntries = stats.TotalEntries - stats.ExpiredEntries
	stats.ApproxSizeKB = math.Round(float64(bytes)/1024*10) / 10
	return stats
}

// EntryInfo describes a stored entry without its payload.
type EntryInfo struct {
	Fingerprint   string    `json:"fingerprint"`
	ClientID      string    `json:"clientId"`
	GoalsCount    int       `json:"goalsCount"`
	SchemaVersion string    `json:"schemaVersion"`
	CreatedAt     time.Time `json:"createdAt"`
	ExpiresAt     time.Time `json:"expiresAt"`
	Expired       bool      `json:"expired"`
	SizeBytes     int       `json:"sizeBytes"`
}

// List describes every indexed entry that is still stored, ordered by
// fingerprint. Like Stats it never modifies the cache.
func (s *Store) List(ctx context.Context) []EntryInfo {
	if !s.IsEnabled() {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.loadIndexLocked(ctx)
	now := s.now()

	out := make([]EntryInfo, 0, len(idx.Entries))
	for fp, rec := range idx.Entries {
		raw, err := s.kv.Get(rec.StorageKey)
		if err != nil {
			continue
		}
		entry, err := decodeEntry(raw, fp)
		if err != nil {
			continue
		}
		out = append(out, EntryInfo{
			Fingerprint:   fp,
			ClientID:      entry.ClientID,
			GoalsCount:    entry.GoalsCount,
			SchemaVersion: entry.SchemaVersion,
			CreatedAt:     entry.CreatedAt,
			ExpiresAt:     entry.ExpiresAt,
			Expired:       entry.IsExpiredAt(now),
			SizeBytes:     len(raw),
		})
	}
	slices.SortFunc(out, func(a, b EntryInfo) int { return cmp.Compare(a.Fingerprint, b.Fingerprint) })
	return out
}

// Cleanup runs the two-phase eviction immediately: expired entries are
// removed first, then the oldest entries until at most the configured
// maximum remain. It also reconciles the index with stored keys.
func (s *Store) Cleanup(ctx context.Context) CleanupResult {
	if !s.IsEnabled() {
		return CleanupResult{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cleanupLocked(ctx)
}

func (s *Store) cleanupLocked(ctx context.Context) CleanupResult {
	logger := s.logger(ctx, "cleanup")
	now := s.now()
	idx := s.loadIndexLocked(ctx)

	var result CleanupResult
	result.Reconciled = s.reconcileLocked(ctx, idx)

	expired := idx.expiredAt(now)
	s.deleteEntriesLocked(ctx, idx, expired)
	result.Expired = len(expired)

	if over := len(idx.Entries) - s.maxEntries; over > 0 {
		victims := idx.oldest(over)
		s.deleteEntriesLocked(ctx, idx, victims)
		result.Evicted = len(victims)
	}

	idx.LastCleanupAt = now
	if err := s.saveIndexLocked(idx); err != nil {
		logger.Warn().Err(err).Msg("failed to persist cache index after cleanup")
	}

	s.observer.CacheEvicted(EvictExpired, result.Expired)
	s.observer.CacheEvicted(EvictCapacity, result.Evicted)
	s.observer.CacheEntries(len(idx.Entries))

	logger.Debug().
		Int("expired", result.Expired).
		Int("evicted", result.Evicted).
		Int("reconciled", result.Reconciled).
		Int("remaining", len(idx.Entries)).
		Msg("cache cleanup complete")
	return result
}

// reconcileLocked drops index records whose keys are gone and adopts
// stored entries the index does not know about (written by another
// process, or left behind by a failed index write). Unreadable orphans are
// deleted.
func (s *Store) reconcileLocked(ctx context.Context, idx *MetadataIndex) int {
	changed := 0
	for fp, rec := range idx.Entries {
		if _, err := s.kv.Get(rec.StorageKey); errors.Is(err, kvstore.ErrNotFound) {
			delete(idx.Entries, fp)
			changed++
		}
	}

	stored, err := s.kv.Keys(EntryKeyPrefix)
	if err != nil {
		s.logger(ctx, "cleanup").Warn().Err(err).Msg("listing cache keys failed, skipping orphan scan")
		return changed
	}
	for _, key := range stored {
		fp := key[len(EntryKeyPrefix):]
		if _, known := idx.Entries[fp]; known {
			continue
		}
		raw, getErr := s.kv.Get(key)
		if getErr != nil {
			continue
		}
		entry, decodeErr := decodeEntry(raw, fp)
		if decodeErr != nil || entry.SchemaVersion != s.schemaVersion {
			_ = s.kv.Delete(key)
		} else {
			idx.Entries[fp] = IndexRecord{StorageKey: key, CreatedAt: entry.CreatedAt, ExpiresAt: entry.ExpiresAt}
		}
		changed++
	}
	return changed
}

func (s *Store) deleteEntriesLocked(ctx context.Context, idx *MetadataIndex, fps []string) {
	for _, fp := range fps {
		rec := idx.Entries[fp]
		key := rec.StorageKey
		if key == "" {
			key = EntryKeyPrefix + fp
		}
		if err := s.kv.Delete(key); err != nil {
			s.logger(ctx, "cleanup").Warn().Err(err).Str("fingerprint", fp).Msg("failed to delete cache entry")
			continue
		}
		delete(idx.Entries, fp)
	}
}

// removeLocked deletes entries and their index records, persisting the index.
func (s *Store) removeLocked(ctx context.Context, fps []string) {
	idx := s.loadIndexLocked(ctx)
	for _, fp := range fps {
		if err := s.kv.Delete(EntryKeyPrefix + fp); err != nil {
			s.logger(ctx, "remove").Warn().Err(err).Str("fingerprint", fp).Msg("failed to delete cache entry")
		}
		delete(idx.Entries, fp)
	}
	if err := s.saveIndexLocked(idx); err != nil {
		s.logger(ctx, "remove").Warn().Err(err).Msg("failed to persist cache index")
	}
}

func (s *Store) loadIndexLocked(ctx context.Context) *MetadataIndex {
	raw, err := s.kv.Get(IndexKey)
	if err != nil {
		if !errors.Is(err, kvstore.ErrNotFound) {
			s.logger(ctx, "load_index").Warn().Err(err).Msg("cache index unreadable, starting empty")
		}
		return newIndex()
	}
	idx, err := decodeIndex(raw)
	if err != nil {
		s.logger(ctx, "load_index").Debug().Err(err).Msg("cache index corrupt, starting empty")
		return newIndex()
	}
	return idx
}

func (s *Store) saveIndexLocked(idx *MetadataIndex) error {
	raw, err := idx.encode()
	if err != nil {
		return fmt.Errorf("encoding cache index: %w", err)
	}
	return s.kv.Set(IndexKey, raw)
}

func (s *Store) logger(ctx context.Context, operation string) *zerolog.Logger {
	l := logging.FromContext(ctx).With().
		Str("component", "cache").
		Str("operation", operation).
		Logger()
	return &l
}

func wrapStorageErr(err error) error {
	if errors.Is(err, kvstore.ErrQuotaExceeded) {
		return fmt.Errorf("%w: %w", ErrStorageFull, err)
	}
	return fmt.Errorf("cache write: %w", err)
}
