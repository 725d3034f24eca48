// Package engine ties the storage layer to callers: it owns the
// connection lifecycle, validates input, serializes writes, and answers
// autocomplete queries with tiered ranking.
package engine

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	_ "github.com/mattn/go-sqlite3"

	"github.com/runnerr0/recall/internal/frecency"
	"github.com/runnerr0/recall/internal/storage"
)

// DefaultWriteTimeout bounds how long a single Record may block on the
// store before failing. Reads never wait on a write longer than this.
const DefaultWriteTimeout = 5 * time.Second

// Options configures an Engine at open.
type Options struct {
	// EncryptionKey, when non-empty, is applied to the database before
	// any other statement runs. Verification failure fails the open.
	EncryptionKey string

	// WriteTimeout bounds Record calls. Zero means DefaultWriteTimeout.
	WriteTimeout time.Duration

	// Now overrides the clock. Nil means time.Now. Fixing it makes
	// frecency recomputes reproducible.
	Now func() time.Time

	// Logger receives engine lifecycle and error logs. Nil disables.
	Logger *log.Logger
}

// Result is one autocomplete answer.
type Result struct {
	SearchString string
	URL          string
	Title        string
	Frecency     int64
	IconURL      string
}

// Engine is an open connection to a recall store. A single Engine
// exclusively owns its database handle. All methods are safe for
// concurrent use; mutations are serialized internally, reads run
// concurrently. Once closed, every operation fails with
// ErrClosedHandle; Close itself is idempotent.
type Engine struct {
	mu     sync.RWMutex
	closed bool

	db    *sql.DB
	store *storage.SQLiteStore

	// In-memory ranking state, kept in sync with the store under mu:
	// places by normalized URL, plus the prefix tries over URL/title.
	places map[string]storage.Place
	idx    *prefixIndex

	now          func() time.Time
	writeTimeout time.Duration
	log          *log.Logger
}

// Open opens (creating if necessary) the database at path, applies
// pending migrations, and warms the in-memory index. Failures wrap
// ErrOpen.
func Open(path string, opts Options) (*Engine, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty database path", ErrOpen)
	}

	db, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}

	if opts.EncryptionKey != "" {
		if err := applyKey(db, opts.EncryptionKey); err != nil {
			db.Close()
			return nil, fmt.Errorf("%w: %v", ErrOpen, err)
		}
	}

	runner := storage.NewMigrationRunner(db)
	if err := runner.Run(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}

	store, err := storage.NewSQLiteStore(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}

	e := &Engine{
		db:           db,
		store:        store,
		places:       map[string]storage.Place{},
		idx:          newPrefixIndex(),
		now:          opts.Now,
		writeTimeout: opts.WriteTimeout,
		log:          opts.Logger,
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.writeTimeout <= 0 {
		e.writeTimeout = DefaultWriteTimeout
	}
	if e.log == nil {
		e.log = log.New(io.Discard)
	}

	if err := e.reloadIndex(context.Background()); err != nil {
		store.Close()
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrOpen, err)
	}

	e.log.Debug("engine opened", "path", path, "places", len(e.places))
	return e, nil
}

// applyKey runs the keying pragma and verifies the database actually
// decrypts by reading the schema. On a build without an encryption
// extension the pragma is inert and a plaintext store passes.
func applyKey(db *sql.DB, key string) error {
	if _, err := db.Exec("PRAGMA key = ?", key); err != nil {
		// Some driver builds reject parameters in pragmas; fall back to
		// the quoted form with embedded quotes doubled.
		quoted := strings.ReplaceAll(key, "'", "''")
		if _, err := db.Exec("PRAGMA key = '" + quoted + "'"); err != nil {
			return fmt.Errorf("apply key: %w", err)
		}
	}
	var n int
	if err := db.QueryRow("SELECT count(*) FROM sqlite_master").Scan(&n); err != nil {
		return fmt.Errorf("verify key: %w", err)
	}
	return nil
}

// reloadIndex rebuilds the in-memory places map and prefix tries from
// the store. Caller must hold mu exclusively (or be the only owner).
func (e *Engine) reloadIndex(ctx context.Context) error {
	places, err := e.store.AllPlaces(ctx)
	if err != nil {
		return fmt.Errorf("load places: %w", err)
	}
	e.places = make(map[string]storage.Place, len(places))
	e.idx = newPrefixIndex()
	for _, p := range places {
		e.places[p.URL] = p
		e.idx.insert(p.URL, p.Title)
	}
	return nil
}

// Record validates and applies a single visit observation. The write is
// atomic: either the place row, visit row, and ranking update all
// commit, or none do. Bounded by the engine's write timeout.
func (e *Engine) Record(ctx context.Context, obs storage.Observation) error {
	normalized, err := storage.NormalizeURL(obs.URL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	obs.URL = normalized

	if obs.VisitType != nil && !frecency.ValidVisitType(string(*obs.VisitType)) {
		return fmt.Errorf("%w: unknown visit type %q", ErrInvalidInput, *obs.VisitType)
	}
	if obs.IsRedirectSource != nil && obs.IsPermanentRedirectSource != nil &&
		*obs.IsRedirectSource && *obs.IsPermanentRedirectSource {
		return fmt.Errorf("%w: is_redirect_source and is_permanent_redirect_source are mutually exclusive", ErrInvalidInput)
	}
	if obs.Referrer != nil && *obs.Referrer != "" {
		ref, err := storage.NormalizeURL(*obs.Referrer)
		if err != nil {
			return fmt.Errorf("%w: referrer: %v", ErrInvalidInput, err)
		}
		obs.Referrer = &ref
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosedHandle
	}

	ctx, cancel := context.WithTimeout(ctx, e.writeTimeout)
	defer cancel()

	place, err := e.store.ApplyObservation(ctx, &obs, e.now())
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	e.places[place.URL] = *place
	e.idx.insert(place.URL, place.Title)
	return nil
}

// matchTier orders match quality: url-prefix beats title-prefix beats
// substring-anywhere.
const (
	tierURLPrefix = iota
	tierTitlePrefix
	tierSubstring
)

type scoredResult struct {
	tier  int
	place storage.Place
}

// Search answers an autocomplete query: case-insensitive prefix and
// substring matching over URLs and titles, ranked by match tier, then
// frecency descending, then URL order. An empty query returns the
// global top-limit by frecency. Pure read, no side effects.
func (e *Engine) Search(ctx context.Context, query string, limit int) ([]Result, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive, got %d", ErrInvalidInput, limit)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, ErrClosedHandle
	}

	query = strings.TrimSpace(query)
	if query == "" {
		places, err := e.store.TopK(ctx, limit)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
		}
		return toResults(query, places), nil
	}

	lower := strings.ToLower(query)
	urlHits := e.idx.matchURLPrefix(lower)
	titleHits := e.idx.matchTitlePrefix(lower)

	// The prefix tiers are complete from the tries. The substring tier
	// only ever needs its top entries, so a frecency-ordered scan of
	// limit + |prefix hits| rows cannot cut off anything that would
	// have made the final list.
	scanLimit := limit + len(urlHits) + len(titleHits)
	candidates, err := e.store.MatchCandidates(ctx, lower, scanLimit)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}

	seen := map[string]struct{}{}
	var scored []scoredResult

	add := func(p storage.Place, tier int) {
		if _, dup := seen[p.URL]; dup {
			return
		}
		seen[p.URL] = struct{}{}
		scored = append(scored, scoredResult{tier: tier, place: p})
	}

	for url := range urlHits {
		if p, ok := e.places[url]; ok {
			add(p, tierURLPrefix)
		}
	}
	// Title-prefix keys can be stale after a title change; confirm
	// against the live place before counting the tier.
	for url := range titleHits {
		if p, ok := e.places[url]; ok && strings.HasPrefix(strings.ToLower(p.Title), lower) {
			add(p, tierTitlePrefix)
		}
	}
	for _, p := range candidates {
		add(p, tierSubstring)
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].tier != scored[j].tier {
			return scored[i].tier < scored[j].tier
		}
		if scored[i].place.Frecency != scored[j].place.Frecency {
			return scored[i].place.Frecency > scored[j].place.Frecency
		}
		return scored[i].place.URL < scored[j].place.URL
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}

	results := make([]Result, len(scored))
	for i, sr := range scored {
		results[i] = toResult(query, sr.place)
	}
	return results, nil
}

// TopK returns the n highest-frecency places, deterministically ordered.
func (e *Engine) TopK(ctx context.Context, n int) ([]Result, error) {
	if n <= 0 {
		return nil, fmt.Errorf("%w: n must be positive, got %d", ErrInvalidInput, n)
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, ErrClosedHandle
	}

	places, err := e.store.TopK(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return toResults("", places), nil
}

// Rebuild recomputes every frecency score from stored visit history and
// refreshes the in-memory index. Consistency repair.
func (e *Engine) Rebuild(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosedHandle
	}

	if err := e.store.RebuildFrecency(ctx, e.now()); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := e.reloadIndex(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	e.log.Debug("frecency rebuilt", "places", len(e.places))
	return nil
}

// SetIcon records the favicon URL for an already-known place.
func (e *Engine) SetIcon(ctx context.Context, rawURL, iconURL string) error {
	normalized, err := storage.NormalizeURL(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosedHandle
	}

	if err := e.store.SetIconURL(ctx, normalized, iconURL); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if p, ok := e.places[normalized]; ok {
		p.IconURL = iconURL
		e.places[normalized] = p
	}
	return nil
}

// Prune deletes visits older than olderThan, then rebuilds ranking
// state so counts and scores match the trimmed history. Returns how
// many visits were removed.
func (e *Engine) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return 0, ErrClosedHandle
	}

	n, err := e.store.PruneVisits(ctx, olderThan)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := e.store.RebuildFrecency(ctx, e.now()); err != nil {
		return n, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	if err := e.reloadIndex(ctx); err != nil {
		return n, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	e.log.Info("pruned visits", "removed", n)
	return n, nil
}

// Purge deletes all places and visits.
func (e *Engine) Purge(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosedHandle
	}

	if err := e.store.PurgeAll(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	e.places = map[string]storage.Place{}
	e.idx = newPrefixIndex()
	return nil
}

// Stats returns aggregate statistics about the store.
func (e *Engine) Stats(ctx context.Context) (*storage.Stats, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return nil, ErrClosedHandle
	}

	stats, err := e.store.GetStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageUnavailable, err)
	}
	return stats, nil
}

// Close releases the store and the database handle. Idempotent: a
// second Close is a no-op returning nil. Operations after Close fail
// with ErrClosedHandle.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true

	e.store.Close()
	if err := e.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	e.log.Debug("engine closed")
	return nil
}

func toResult(query string, p storage.Place) Result {
	return Result{
		SearchString: query,
		URL:          p.URL,
		Title:        p.Title,
		Frecency:     p.Frecency,
		IconURL:      p.IconURL,
	}
}

func toResults(query string, places []storage.Place) []Result {
	results := make([]Result, len(places))
	for i, p := range places {
		results[i] = toResult(query, p)
	}
	return results
}
