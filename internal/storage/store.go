package storage

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/runnerr0/recall/internal/frecency"
)

// Store defines the interface for recall data operations.
type Store interface {
	ApplyObservation(ctx context.Context, obs *Observation, now time.Time) (*Place, error)
	GetPlaceByURL(ctx context.Context, rawURL string) (*Place, error)
	AllPlaces(ctx context.Context) ([]Place, error)
	TopK(ctx context.Context, n int) ([]Place, error)
	MatchCandidates(ctx context.Context, query string, limit int) ([]Place, error)
	RebuildFrecency(ctx context.Context, now time.Time) error
	SetIconURL(ctx context.Context, rawURL, iconURL string) error
	PruneVisits(ctx context.Context, olderThan time.Time) (int64, error)
	PurgeAll(ctx context.Context) error
	GetStats(ctx context.Context) (*Stats, error)
	Close() error
}

// SQLiteStore implements Store backed by a SQLite database.
type SQLiteStore struct {
	db *sql.DB

	// Prepared statements for the hot read paths.
	getPlace    *sql.Stmt
	topK        *sql.Stmt
	matchPlaces *sql.Stmt
}

const placeColumns = `guid, url, title, visit_count, frecency, last_visit_at, icon_url`

// NewSQLiteStore creates a new SQLiteStore from an already-opened and
// migrated database.
func NewSQLiteStore(db *sql.DB) (*SQLiteStore, error) {
	s := &SQLiteStore{db: db}

	if err := s.prepareStatements(); err != nil {
		return nil, fmt.Errorf("prepare statements: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) prepareStatements() error {
	var err error

	s.getPlace, err = s.db.Prepare(`
		SELECT ` + placeColumns + ` FROM places WHERE url = ?
	`)
	if err != nil {
		return err
	}

	s.topK, err = s.db.Prepare(`
		SELECT ` + placeColumns + ` FROM places
		ORDER BY frecency DESC, last_visit_at DESC, url ASC
		LIMIT ?
	`)
	if err != nil {
		return err
	}

	// Ordered exactly like the in-tier ranking (frecency, then url) so a
	// LIMIT cutoff can never drop a row that outranks a kept one.
	s.matchPlaces, err = s.db.Prepare(`
		SELECT ` + placeColumns + ` FROM places
		WHERE instr(lower(url), ?) > 0 OR instr(lower(title), ?) > 0
		ORDER BY frecency DESC, url ASC
		LIMIT ?
	`)
	if err != nil {
		return err
	}

	return nil
}

// NormalizeURL canonicalizes a URL for use as a place key: parses it,
// lowercases scheme and host, and drops any fragment. Returns an error
// for anything that doesn't parse as an absolute URL with a host.
func NormalizeURL(rawURL string) (string, error) {
	if rawURL == "" {
		return "", fmt.Errorf("empty url")
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", rawURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("url %q missing scheme or host", rawURL)
	}
	u.Fragment = ""
	return u.String(), nil
}

// hostOf pulls the hostname from a URL string.
func hostOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}

// visitWeight returns the per-visit multiplier for an observation.
// Redirect-source visits are stored as weighted sub-events so a hop
// chain doesn't fully count at every intermediate URL.
func visitWeight(obs *Observation) float64 {
	if (obs.IsRedirectSource != nil && *obs.IsRedirectSource) ||
		(obs.IsPermanentRedirectSource != nil && *obs.IsPermanentRedirectSource) {
		return frecency.RedirectSourceWeight
	}
	return 1.0
}

// ApplyObservation upserts the place for the observation's URL and
// records the visit in a single transaction: either the full update
// (row, count, timestamp, title, frecency) commits or none of it does.
// The URL must already be normalized via NormalizeURL.
func (s *SQLiteStore) ApplyObservation(ctx context.Context, obs *Observation, now time.Time) (*Place, error) {
	visitedAt := now
	if obs.At != nil {
		visitedAt = *obs.At
	}

	visitType := frecency.VisitLink
	if obs.VisitType != nil {
		visitType = *obs.VisitType
	}

	isError := obs.IsError != nil && *obs.IsError
	weight := visitWeight(obs)

	referrer := ""
	if obs.Referrer != nil {
		referrer = *obs.Referrer
	}
	isRemote := obs.IsRemote != nil && *obs.IsRemote

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	place, err := scanPlace(tx.QueryRowContext(ctx,
		`SELECT `+placeColumns+` FROM places WHERE url = ?`, obs.URL,
	))
	if err == sql.ErrNoRows {
		place = &Place{
			GUID: ulid.Make().String(),
			URL:  obs.URL,
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO places (guid, url) VALUES (?, ?)`,
			place.GUID, place.URL,
		); err != nil {
			return nil, fmt.Errorf("insert place: %w", err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("get place: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO visits (place_guid, visit_type, visited_at, weight, is_error, referrer, is_remote)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		place.GUID, string(visitType), visitedAt.UnixMilli(), weight, isError, referrer, isRemote,
	); err != nil {
		return nil, fmt.Errorf("insert visit: %w", err)
	}

	// Error visits and weighted redirect sub-events don't count as a
	// full visit to the URL.
	if !isError && weight >= 1.0 {
		place.VisitCount++
	}

	if visitedAt.After(place.LastVisit) {
		place.LastVisit = visitedAt
	}

	if obs.Title != nil {
		place.Title = *obs.Title
	}

	visits, err := recentVisitSample(ctx, tx, place.GUID)
	if err != nil {
		return nil, fmt.Errorf("sample visits: %w", err)
	}
	place.Frecency = frecency.Score(visits, now)

	if _, err := tx.ExecContext(ctx,
		`UPDATE places
		 SET title = ?, visit_count = ?, frecency = ?, last_visit_at = ?,
		     updated_at = CURRENT_TIMESTAMP
		 WHERE guid = ?`,
		place.Title, place.VisitCount, place.Frecency, place.LastVisit.UnixMilli(), place.GUID,
	); err != nil {
		return nil, fmt.Errorf("update place: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}

	return place, nil
}

// recentVisitSample loads the bounded most-recent-first visit sample
// used for a frecency recompute, inside the observation transaction.
func recentVisitSample(ctx context.Context, tx *sql.Tx, guid string) ([]frecency.Visit, error) {
	rows, err := tx.QueryContext(ctx,
		`SELECT visit_type, visited_at, weight, is_error
		 FROM visits WHERE place_guid = ?
		 ORDER BY visited_at DESC, id DESC
		 LIMIT ?`,
		guid, frecency.MaxSampledVisits,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var visits []frecency.Visit
	for rows.Next() {
		var (
			typ     string
			atMilli int64
			weight  float64
			isErr   bool
		)
		if err := rows.Scan(&typ, &atMilli, &weight, &isErr); err != nil {
			return nil, fmt.Errorf("scan visit: %w", err)
		}
		visits = append(visits, frecency.Visit{
			Type:    frecency.VisitType(typ),
			At:      time.UnixMilli(atMilli),
			Weight:  weight,
			IsError: isErr,
		})
	}
	return visits, rows.Err()
}

// rowScanner covers both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPlace(row rowScanner) (*Place, error) {
	var (
		p         Place
		lastVisit sql.NullInt64
	)
	err := row.Scan(&p.GUID, &p.URL, &p.Title, &p.VisitCount, &p.Frecency, &lastVisit, &p.IconURL)
	if err != nil {
		return nil, err
	}
	if lastVisit.Valid {
		p.LastVisit = time.UnixMilli(lastVisit.Int64)
	}
	return &p, nil
}

// GetPlaceByURL retrieves a single place by its normalized URL.
func (s *SQLiteStore) GetPlaceByURL(ctx context.Context, rawURL string) (*Place, error) {
	place, err := scanPlace(s.getPlace.QueryRowContext(ctx, rawURL))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("place %s not found", rawURL)
		}
		return nil, fmt.Errorf("get place: %w", err)
	}
	return place, nil
}

// AllPlaces returns every place. Used to warm the in-memory prefix
// index at engine open.
func (s *SQLiteStore) AllPlaces(ctx context.Context) ([]Place, error) {
	return s.scanPlaces(ctx, `SELECT `+placeColumns+` FROM places ORDER BY url ASC`)
}

// TopK returns the n highest-frecency places. Ties break by most recent
// last visit, then lexicographic URL order, so the ordering is
// deterministic for a fixed store state.
func (s *SQLiteStore) TopK(ctx context.Context, n int) ([]Place, error) {
	rows, err := s.topK.QueryContext(ctx, n)
	if err != nil {
		return nil, fmt.Errorf("query top places: %w", err)
	}
	defer rows.Close()
	return collectPlaces(rows)
}

// MatchCandidates returns places whose URL or title contains the query,
// case-insensitively, ordered by frecency descending then URL. The
// query must already be lowercased by the caller.
func (s *SQLiteStore) MatchCandidates(ctx context.Context, query string, limit int) ([]Place, error) {
	rows, err := s.matchPlaces.QueryContext(ctx, query, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query match candidates: %w", err)
	}
	defer rows.Close()
	return collectPlaces(rows)
}

func (s *SQLiteStore) scanPlaces(ctx context.Context, query string, args ...interface{}) ([]Place, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query places: %w", err)
	}
	defer rows.Close()
	return collectPlaces(rows)
}

func collectPlaces(rows *sql.Rows) ([]Place, error) {
	var places []Place
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan place: %w", err)
		}
		places = append(places, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	// Return empty slice rather than nil
	if places == nil {
		places = []Place{}
	}

	return places, nil
}

// RebuildFrecency recomputes every place's frecency from its stored
// visit history. Consistency repair after pruning or clock changes.
func (s *SQLiteStore) RebuildFrecency(ctx context.Context, now time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	rows, err := tx.QueryContext(ctx, `SELECT guid FROM places`)
	if err != nil {
		return fmt.Errorf("list places: %w", err)
	}

	var guids []string
	for rows.Next() {
		var guid string
		if err := rows.Scan(&guid); err != nil {
			rows.Close()
			return fmt.Errorf("scan guid: %w", err)
		}
		guids = append(guids, guid)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return err
	}
	rows.Close()

	for _, guid := range guids {
		visits, err := recentVisitSample(ctx, tx, guid)
		if err != nil {
			return fmt.Errorf("sample visits for %s: %w", guid, err)
		}

		var count int64
		err = tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM visits WHERE place_guid = ? AND is_error = 0 AND weight >= 1.0`,
			guid,
		).Scan(&count)
		if err != nil {
			return fmt.Errorf("count visits for %s: %w", guid, err)
		}

		if _, err := tx.ExecContext(ctx,
			`UPDATE places SET frecency = ?, visit_count = ?, updated_at = CURRENT_TIMESTAMP WHERE guid = ?`,
			frecency.Score(visits, now), count, guid,
		); err != nil {
			return fmt.Errorf("update frecency for %s: %w", guid, err)
		}
	}

	return tx.Commit()
}

// SetIconURL records the favicon URL for a place.
func (s *SQLiteStore) SetIconURL(ctx context.Context, rawURL, iconURL string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE places SET icon_url = ?, updated_at = CURRENT_TIMESTAMP WHERE url = ?`,
		iconURL, rawURL,
	)
	if err != nil {
		return fmt.Errorf("set icon: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("place %s not found", rawURL)
	}
	return nil
}

// PruneVisits deletes visits older than olderThan and returns how many
// were removed. Callers should follow up with RebuildFrecency so scores
// and counts reflect the trimmed history.
func (s *SQLiteStore) PruneVisits(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM visits WHERE visited_at < ?`, olderThan.UnixMilli(),
	)
	if err != nil {
		return 0, fmt.Errorf("prune visits: %w", err)
	}
	return res.RowsAffected()
}

// PurgeAll deletes all places and visits.
func (s *SQLiteStore) PurgeAll(ctx context.Context) error {
	stmts := []string{
		"DELETE FROM visits",
		"DELETE FROM places",
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("purge (%s): %w", stmt, err)
		}
	}
	return nil
}

// GetStats returns aggregate statistics about the database.
func (s *SQLiteStore) GetStats(ctx context.Context) (*Stats, error) {
	stats := &Stats{}

	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM places").Scan(&stats.TotalPlaces)
	if err != nil {
		return nil, fmt.Errorf("count places: %w", err)
	}

	err = s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM visits").Scan(&stats.TotalVisits)
	if err != nil {
		return nil, fmt.Errorf("count visits: %w", err)
	}

	// Oldest and newest (handle empty DB)
	if stats.TotalVisits > 0 {
		var oldest, newest int64
		err = s.db.QueryRowContext(ctx, "SELECT MIN(visited_at), MAX(visited_at) FROM visits").Scan(&oldest, &newest)
		if err != nil {
			return nil, fmt.Errorf("visit time range: %w", err)
		}
		stats.OldestVisit = time.UnixMilli(oldest)
		stats.NewestVisit = time.UnixMilli(newest)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT `+placeColumns+` FROM places`)
	if err != nil {
		return nil, fmt.Errorf("list places: %w", err)
	}
	defer rows.Close()

	counts := map[string]int64{}
	for rows.Next() {
		p, err := scanPlace(rows)
		if err != nil {
			return nil, fmt.Errorf("scan place: %w", err)
		}
		if host := hostOf(p.URL); host != "" {
			counts[host]++
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	stats.TopHosts = topHosts(counts, 10)
	return stats, nil
}

// topHosts picks the n highest-count hosts, ties broken by host name.
func topHosts(counts map[string]int64, n int) []HostCount {
	hosts := make([]HostCount, 0, len(counts))
	for host, count := range counts {
		hosts = append(hosts, HostCount{Host: host, Count: count})
	}
	sort.Slice(hosts, func(i, j int) bool {
		if hosts[i].Count != hosts[j].Count {
			return hosts[i].Count > hosts[j].Count
		}
		return hosts[i].Host < hosts[j].Host
	})
	if len(hosts) > n {
		hosts = hosts[:n]
	}
	return hosts
}

// Close releases all prepared statements. The underlying *sql.DB is NOT
// closed — that is the caller's responsibility.
func (s *SQLiteStore) Close() error {
	stmts := []*sql.Stmt{
		s.getPlace, s.topK, s.matchPlaces,
	}
	for _, stmt := range stmts {
		if stmt != nil {
			stmt.Close()
		}
	}
	return nil
}
