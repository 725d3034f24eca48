// Package places exposes the recall engine through a connection-handle
// boundary: observations go in as JSON, autocomplete results come out
// as JSON. It is the surface a host application binds against.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/runnerr0/recall/internal/engine"
	"github.com/runnerr0/recall/internal/frecency"
	"github.com/runnerr0/recall/internal/logging"
	"github.com/runnerr0/recall/internal/storage"
)

// Sentinel errors, re-exported so binding callers don't import internal
// packages. Match with errors.Is.
var (
	ErrInvalidInput       = engine.ErrInvalidInput
	ErrOpen               = engine.ErrOpen
	ErrStorageUnavailable = engine.ErrStorageUnavailable
	ErrClosedHandle       = engine.ErrClosedHandle
)

// DefaultLimit is used when QueryAutocomplete is called with limit 0.
const DefaultLimit = 10

// OpenOptions tunes an opened connection beyond the plain Open calls.
type OpenOptions struct {
	EncryptionKey string
	WriteTimeout  time.Duration
	LogLevel      string // "debug", "info", "warn", "error"; empty disables logging
}

// DBStats is the wire form of store-level statistics. Visit timestamps
// are epoch milliseconds, omitted for an empty store.
type DBStats struct {
	TotalPlaces int64  `json:"total_places"`
	TotalVisits int64  `json:"total_visits"`
	OldestVisit *int64 `json:"oldest_visit,omitempty"`
	NewestVisit *int64 `json:"newest_visit,omitempty"`
}

// Conn is an open handle to a places store. Safe for concurrent use.
// Close is idempotent; operations on a closed Conn fail with
// ErrClosedHandle.
type Conn struct {
	mu     sync.RWMutex
	eng    *engine.Engine
	closed bool
}

// Open opens (creating if necessary) an unencrypted store at path.
func Open(path string) (*Conn, error) {
	return OpenEncrypted(path, "")
}

// OpenEncrypted opens a store at path, keying it with encryptionKey
// when non-empty. Fails with ErrOpen on an invalid path or a key that
// doesn't verify.
func OpenEncrypted(path, encryptionKey string) (*Conn, error) {
	return OpenWithOptions(path, OpenOptions{EncryptionKey: encryptionKey})
}

// OpenWithOptions opens a store with explicit tuning.
func OpenWithOptions(path string, opts OpenOptions) (*Conn, error) {
	engOpts := engine.Options{
		EncryptionKey: opts.EncryptionKey,
		WriteTimeout:  opts.WriteTimeout,
	}
	if opts.LogLevel != "" {
		engOpts.Logger = logging.New("places", opts.LogLevel)
	}
	eng, err := engine.Open(path, engOpts)
	if err != nil {
		return nil, err
	}
	return &Conn{eng: eng}, nil
}

// NoteObservation decodes a wire observation and applies it to the
// store. The JSON must carry a `url`; all other fields are optional and
// tolerant (see Observation.UnmarshalJSON).
func (c *Conn) NoteObservation(jsonObs []byte) error {
	var obs Observation
	if err := json.Unmarshal(jsonObs, &obs); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrClosedHandle
	}
	return c.eng.Record(context.Background(), toStorageObservation(obs))
}

// QueryAutocomplete runs an autocomplete search and returns the results
// as a JSON array. A limit of 0 means DefaultLimit; a negative limit is
// ErrInvalidInput.
func (c *Conn) QueryAutocomplete(search string, limit int) ([]byte, error) {
	if limit == 0 {
		limit = DefaultLimit
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClosedHandle
	}

	results, err := c.eng.Search(context.Background(), search, limit)
	if err != nil {
		return nil, err
	}

	wire := make([]SearchResult, len(results))
	for i, r := range results {
		wire[i] = SearchResult{
			SearchString: r.SearchString,
			URL:          r.URL,
			Title:        r.Title,
			Frecency:     r.Frecency,
			IconURL:      r.IconURL,
		}
	}
	return json.Marshal(wire)
}

// Stats reports store-level statistics for the handle.
func (c *Conn) Stats() (*DBStats, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrClosedHandle
	}

	stats, err := c.eng.Stats(context.Background())
	if err != nil {
		return nil, err
	}

	out := &DBStats{
		TotalPlaces: stats.TotalPlaces,
		TotalVisits: stats.TotalVisits,
	}
	if stats.TotalVisits > 0 {
		oldest := stats.OldestVisit.UnixMilli()
		newest := stats.NewestVisit.UnixMilli()
		out.OldestVisit = &oldest
		out.NewestVisit = &newest
	}
	return out, nil
}

// Close releases the handle and all underlying resources. Calling it
// again is a no-op; it never panics, making it safe on every exit path.
func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.eng.Close()
}

// toStorageObservation maps the wire DTO onto the storage observation,
// converting epoch milliseconds to time values and visit-type strings
// to the typed enum.
func toStorageObservation(obs Observation) storage.Observation {
	out := storage.Observation{
		URL:                       obs.URL,
		Title:                     obs.Title,
		IsError:                   obs.IsError,
		IsRedirectSource:          obs.IsRedirectSource,
		IsPermanentRedirectSource: obs.IsPermanentRedirectSource,
		Referrer:                  obs.Referrer,
		IsRemote:                  obs.IsRemote,
	}
	if obs.VisitType != nil {
		vt := frecency.VisitType(*obs.VisitType)
		out.VisitType = &vt
	}
	if obs.At != nil {
		at := time.UnixMilli(*obs.At)
		out.At = &at
	}
	return out
}
