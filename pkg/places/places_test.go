package places

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestConn(t *testing.T) *Conn {
	t.Helper()
	conn, err := Open(filepath.Join(t.TempDir(), "recall.db"))
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func noteJSON(t *testing.T, conn *Conn, payload string) {
	t.Helper()
	require.NoError(t, conn.NoteObservation([]byte(payload)))
}

func queryResults(t *testing.T, conn *Conn, search string, limit int) []SearchResult {
	t.Helper()
	payload, err := conn.QueryAutocomplete(search, limit)
	require.NoError(t, err)

	var results []SearchResult
	require.NoError(t, json.Unmarshal(payload, &results))
	return results
}

func TestOpen_BadPath(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "no", "such", "dir", "recall.db"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOpen)
}

func TestOpenEncrypted_NotADatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "garbage.db")
	require.NoError(t, os.WriteFile(path, []byte("not a sqlite database"), 0644))

	_, err := OpenEncrypted(path, "secret")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrOpen)
}

func TestOpenEncrypted_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recall.db")

	conn, err := OpenEncrypted(path, "secret")
	require.NoError(t, err)
	require.NoError(t, conn.NoteObservation([]byte(`{"url": "https://example.com/", "title": "Example"}`)))
	require.NoError(t, conn.Close())

	conn, err = OpenEncrypted(path, "secret")
	require.NoError(t, err)
	defer conn.Close()

	results := queryResults(t, conn, "example.com", 10)
	require.Len(t, results, 1)
	assert.Equal(t, "Example", results[0].Title)
}

func TestNoteObservation_ThenQuery(t *testing.T) {
	conn := openTestConn(t)

	noteJSON(t, conn, `{"url": "https://example.com/", "visit_type": "typed", "title": "Example"}`)

	results := queryResults(t, conn, "example", 10)
	require.Len(t, results, 1)
	assert.Equal(t, "example", results[0].SearchString)
	assert.Equal(t, "https://example.com/", results[0].URL)
	assert.Equal(t, "Example", results[0].Title)
	assert.Greater(t, results[0].Frecency, int64(0))
}

func TestNoteObservation_MalformedJSON(t *testing.T) {
	conn := openTestConn(t)

	err := conn.NoteObservation([]byte(`{"url": `))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNoteObservation_MissingURL(t *testing.T) {
	conn := openTestConn(t)

	err := conn.NoteObservation([]byte(`{"title": "no url here"}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNoteObservation_InvalidVisitType(t *testing.T) {
	conn := openTestConn(t)

	err := conn.NoteObservation([]byte(`{"url": "https://a.com/", "visit_type": "teleport"}`))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestNoteObservation_ExplicitTimestamp(t *testing.T) {
	conn := openTestConn(t)

	noteJSON(t, conn, `{"url": "https://a.com/", "at": 1700000000000}`)

	stats, err := conn.Stats()
	require.NoError(t, err)
	require.NotNil(t, stats.OldestVisit)
	assert.Equal(t, int64(1700000000000), *stats.OldestVisit)
}

func TestQueryAutocomplete_EmptyStoreIsEmptyArray(t *testing.T) {
	conn := openTestConn(t)

	payload, err := conn.QueryAutocomplete("anything", 10)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(payload), "empty result must be [] not null")
}

func TestQueryAutocomplete_ZeroLimitUsesDefault(t *testing.T) {
	conn := openTestConn(t)

	for i := 0; i < DefaultLimit+5; i++ {
		noteJSON(t, conn, `{"url": "https://site.example/page`+string(rune('a'+i))+`"}`)
	}

	results := queryResults(t, conn, "site.example", 0)
	assert.Len(t, results, DefaultLimit)
}

func TestQueryAutocomplete_NegativeLimit(t *testing.T) {
	conn := openTestConn(t)

	_, err := conn.QueryAutocomplete("x", -1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInvalidInput)
}

func TestQueryAutocomplete_EmptySearchReturnsTopFrecency(t *testing.T) {
	conn := openTestConn(t)

	noteJSON(t, conn, `{"url": "https://low.com/", "visit_type": "link"}`)
	noteJSON(t, conn, `{"url": "https://high.com/", "visit_type": "typed"}`)

	results := queryResults(t, conn, "", 10)
	require.Len(t, results, 2)
	assert.Equal(t, "https://high.com/", results[0].URL)
	assert.Equal(t, "https://low.com/", results[1].URL)
}

func TestStats_CountsPlacesAndVisits(t *testing.T) {
	conn := openTestConn(t)

	noteJSON(t, conn, `{"url": "https://a.com/"}`)
	noteJSON(t, conn, `{"url": "https://a.com/"}`)
	noteJSON(t, conn, `{"url": "https://b.com/"}`)

	stats, err := conn.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalPlaces)
	assert.Equal(t, int64(3), stats.TotalVisits)
	assert.NotNil(t, stats.OldestVisit)
	assert.NotNil(t, stats.NewestVisit)
}

func TestStats_EmptyStoreOmitsVisitBounds(t *testing.T) {
	conn := openTestConn(t)

	stats, err := conn.Stats()
	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalPlaces)
	assert.Nil(t, stats.OldestVisit)
	assert.Nil(t, stats.NewestVisit)

	data, err := json.Marshal(stats)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "oldest_visit")
	assert.NotContains(t, string(data), "newest_visit")
}

func TestClose_Idempotent(t *testing.T) {
	conn := openTestConn(t)

	require.NoError(t, conn.Close())
	require.NoError(t, conn.Close())
}

func TestClose_OperationsFailAfterClose(t *testing.T) {
	conn := openTestConn(t)
	require.NoError(t, conn.Close())

	err := conn.NoteObservation([]byte(`{"url": "https://a.com/"}`))
	assert.ErrorIs(t, err, ErrClosedHandle)

	_, err = conn.QueryAutocomplete("a", 10)
	assert.ErrorIs(t, err, ErrClosedHandle)

	_, err = conn.Stats()
	assert.ErrorIs(t, err, ErrClosedHandle)
}

func TestOpen_PersistsAcrossHandles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recall.db")

	conn, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, conn.NoteObservation([]byte(`{"url": "https://keep.me/", "title": "Keeper"}`)))
	require.NoError(t, conn.Close())

	conn2, err := Open(path)
	require.NoError(t, err)
	defer conn2.Close()

	results := queryResults(t, conn2, "keep.me", 10)
	require.Len(t, results, 1)
	assert.Equal(t, "https://keep.me/", results[0].URL)
	assert.Equal(t, "Keeper", results[0].Title)
}

func TestOpenWithOptions_LogLevel(t *testing.T) {
	conn, err := OpenWithOptions(filepath.Join(t.TempDir(), "recall.db"), OpenOptions{
		LogLevel: "debug",
	})
	require.NoError(t, err)
	defer conn.Close()

	noteJSON(t, conn, `{"url": "https://a.com/"}`)
}
