package cli

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/runnerr0/recall/internal/engine"
	"github.com/runnerr0/recall/internal/frecency"
	"github.com/runnerr0/recall/internal/storage"
)

// newTestEngine opens a throwaway engine backed by a temp-dir database.
func newTestEngine(t *testing.T) *engine.Engine {
	t.Helper()
	eng, err := engine.Open(filepath.Join(t.TempDir(), "recall.db"), engine.Options{})
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	return eng
}

// recordVisit seeds the engine with one typed visit for url.
func recordVisit(t *testing.T, eng *engine.Engine, url, title string) {
	t.Helper()
	vt := frecency.VisitTyped
	obs := storage.Observation{URL: url, VisitType: &vt}
	if title != "" {
		obs.Title = &title
	}
	require.NoError(t, eng.Record(context.Background(), obs))
}

// captureOutput redirects stdout around fn and returns what was printed.
func captureOutput(t *testing.T, fn func() error) (string, error) {
	t.Helper()

	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	runErr := fn()

	w.Close()
	os.Stdout = old

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out), runErr
}
