// Package daemon runs the local HTTP service: a thin adapter that moves
// wire-format observations and autocomplete queries between HTTP and an
// open places connection.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"golang.org/x/sync/errgroup"

	"github.com/runnerr0/recall/pkg/places"
)

const defaultMaxRequestSize = 1 << 20 // 1MB

// Deps carries what the handlers need.
type Deps struct {
	Conn           *places.Conn
	MaxRequestSize int64 // bytes; 0 means defaultMaxRequestSize
	MaxLimit       int   // autocomplete limit cap; 0 means uncapped
	Log            *log.Logger
}

// NewHandler builds the HTTP routes over an open connection.
func NewHandler(deps Deps) http.Handler {
	if deps.MaxRequestSize <= 0 {
		deps.MaxRequestSize = defaultMaxRequestSize
	}

	r := chi.NewRouter()
	r.Post("/v1/observations", handleObservation(deps))
	r.Get("/v1/autocomplete", handleAutocomplete(deps))
	r.Get("/v1/status", handleStatus(deps))
	return r
}

// Serve runs the daemon at addr until ctx is cancelled or SIGINT/SIGTERM
// arrives, then shuts down gracefully.
func Serve(ctx context.Context, addr string, deps Deps) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	srv := &http.Server{
		Addr:              addr,
		Handler:           NewHandler(deps),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		deps.Log.Info("daemon listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		deps.Log.Info("daemon shutting down")
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func handleObservation(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(io.LimitReader(r.Body, deps.MaxRequestSize+1))
		if err != nil {
			writeError(w, http.StatusBadRequest, "read body: "+err.Error())
			return
		}
		if int64(len(body)) > deps.MaxRequestSize {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}

		if err := deps.Conn.NoteObservation(body); err != nil {
			writeEngineError(w, deps, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleAutocomplete(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("q")

		limit := 0 // 0 lets the connection apply its default
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil {
				writeError(w, http.StatusBadRequest, "invalid limit: "+raw)
				return
			}
			limit = n
		}
		if deps.MaxLimit > 0 && limit > deps.MaxLimit {
			limit = deps.MaxLimit
		}

		payload, err := deps.Conn.QueryAutocomplete(query, limit)
		if err != nil {
			writeEngineError(w, deps, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write(payload) //nolint:errcheck
	}
}

func handleStatus(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := deps.Conn.Stats()
		if err != nil {
			writeEngineError(w, deps, err)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats) //nolint:errcheck
	}
}

// writeEngineError maps the engine's sentinel errors onto HTTP status
// codes: caller mistakes are 400, a closed handle is 409, anything else
// is a 500 the caller may retry.
func writeEngineError(w http.ResponseWriter, deps Deps, err error) {
	switch {
	case errors.Is(err, places.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, places.ErrClosedHandle):
		writeError(w, http.StatusConflict, err.Error())
	default:
		deps.Log.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg}) //nolint:errcheck
}
