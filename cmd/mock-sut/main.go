// Command mock-sut is a reference system under test: it answers the
// benchmark's catalogue endpoints from a real Postgres, MySQL, or MongoDB
// backend, so benchmarkctl has something to point at without requiring a
// production system.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/bonheur15/knowledge-bakeoff-bench/internal/database"
	"github.com/bonheur15/knowledge-bakeoff-bench/internal/dataset"
	"github.com/bonheur15/knowledge-bakeoff-bench/internal/logging"
)

func main() {
	backendName := flag.String("backend", "postgres", "backend database (postgres, mysql, mongo)")
	dsn := flag.String("dsn", "", "backend connection string")
	addr := flag.String("addr", ":8080", "listen address")
	flag.Parse()

	log := logging.New("")

	if *dsn == "" {
		log.Fatal().Msg("mock-sut: --dsn is required")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	backend, err := openBackend(ctx, *backendName, *dsn)
	if err != nil {
		log.Fatal().Err(err).Str("backend", *backendName).Msg("mock-sut: connecting")
	}
	defer backend.Close()

	srv := &http.Server{
		Addr:    *addr,
		Handler: newRouter(backend, log),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Str("addr", *addr).Str("backend", *backendName).Msg("mock-sut: listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("mock-sut: serve")
	}
}

func openBackend(ctx context.Context, name, dsn string) (database.Backend, error) {
	switch name {
	case "postgres":
		return database.NewPostgresBackend(ctx, dsn)
	case "mysql":
		return database.NewMySQLBackend(ctx, dsn)
	case "mongo":
		return database.NewMongoBackend(ctx, dsn)
	default:
		return nil, errors.New("mock-sut: unknown backend " + name)
	}
}

func newRouter(b database.Backend, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		if err := b.Health(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})

	mux.HandleFunc("/api/aircraft/mode_s/", pathParamHandler(log, func(ctx context.Context, v string) (interface{}, error) {
		return b.LookupAircraft(ctx, v)
	}))
	mux.HandleFunc("/api/ship/mmsi/", pathParamHandler(log, func(ctx context.Context, v string) (interface{}, error) {
		return b.LookupVessel(ctx, v)
	}))
	mux.HandleFunc("/api/aircraft/country/", pathParamHandler(log, func(ctx context.Context, v string) (interface{}, error) {
		return b.AircraftByCountry(ctx, v)
	}))
	mux.HandleFunc("/api/cross-domain/country/", pathParamHandler(log, func(ctx context.Context, v string) (interface{}, error) {
		return b.CrossDomainByCountry(ctx, v)
	}))
	mux.HandleFunc("/api/activity/mmsi/", pathParamHandler(log, func(ctx context.Context, v string) (interface{}, error) {
		return b.ActivityByMMSI(ctx, v)
	}))
	mux.HandleFunc("/api/cross-domain/deep/", pathParamHandler(log, func(ctx context.Context, v string) (interface{}, error) {
		return b.CrossDomainDeep(ctx, v)
	}))

	mux.HandleFunc("/api/activity/log", writeHandler(log, b.RecordActivity))
	mux.HandleFunc("/api/relationship/log", writeHandler(log, b.RecordRelationship))

	return mux
}

// pathParamHandler extracts the last path segment as the bound value and
// dispatches to fn, matching the catalogue's "{v}" placeholder convention.
func pathParamHandler(log zerolog.Logger, fn func(ctx context.Context, v string) (interface{}, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		v := lastSegment(r.URL.Path)
		if v == "" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		result, err := fn(r.Context(), v)
		if errors.Is(err, database.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error().Err(err).Str("path", r.URL.Path).Msg("mock-sut: backend query failed")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(result)
	}
}

func writeHandler(log zerolog.Logger, fn func(ctx context.Context, payload dataset.WritePayload) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var payload dataset.WritePayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if err := fn(r.Context(), payload); err != nil {
			log.Error().Err(err).Str("path", r.URL.Path).Msg("mock-sut: backend write failed")
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}
}

func lastSegment(path string) string {
	trimmed := strings.TrimRight(path, "/")
	idx := strings.LastIndex(trimmed, "/")
	if idx < 0 {
		return ""
	}
	return trimmed[idx+1:]
}
