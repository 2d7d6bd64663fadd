// apps/go-server/internal/httpserver/server.go
//
// HTTP server wiring for the chosung game backend.
// Responsibilities:
//   - Router + middleware (CORS, timeouts, panic recovery, request IDs).
//   - Realtime endpoint: "/ws" (see ws.go).
//   - Public endpoints: "/", "/health", "/rooms/{code}".
//   - History endpoints: "/leaderboard", "/games/recent" (when a store is wired).
//   - Operator endpoint: "/debug/rooms", gated by an operator JWT.
//
// Notes:
//   - "/ws" sits outside the timeout and JSON middleware; a hijacked
//     connection must not be touched by either.
//   - "/debug/rooms" is not mounted at all when no operator secret is set.

package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/chosung/apps/go-server/internal/history"
	"github.com/robalobadob/chosung/apps/go-server/internal/store"
)

const (
	defaultLimit = 10
	maxLimit     = 100
)

// Options carries the collaborators and transport tuning.
type Options struct {
	Rooms   *store.Registry
	Hub     *Hub
	History *history.Store // optional

	ClientOrigin   string
	OperatorSecret string
	SubmitRate     float64
	SubmitBurst    int
}

// Server bundles router, room registry and event hub.
type Server struct {
	r    *chi.Mux
	opts Options
}

// New constructs a Server, installs middleware, and registers routes.
func New(opts Options) *Server {
	if opts.Hub == nil {
		opts.Hub = NewHub()
	}
	if opts.SubmitRate <= 0 {
		opts.SubmitRate = 2
	}
	if opts.SubmitBurst < 1 {
		opts.SubmitBurst = 5
	}
	s := &Server{r: chi.NewRouter(), opts: opts}

	// --- middleware ---
	s.r.Use(chimw.RequestID)
	s.r.Use(chimw.RealIP)
	s.r.Use(chimw.Recoverer)
	s.r.Use(cors(opts.ClientOrigin))

	s.r.Get("/ws", s.handleWS)

	s.r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(10 * time.Second))
		r.Use(jsonContentType)

		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"service":"chosung-go","endpoints":["/ws","/health","/rooms/{code}","/leaderboard","/games/recent"]}`))
		})
		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "rooms": s.opts.Rooms.Len()})
		})
		r.Get("/rooms/{code}", s.handleRoom)
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/games/recent", s.handleRecent)

		if opts.OperatorSecret != "" {
			r.With(requireOperator(opts.OperatorSecret)).Get("/debug/rooms", func(w http.ResponseWriter, r *http.Request) {
				_ = json.NewEncoder(w).Encode(s.opts.Rooms.Rooms())
			})
		}

		// JSON 404 for easier debugging
		r.NotFound(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, `{"error":"not_found","path":"`+r.URL.Path+`"}`, http.StatusNotFound)
		})
	})

	return s
}

// Start serves HTTP on addr until ctx is cancelled, then drains in-flight
// requests.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.r, ReadHeaderTimeout: 5 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	log.Info().Msg("shutting down http server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Router exposes the internal router (useful for tests).
func (s *Server) Router() chi.Router { return s.r }

// ----------------------------- middleware ----------------------------------

// jsonContentType sets a default JSON Content-Type header on all responses.
func jsonContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		next.ServeHTTP(w, r)
	})
}

// cors enables credentialed CORS for a single origin.
func cors(origin string) func(http.Handler) http.Handler {
	if origin == "" {
		origin = "http://localhost:5173"
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Vary", "Origin")
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Set("Access-Control-Allow-Methods", "GET,OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// ------------------------------ ROOMS --------------------------------------

func (s *Server) handleRoom(w http.ResponseWriter, r *http.Request) {
	sess, err := s.opts.Rooms.Get(chi.URLParam(r, "code"))
	if err != nil {
		http.Error(w, `{"error":"not_found"}`, http.StatusNotFound)
		return
	}
	_ = json.NewEncoder(w).Encode(sess.Snapshot())
}

// ----------------------------- HISTORY -------------------------------------

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	if s.opts.History == nil {
		http.Error(w, `{"error":"history_disabled"}`, http.StatusServiceUnavailable)
		return
	}
	rows, err := s.opts.History.Leaderboard(r.Context(), limitParam(r))
	if err != nil {
		log.Error().Err(err).Msg("leaderboard")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(rows)
}

func (s *Server) handleRecent(w http.ResponseWriter, r *http.Request) {
	if s.opts.History == nil {
		http.Error(w, `{"error":"history_disabled"}`, http.StatusServiceUnavailable)
		return
	}
	games, err := s.opts.History.Recent(r.Context(), limitParam(r))
	if err != nil {
		log.Error().Err(err).Msg("recent games")
		http.Error(w, `{"error":"db_error"}`, http.StatusInternalServerError)
		return
	}
	_ = json.NewEncoder(w).Encode(games)
}

// limitParam reads ?limit=, clamped to [1, maxLimit].
func limitParam(r *http.Request) int {
	n, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || n < 1 {
		return defaultLimit
	}
	if n > maxLimit {
		return maxLimit
	}
	return n
}
