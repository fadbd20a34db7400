package daemon

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"moviepilot/internal/api"
	"moviepilot/internal/config"
	"moviepilot/internal/logging"
	"moviepilot/internal/subscription"
)

// apiServer exposes a read-only JSON view of the daemon over HTTP.
type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	handler  http.Handler
	listener net.Listener
	server   *http.Server
}

// newAPIServer returns nil when no bind address is configured.
func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.API.Bind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", srv.handleStatus)
	mux.HandleFunc("GET /api/subscriptions", srv.handleSubscriptions)
	mux.HandleFunc("GET /api/subscriptions/{id}", srv.handleSubscription)
	mux.HandleFunc("GET /api/inventory", srv.handleInventory)
	mux.HandleFunc("GET /api/cache", srv.handleCache)

	srv.handler = requireToken(strings.TrimSpace(cfg.API.Token), mux)
	return srv, nil
}

// requireToken rejects requests without "Authorization: Bearer <token>".
// An empty token disables the check.
func requireToken(token string, next http.Handler) http.Handler {
	if token == "" {
		return next
	}
	want := []byte(token)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
			w.Header().Set("WWW-Authenticate", `Bearer realm="moviepilot"`)
			writeAPIError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	ln, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen on %s: %w", s.bind, err)
	}
	s.listener = ln
	// A shut down http.Server cannot serve again, so each start gets a new one.
	s.server = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       time.Minute,
	}
	srv := s.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server stopped", logging.Error(err))
		}
	}()
	context.AfterFunc(ctx, s.stop)
	s.logger.Info("api server listening", logging.String("address", ln.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil || s.server == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.server.Shutdown(ctx); err != nil {
		s.logger.Debug("api server shutdown", logging.Error(err))
	}
}

// addr returns the bound listener address, or empty before start.
func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.reply(w, s.daemon.Status(r.Context()).DTO())
}

func (s *apiServer) handleSubscriptions(w http.ResponseWriter, r *http.Request) {
	var states []subscription.State
	for _, raw := range r.URL.Query()["state"] {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		state, err := subscription.ParseState(raw)
		if err != nil {
			writeAPIError(w, http.StatusBadRequest, err.Error())
			return
		}
		states = append(states, state)
	}
	subs, err := s.daemon.Subscriptions(r.Context(), states...)
	if err != nil {
		writeAPIError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.reply(w, api.SubscriptionListResponse{Items: api.FromSubscriptions(subs)})
}

func (s *apiServer) handleSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		writeAPIError(w, http.StatusBadRequest, "invalid subscription id")
		return
	}
	sub, err := s.daemon.c.Store.Get(r.Context(), id)
	switch {
	case err != nil:
		writeAPIError(w, http.StatusInternalServerError, err.Error())
	case sub == nil:
		writeAPIError(w, http.StatusNotFound, "subscription not found")
	default:
		s.reply(w, api.SubscriptionResponse{Item: api.FromSubscription(sub)})
	}
}

func (s *apiServer) handleInventory(w http.ResponseWriter, _ *http.Request) {
	s.reply(w, api.FromSourceStats(s.daemon.c.Engine.Inventory().Stats()))
}

func (s *apiServer) handleCache(w http.ResponseWriter, _ *http.Request) {
	cache := s.daemon.Cache()
	items := cache.List()
	resp := api.CacheListResponse{
		Items: make([]api.CacheEntry, 0, len(items)),
		Stats: api.FromCacheStats(cache.Stats()),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, api.FromCacheItem(item))
	}
	s.reply(w, resp)
}

func (s *apiServer) reply(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Debug("api response write failed", logging.Error(err))
	}
}

func writeAPIError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message}) //nolint:errcheck
}
