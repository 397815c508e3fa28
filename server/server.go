// Package server exposes the engine over HTTP and a websocket event stream.
//
// Every command is executed on the scheduler goroutine through sched.Do; handlers
// never touch engine state directly.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/lixenwraith/luckydraw/engine"
	"github.com/lixenwraith/luckydraw/event"
	"github.com/lixenwraith/luckydraw/metrics"
	"github.com/lixenwraith/luckydraw/prize"
	"github.com/lixenwraith/luckydraw/sched"
	"github.com/lixenwraith/luckydraw/snapshot"
	"github.com/lixenwraith/luckydraw/ticket"
)

const (
	readHeaderTimeout = 5 * time.Second
	shutdownTimeout   = 5 * time.Second
	maxBodyBytes      = 4 << 20
)

// Config is the listener and command rate limit
type Config struct {
	Addr  string
	Rate  float64 // Commands per second per client
	Burst int
}

// DefaultConfig listens on localhost only
func DefaultConfig() Config {
	return Config{Addr: "127.0.0.1:8080", Rate: 5, Burst: 10}
}

// Server routes HTTP requests to one engine
type Server struct {
	cfg     Config
	eng     *engine.Engine
	sched   *sched.Scheduler
	hub     *Hub
	limiter *RateLimiter
	metrics *metrics.Collector
	log     zerolog.Logger
	router  chi.Router
}

// New builds the router; m may be nil to disable /metrics
func New(cfg Config, eng *engine.Engine, m *metrics.Collector, log zerolog.Logger) *Server {
	s := &Server{
		cfg:     cfg,
		eng:     eng,
		sched:   eng.Scheduler(),
		hub:     NewHub(log),
		limiter: NewRateLimiter(cfg.Rate, cfg.Burst, log),
		metrics: m,
		log:     log.With().Str("component", "server").Logger(),
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(s.requestLog)
	if s.metrics != nil {
		r.Use(s.metrics.InstrumentHandler)
		r.Method(http.MethodGet, "/metrics", s.metrics.Handler())
	}

	r.Get("/ws", s.hub.ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Get("/snapshot", s.handleSnapshot)

		r.Group(func(r chi.Router) {
			r.Use(s.limiter.Handler)
			r.Post("/configure", s.handleConfigure)
			r.Post("/settings", s.handleSettings)
			r.Post("/charge/begin", s.command(s.eng.BeginCharge))
			r.Post("/charge/cancel", s.command(func() error { s.eng.CancelCharge(); return nil }))
			r.Post("/draw", s.command(s.eng.Draw))
			r.Post("/undo", s.command(s.eng.Undo))
			r.Post("/reset", s.command(func() error { s.eng.ResetDraw(); return nil }))
			r.Post("/restore", s.handleRestore)
		})
	})
	return r
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Attach streams bus events to websocket clients
func (s *Server) Attach(bus *event.Bus) func() {
	return s.hub.Attach(bus)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", s.cfg.Addr).Msg("control server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	s.hub.Close()
	return srv.Shutdown(shutdownCtx)
}

// exec runs fn on the loop and returns the state it left behind
func (s *Server) exec(ctx context.Context, fn func() error) (engine.State, error) {
	var (
		st  engine.State
		err error
	)
	if doErr := s.sched.Do(ctx, func() {
		err = fn()
		st = s.eng.State()
	}); doErr != nil {
		return st, doErr
	}
	return st, err
}

func (s *Server) command(fn func() error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := s.exec(r.Context(), fn)
		if err != nil {
			s.writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	st, err := s.exec(r.Context(), func() error { return nil })
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	var snap snapshot.Snapshot
	if err := s.sched.Do(r.Context(), func() { snap = s.eng.Snapshot() }); err != nil {
		s.writeError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", "luckydraw-"+snap.SessionID+".json"))
	if err := snapshot.Encode(w, snap); err != nil {
		s.log.Warn().Err(err).Msg("snapshot write failed")
	}
}

// configureRequest mirrors the setup form; omitted fields keep their base value
type configureRequest struct {
	Tickets         string       `json:"tickets"`
	NumPrizes       *int         `json:"numPrizes"`
	WinnersPerPrize *int         `json:"winnersPerPrize"`
	Order           *prize.Order `json:"order"`
}

func (c configureRequest) apply(cfg engine.DrawConfig) engine.DrawConfig {
	if c.NumPrizes != nil {
		cfg.NumPrizes = *c.NumPrizes
	}
	if c.WinnersPerPrize != nil {
		cfg.WinnersPerPrize = *c.WinnersPerPrize
	}
	if c.Order != nil {
		cfg.Order = *c.Order
	}
	return cfg
}

// queryRequest reads the prize setup from URL parameters for plain-text uploads
func queryRequest(r *http.Request) (configureRequest, error) {
	var req configureRequest
	q := r.URL.Query()
	for _, f := range []struct {
		key string
		dst **int
	}{{"numPrizes", &req.NumPrizes}, {"winnersPerPrize", &req.WinnersPerPrize}} {
		raw := q.Get(f.key)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return req, fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = &n
	}
	if raw := q.Get("order"); raw != "" {
		o, err := prize.ParseOrder(raw)
		if err != nil {
			return req, err
		}
		req.Order = &o
	}
	return req, nil
}

// handleConfigure takes a JSON setup form, or a text/plain ticket file with the
// prize setup in the query string
func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "text/plain" {
		req, err := queryRequest(r)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: err.Error()})
			return
		}
		tokens, err := ticket.ReadList(http.MaxBytesReader(w, r.Body, maxBodyBytes))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: err.Error()})
			return
		}
		s.command(func() error { return s.eng.ConfigureList(tokens, req.apply(engine.DefaultDrawConfig())) })(w, r)
		return
	}

	var req configureRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.command(func() error { return s.eng.Configure(req.Tickets, req.apply(engine.DefaultDrawConfig())) })(w, r)
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var req configureRequest
	if !s.decode(w, r, &req) {
		return
	}
	s.command(func() error { return s.eng.UpdateSettings(req.apply(s.eng.Config())) })(w, r)
}

func (s *Server) handleRestore(w http.ResponseWriter, r *http.Request) {
	var snap snapshot.Snapshot
	if !s.decode(w, r, &snap) {
		return
	}
	s.command(func() error { return s.eng.Restore(snap) })(w, r)
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "bad_request", Message: err.Error()})
		return false
	}
	return true
}

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// statusOf maps an engine error onto an HTTP status
func statusOf(err error) int {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return http.StatusServiceUnavailable
	}
	switch engine.KindOf(err) {
	case event.KindValidation, event.KindSnapshot:
		return http.StatusUnprocessableEntity
	case event.KindBusy, event.KindPoolExhausted, event.KindPrizesExhausted:
		return http.StatusConflict
	case event.KindEmptyHistory:
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	kind := "unavailable"
	if status != http.StatusServiceUnavailable {
		kind = engine.KindOf(err).String()
	}
	if status >= http.StatusInternalServerError {
		s.log.Error().Err(err).Int("status", status).Msg("command failed")
	}
	writeJSON(w, status, errorBody{Error: kind, Message: err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}
