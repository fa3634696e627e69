// Package api provides the HTTP server exposing simulation, proposal, and
// recommendation endpoints.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"cloudsave/decision/proposal"
	"cloudsave/decision/recommend"
	"cloudsave/decision/simulation"
	contracts "cloudsave/pkg/api"
	cserr "cloudsave/pkg/errors"
)

// Config holds server configuration.
type Config struct {
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	RequestTimeout time.Duration
	MaxRequestSize int64
	SweepInterval  time.Duration
}

// DefaultConfig returns the default server configuration.
func DefaultConfig() *Config {
	return &Config{
		Port:           8080,
		ReadTimeout:    30 * time.Second,
		WriteTimeout:   60 * time.Second,
		RequestTimeout: 60 * time.Second,
		MaxRequestSize: 1 << 20,
		SweepInterval:  time.Hour,
	}
}

// Server wires the engines behind the REST surface.
type Server struct {
	httpServer  *http.Server
	coordinator *simulation.Coordinator
	ledger      *proposal.Ledger
	ranker      *recommend.Ranker
	validate    *validator.Validate
	log         zerolog.Logger
	config      *Config
	version     string
}

// NewServer creates a server over already-constructed engines.
func NewServer(coord *simulation.Coordinator, ledger *proposal.Ledger, ranker *recommend.Ranker, log zerolog.Logger, cfg *Config) *Server {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Server{
		coordinator: coord,
		ledger:      ledger,
		ranker:      ranker,
		validate:    validator.New(),
		log:         log,
		config:      cfg,
		version:     "0.1.0",
	}
}

// Router builds the chi router with the full route table.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(s.config.RequestTimeout))

	r.Get("/health", s.handleHealth)
	r.Get("/health/ready", s.handleHealth)
	r.Get("/version", s.handleVersion)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/simulate", s.handleSimulate)
		r.Get("/recommendations", s.handleRecommendations)
		r.Route("/proposals", func(r chi.Router) {
			r.Post("/", s.handleCreateProposal)
			r.Get("/{id}", s.handleGetProposal)
			r.Post("/{id}/approve", s.handleApproveProposal)
			r.Post("/{id}/reject", s.handleRejectProposal)
		})
	})
	return r
}

// Start runs the server until SIGINT/SIGTERM, sweeping expired proposals in
// the background on the configured interval.
func (s *Server) Start(ctx context.Context) error {
	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", s.config.Port),
		Handler:      s.Router(),
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go s.runSweeper(sweepCtx)

	errChan := make(chan error, 1)
	go func() {
		s.log.Info().Int("port", s.config.Port).Str("version", s.version).Msg("starting server")
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-quit:
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(shutdownCtx)
}

func (s *Server) runSweeper(ctx context.Context) {
	if s.config.SweepInterval <= 0 {
		return
	}
	ticker := time.NewTicker(s.config.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.ledger.SweepExpired(ctx); err != nil {
				s.log.Error().Err(err).Msg("expiry sweep failed")
			}
		}
	}
}

// =============================================================================
// HANDLERS
// =============================================================================

// SimulateRequest is the POST /simulate body.
type SimulateRequest struct {
	ResourceIDs []string                  `json:"resourceIds" validate:"required,min=1,dive,required"`
	Action      contracts.ActionType      `json:"action" validate:"required"`
	Params      *contracts.ScenarioParams `json:"params,omitempty"`
}

func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req SimulateRequest
	if !s.decode(w, r, &req) {
		return
	}

	resp, err := s.coordinator.Simulate(r.Context(), req.ResourceIDs, req.Action, req.Params)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, resp)
}

// CreateProposalRequest is the POST /proposals body. The scenario snapshot is
// supplied by the client exactly as the simulate call returned it.
type CreateProposalRequest struct {
	ScenarioID string                     `json:"scenarioId" validate:"required"`
	Result     contracts.SimulationResult `json:"result"`
	Note       string                     `json:"note,omitempty"`
	TTLDays    int                        `json:"ttlDays" validate:"required"`
}

func (s *Server) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	var req CreateProposalRequest
	if !s.decode(w, r, &req) {
		return
	}

	p, err := s.ledger.Create(r.Context(), req.ScenarioID, req.Result, req.Note, req.TTLDays)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, p)
}

func (s *Server) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	p, err := s.ledger.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, p)
}

func (s *Server) handleApproveProposal(w http.ResponseWriter, r *http.Request) {
	p, err := s.ledger.Approve(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, p)
}

func (s *Server) handleRejectProposal(w http.ResponseWriter, r *http.Request) {
	p, err := s.ledger.Reject(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.jsonResponse(w, http.StatusOK, p)
}

func (s *Server) handleRecommendations(w http.ResponseWriter, r *http.Request) {
	recs, err := s.ranker.TopRecommendations(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	if recs == nil {
		recs = []contracts.Recommendation{}
	}
	s.jsonResponse(w, http.StatusOK, recs)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"status": "healthy", "version": s.version})
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{"version": s.version})
}

// =============================================================================
// HELPERS
// =============================================================================

// decode parses and validates a JSON body, writing the 400 itself on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.config.MaxRequestSize)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		s.writeError(w, cserr.NewValidation("invalid request body: %v", err))
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		s.writeError(w, cserr.NewValidation("invalid request: %v", err))
		return false
	}
	return true
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch cserr.CodeOf(err) {
	case cserr.CodeValidation:
		status = http.StatusBadRequest
	case cserr.CodeNotFound:
		status = http.StatusNotFound
	case cserr.CodeInvalidState, cserr.CodeConflict:
		status = http.StatusConflict
	}
	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("request failed")
	}

	var se *cserr.Error
	if errors.As(err, &se) {
		s.jsonResponse(w, status, map[string]any{"error": se.Message, "code": se.Code, "subject": se.Subject})
		return
	}
	s.jsonResponse(w, status, map[string]any{"error": err.Error(), "code": cserr.CodeInternal})
}

func (s *Server) jsonResponse(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
