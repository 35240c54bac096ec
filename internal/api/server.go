// Package api exposes the scan engine over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"

	"github.com/ppiankov/apispectre/internal/aggregator"
	"github.com/ppiankov/apispectre/internal/collector"
	"github.com/ppiankov/apispectre/internal/engine"
	"github.com/ppiankov/apispectre/internal/models"
	"github.com/ppiankov/apispectre/internal/validator"
)

// ErrNoSupportedFiles is returned when intake leaves nothing to scan.
var ErrNoSupportedFiles = errors.New("no supported source files found")

const shutdownTimeout = 10 * time.Second

// Options configures a Server.
type Options struct {
	Engine    *engine.Engine
	Logger    hclog.Logger
	Limits    Limits
	RateLimit int // requests per client IP per minute
	Version   string
}

// Server serves scan requests. It keeps no state between requests.
type Server struct {
	engine     *engine.Engine
	aggregator *aggregator.Aggregator
	validator  *validator.Validator
	log        hclog.Logger
	limits     Limits
	rateLimit  int
	version    string
}

// NewServer creates a server; a nil engine means the built-in catalog.
func NewServer(opts Options) *Server {
	log := opts.Logger
	if log == nil {
		log = hclog.NewNullLogger()
	}
	eng := opts.Engine
	if eng == nil {
		eng = engine.New(engine.WithLogger(log.Named("engine")))
	}

	return &Server{
		engine:     eng,
		aggregator: aggregator.New(),
		validator:  validator.New(),
		log:        log,
		limits:     opts.Limits.withDefaults(),
		rateLimit:  opts.RateLimit,
		version:    opts.Version,
	}
}

// Handler returns the routed handler with middleware applied.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /api/rules", s.handleRules)
	mux.HandleFunc("GET /api/rules/{id}", s.handleRule)

	scan := Chain(http.HandlerFunc(s.handleScan),
		RateLimitPerIP(s.rateLimit, DefaultRateLimitWindow),
		BodySizeLimit(s.limits.bodyLimit()),
	)
	mux.Handle("POST /api/scan", scan)

	return Chain(mux, RequestLogger(s.log), SecurityHeaders)
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.log.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": s.version,
	})
}

func (s *Server) handleRules(w http.ResponseWriter, r *http.Request) {
	rs := s.engine.Rules()
	defs := make([]models.RuleDefinition, 0, len(rs))
	for _, rule := range rs {
		defs = append(defs, rule.Definition)
	}
	writeJSON(w, http.StatusOK, defs)
}

func (s *Server) handleRule(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rule, ok := s.engine.RuleByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown rule %q", id))
		return
	}
	writeJSON(w, http.StatusOK, rule.Definition)
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	if err := ValidateScanRequest(req, s.limits); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.validator.ValidateOptions(req.Options); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := s.Scan(req.Files, req.Options)
	if err != nil {
		if errors.Is(err, ErrNoSupportedFiles) {
			writeError(w, http.StatusBadRequest, "No supported source files found")
			return
		}
		s.log.Error("scan failed", "error", err)
		writeError(w, http.StatusInternalServerError, "scan failed")
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Scan runs intake and the engine over entries and attaches recommendations.
func (s *Server) Scan(entries []models.FileEntry, opts models.ScanOptions) (*models.ScanResult, error) {
	files, err := collector.CreateFilesFromEntries(entries, opts)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, ErrNoSupportedFiles
	}

	result := s.engine.ScanFiles(files, opts)
	s.aggregator.Enrich(result, nil)

	s.log.Debug("scan served",
		"id", result.ID,
		"files", result.Stats.TotalFiles,
		"issues", result.Stats.TotalIssues,
		"score", result.Score)

	return result, nil
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
