// Package server exposes the QA pipeline over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Vijayvaraprasad/rag-qa-system/config"
	"github.com/Vijayvaraprasad/rag-qa-system/feedback"
	"github.com/Vijayvaraprasad/rag-qa-system/ingest"
	"github.com/Vijayvaraprasad/rag-qa-system/internal/metrics"
	"github.com/Vijayvaraprasad/rag-qa-system/llm"
	"github.com/Vijayvaraprasad/rag-qa-system/rag"
)

// Asker answers questions. The pipeline satisfies it.
type Asker interface {
	Ask(ctx context.Context, question string) (*rag.Answer, error)
}

// DocumentIndexer ingests documents. The indexer satisfies it.
type DocumentIndexer interface {
	IndexDocuments(ctx context.Context, docs []ingest.Document) (int, error)
}

// FeedbackSaver records answer ratings. Optional.
type FeedbackSaver interface {
	Save(ctx context.Context, rec *feedback.Record) error
}

// Deps carries the server's collaborators. Feedback, metrics, and the
// registry are optional.
type Deps struct {
	Asker    Asker
	Indexer  DocumentIndexer
	Feedback FeedbackSaver
	Provider llm.Provider
	Metrics  *metrics.Collector
	Registry *prometheus.Registry
}

// Server is the HTTP front for the pipeline.
type Server struct {
	cfg    config.ServerConfig
	deps   Deps
	logger *zap.Logger
	http   *http.Server

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

func New(cfg config.ServerConfig, deps Deps, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		cfg:      cfg,
		deps:     deps,
		logger:   logger.With(zap.String("component", "http_server")),
		limiters: make(map[string]*rate.Limiter),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /ask", s.handleAsk)
	mux.HandleFunc("POST /documents", s.handleDocuments)
	mux.HandleFunc("POST /feedback", s.handleFeedback)
	mux.HandleFunc("GET /healthz", s.handleHealth)
	if deps.Registry != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      s.withLogging(s.withRateLimit(mux)),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Handler exposes the full middleware chain for tests.
func (s *Server) Handler() http.Handler { return s.http.Handler }

// ListenAndServe blocks until the server stops.
func (s *Server) ListenAndServe() error {
	s.logger.Info("listening", zap.String("addr", s.cfg.Addr))
	err := s.http.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

type askRequest struct {
	Question string `json:"question"`
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	answer, err := s.deps.Asker.Ask(r.Context(), req.Question)
	if err != nil {
		s.writeLLMError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, answer)
}

type documentsRequest struct {
	Documents []ingest.Document `json:"documents"`
}

type documentsResponse struct {
	ChunksIndexed int `json:"chunks_indexed"`
}

func (s *Server) handleDocuments(w http.ResponseWriter, r *http.Request) {
	var req documentsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Documents) == 0 {
		s.writeError(w, http.StatusBadRequest, "documents must not be empty")
		return
	}

	n, err := s.deps.Indexer.IndexDocuments(r.Context(), req.Documents)
	if err != nil {
		s.logger.Error("ingest failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "indexing failed")
		return
	}
	if s.deps.Metrics != nil {
		s.deps.Metrics.ObserveIngest(n)
	}
	s.writeJSON(w, http.StatusOK, documentsResponse{ChunksIndexed: n})
}

type feedbackRequest struct {
	Question   string  `json:"question"`
	Complexity string  `json:"complexity"`
	Threshold  float64 `json:"threshold"`
	Confidence float64 `json:"confidence"`
	Helpful    bool    `json:"helpful"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if s.deps.Feedback == nil {
		s.writeError(w, http.StatusNotImplemented, "feedback is disabled")
		return
	}
	var req feedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Question == "" {
		s.writeError(w, http.StatusBadRequest, "question must not be empty")
		return
	}

	err := s.deps.Feedback.Save(r.Context(), &feedback.Record{
		Question:   req.Question,
		Complexity: req.Complexity,
		Threshold:  req.Threshold,
		Confidence: req.Confidence,
		Helpful:    req.Helpful,
	})
	if err != nil {
		s.logger.Error("feedback save failed", zap.Error(err))
		s.writeError(w, http.StatusInternalServerError, "feedback save failed")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type healthResponse struct {
	Status   string `json:"status"`
	Provider string `json:"provider,omitempty"`
	Message  string `json:"message,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	if s.deps.Provider != nil {
		resp.Provider = s.deps.Provider.Name()
		status, err := s.deps.Provider.HealthCheck(r.Context())
		if err != nil || !status.Healthy {
			resp.Status = "degraded"
			if err != nil {
				resp.Message = err.Error()
			} else {
				resp.Message = status.Message
			}
			s.writeJSON(w, http.StatusServiceUnavailable, resp)
			return
		}
	}
	s.writeJSON(w, http.StatusOK, resp)
}

// writeLLMError maps pipeline errors onto HTTP statuses, surfacing
// Retry-After for budget exhaustion.
func (s *Server) writeLLMError(w http.ResponseWriter, err error) {
	var le *llm.Error
	if errors.As(err, &le) {
		switch le.Code {
		case llm.ErrInvalidRequest:
			s.writeError(w, http.StatusBadRequest, le.Message)
		case llm.ErrRateLimited:
			if le.RetryAfter > 0 {
				w.Header().Set("Retry-After", le.RetryAfter.Round(time.Second).String())
			}
			s.writeError(w, http.StatusTooManyRequests, le.Message)
		case llm.ErrUnauthorized:
			s.writeError(w, http.StatusBadGateway, "upstream rejected credentials")
		default:
			s.writeError(w, http.StatusBadGateway, le.Message)
		}
		return
	}
	s.logger.Error("ask failed", zap.Error(err))
	s.writeError(w, http.StatusInternalServerError, "internal error")
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("response encode failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
