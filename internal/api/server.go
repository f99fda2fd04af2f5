// Package api exposes the HTTP interface for the audit service.
package api

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gradekit/site-grader/internal/audit"
	"github.com/gradekit/site-grader/internal/config"
	"github.com/gradekit/site-grader/internal/dispatcher"
	collyfetcher "github.com/gradekit/site-grader/internal/fetcher/colly"
	"github.com/gradekit/site-grader/internal/metrics"
)

// Server wires HTTP handlers to the dispatcher and record store.
type Server struct {
	router     chi.Router
	records    audit.RecordStore
	dispatcher *dispatcher.Dispatcher
	clock      audit.Clock
	cfg        config.Config
	logger     *zap.Logger
}

// NewServer constructs a Server with middleware and routes.
func NewServer(
	records audit.RecordStore,
	dispatcher *dispatcher.Dispatcher,
	idGen audit.IDGenerator,
	clock audit.Clock,
	cfg config.Config,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	s := &Server{
		records:    records,
		dispatcher: dispatcher,
		clock:      clock,
		cfg:        cfg,
		logger:     logger,
	}
	r := chi.NewRouter()
	r.Use(requestIDMiddleware(idGen))
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metricsMiddleware)
	r.Use(timeoutMiddleware(60 * time.Second))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(apiKeyMiddleware(cfg.Auth.APIKey))
		r.Post("/jobs", s.submitJob)
	})

	r.Get("/audit/{auditId}/status", s.getAuditStatus)

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

type submitJobRequest struct {
	AuditID    string `json:"audit_id"`
	WebsiteURL string `json:"website_url"`
	UserEmail  string `json:"user_email"`
	UserID     string `json:"user_id"`
}

func (s *Server) submitJob(w http.ResponseWriter, r *http.Request) {
	var req submitJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	if err := validateSubmitRequest(req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	auditID := strings.TrimSpace(req.AuditID)
	websiteURL := collyfetcher.NormalizeURL(req.WebsiteURL)
	if err := s.enqueueAudit(r.Context(), auditID, websiteURL, req); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, context.DeadlineExceeded) {
			status = http.StatusRequestTimeout
		}
		writeError(w, status, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "audit_id": auditID})
}

func (s *Server) enqueueAudit(ctx context.Context, auditID, websiteURL string, req submitJobRequest) error {
	now := s.clock.Now()
	rec := audit.Record{
		AuditID:        auditID,
		WebsiteURL:     websiteURL,
		Status:         audit.StatusPending,
		RequestedEmail: req.UserEmail,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if req.UserID != "" {
		userID := req.UserID
		rec.UserID = &userID
	}
	if err := s.records.CreateRecord(ctx, rec); err != nil {
		return fmt.Errorf("create audit record: %w", err)
	}
	queueCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	job := audit.Job{
		AuditID:    auditID,
		WebsiteURL: websiteURL,
		UserEmail:  req.UserEmail,
		UserID:     req.UserID,
		Attempt:    1,
	}
	if err := s.dispatcher.Enqueue(queueCtx, job); err != nil {
		return err
	}
	return nil
}

func validateSubmitRequest(req submitJobRequest) error {
	if strings.TrimSpace(req.AuditID) == "" {
		return errors.New("audit_id is required")
	}
	if strings.TrimSpace(req.WebsiteURL) == "" {
		return errors.New("website_url is required")
	}
	if strings.TrimSpace(req.UserEmail) == "" {
		return errors.New("user_email is required")
	}
	if !strings.Contains(req.UserEmail, "@") {
		return errors.New("user_email is not a valid address")
	}
	return nil
}

func (s *Server) getAuditStatus(w http.ResponseWriter, r *http.Request) {
	userID := strings.TrimSpace(r.Header.Get("X-User-ID"))
	userEmail := strings.TrimSpace(r.Header.Get("X-User-Email"))
	if userID == "" && userEmail == "" {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}
	auditID := chi.URLParam(r, "auditId")
	rec, err := s.records.GetRecord(r.Context(), auditID)
	if err != nil {
		if errors.Is(err, audit.ErrNotFound) {
			writeError(w, http.StatusNotFound, "audit not found")
			return
		}
		s.logger.Error("audit lookup failed", zap.String("audit_id", auditID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	if !ownsRecord(rec, userID, userEmail) {
		writeError(w, http.StatusForbidden, "audit belongs to another user")
		return
	}
	writeJSON(w, http.StatusOK, audit.StatusView{
		Status:       rec.Status,
		OverallScore: rec.OverallScore,
		ReportPDFURL: rec.ReportPDFURL,
	})
}

// ownsRecord gates status reads. A record created by a signed-in user is
// only visible to that user id; an anonymous record is visible to the
// email it was requested for.
func ownsRecord(rec audit.Record, userID, userEmail string) bool {
	if rec.UserID != nil {
		return userID != "" && userID == *rec.UserID
	}
	return userEmail != "" && strings.EqualFold(userEmail, rec.RequestedEmail)
}

func requestIDMiddleware(idGen audit.IDGenerator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID, err := idGen.NewID()
			if err != nil {
				reqID = uuid.NewString()
			}
			ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
			w.Header().Set("X-Request-ID", reqID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Info("request completed",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					logger.Error("panic recovered", zap.Any("error", rec))
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		metrics.ObserveHTTPRequest(r.Method, route, ww.status, time.Since(start))
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

type requestIDKey struct{}

func apiKeyMiddleware(expected string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := r.Header.Get("x-api-key")
			if key == "" || key != expected {
				writeError(w, http.StatusUnauthorized, "invalid api key")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
