// Package api serves verification runs over HTTP.
package api

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MJE43/dot-verify-go/internal/store"
	"github.com/MJE43/dot-verify-go/internal/verify"
)

const maxRequestBytes = 8 << 20

// Server handles HTTP requests
type Server struct {
	db            store.DB
	verifier      *verify.Verifier
	errorHandler  *ErrorHandler
	logger        *log.Logger
	scriptTimeout time.Duration
	startTime     time.Time
}

// NewServer creates a new API server. db may be nil, which disables the run
// history endpoints and persistence of verification results.
func NewServer(db store.DB, scriptTimeout time.Duration) *Server {
	logger := log.New(os.Stdout, "[API] ", log.LstdFlags|log.Lshortfile)

	server := &Server{
		db:            db,
		verifier:      verify.NewVerifier(log.New(os.Stdout, "[VERIFY] ", log.LstdFlags)),
		errorHandler:  NewErrorHandler(logger),
		logger:        logger,
		scriptTimeout: scriptTimeout,
		startTime:     time.Now(),
	}

	logger.Printf("server_startup engine_version=%s database_enabled=%t", verify.EngineVersion, db != nil)

	return server
}

// Routes sets up the HTTP routes with proper middleware
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(s.errorHandler.RecoveryHandler)
	r.Use(middleware.Timeout(60 * time.Second))

	r.Get("/health", s.handleHealthCheck)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/scenarios", s.handleListScenarios)
		r.Post("/verify", s.handleVerify)
		r.Get("/runs", s.handleListRuns)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Get("/runs/{id}/findings", s.handleGetRunFindings)
	})

	return r
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.Printf("request request_id=%s method=%s path=%s status=%d bytes=%d duration=%s",
			middleware.GetReqID(r.Context()), r.Method, r.URL.Path, ww.Status(), ww.BytesWritten(), time.Since(start))
	})
}

// writeJSON writes a JSON response with proper headers
func (s *Server) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Engine-Version", verify.EngineVersion)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Printf("response_encode_failed status=%d err=%v", status, err)
	}
}
