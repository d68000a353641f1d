package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MJE43/dot-verify-go/internal/engine"
	"github.com/MJE43/dot-verify-go/internal/scenario"
	"github.com/MJE43/dot-verify-go/internal/scripting"
	"github.com/MJE43/dot-verify-go/internal/store"
	"github.com/MJE43/dot-verify-go/internal/verify"
)

// handleListScenarios returns every registered scenario
func (s *Server) handleListScenarios(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, ScenariosResponse{
		Scenarios:     scenario.List(),
		EngineVersion: verify.EngineVersion,
	})
}

// handleVerify runs a scenario against posted samples and persists the result
// when a database is configured.
func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req VerifyRequest

	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBytes)
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.errorHandler.HandleValidationError(w, r, "body", "invalid JSON: "+err.Error())
		return
	}

	if field, msg, ok := validateVerifyRequest(&req); !ok {
		s.errorHandler.HandleValidationError(w, r, field, msg)
		return
	}

	sc, err := scenario.Get(req.Scenario)
	if err != nil {
		s.errorHandler.HandleNotFound(w, r, ErrTypeScenarioNotFound, "scenario", req.Scenario)
		return
	}
	if req.Snapshot != nil {
		sc.Snapshot = *req.Snapshot
	}

	buff, err := sc.Buff(s.scriptTimeout)
	if err != nil {
		s.errorHandler.HandleValidationError(w, r, "scenario", err.Error())
		return
	}

	s.logger.Printf("verify_request scenario=%s mode=%s check=%s samples=%d",
		sc.ID, sc.Mode, req.Check, len(req.Samples))

	report, err := s.verifier.Verify(r.Context(), verify.Request{
		Scenario: sc.ID,
		Mode:     string(sc.Mode),
		Check:    verify.Check(req.Check),
		Snapshot: sc.Snapshot,
		Stat:     sc.Stat,
		Buff:     buff,
		Samples:  req.Samples,
	})
	if err != nil {
		s.handleVerifyError(w, r, sc.ID, err)
		return
	}

	resp := VerifyResponse{Report: report, EngineVersion: verify.EngineVersion}
	if s.db != nil {
		run, err := store.SaveReport(s.db, report)
		if err != nil {
			s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
			return
		}
		resp.RunID = run.ID
	}

	s.logger.Printf("verify_completed scenario=%s run_id=%s anomalies=%d holes=%d suspicious=%d invariants=%d",
		sc.ID, resp.RunID, report.Summary.Anomalies, report.Summary.Holes,
		report.Summary.SuspiciousGaps, report.Summary.InvariantViolations)

	s.writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleVerifyError(w http.ResponseWriter, r *http.Request, scenarioID string, err error) {
	requestID := middleware.GetReqID(r.Context())

	switch {
	case errors.Is(err, verify.ErrInvalidCheck), errors.Is(err, verify.ErrEmptySample), errors.Is(err, engine.ErrInvalidSnapshot):
		s.errorHandler.HandleValidationError(w, r, "request", err.Error())
	case errors.Is(err, scripting.ErrBuffScript):
		engineErr := NewError(ErrTypeBuffEvaluation, "Buff evaluation failed").
			WithRequestID(requestID).
			WithContext("scenario", scenarioID).
			WithCause(err).
			Build()
		s.errorHandler.HandleError(w, r, engineErr, http.StatusUnprocessableEntity)
	case errors.Is(err, context.DeadlineExceeded):
		engineErr := NewError(ErrTypeTimeout, "Verification timed out").
			WithRequestID(requestID).
			WithContext("scenario", scenarioID).
			Build()
		s.errorHandler.HandleError(w, r, engineErr, http.StatusRequestTimeout)
	default:
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
	}
}

func validateVerifyRequest(req *VerifyRequest) (field, msg string, ok bool) {
	if req.Scenario == "" {
		return "scenario", "scenario is required", false
	}
	if len(req.Samples) == 0 {
		return "samples", "at least one observed sample is required", false
	}
	if req.Check == "" {
		req.Check = string(verify.CheckAll)
	}
	if _, err := verify.ParseCheck(req.Check); err != nil {
		return "check", err.Error(), false
	}
	if req.Snapshot != nil {
		if err := req.Snapshot.Validate(); err != nil {
			return "snapshot", err.Error(), false
		}
	}
	return "", "", true
}

// requireDB writes a service_unavailable error when persistence is disabled.
func (s *Server) requireDB(w http.ResponseWriter, r *http.Request) bool {
	if s.db != nil {
		return true
	}
	engineErr := NewError(ErrTypeServiceUnavailable, "Run history requires a database").
		WithRequestID(middleware.GetReqID(r.Context())).
		Build()
	s.errorHandler.HandleError(w, r, engineErr, http.StatusServiceUnavailable)
	return false
}

// handleListRuns lists persisted runs, newest first
func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w, r) {
		return
	}

	q := r.URL.Query()
	runs, err := s.db.ListRuns(store.RunsQuery{
		Scenario: q.Get("scenario"),
		Page:     atoiDefault(q.Get("page"), 1),
		PerPage:  atoiDefault(q.Get("perPage"), 50),
	})
	if err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, runs)
}

// handleGetRun returns one persisted run
func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w, r) {
		return
	}

	id := chi.URLParam(r, "id")
	run, err := s.db.GetRun(id)
	if errors.Is(err, store.ErrRunNotFound) {
		s.errorHandler.HandleNotFound(w, r, ErrTypeNotFound, "run", id)
		return
	}
	if err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, run)
}

// handleGetRunFindings returns one page of a run's findings
func (s *Server) handleGetRunFindings(w http.ResponseWriter, r *http.Request) {
	if !s.requireDB(w, r) {
		return
	}

	id := chi.URLParam(r, "id")
	if _, err := s.db.GetRun(id); err != nil {
		if errors.Is(err, store.ErrRunNotFound) {
			s.errorHandler.HandleNotFound(w, r, ErrTypeNotFound, "run", id)
			return
		}
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}

	q := r.URL.Query()
	page, err := s.db.GetRunFindings(id, atoiDefault(q.Get("page"), 1), atoiDefault(q.Get("perPage"), 100))
	if err != nil {
		s.errorHandler.HandleError(w, r, err, http.StatusInternalServerError)
		return
	}
	s.writeJSON(w, http.StatusOK, page)
}

func atoiDefault(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
