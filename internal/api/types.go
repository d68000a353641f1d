package api

import (
	"github.com/MJE43/dot-verify-go/internal/engine"
	"github.com/MJE43/dot-verify-go/internal/scenario"
	"github.com/MJE43/dot-verify-go/internal/verify"
)

// EngineError represents a structured error response with context
type EngineError struct {
	Type      string         `json:"type"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context,omitempty"`
	RequestID string         `json:"request_id,omitempty"`
	Timestamp string         `json:"timestamp,omitempty"`
}

// Error implements the error interface
func (e EngineError) Error() string {
	return e.Message
}

// Error types with proper categorization
const (
	// Input validation errors
	ErrTypeValidation     = "validation_error"
	ErrTypeInvalidSamples = "invalid_samples"

	// Lookup errors
	ErrTypeScenarioNotFound = "scenario_not_found"
	ErrTypeNotFound         = "not_found"

	// Verification errors
	ErrTypeBuffEvaluation = "buff_evaluation_error"

	// System errors
	ErrTypeTimeout            = "timeout"
	ErrTypeInternal           = "internal_error"
	ErrTypeServiceUnavailable = "service_unavailable"
)

// ErrorCategory represents error categories for monitoring
type ErrorCategory string

const (
	CategoryValidation ErrorCategory = "validation"
	CategoryLookup     ErrorCategory = "lookup"
	CategoryVerify     ErrorCategory = "verify"
	CategorySystem     ErrorCategory = "system"
	CategoryTimeout    ErrorCategory = "timeout"
)

// GetErrorCategory returns the category for an error type
func GetErrorCategory(errType string) ErrorCategory {
	switch errType {
	case ErrTypeValidation, ErrTypeInvalidSamples:
		return CategoryValidation
	case ErrTypeScenarioNotFound, ErrTypeNotFound:
		return CategoryLookup
	case ErrTypeBuffEvaluation:
		return CategoryVerify
	case ErrTypeTimeout:
		return CategoryTimeout
	default:
		return CategorySystem
	}
}

// VerifyRequest runs a scenario's checks against posted samples.
type VerifyRequest struct {
	Scenario string   `json:"scenario"`
	Check    string   `json:"check,omitempty"`
	Samples  []uint64 `json:"samples"`

	// Snapshot replaces the scenario's snapshot when set.
	Snapshot *engine.Snapshot `json:"snapshot,omitempty"`
}

// VerifyResponse carries the report and, when persisted, the run it was saved as.
type VerifyResponse struct {
	RunID         string         `json:"run_id,omitempty"`
	Report        *verify.Report `json:"report"`
	EngineVersion string         `json:"engine_version"`
}

// ScenariosResponse lists the registered scenarios.
type ScenariosResponse struct {
	Scenarios     []scenario.Scenario `json:"scenarios"`
	EngineVersion string              `json:"engine_version"`
}

// VersionInfo contains engine version information
type VersionInfo struct {
	EngineVersion string `json:"engine_version"`
	GitCommit     string `json:"git_commit,omitempty"`
	BuildTime     string `json:"build_time,omitempty"`
}

// GetVersionInfo returns the current version information
func GetVersionInfo() VersionInfo {
	return VersionInfo{
		EngineVersion: verify.EngineVersion,
		GitCommit:     verify.GitCommit,
		BuildTime:     verify.BuildTime,
	}
}
