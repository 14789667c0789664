// Package httpserver contains HTTP handlers and middleware.
//
// It provides the REST API for the interview service including session
// creation, turn submission, progress summaries, and report retrieval.
// The package keeps HTTP concerns separate from the interview logic.
package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fairyhunter13/excel-interviewer/internal/domain"
	"github.com/fairyhunter13/excel-interviewer/internal/usecase"
)

type errorEnvelope struct {
	Error apiError `json:"error"`
}

type apiError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, _ *http.Request, err error, details interface{}) {
	code := http.StatusInternalServerError
	codeStr := "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrInvalidArgument):
		code = http.StatusBadRequest
		codeStr = "INVALID_ARGUMENT"
	case errors.Is(err, domain.ErrSessionNotFound):
		code = http.StatusNotFound
		codeStr = "NOT_FOUND"
	case errors.Is(err, domain.ErrInvalidPhase):
		code = http.StatusConflict
		codeStr = "INVALID_PHASE"
	case errors.Is(err, domain.ErrNoInterviewData):
		code = http.StatusConflict
		codeStr = "NO_INTERVIEW_DATA"
	case errors.Is(err, domain.ErrNotConfigured):
		code = http.StatusServiceUnavailable
		codeStr = "NOT_CONFIGURED"
	case errors.Is(err, domain.ErrUpstreamTimeout):
		code = http.StatusServiceUnavailable
		codeStr = "UPSTREAM_TIMEOUT"
	case errors.Is(err, domain.ErrSchemaInvalid):
		code = http.StatusServiceUnavailable
		codeStr = "SCHEMA_INVALID"
	}
	if details == nil {
		var pe *usecase.PhaseError
		if errors.As(err, &pe) {
			details = map[string]string{"phase": string(pe.Phase)}
		}
	}
	writeJSON(w, code, errorEnvelope{Error: apiError{Code: codeStr, Message: err.Error(), Details: details}})
}
