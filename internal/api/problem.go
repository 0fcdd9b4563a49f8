package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/hyperengineering/ascend/internal/ledger"
	"github.com/hyperengineering/ascend/internal/reconcile"
	"github.com/hyperengineering/ascend/internal/store"
	"github.com/hyperengineering/ascend/internal/validation"
)

// Problem represents an RFC 7807 Problem Details response.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail"`
	Instance string `json:"instance,omitempty"`
}

const problemBaseURI = "https://ascend.dev/errors/"

// problemTypes maps HTTP status codes to RFC 7807 type slugs and titles.
var problemTypes = map[int]struct {
	slug  string
	title string
}{
	http.StatusBadRequest:          {"bad-request", "Bad Request"},
	http.StatusUnauthorized:        {"unauthorized", "Unauthorized"},
	http.StatusNotFound:            {"not-found", "Not Found"},
	http.StatusConflict:            {"conflict", "Conflict"},
	http.StatusUnprocessableEntity: {"validation-error", "Validation Error"},
	http.StatusInternalServerError: {"internal-error", "Internal Server Error"},
	http.StatusServiceUnavailable:  {"service-unavailable", "Service Unavailable"},
}

func problemFor(r *http.Request, status int, detail string) Problem {
	pt, ok := problemTypes[status]
	if !ok {
		pt.slug, pt.title = "unknown", http.StatusText(status)
	}
	return Problem{
		Type:     problemBaseURI + pt.slug,
		Title:    pt.title,
		Status:   status,
		Detail:   detail,
		Instance: r.URL.Path,
	}
}

func writeProblemBody(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode problem response", "error", err)
	}
}

// WriteProblem writes an RFC 7807 Problem Details response.
func WriteProblem(w http.ResponseWriter, r *http.Request, status int, detail string) {
	writeProblemBody(w, status, problemFor(r, status, detail))
}

// ProblemWithErrors extends Problem with validation error details.
type ProblemWithErrors struct {
	Problem
	Errors []validation.ValidationError `json:"errors,omitempty"`
}

// WriteProblemWithErrors writes a 422 Problem Details response with field errors.
func WriteProblemWithErrors(w http.ResponseWriter, r *http.Request, detail string, errs []validation.ValidationError) {
	writeProblemBody(w, http.StatusUnprocessableEntity, ProblemWithErrors{
		Problem: problemFor(r, http.StatusUnprocessableEntity, detail),
		Errors:  errs,
	})
}

// MapError converts engine errors to Problem Details responses. Only
// invalid-argument details reach the client; everything else gets a fixed
// message.
func MapError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, ledger.ErrInvalidArgument):
		WriteProblem(w, r, http.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, store.ErrNotFound):
		WriteProblem(w, r, http.StatusNotFound, "Resource not found")
	case errors.Is(err, reconcile.ErrReconciliationAborted):
		WriteProblem(w, r, http.StatusServiceUnavailable, "Reconciliation aborted; retry later")
	case errors.Is(err, store.ErrConflict):
		WriteProblem(w, r, http.StatusConflict, "Concurrent modification; retry the request")
	default:
		slog.Error("request failed",
			"component", "api",
			"path", r.URL.Path,
			"request_id", GetRequestID(r.Context()),
			"error", err,
		)
		WriteProblem(w, r, http.StatusInternalServerError, "Internal Server Error")
	}
}
