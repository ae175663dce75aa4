// Package http exposes the ledger operations as a JSON API.
//
// This file implements a small builder for the response envelope shared by
// every endpoint: {"success": true, ...} or {"success": false, "kind": ..., "detail": ...}.
package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"ledger/internal/core"
)

// JSONResponseBuilder provides a fluent API for building envelope responses.
type JSONResponseBuilder struct {
	statusCode int
	fields     map[string]any
	headers    map[string]string
}

// NewJSONResponse creates a successful response with 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		fields:     map[string]any{"success": true},
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Field adds a top-level member to the envelope.
func (b *JSONResponseBuilder) Field(name string, value any) *JSONResponseBuilder {
	b.fields[name] = value
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Write encodes the envelope to w.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	body, err := json.Marshal(b.fields)
	if err != nil {
		slog.Error("Failed to encode response", "error", err, "component", "http")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"success":false,"kind":"persistence_failure","detail":"response encoding failed"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(body)
	_, _ = w.Write([]byte("\n"))
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind core.ErrorKind) int {
	switch kind {
	case core.KindValidation:
		return http.StatusBadRequest
	case core.KindUnauthorized:
		return http.StatusUnauthorized
	case core.KindForbidden:
		return http.StatusForbidden
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindInsufficientFunds, core.KindGoalConstraint:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse builds the failure envelope for err. Foreign errors are
// reported as persistence failures without leaking their text.
func ErrorResponse(err error) *JSONResponseBuilder {
	var e *core.Error
	if !errors.As(err, &e) {
		e = &core.Error{Kind: core.KindPersistence, Detail: "ledger store failure"}
	}
	b := NewJSONResponse().
		Status(StatusFor(e.Kind)).
		Field("success", false).
		Field("kind", e.Kind).
		Field("detail", e.Detail)
	if e.Detail == "" {
		b.Field("detail", string(e.Kind))
	}

	switch e.Kind {
	case core.KindInsufficientFunds:
		b.Field("balance", e.Balance).Field("requested", e.Requested)
	case core.KindGoalConstraint:
		b.Field("remaining", e.Remaining)
	case core.KindUnauthorized:
		b.Header("WWW-Authenticate", `Bearer realm="ledger"`)
	}
	return b
}

func writeError(w http.ResponseWriter, err error) {
	ErrorResponse(err).Write(w)
}

// denyRequest adapts writeError to the auth middleware's rejection hook.
func denyRequest(w http.ResponseWriter, _ *http.Request, err error) {
	writeError(w, err)
}
