// Package trace tags every request with an id and logs its completion.
package trace

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"regexp"
	"sync/atomic"
	"time"

	applog "ledger/internal/log"
)

type contextKey struct{}

const HeaderRequestID = "X-Request-ID"

var validRequestID = regexp.MustCompile(`^[A-Za-z0-9._-]{8,64}$`)

// Middleware assigns request ids, puts a request-scoped logger in the
// context and logs one line per completed request.
type Middleware struct {
	clientIP func(*http.Request) string
	logger   *applog.Logger
	requests atomic.Int64
}

func NewMiddleware(logger *applog.Logger, clientIP func(*http.Request) string) *Middleware {
	return &Middleware{clientIP: clientIP, logger: logger.WithComponent(applog.ComponentHTTP)}
}

func (m *Middleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		m.requests.Add(1)

		requestID := r.Header.Get(HeaderRequestID)
		if !validRequestID.MatchString(requestID) {
			requestID = GenerateRequestID()
		}
		clientIP := ""
		if m.clientIP != nil {
			clientIP = m.clientIP(r)
		}

		reqLogger := m.logger.With(applog.FieldRequestID, requestID)
		ctx := context.WithValue(r.Context(), contextKey{}, requestID)
		ctx = applog.NewContext(ctx, reqLogger)
		w.Header().Set(HeaderRequestID, requestID)

		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r.WithContext(ctx))

		applog.NewStructuredLogger(reqLogger).
			LogHTTPEnd(ctx, r, rw.status, time.Since(start).Milliseconds(), clientIP)
	})
}

// Requests returns how many requests passed through the middleware.
func (m *Middleware) Requests() int64 {
	return m.requests.Load()
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.status = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	return rw.ResponseWriter.Write(b)
}

func GenerateRequestID() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(b)
}

// RequestID returns the id assigned to the current request, or "".
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(contextKey{}).(string)
	return id
}
