package http

import (
	"crypto/rand"
	"encoding/hex"
	"net/http"

	"github.com/devsanjithm/accountd/internal/common/logger"
)

const traceIDHeader = "X-Trace-ID"

// TraceIDMiddleware tags every request with a trace id, honoring one the
// caller supplied, and exposes it to the logger and the response header.
func TraceIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		traceID := r.Header.Get(traceIDHeader)
		if traceID == "" {
			traceID = newTraceID()
		}

		w.Header().Set(traceIDHeader, traceID)

		ctx := logger.WithTraceID(r.Context(), traceID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func newTraceID() string {
	b := make([]byte, 16)
	rand.Read(b)
	return hex.EncodeToString(b)
}
