package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/KotFed0t/fondos_backoffice/utils"
	chiMW "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const (
	RequestIDHeader = "X-Request-ID"
	SessionIDHeader = "X-Session-ID"
)

// Logger tags each request with an rqID and logs its status and duration.
func Logger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := time.Now()

		rqID := r.Header.Get(RequestIDHeader)
		if rqID == "" {
			rqID = uuid.NewString()
		}
		ctx := utils.CtxWithRqID(r.Context(), rqID)
		w.Header().Set(RequestIDHeader, rqID)

		slog.Info(
			"start request",
			slog.String("rqID", rqID),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)

		ww := chiMW.NewWrapResponseWriter(w, r.ProtoMajor)
		defer func() {
			slog.Info(
				"request finished",
				slog.String("rqID", rqID),
				slog.Int("status", ww.Status()),
				slog.String("request duration", fmt.Sprintf("%.2fs", time.Since(now).Seconds())),
			)
		}()

		next.ServeHTTP(ww, r.WithContext(ctx))
	})
}

// Session binds the request to an import session. A new session id is issued
// when the client sends none; it is echoed back in the response header.
func Session(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.Header.Get(SessionIDHeader)
		if sessionID == "" {
			sessionID = uuid.NewString()
		}
		w.Header().Set(SessionIDHeader, sessionID)
		next.ServeHTTP(w, r.WithContext(utils.CtxWithSessionID(r.Context(), sessionID)))
	})
}
