package middleware

import (
	"net/http"
	"time"

	"github.com/rs/xid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
)

const RequestIDHeader = "X-Request-Id"

// Logging tags each request with an id and logs one line when it finishes.
// A well-formed id sent by the client in X-Request-Id is kept.
func Logging(log zerolog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		h := hlog.AccessHandler(func(r *http.Request, status, size int, d time.Duration) {
			if status == 0 {
				status = http.StatusOK
			}
			l := hlog.FromRequest(r)
			ev := l.Info()
			if status >= http.StatusInternalServerError {
				ev = l.Error()
			}
			ev.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", status).
				Int("bytes", size).
				Dur("duration", d).
				Msg("http request")
		})(next)
		h = hlog.RequestIDHandler("request_id", RequestIDHeader)(h)
		h = clientRequestID(h)
		return hlog.NewHandler(log)(h)
	}
}

func clientRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, err := xid.FromString(r.Header.Get(RequestIDHeader)); err == nil {
			r = r.WithContext(hlog.CtxWithID(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
