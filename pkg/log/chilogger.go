package log

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/openpim/catalog-bulk/pkg/requestid"
)

// probes are polled by orchestrators and only logged at debug level.
var probes = map[string]bool{
	"/health":  true,
	"/metrics": true,
}

// Logger logs one line per request once the handler returns. Requests below
// minLevel are dropped, so a production logger only reports failing requests.
func Logger(l *zap.Logger, name string, minLevel zapcore.Level) func(next http.Handler) http.Handler {
	if l == nil {
		panic("log.Logger received a nil *zap.Logger")
	}

	logger := l.WithOptions(zap.AddCallerSkip(1)).Named(name)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()

			defer func() {
				status := ww.Status()
				level := requestLevel(r, status)
				if level < minLevel {
					return
				}

				fields := []zap.Field{
					zap.String("request_id", requestid.FromRequest(r)),
					zap.String("http_method", r.Method),
					zap.String("http_path", r.URL.Path),
					zap.String("remote_addr", r.RemoteAddr),
					zap.Int("http_status_code", status),
					zap.Int64("request_bytes", r.ContentLength),
					zap.Int("response_bytes", ww.BytesWritten()),
					zap.Duration("latency", time.Since(start)),
				}
				if ce := logger.Check(level, fmt.Sprintf("%s %s", r.Method, r.URL.Path)); ce != nil {
					ce.Write(fields...)
				}
			}()

			next.ServeHTTP(ww, r)
		})
	}
}

func requestLevel(r *http.Request, status int) zapcore.Level {
	switch {
	case status >= http.StatusInternalServerError:
		return zapcore.ErrorLevel
	case status >= http.StatusBadRequest:
		return zapcore.WarnLevel
	case r.Method == http.MethodGet && probes[r.URL.Path]:
		return zapcore.DebugLevel
	default:
		return zapcore.InfoLevel
	}
}

// ConditionalLogger logs every request at debug level and only server errors otherwise.
func ConditionalLogger(logLevel string, l *zap.Logger, name string) func(next http.Handler) http.Handler {
	if strings.ToLower(logLevel) == "debug" {
		return Logger(l, name, zapcore.DebugLevel)
	}
	return Logger(l, name, zapcore.ErrorLevel)
}
