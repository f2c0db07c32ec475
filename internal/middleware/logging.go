package middleware

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/mwufi/cozypage2/internal/metrics"
)

// statusRecorder はレスポンスのステータスコードを記録するResponseWriterラッパー。
type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

// WriteHeader はステータスコードを記録してから元のWriteHeaderを呼び出す。
func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// NewLoggingMiddleware はリクエストのログ出力とメトリクス記録を行うミドルウェアを返す。
// 認証済みリクエストの場合はユーザーのメールアドレスも出力する。
func NewLoggingMiddleware(logger *slog.Logger, collector metrics.MetricsCollector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// デフォルトは200(WriteHeaderが呼ばれない場合)
			recorder := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(recorder, r)

			duration := time.Since(start)

			attrs := []any{
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", recorder.statusCode),
				slog.Duration("duration", duration),
				slog.String("remote_addr", r.RemoteAddr),
			}
			if email, err := UserEmailFromContext(r.Context()); err == nil {
				attrs = append(attrs, slog.String("user_email", email))
			}
			logger.Info("http request", attrs...)

			if collector != nil {
				collector.RecordHTTPStatus(recorder.statusCode)
				collector.RecordRequestLatency(duration)
			}
		})
	}
}
