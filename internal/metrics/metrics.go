// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやサービス層から利用する。
type MetricsCollector interface {
	RecordHTTPStatus(statusCode int)
	RecordRequestLatency(duration time.Duration)
	RecordTokenRefresh(result string)
	RecordGoogleAPIError(service string)
	RecordTodoNotify(result string)
}

// トークンリフレッシュ結果のラベル値。
const (
	RefreshResultSuccess      = "success"
	RefreshResultReauth       = "reauth_required"
	RefreshResultFailure      = "failure"
	RefreshResultAlreadyValid = "already_valid"
)

// 通知結果のラベル値。
const (
	NotifyResultSuccess = "success"
	NotifyResultFailure = "failure"
)

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	httpStatus      *prometheus.CounterVec
	requestLatency  prometheus.Histogram
	tokenRefresh    *prometheus.CounterVec
	googleAPIErrors *prometheus.CounterVec
	todoNotify      *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cozypage_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		requestLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cozypage_request_latency_seconds",
			Help:    "HTTPリクエストのレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		tokenRefresh: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cozypage_token_refresh_total",
			Help: "Googleトークンリフレッシュの結果別合計数",
		}, []string{"result"}),
		googleAPIErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cozypage_google_api_errors_total",
			Help: "Google APIエラーのサービス別合計数",
		}, []string{"service"}),
		todoNotify: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cozypage_todo_notify_total",
			Help: "Todo作成通知の結果別合計数",
		}, []string{"result"}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.requestLatency,
		c.tokenRefresh,
		c.googleAPIErrors,
		c.todoNotify,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordRequestLatency はリクエストのレイテンシを記録する。
func (c *Collector) RecordRequestLatency(duration time.Duration) {
	c.requestLatency.Observe(duration.Seconds())
}

// RecordTokenRefresh はトークンリフレッシュの結果を記録する。
func (c *Collector) RecordTokenRefresh(result string) {
	c.tokenRefresh.WithLabelValues(result).Inc()
}

// RecordGoogleAPIError はGoogle APIエラーを記録する。
func (c *Collector) RecordGoogleAPIError(service string) {
	c.googleAPIErrors.WithLabelValues(service).Inc()
}

// RecordTodoNotify はTodo作成通知の結果を記録する。
func (c *Collector) RecordTodoNotify(result string) {
	c.todoNotify.WithLabelValues(result).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
