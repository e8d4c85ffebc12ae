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
	RecordLogin(success bool)
	RecordRegistration()
	RecordRefresh(result string)
	RecordTokenParseFailure(kind string)
	RecordHTTPStatus(statusCode int)
	RecordAuthLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	logins         *prometheus.CounterVec
	registrations  prometheus.Counter
	refreshes      *prometheus.CounterVec
	tokenParseFail *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	authLatency    prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "staffman_logins_total",
			Help: "ログイン試行の結果別合計数",
		}, []string{"result"}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "staffman_registrations_total",
			Help: "ユーザー登録成功の合計数",
		}),
		refreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "staffman_token_refreshes_total",
			Help: "トークンリフレッシュの結果別合計数",
		}, []string{"result"}),
		tokenParseFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "staffman_token_parse_fail_total",
			Help: "アクセストークン解析失敗の分類別合計数",
		}, []string{"kind"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "staffman_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		authLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "staffman_auth_latency_seconds",
			Help:    "認証処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.logins,
		c.registrations,
		c.refreshes,
		c.tokenParseFail,
		c.httpStatus,
		c.authLatency,
	)

	return c
}

// RecordLogin はログイン試行の結果を記録する。
func (c *Collector) RecordLogin(success bool) {
	result := "failure"
	if success {
		result = "success"
	}
	c.logins.WithLabelValues(result).Inc()
}

// RecordRegistration はユーザー登録成功を記録する。
func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

// RecordRefresh はトークンリフレッシュの結果を記録する。
// resultには "success"、"invalid"、"expired" のいずれかを渡す。
func (c *Collector) RecordRefresh(result string) {
	c.refreshes.WithLabelValues(result).Inc()
}

// RecordTokenParseFailure はアクセストークン解析失敗を分類別に記録する。
func (c *Collector) RecordTokenParseFailure(kind string) {
	c.tokenParseFail.WithLabelValues(kind).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordAuthLatency は認証処理のレイテンシを記録する。
func (c *Collector) RecordAuthLatency(duration time.Duration) {
	c.authLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
