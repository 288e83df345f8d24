// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 認証試行の結果ラベル。拒否の場合はエラーコードをそのまま使う。
const (
	OutcomeAuthenticated = "authenticated"
	OutcomeError         = "error"
)

// MetricsCollector はメトリクス収集のインターフェース。
// ハンドラーやワーカーから利用する。
type MetricsCollector interface {
	RecordAuthAttempt(strategy, outcome string)
	RecordProviderExchange(duration time.Duration, err error)
	RecordSessionsSwept(count int64)
	RecordRateLimited(tier string)
	RecordCatalogLookup(outcome string)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	authAttempts     *prometheus.CounterVec
	providerLatency  prometheus.Histogram
	providerFailures prometheus.Counter
	sessionsSwept    prometheus.Counter
	rateLimited      *prometheus.CounterVec
	catalogLookups   *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pokedex_auth_attempts_total",
			Help: "認証方式と結果別の認証試行数",
		}, []string{"strategy", "outcome"}),
		providerLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pokedex_provider_exchange_seconds",
			Help:    "Googleとのコード交換のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
		providerFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pokedex_provider_exchange_failures_total",
			Help: "Googleとのコード交換の失敗数",
		}),
		sessionsSwept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pokedex_sessions_swept_total",
			Help: "期限切れで削除されたセッションの合計数",
		}),
		rateLimited: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pokedex_rate_limited_total",
			Help: "レート制限で拒否されたリクエスト数",
		}, []string{"tier"}),
		catalogLookups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pokedex_catalog_lookups_total",
			Help: "結果別のカタログ参照数",
		}, []string{"outcome"}),
	}

	reg.MustRegister(
		c.authAttempts,
		c.providerLatency,
		c.providerFailures,
		c.sessionsSwept,
		c.rateLimited,
		c.catalogLookups,
	)

	return c
}

// RecordAuthAttempt は認証試行を記録する。
func (c *Collector) RecordAuthAttempt(strategy, outcome string) {
	c.authAttempts.WithLabelValues(strategy, outcome).Inc()
}

// RecordProviderExchange はコード交換のレイテンシと失敗を記録する。
func (c *Collector) RecordProviderExchange(duration time.Duration, err error) {
	c.providerLatency.Observe(duration.Seconds())
	if err != nil {
		c.providerFailures.Inc()
	}
}

// RecordSessionsSwept は削除したセッション数を記録する。
func (c *Collector) RecordSessionsSwept(count int64) {
	c.sessionsSwept.Add(float64(count))
}

// RecordRateLimited はレート制限による拒否を記録する。
func (c *Collector) RecordRateLimited(tier string) {
	c.rateLimited.WithLabelValues(tier).Inc()
}

// RecordCatalogLookup はカタログ参照の結果を記録する。
func (c *Collector) RecordCatalogLookup(outcome string) {
	c.catalogLookups.WithLabelValues(outcome).Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
