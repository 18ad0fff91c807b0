// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// auth.Recorderを実装し、認証イベントとシークレット投稿を記録する。
type Collector struct {
	loginSuccess     *prometheus.CounterVec
	loginFail        *prometheus.CounterVec
	registrations    prometheus.Counter
	providerFailures *prometheus.CounterVec
	secretsSubmitted prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "secretbox_login_success_total",
			Help: "ログイン成功の合計数（method: local, google）",
		}, []string{"method"}),
		loginFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "secretbox_login_fail_total",
			Help: "ログイン失敗の合計数（method: local, google）",
		}, []string{"method"}),
		registrations: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "secretbox_registrations_total",
			Help: "ローカルユーザー登録の合計数",
		}),
		providerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "secretbox_provider_failures_total",
			Help: "外部プロバイダー連携失敗の合計数（reason別）",
		}, []string{"reason"}),
		secretsSubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "secretbox_secrets_submitted_total",
			Help: "シークレット投稿の合計数",
		}),
	}

	reg.MustRegister(
		c.loginSuccess,
		c.loginFail,
		c.registrations,
		c.providerFailures,
		c.secretsSubmitted,
	)

	return c
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess(method string) {
	c.loginSuccess.WithLabelValues(method).Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure(method string) {
	c.loginFail.WithLabelValues(method).Inc()
}

// RecordRegistration はローカルユーザー登録を記録する。
func (c *Collector) RecordRegistration() {
	c.registrations.Inc()
}

// RecordProviderFailure は外部プロバイダー連携の失敗を記録する。
func (c *Collector) RecordProviderFailure(reason string) {
	c.providerFailures.WithLabelValues(reason).Inc()
}

// RecordSecretSubmitted はシークレット投稿を記録する。
func (c *Collector) RecordSecretSubmitted() {
	c.secretsSubmitted.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
