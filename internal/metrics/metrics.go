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
	RecordLoginSuccess(role string)
	RecordLoginFailure(reason string)
	RecordAccessDenied(area string)
	RecordCommentSaved()
	RecordWebhookDelivery(success bool)
	RecordHTTPStatus(statusCode int)
	RecordSnapshotLatency(duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loginSuccess    *prometheus.CounterVec
	loginFail       *prometheus.CounterVec
	accessDenied    *prometheus.CounterVec
	commentSaved    prometheus.Counter
	webhookDelivery *prometheus.CounterVec
	httpStatus      *prometheus.CounterVec
	snapshotLatency prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cropview_login_success_total",
			Help: "ログイン成功の合計数（ロール別）",
		}, []string{"role"}),
		loginFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cropview_login_fail_total",
			Help: "ログイン失敗の合計数（理由別）",
		}, []string{"reason"}),
		accessDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cropview_access_denied_total",
			Help: "ロールゲートによるアクセス拒否の合計数（領域別）",
		}, []string{"area"}),
		commentSaved: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cropview_comment_saved_total",
			Help: "専門家コメント保存成功の合計数",
		}),
		webhookDelivery: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cropview_webhook_delivery_total",
			Help: "レビュー完了Webhook送信の合計数（結果別）",
		}, []string{"result"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cropview_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		snapshotLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "cropview_snapshot_latency_seconds",
			Help:    "レコードスナップショット取得と集計のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.loginSuccess,
		c.loginFail,
		c.accessDenied,
		c.commentSaved,
		c.webhookDelivery,
		c.httpStatus,
		c.snapshotLatency,
	)

	return c
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess(role string) {
	c.loginSuccess.WithLabelValues(role).Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
// reasonは低カーディナリティの分類（auth_failed, access_denied, transient等）。
func (c *Collector) RecordLoginFailure(reason string) {
	c.loginFail.WithLabelValues(reason).Inc()
}

// RecordAccessDenied はロールゲートによるアクセス拒否を記録する。
func (c *Collector) RecordAccessDenied(area string) {
	c.accessDenied.WithLabelValues(area).Inc()
}

// RecordCommentSaved は専門家コメントの保存成功を記録する。
func (c *Collector) RecordCommentSaved() {
	c.commentSaved.Inc()
}

// RecordWebhookDelivery はWebhook送信の結果を記録する。
func (c *Collector) RecordWebhookDelivery(success bool) {
	result := "success"
	if !success {
		result = "fail"
	}
	c.webhookDelivery.WithLabelValues(result).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordSnapshotLatency はスナップショット取得と集計のレイテンシを記録する。
func (c *Collector) RecordSnapshotLatency(duration time.Duration) {
	c.snapshotLatency.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
