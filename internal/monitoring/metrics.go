package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics 抓取服务的监控指标。
//
// 指标方法对 nil 接收者安全，便于在测试中省略指标注册。
type Metrics struct {
	// HTTP 请求指标
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// 运行指标
	RunsTotal   *prometheus.CounterVec
	RunDuration prometheus.Histogram
	RunsActive  prometheus.Gauge

	// 业务指标
	UsersProcessed prometheus.Counter
	UserErrors     prometheus.Counter
	EmailsScraped  prometheus.Counter

	// 外部依赖指标
	APICallsTotal    *prometheus.CounterVec
	SinkRejectedRows prometheus.Counter
}

// NewMetrics 创建并注册监控指标。
func NewMetrics() *Metrics {
	return &Metrics{
		HTTPRequestsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gmail_scraper_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "endpoint", "status_code"},
		),

		HTTPRequestDuration: promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gmail_scraper_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "endpoint"},
		),

		RunsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gmail_scraper_runs_total",
				Help: "Total number of scrape runs by final status",
			},
			[]string{"status"},
		),

		RunDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "gmail_scraper_run_duration_seconds",
				Help:    "Scrape run duration in seconds",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),

		RunsActive: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "gmail_scraper_runs_active",
				Help: "Number of scrape runs currently in flight",
			},
		),

		UsersProcessed: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "gmail_scraper_users_processed_total",
				Help: "Total number of users processed successfully",
			},
		),

		UserErrors: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "gmail_scraper_user_errors_total",
				Help: "Total number of per-user failures",
			},
		),

		EmailsScraped: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "gmail_scraper_emails_scraped_total",
				Help: "Total number of email records written to the sink",
			},
		),

		APICallsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gmail_scraper_api_calls_total",
				Help: "Total number of Google API calls by service",
			},
			[]string{"service"},
		),

		SinkRejectedRows: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "gmail_scraper_sink_rejected_rows_total",
				Help: "Total number of rows rejected by the sink at insert time",
			},
		),
	}
}

// RecordHTTPRequest 记录一次 HTTP 请求。
func (m *Metrics) RecordHTTPRequest(method, endpoint, statusCode string, duration time.Duration) {
	if m == nil {
		return
	}
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// RunStarted 标记一次运行开始。
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.RunsActive.Inc()
}

// RunFinished 标记一次运行结束。
func (m *Metrics) RunFinished(status string, duration time.Duration) {
	if m == nil {
		return
	}
	m.RunsActive.Dec()
	m.RunsTotal.WithLabelValues(status).Inc()
	m.RunDuration.Observe(duration.Seconds())
}

// RecordUserProcessed 记录一名用户处理成功。
func (m *Metrics) RecordUserProcessed() {
	if m == nil {
		return
	}
	m.UsersProcessed.Inc()
}

// RecordUserError 记录一次用户级失败。
func (m *Metrics) RecordUserError() {
	if m == nil {
		return
	}
	m.UserErrors.Inc()
}

// RecordEmails 记录写入 Sink 的记录数。
func (m *Metrics) RecordEmails(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.EmailsScraped.Add(float64(n))
}

// RecordAPICall 记录一次 Google API 调用。
func (m *Metrics) RecordAPICall(service string) {
	if m == nil {
		return
	}
	m.APICallsTotal.WithLabelValues(service).Inc()
}

// RecordSinkRejected 记录被 Sink 拒绝的行数。
func (m *Metrics) RecordSinkRejected(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.SinkRejectedRows.Add(float64(n))
}
