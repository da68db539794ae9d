package metrics

import (
	"strconv"

	"github.com/alitto/pond/v2"
	"github.com/dlmiddlecote/sqlstats"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
)

type MetricsService interface {
	RegisterPoolMetrics(channel string, pool pond.Pool)
	GetRegistry() *prometheus.Registry
	// Gateway Metrics
	IncGatewayRequests(endpoint, method string, statusCode int)
	ObserveGatewayRequestDuration(endpoint, method string, duration float64)
	IncGatewayUnauthorized(endpoint string)
	// Auth Metrics
	IncAuthStateTransition(from, to string)
	IncAuthExchanges(outcome string)
	ObserveAuthExchangeDuration(duration float64)
	// Chat Metrics
	IncMessagesSent(kind string, success bool)
	SetPendingActions(count int)
	// Transaction Metrics
	SetPendingTransactions(count int)
	IncTransactionSignings(outcome string)
	IncWalletDataRefreshes(success bool)
}

// metricsService handles all metrics for the client
type metricsService struct {
	registry *prometheus.Registry
	db       *sqlx.DB

	// Gateway Metrics
	gatewayRequestsTotal     *prometheus.CounterVec
	gatewayRequestsDuration  *prometheus.SummaryVec
	gatewayUnauthorizedTotal *prometheus.CounterVec

	// Auth Metrics
	authStateTransitionsTotal *prometheus.CounterVec
	authExchangesTotal        *prometheus.CounterVec
	authExchangeDuration      prometheus.Histogram

	// Chat Metrics
	messagesSentTotal *prometheus.CounterVec
	pendingActions    prometheus.Gauge

	// Transaction Metrics
	pendingTransactions      prometheus.Gauge
	transactionSigningsTotal *prometheus.CounterVec
	walletDataRefreshesTotal *prometheus.CounterVec
}

// NewMetricsService creates a new metrics service with all metrics registered. The token database stats are only
// collected when db is not nil.
func NewMetricsService(db *sqlx.DB) MetricsService {
	m := &metricsService{
		registry: prometheus.NewRegistry(),
		db:       db,
	}

	// Gateway Metrics
	m.gatewayRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Total number of requests sent to the gateway",
		},
		[]string{"endpoint", "method", "status_code"},
	)
	m.gatewayRequestsDuration = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "gateway_requests_duration_seconds",
			Help:       "Duration of gateway requests in seconds",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"endpoint", "method"},
	)
	m.gatewayUnauthorizedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_unauthorized_total",
			Help: "Total number of gateway responses that rejected the stored credential",
		},
		[]string{"endpoint"},
	)

	// Auth Metrics
	m.authStateTransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_state_transitions_total",
			Help: "Total number of authentication state transitions",
		},
		[]string{"from", "to"},
	)
	m.authExchangesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auth_exchanges_total",
			Help: "Total number of challenge-response exchanges by outcome",
		},
		[]string{"outcome"},
	)
	m.authExchangeDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "auth_exchange_duration_seconds",
			Help:    "Duration of the challenge-response exchange, including the time the user takes to sign",
			Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
		},
	)

	// Chat Metrics
	m.messagesSentTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chat_messages_sent_total",
			Help: "Total number of chat messages sent by kind and result",
		},
		[]string{"kind", "success"},
	)
	m.pendingActions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "chat_pending_actions",
			Help: "Number of proposed actions awaiting approval or rejection",
		},
	)

	// Transaction Metrics
	m.pendingTransactions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "transactions_pending",
			Help: "Number of prepared transactions awaiting a signature",
		},
	)
	m.transactionSigningsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transaction_signings_total",
			Help: "Total number of transaction signing attempts by outcome",
		},
		[]string{"outcome"},
	)
	m.walletDataRefreshesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "wallet_data_refreshes_total",
			Help: "Total number of wallet data refreshes by result",
		},
		[]string{"success"},
	)

	m.registerMetrics()
	return m
}

func (m *metricsService) registerMetrics() {
	if m.db != nil {
		m.registry.MustRegister(sqlstats.NewStatsCollector("solanize-client-db", m.db))
	}
	m.registry.MustRegister(
		m.gatewayRequestsTotal,
		m.gatewayRequestsDuration,
		m.gatewayUnauthorizedTotal,
		m.authStateTransitionsTotal,
		m.authExchangesTotal,
		m.authExchangeDuration,
		m.messagesSentTotal,
		m.pendingActions,
		m.pendingTransactions,
		m.transactionSigningsTotal,
		m.walletDataRefreshesTotal,
	)
}

// RegisterPoolMetrics registers a worker pool for metrics collection
func (m *metricsService) RegisterPoolMetrics(channel string, pool pond.Pool) {
	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name:        "pool_workers_running",
			Help:        "Number of running worker goroutines",
			ConstLabels: prometheus.Labels{"channel": channel},
		},
		func() float64 {
			return float64(pool.RunningWorkers())
		},
	))

	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name:        "pool_tasks_submitted_total",
			Help:        "Number of tasks submitted",
			ConstLabels: prometheus.Labels{"channel": channel},
		},
		func() float64 {
			return float64(pool.SubmittedTasks())
		},
	))

	m.registry.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name:        "pool_tasks_waiting",
			Help:        "Number of tasks currently waiting in the queue",
			ConstLabels: prometheus.Labels{"channel": channel},
		},
		func() float64 {
			return float64(pool.WaitingTasks())
		},
	))

	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name:        "pool_tasks_successful_total",
			Help:        "Number of tasks that completed successfully",
			ConstLabels: prometheus.Labels{"channel": channel},
		},
		func() float64 {
			return float64(pool.SuccessfulTasks())
		},
	))

	m.registry.MustRegister(prometheus.NewCounterFunc(
		prometheus.CounterOpts{
			Name:        "pool_tasks_failed_total",
			Help:        "Number of tasks that completed with panic",
			ConstLabels: prometheus.Labels{"channel": channel},
		},
		func() float64 {
			return float64(pool.FailedTasks())
		},
	))
}

// GetRegistry returns the prometheus registry
func (m *metricsService) GetRegistry() *prometheus.Registry {
	return m.registry
}

// Gateway Metrics

func (m *metricsService) IncGatewayRequests(endpoint, method string, statusCode int) {
	m.gatewayRequestsTotal.WithLabelValues(endpoint, method, strconv.Itoa(statusCode)).Inc()
}

func (m *metricsService) ObserveGatewayRequestDuration(endpoint, method string, duration float64) {
	m.gatewayRequestsDuration.WithLabelValues(endpoint, method).Observe(duration)
}

func (m *metricsService) IncGatewayUnauthorized(endpoint string) {
	m.gatewayUnauthorizedTotal.WithLabelValues(endpoint).Inc()
}

// Auth Metrics

func (m *metricsService) IncAuthStateTransition(from, to string) {
	m.authStateTransitionsTotal.WithLabelValues(from, to).Inc()
}

func (m *metricsService) IncAuthExchanges(outcome string) {
	m.authExchangesTotal.WithLabelValues(outcome).Inc()
}

func (m *metricsService) ObserveAuthExchangeDuration(duration float64) {
	m.authExchangeDuration.Observe(duration)
}

// Chat Metrics

func (m *metricsService) IncMessagesSent(kind string, success bool) {
	m.messagesSentTotal.WithLabelValues(kind, strconv.FormatBool(success)).Inc()
}

func (m *metricsService) SetPendingActions(count int) {
	m.pendingActions.Set(float64(count))
}

// Transaction Metrics

func (m *metricsService) SetPendingTransactions(count int) {
	m.pendingTransactions.Set(float64(count))
}

func (m *metricsService) IncTransactionSignings(outcome string) {
	m.transactionSigningsTotal.WithLabelValues(outcome).Inc()
}

func (m *metricsService) IncWalletDataRefreshes(success bool) {
	m.walletDataRefreshesTotal.WithLabelValues(strconv.FormatBool(success)).Inc()
}
