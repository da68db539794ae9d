package metrics

import (
	"github.com/alitto/pond/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/mock"
)

// MockMetricsService is a mock implementation of MetricsService
type MockMetricsService struct {
	mock.Mock
}

var _ MetricsService = (*MockMetricsService)(nil)

// NewMockMetricsService creates a new mock metrics service
func NewMockMetricsService() *MockMetricsService {
	return &MockMetricsService{}
}

func (m *MockMetricsService) RegisterPoolMetrics(channel string, pool pond.Pool) {
	m.Called(channel, pool)
}

func (m *MockMetricsService) GetRegistry() *prometheus.Registry {
	args := m.Called()
	return args.Get(0).(*prometheus.Registry)
}

func (m *MockMetricsService) IncGatewayRequests(endpoint, method string, statusCode int) {
	m.Called(endpoint, method, statusCode)
}

func (m *MockMetricsService) ObserveGatewayRequestDuration(endpoint, method string, duration float64) {
	m.Called(endpoint, method, duration)
}

func (m *MockMetricsService) IncGatewayUnauthorized(endpoint string) {
	m.Called(endpoint)
}

func (m *MockMetricsService) IncAuthStateTransition(from, to string) {
	m.Called(from, to)
}

func (m *MockMetricsService) IncAuthExchanges(outcome string) {
	m.Called(outcome)
}

func (m *MockMetricsService) ObserveAuthExchangeDuration(duration float64) {
	m.Called(duration)
}

func (m *MockMetricsService) IncMessagesSent(kind string, success bool) {
	m.Called(kind, success)
}

func (m *MockMetricsService) SetPendingActions(count int) {
	m.Called(count)
}

func (m *MockMetricsService) SetPendingTransactions(count int) {
	m.Called(count)
}

func (m *MockMetricsService) IncTransactionSignings(outcome string) {
	m.Called(outcome)
}

func (m *MockMetricsService) IncWalletDataRefreshes(success bool) {
	m.Called(success)
}
