package walletdata

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/solanize/solanize-client/internal/metrics"
)

type staticAddress string

func (a staticAddress) PublicKey() string { return string(a) }

func newTestService(t *testing.T, address string) (*Service, *APIMock, *metrics.MockMetricsService) {
	t.Helper()
	api := NewAPIMock(t)
	metricsService := metrics.NewMockMetricsService()
	t.Cleanup(func() { metricsService.AssertExpectations(t) })
	return NewService(api, staticAddress(address), metricsService, retry.Delay(time.Millisecond)), api, metricsService
}

func TestService_Refresh(t *testing.T) {
	ctx := context.Background()
	tokens := &WalletTokens{
		Pubkey: testAddress,
		Tokens: []WalletToken{
			{Symbol: "SOL", Balance: 1.5, USDValue: 240},
			{Symbol: "USDC", Balance: 10, USDValue: 10},
		},
		TotalTokens: 2,
	}
	pending := &PendingTransactions{
		Pubkey:              testAddress,
		PendingTransactions: []ChainTransaction{{Signature: "5h6x", Status: "Pending"}},
		Count:               1,
	}

	t.Run("🟢success", func(t *testing.T) {
		service, api, metricsService := newTestService(t, testAddress)
		api.On("WalletTokens", mock.Anything, testAddress).Return(tokens, nil).Once()
		api.On("PendingTransactions", mock.Anything, testAddress).Return(pending, nil).Once()
		metricsService.On("IncWalletDataRefreshes", true).Once()

		require.NoError(t, service.Refresh(ctx))
		assert.Equal(t, tokens.Tokens, service.Balances())
		assert.Equal(t, pending.PendingTransactions, service.PendingTransactions())
		assert.True(t, service.HasPendingTransactions())
		assert.InDelta(t, 250.0, service.TotalPortfolioValue(), 1e-9)
		assert.Equal(t, 1.5, service.TokenBalance("SOL"))
		assert.Equal(t, 0.0, service.TokenBalance("BONK"))
		assert.False(t, service.LastRefreshed().IsZero())
	})

	t.Run("🟢retries_transient_failures", func(t *testing.T) {
		service, api, metricsService := newTestService(t, testAddress)
		api.On("WalletTokens", mock.Anything, testAddress).Return(nil, &Error{StatusCode: http.StatusBadGateway, Message: "HTTP 502: Bad Gateway"}).Twice()
		api.On("WalletTokens", mock.Anything, testAddress).Return(tokens, nil).Once()
		api.On("PendingTransactions", mock.Anything, testAddress).Return(pending, nil).Once()
		metricsService.On("IncWalletDataRefreshes", true).Once()

		require.NoError(t, service.Refresh(ctx))
		api.AssertNumberOfCalls(t, "WalletTokens", 3)
		assert.Len(t, service.Balances(), 2)
	})

	t.Run("🟢pending_failure_is_not_fatal", func(t *testing.T) {
		service, api, metricsService := newTestService(t, testAddress)
		api.On("WalletTokens", mock.Anything, testAddress).Return(tokens, nil).Once()
		api.On("PendingTransactions", mock.Anything, testAddress).Return(nil, errors.New("timeout")).Once()
		metricsService.On("IncWalletDataRefreshes", true).Once()

		require.NoError(t, service.Refresh(ctx))
		assert.Len(t, service.Balances(), 2)
		assert.Empty(t, service.PendingTransactions())
	})

	t.Run("🔴gives_up_after_attempts", func(t *testing.T) {
		service, api, metricsService := newTestService(t, testAddress)
		api.On("WalletTokens", mock.Anything, testAddress).Return(nil, &Error{Message: "Network error or invalid response"}).Times(DefaultRefreshAttempts)
		metricsService.On("IncWalletDataRefreshes", false).Once()

		err := service.Refresh(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "refreshing wallet data after 3 attempts")
		assert.Empty(t, service.Balances())
	})

	t.Run("🔴permanent_failure_is_not_retried", func(t *testing.T) {
		service, api, metricsService := newTestService(t, testAddress)
		api.On("WalletTokens", mock.Anything, testAddress).Return(nil, &Error{StatusCode: http.StatusOK, Rejected: true, Message: "invalid pubkey"}).Once()
		metricsService.On("IncWalletDataRefreshes", false).Once()

		err := service.Refresh(ctx)
		var dataErr *Error
		require.ErrorAs(t, err, &dataErr)
		assert.Equal(t, "invalid pubkey", dataErr.Message)
		api.AssertNumberOfCalls(t, "WalletTokens", 1)
	})

	t.Run("🔴no_wallet", func(t *testing.T) {
		service, _, _ := newTestService(t, "")
		assert.ErrorIs(t, service.Refresh(ctx), ErrNoWallet)
		assert.Empty(t, service.Balances())
	})
}
