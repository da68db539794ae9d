package walletdata

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/stellar/go-stellar-sdk/support/log"

	"github.com/solanize/solanize-client/internal/metrics"
	"github.com/solanize/solanize-client/internal/utils"
)

const (
	DefaultRefreshAttempts = 3
	DefaultRefreshDelay    = 500 * time.Millisecond
)

var ErrNoWallet = errors.New("no wallet is connected")

// AddressSource returns the base58 address of the connected wallet, or "" when none is connected.
type AddressSource interface {
	PublicKey() string
}

// Service caches the balances and chain-pending transactions of the connected wallet.
type Service struct {
	api          API
	wallet       AddressSource
	metrics      metrics.MetricsService
	retryOptions []retry.Option

	mu            sync.RWMutex
	address       string
	balances      []WalletToken
	pending       []ChainTransaction
	lastRefreshed time.Time
}

// NewService builds a Service. retryOptions are applied to the balance fetch after the defaults, so they can override
// the number of attempts and the delay between them.
func NewService(api API, wallet AddressSource, metricsService metrics.MetricsService, retryOptions ...retry.Option) *Service {
	return &Service{
		api:     api,
		wallet:  wallet,
		metrics: metricsService,
		retryOptions: append([]retry.Option{
			retry.Attempts(DefaultRefreshAttempts),
			retry.Delay(DefaultRefreshDelay),
		}, retryOptions...),
	}
}

// Refresh reloads the wallet's balances, retrying while the gateway fails transiently, then its chain-pending
// transactions. Failing to load pending transactions keeps the previous list and is not an error.
func (s *Service) Refresh(ctx context.Context) error {
	address := s.wallet.PublicKey()
	if address == "" {
		s.reset()
		return ErrNoWallet
	}

	attemptsCount := 0
	var tokens *WalletTokens
	outerErr := retry.Do(
		func() error {
			attemptsCount++
			var err error
			tokens, err = s.api.WalletTokens(ctx, address)
			if err != nil {
				var dataErr *Error
				if errors.As(err, &dataErr) && dataErr.Permanent() {
					return retry.Unrecoverable(err)
				}
				return fmt.Errorf("getting tokens of %s: %w", utils.ShortAddress(address), err)
			}
			return nil
		},
		append(
			slices.Clone(s.retryOptions),
			retry.Context(ctx),
			retry.LastErrorOnly(true),
		)...,
	)
	if outerErr != nil {
		s.metrics.IncWalletDataRefreshes(false)
		return fmt.Errorf("refreshing wallet data after %d attempts: %w", attemptsCount, outerErr)
	}

	pending, err := s.api.PendingTransactions(ctx, address)
	if err != nil {
		log.Ctx(ctx).Warnf("loading pending transactions of %s: %v", utils.ShortAddress(address), err)
	}

	s.mu.Lock()
	if s.address != address {
		s.pending = nil
	}
	s.address = address
	s.balances = tokens.Tokens
	if pending != nil {
		s.pending = pending.PendingTransactions
	}
	s.lastRefreshed = time.Now()
	s.mu.Unlock()

	s.metrics.IncWalletDataRefreshes(true)
	log.Ctx(ctx).Debugf("wallet data refreshed for %s after %d attempts", utils.ShortAddress(address), attemptsCount)
	return nil
}

func (s *Service) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.address = ""
	s.balances = nil
	s.pending = nil
	s.lastRefreshed = time.Time{}
}

func (s *Service) Balances() []WalletToken {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.balances)
}

func (s *Service) PendingTransactions() []ChainTransaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.pending)
}

func (s *Service) HasPendingTransactions() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.pending) > 0
}

// TotalPortfolioValue sums the USD value of every token held.
func (s *Service) TotalPortfolioValue() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var total float64
	for _, token := range s.balances {
		total += token.USDValue
	}
	return total
}

// TokenBalance returns the balance of symbol, 0 when the wallet does not hold it.
func (s *Service) TokenBalance(symbol string) float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, token := range s.balances {
		if token.Symbol == symbol {
			return token.Balance
		}
	}
	return 0
}

func (s *Service) LastRefreshed() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastRefreshed
}
