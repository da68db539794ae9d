package walletdata

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type APIMock struct {
	mock.Mock
}

var _ API = (*APIMock)(nil)

func (m *APIMock) WalletTokens(ctx context.Context, pubkey string) (*WalletTokens, error) {
	args := m.Called(ctx, pubkey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*WalletTokens), args.Error(1)
}

func (m *APIMock) PendingTransactions(ctx context.Context, pubkey string) (*PendingTransactions, error) {
	args := m.Called(ctx, pubkey)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*PendingTransactions), args.Error(1)
}

// NewAPIMock creates a new instance of APIMock. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewAPIMock(t interface {
	mock.TestingT
	Cleanup(func())
},
) *APIMock {
	mock := &APIMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
