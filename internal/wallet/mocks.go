package wallet

import (
	"context"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/mock"
)

type AdapterMock struct {
	mock.Mock
}

var _ Adapter = (*AdapterMock)(nil)

func (a *AdapterMock) Connected() bool {
	args := a.Called()
	return args.Bool(0)
}

func (a *AdapterMock) Connecting() bool {
	args := a.Called()
	return args.Bool(0)
}

func (a *AdapterMock) PublicKey() string {
	args := a.Called()
	return args.String(0)
}

func (a *AdapterMock) Wallets() []Info {
	args := a.Called()
	return args.Get(0).([]Info)
}

func (a *AdapterMock) Select(name string) error {
	args := a.Called(name)
	return args.Error(0)
}

func (a *AdapterMock) Connect(ctx context.Context) error {
	args := a.Called(ctx)
	return args.Error(0)
}

func (a *AdapterMock) Disconnect(ctx context.Context) error {
	args := a.Called(ctx)
	return args.Error(0)
}

func (a *AdapterMock) SignMessage(ctx context.Context, message []byte) ([]byte, error) {
	args := a.Called(ctx, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}

func (a *AdapterMock) SignTransaction(ctx context.Context, tx *solana.Transaction) (*solana.Transaction, error) {
	args := a.Called(ctx, tx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*solana.Transaction), args.Error(1)
}

func (a *AdapterMock) Subscribe(fn func(Event)) func() {
	args := a.Called(fn)
	if args.Get(0) == nil {
		return func() {}
	}
	return args.Get(0).(func())
}

// NewAdapterMock creates a new instance of AdapterMock. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewAdapterMock(t interface {
	mock.TestingT
	Cleanup(func())
},
) *AdapterMock {
	mock := &AdapterMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
