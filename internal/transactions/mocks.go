package transactions

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type ChatSubmitterMock struct {
	mock.Mock
}

var _ ChatSubmitter = (*ChatSubmitterMock)(nil)

func (m *ChatSubmitterMock) SubmitSignedTransaction(ctx context.Context, sessionID, transactionID, signedTransaction string) error {
	args := m.Called(ctx, sessionID, transactionID, signedTransaction)
	return args.Error(0)
}

func (m *ChatSubmitterMock) DismissTransaction(transactionID string) bool {
	args := m.Called(transactionID)
	return args.Bool(0)
}

// NewChatSubmitterMock creates a new instance of ChatSubmitterMock. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewChatSubmitterMock(t interface {
	mock.TestingT
	Cleanup(func())
},
) *ChatSubmitterMock {
	mock := &ChatSubmitterMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

type PortfolioRefresherMock struct {
	mock.Mock
}

var _ PortfolioRefresher = (*PortfolioRefresherMock)(nil)

func (m *PortfolioRefresherMock) Refresh(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// NewPortfolioRefresherMock creates a new instance of PortfolioRefresherMock. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewPortfolioRefresherMock(t interface {
	mock.TestingT
	Cleanup(func())
},
) *PortfolioRefresherMock {
	mock := &PortfolioRefresherMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
