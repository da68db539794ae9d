package gwclient

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/solanize/solanize-client/pkg/gwclient/types"
)

type AuthAPIMock struct {
	mock.Mock
}

var _ AuthAPI = (*AuthAPIMock)(nil)

func (m *AuthAPIMock) Challenge(ctx context.Context, walletAddress string) (string, error) {
	args := m.Called(ctx, walletAddress)
	return args.String(0), args.Error(1)
}

func (m *AuthAPIMock) Verify(ctx context.Context, req types.VerifyRequest) (string, error) {
	args := m.Called(ctx, req)
	return args.String(0), args.Error(1)
}

func (m *AuthAPIMock) RefreshToken(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

// NewAuthAPIMock creates a new instance of AuthAPIMock. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewAuthAPIMock(t interface {
	mock.TestingT
	Cleanup(func())
},
) *AuthAPIMock {
	mock := &AuthAPIMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}

type ChatAPIMock struct {
	mock.Mock
}

var _ ChatAPI = (*ChatAPIMock)(nil)

func (m *ChatAPIMock) ListSessions(ctx context.Context) ([]types.Session, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Session), args.Error(1)
}

func (m *ChatAPIMock) CreateSession(ctx context.Context, title string) (*types.Session, error) {
	args := m.Called(ctx, title)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Session), args.Error(1)
}

func (m *ChatAPIMock) ListMessages(ctx context.Context, sessionID string) ([]types.Message, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Message), args.Error(1)
}

func (m *ChatAPIMock) SendMessage(ctx context.Context, sessionID string, req types.SendMessageRequest) (*types.SendMessageResponse, error) {
	args := m.Called(ctx, sessionID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.SendMessageResponse), args.Error(1)
}

func (m *ChatAPIMock) DeleteSession(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *ChatAPIMock) Health(ctx context.Context) (*types.HealthResponse, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.HealthResponse), args.Error(1)
}

func (m *ChatAPIMock) Models(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

// NewChatAPIMock creates a new instance of ChatAPIMock. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewChatAPIMock(t interface {
	mock.TestingT
	Cleanup(func())
},
) *ChatAPIMock {
	mock := &ChatAPIMock{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
