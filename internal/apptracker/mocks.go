package apptracker

import (
	"github.com/stretchr/testify/mock"
)

type MockAppTracker struct {
	mock.Mock
}

var _ AppTracker = (*MockAppTracker)(nil)

func (sv *MockAppTracker) CaptureMessage(message string) {
	sv.Called(message)
}

func (sv *MockAppTracker) CaptureException(exception error, tags map[string]string) {
	sv.Called(exception, tags)
}

func (sv *MockAppTracker) Flush() {
	sv.Called()
}

// NewMockAppTracker creates a new instance of MockAppTracker. It also registers a testing interface on the mock and a cleanup function to assert the mocks expectations.
// The first argument is typically a *testing.T value.
func NewMockAppTracker(t interface {
	mock.TestingT
	Cleanup(func())
},
) *MockAppTracker {
	mock := &MockAppTracker{}
	mock.Mock.Test(t)

	t.Cleanup(func() { mock.AssertExpectations(t) })

	return mock
}
