package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/EdinaldoPedro/emissor-nfse-mobile/internal/domain"
)

// MockBackend mocks session.Backend.
type MockBackend struct {
	mock.Mock
}

func (m *MockBackend) Get(ctx context.Context, keys ...string) (map[string]string, error) {
	args := m.Called(ctx, keys)
	values, _ := args.Get(0).(map[string]string)
	return values, args.Error(1)
}

func (m *MockBackend) Update(ctx context.Context, set map[string]string, del ...string) error {
	args := m.Called(ctx, set, del)
	return args.Error(0)
}

func (m *MockBackend) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockBackend) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockAuthenticator mocks session.Authenticator.
type MockAuthenticator struct {
	mock.Mock
}

func (m *MockAuthenticator) Login(ctx context.Context, login, password string) (*domain.LoginResponse, error) {
	args := m.Called(ctx, login, password)
	resp, _ := args.Get(0).(*domain.LoginResponse)
	return resp, args.Error(1)
}

// MockSession mocks the session hooks used by the API client.
type MockSession struct {
	mock.Mock
}

func (m *MockSession) Credentials() (string, string) {
	args := m.Called()
	return args.String(0), args.String(1)
}

func (m *MockSession) HandleUnauthorized(ctx context.Context) {
	m.Called(ctx)
}

func (m *MockSession) HandleCompanyRejected(ctx context.Context) {
	m.Called(ctx)
}
