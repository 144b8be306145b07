package plaid

import (
	"context"
	"sync"

	"github.com/Veraticus/moneyplanner/internal/model"
	"github.com/Veraticus/moneyplanner/internal/service"
)

// MockClient is a mock implementation of service.TransactionSource for testing.
type MockClient struct {
	// Functions that can be set by tests to control behavior
	CreateLinkTokenFn     func(ctx context.Context, userID string) (string, error)
	ExchangePublicTokenFn func(ctx context.Context, publicToken string) (string, string, error)
	SyncTransactionsFn    func(ctx context.Context, accessToken, cursor string) (*service.SyncResult, error)
	GetAccountsFn         func(ctx context.Context, accessToken string) ([]model.Account, error)
	RemoveItemFn          func(ctx context.Context, accessToken string) error

	// Call tracking
	SyncCalls   []SyncCall
	RemoveCalls []string
	mu          sync.Mutex
}

// SyncCall records the parameters of a SyncTransactions call.
type SyncCall struct {
	AccessToken string
	Cursor      string
}

var _ service.TransactionSource = (*MockClient)(nil)

// NewMockClient creates a new mock Plaid client.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// CreateLinkToken implements service.TransactionSource.
func (m *MockClient) CreateLinkToken(ctx context.Context, userID string) (string, error) {
	if m.CreateLinkTokenFn != nil {
		return m.CreateLinkTokenFn(ctx, userID)
	}
	return "link-sandbox-" + userID, nil
}

// ExchangePublicToken implements service.TransactionSource.
func (m *MockClient) ExchangePublicToken(ctx context.Context, publicToken string) (string, string, error) {
	if m.ExchangePublicTokenFn != nil {
		return m.ExchangePublicTokenFn(ctx, publicToken)
	}
	return "access-" + publicToken, "item-" + publicToken, nil
}

// SyncTransactions implements service.TransactionSource.
func (m *MockClient) SyncTransactions(ctx context.Context, accessToken, cursor string) (*service.SyncResult, error) {
	m.mu.Lock()
	m.SyncCalls = append(m.SyncCalls, SyncCall{AccessToken: accessToken, Cursor: cursor})
	m.mu.Unlock()

	if m.SyncTransactionsFn != nil {
		return m.SyncTransactionsFn(ctx, accessToken, cursor)
	}
	return &service.SyncResult{Cursor: cursor}, nil
}

// GetAccounts implements service.TransactionSource.
func (m *MockClient) GetAccounts(ctx context.Context, accessToken string) ([]model.Account, error) {
	if m.GetAccountsFn != nil {
		return m.GetAccountsFn(ctx, accessToken)
	}
	return []model.Account{}, nil
}

// RemoveItem implements service.TransactionSource.
func (m *MockClient) RemoveItem(ctx context.Context, accessToken string) error {
	m.mu.Lock()
	m.RemoveCalls = append(m.RemoveCalls, accessToken)
	m.mu.Unlock()

	if m.RemoveItemFn != nil {
		return m.RemoveItemFn(ctx, accessToken)
	}
	return nil
}

// Reset clears all call tracking.
func (m *MockClient) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SyncCalls = nil
	m.RemoveCalls = nil
}
