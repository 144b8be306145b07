package plaid

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/moneyplanner/internal/common"
	"github.com/Veraticus/moneyplanner/internal/model"
	"github.com/Veraticus/moneyplanner/internal/service"
)

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		wantErr error
		config  Config
		name    string
	}{
		{
			name:   "valid sandbox config",
			config: Config{ClientID: "id", Secret: "secret", Environment: "sandbox"},
		},
		{
			name:   "valid production config with webhook",
			config: Config{ClientID: "id", Secret: "secret", Environment: "production", WebhookURL: "https://example.com/hook"},
		},
		{
			name:    "missing client ID",
			config:  Config{Secret: "secret", Environment: "sandbox"},
			wantErr: common.ErrMissingConfig,
		},
		{
			name:    "missing secret",
			config:  Config{ClientID: "id", Environment: "sandbox"},
			wantErr: common.ErrMissingConfig,
		},
		{
			name:    "missing environment",
			config:  Config{ClientID: "id", Secret: "secret"},
			wantErr: common.ErrMissingConfig,
		},
		{
			name:    "development is no longer offered",
			config:  Config{ClientID: "id", Secret: "secret", Environment: "development"},
			wantErr: common.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.config.Validate()
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestNewClient(t *testing.T) {
	client, err := NewClient(Config{ClientID: "id", Secret: "secret", Environment: "sandbox", WebhookURL: "https://x"})
	require.NoError(t, err)
	assert.NotNil(t, client.client)
	assert.NotNil(t, client.logger)
	assert.Equal(t, "https://x", client.webhook)
	assert.Equal(t, 3, client.retryOpts.MaxAttempts)

	client, err = NewClient(Config{ClientID: "id"})
	require.Error(t, err)
	assert.Nil(t, client)
}

func TestClient_SyncTransactions_NilContext(t *testing.T) {
	client, err := NewClient(Config{ClientID: "id", Secret: "secret", Environment: "sandbox"})
	require.NoError(t, err)

	//nolint:staticcheck // exercising the nil guard
	_, err = client.SyncTransactions(nil, "token", "")
	assert.ErrorContains(t, err, "context cannot be nil")
}

func TestMockClient(t *testing.T) {
	mock := NewMockClient()
	ctx := context.Background()

	token, err := mock.CreateLinkToken(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, "link-sandbox-user-1", token)

	access, item, err := mock.ExchangePublicToken(ctx, "pub")
	require.NoError(t, err)
	assert.Equal(t, "access-pub", access)
	assert.Equal(t, "item-pub", item)

	mock.SyncTransactionsFn = func(_ context.Context, _, cursor string) (*service.SyncResult, error) {
		return &service.SyncResult{
			Cursor: cursor + "-next",
			Added:  []model.Transaction{{ID: "tx1", Name: "Test", Amount: 10.50}},
		}, nil
	}

	res, err := mock.SyncTransactions(ctx, "access", "c1")
	require.NoError(t, err)
	assert.Equal(t, "c1-next", res.Cursor)
	assert.Len(t, res.Added, 1)
	require.Len(t, mock.SyncCalls, 1)
	assert.Equal(t, SyncCall{AccessToken: "access", Cursor: "c1"}, mock.SyncCalls[0])

	require.NoError(t, mock.RemoveItem(ctx, "access"))
	assert.Equal(t, []string{"access"}, mock.RemoveCalls)

	mock.Reset()
	assert.Empty(t, mock.SyncCalls)
	assert.Empty(t, mock.RemoveCalls)
}
