// Package plaid provides a client for interacting with the Plaid API.
package plaid

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/plaid/plaid-go/v20/plaid"

	"github.com/Veraticus/moneyplanner/internal/common"
	"github.com/Veraticus/moneyplanner/internal/model"
	"github.com/Veraticus/moneyplanner/internal/service"
)

const clientName = "MoneyPlanner"

// Config holds Plaid API configuration.
type Config struct {
	ClientID    string
	Secret      string
	Environment string // sandbox or production
	WebhookURL  string
}

// Validate ensures all required fields are present.
func (c *Config) Validate() error {
	if c.ClientID == "" {
		return fmt.Errorf("plaid client ID is required: %w", common.ErrMissingConfig)
	}
	if c.Secret == "" {
		return fmt.Errorf("plaid secret is required: %w", common.ErrMissingConfig)
	}
	switch c.Environment {
	case "sandbox", "production":
		return nil
	case "":
		return fmt.Errorf("plaid environment is required: %w", common.ErrMissingConfig)
	default:
		return fmt.Errorf("invalid Plaid environment %q, must be sandbox or production: %w",
			c.Environment, common.ErrInvalidConfig)
	}
}

// Client implements service.TransactionSource against the Plaid API.
type Client struct {
	client    *plaid.APIClient
	logger    *slog.Logger
	retryOpts service.RetryOptions
	webhook   string
}

var _ service.TransactionSource = (*Client)(nil)

// NewClient creates a new Plaid client with the given configuration.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	configuration := plaid.NewConfiguration()
	configuration.AddDefaultHeader("PLAID-CLIENT-ID", cfg.ClientID)
	configuration.AddDefaultHeader("PLAID-SECRET", cfg.Secret)

	switch cfg.Environment {
	case "sandbox":
		configuration.UseEnvironment(plaid.Sandbox)
	case "production":
		configuration.UseEnvironment(plaid.Production)
	}

	return &Client{
		client:  plaid.NewAPIClient(configuration),
		webhook: cfg.WebhookURL,
		logger:  slog.Default().With("component", "plaid"),
		retryOpts: service.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: 1 * time.Second,
			MaxDelay:     30 * time.Second,
			Multiplier:   2.0,
		},
	}, nil
}

// CreateLinkToken creates a Link token for the given user.
func (c *Client) CreateLinkToken(ctx context.Context, userID string) (string, error) {
	user := plaid.LinkTokenCreateRequestUser{ClientUserId: userID}

	request := plaid.NewLinkTokenCreateRequest(
		clientName,
		"en",
		[]plaid.CountryCode{plaid.COUNTRYCODE_CA, plaid.COUNTRYCODE_US},
		user,
	)
	request.SetProducts([]plaid.Products{plaid.PRODUCTS_TRANSACTIONS})
	if c.webhook != "" {
		request.SetWebhook(c.webhook)
	}

	resp, _, err := c.client.PlaidApi.LinkTokenCreate(ctx).LinkTokenCreateRequest(*request).Execute()
	if err != nil {
		return "", wrapPlaidError("failed to create link token", err)
	}

	return resp.GetLinkToken(), nil
}

// ExchangePublicToken exchanges a public token from Link for an access token.
func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (accessToken, itemID string, err error) {
	request := plaid.NewItemPublicTokenExchangeRequest(publicToken)
	resp, _, err := c.client.PlaidApi.ItemPublicTokenExchange(ctx).ItemPublicTokenExchangeRequest(*request).Execute()
	if err != nil {
		return "", "", wrapPlaidError("failed to exchange public token", err)
	}

	return resp.GetAccessToken(), resp.GetItemId(), nil
}

// SyncTransactions pages through /transactions/sync from cursor until Plaid
// reports no more changes. The returned cursor resumes the next sync.
func (c *Client) SyncTransactions(ctx context.Context, accessToken, cursor string) (*service.SyncResult, error) {
	if ctx == nil {
		return nil, fmt.Errorf("context cannot be nil")
	}

	result := &service.SyncResult{Cursor: cursor}
	hasMore := true

	for hasMore {
		var resp plaid.TransactionsSyncResponse

		retryErr := common.WithRetry(ctx, func() error {
			request := plaid.NewTransactionsSyncRequest(accessToken)
			if result.Cursor != "" {
				request.SetCursor(result.Cursor)
			}

			r, _, err := c.client.PlaidApi.TransactionsSync(ctx).TransactionsSyncRequest(*request).Execute()
			if err != nil {
				return c.classifyError("failed to sync transactions", err)
			}
			resp = r
			return nil
		}, c.retryOpts)
		if retryErr != nil {
			return nil, retryErr
		}

		for _, pt := range resp.GetAdded() {
			result.Added = append(result.Added, c.mapTransaction(pt))
		}
		for _, pt := range resp.GetModified() {
			result.Modified = append(result.Modified, c.mapTransaction(pt))
		}
		for _, rt := range resp.GetRemoved() {
			result.Removed = append(result.Removed, rt.GetTransactionId())
		}

		result.Cursor = resp.GetNextCursor()
		hasMore = resp.GetHasMore()

		c.logger.Debug("Fetched sync page",
			"added", len(resp.GetAdded()),
			"modified", len(resp.GetModified()),
			"removed", len(resp.GetRemoved()),
			"has_more", hasMore)
	}

	c.logger.Info("Synced transactions",
		"added", len(result.Added),
		"modified", len(result.Modified),
		"removed", len(result.Removed))

	return result, nil
}

// GetAccounts lists the accounts behind an access token.
func (c *Client) GetAccounts(ctx context.Context, accessToken string) ([]model.Account, error) {
	var accounts []plaid.AccountBase
	retryErr := common.WithRetry(ctx, func() error {
		request := plaid.NewAccountsGetRequest(accessToken)
		resp, _, err := c.client.PlaidApi.AccountsGet(ctx).AccountsGetRequest(*request).Execute()
		if err != nil {
			return c.classifyError("failed to fetch accounts", err)
		}
		accounts = resp.GetAccounts()
		return nil
	}, c.retryOpts)
	if retryErr != nil {
		return nil, retryErr
	}

	out := make([]model.Account, 0, len(accounts))
	for _, a := range accounts {
		balances := a.GetBalances()
		out = append(out, model.Account{
			ID:               a.GetAccountId(),
			Name:             a.GetName(),
			Type:             string(a.GetType()),
			Subtype:          string(a.GetSubtype()),
			Mask:             a.GetMask(),
			CurrentBalance:   balances.GetCurrent(),
			AvailableBalance: balances.GetAvailable(),
		})
	}
	return out, nil
}

// RemoveItem revokes the access token at Plaid.
func (c *Client) RemoveItem(ctx context.Context, accessToken string) error {
	request := plaid.NewItemRemoveRequest(accessToken)
	if _, _, err := c.client.PlaidApi.ItemRemove(ctx).ItemRemoveRequest(*request).Execute(); err != nil {
		return wrapPlaidError("failed to remove item", err)
	}
	return nil
}

// mapTransaction converts a Plaid transaction to our internal model.
// Plaid's sign convention (positive is money out) is kept as is.
func (c *Client) mapTransaction(pt plaid.Transaction) model.Transaction {
	date, err := time.Parse(model.DateLayout, pt.GetDate())
	if err != nil {
		c.logger.Error("Failed to parse transaction date", "date", pt.GetDate(), "error", err)
		date = time.Now().UTC().Truncate(24 * time.Hour)
	}

	pfc := pt.GetPersonalFinanceCategory()

	tx := model.Transaction{
		Date:        date,
		ID:          pt.GetTransactionId(),
		AccountID:   pt.GetAccountId(),
		Name:        pt.GetName(),
		Merchant:    pt.GetMerchantName(),
		RawCategory: pfc.GetDetailed(),
		Amount:      pt.GetAmount(),
		Pending:     pt.GetPending(),
	}
	tx.Hash = tx.GenerateHash()

	return tx
}

// classifyError marks rate limits as retryable for common.WithRetry.
func (c *Client) classifyError(msg string, err error) error {
	if plaidError := extractPlaidError(err); plaidError != nil && plaidError.ErrorCode == "RATE_LIMIT_EXCEEDED" {
		c.logger.Warn("Rate limit hit, will retry", "error", plaidError.ErrorMessage)
		return &common.RetryableError{Err: fmt.Errorf("%s: %w", msg, common.ErrPlaidRateLimit), Retryable: true}
	}
	return wrapPlaidError(msg, err)
}

func wrapPlaidError(msg string, err error) error {
	if plaidError := extractPlaidError(err); plaidError != nil {
		return fmt.Errorf("%s: %s - %s: %w", msg, plaidError.ErrorCode, plaidError.ErrorMessage, common.ErrPlaidConnection)
	}
	return fmt.Errorf("%s: %w", msg, errors.Join(common.ErrPlaidConnection, err))
}

// extractPlaidError attempts to extract a Plaid error from a generic error.
func extractPlaidError(err error) *plaid.PlaidError {
	plaidErr, convErr := plaid.ToPlaidError(err)
	if convErr != nil {
		return nil
	}
	return &plaidErr
}
