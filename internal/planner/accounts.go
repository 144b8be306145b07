package planner

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/Veraticus/moneyplanner/internal/common"
	"github.com/Veraticus/moneyplanner/internal/model"
	"github.com/Veraticus/moneyplanner/internal/ofx"
	"github.com/Veraticus/moneyplanner/internal/service"
)

// Institution identifies the bank behind a new connection, as reported by
// the link flow.
type Institution struct {
	Name string `json:"name"`
	ID   string `json:"institution_id"`
}

// SyncSummary is the outcome of syncing one bank connection. Error is set
// instead of the counts when the sync failed.
type SyncSummary struct {
	ItemID      string `json:"item_id"`
	Institution string `json:"institution"`
	Error       string `json:"error,omitempty"`
	Added       int    `json:"added"`
	Modified    int    `json:"modified"`
	Removed     int    `json:"removed"`
}

// AccountsResult lists the accounts behind every connection. Connections
// whose accounts could not be fetched are reported in Failures.
type AccountsResult struct {
	Accounts []model.Account `json:"accounts"`
	Failures []SyncSummary   `json:"failures,omitempty"`
}

// ImportResult is the outcome of importing a statement file.
type ImportResult struct {
	Accounts []string `json:"accounts"`
	Imported int      `json:"imported"`
}

func (p *Planner) requireSource() error {
	if p.source == nil {
		return fmt.Errorf("%w: plaid credentials are not configured", common.ErrMissingConfig)
	}
	return nil
}

// CreateLinkToken starts a bank link flow for the user.
func (p *Planner) CreateLinkToken(ctx context.Context, userID string) (string, error) {
	if err := p.requireSource(); err != nil {
		return "", err
	}
	return p.source.CreateLinkToken(ctx, userID)
}

// ExchangeToken completes a link flow and stores the new connection with
// its access token encrypted.
func (p *Planner) ExchangeToken(ctx context.Context, userID, publicToken string, inst Institution) (*model.PlaidItem, error) {
	if err := p.requireSource(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(publicToken) == "" {
		return nil, fmt.Errorf("%w: public token is required", common.ErrInvalidInput)
	}

	accessToken, itemID, err := p.source.ExchangePublicToken(ctx, publicToken)
	if err != nil {
		return nil, err
	}
	sealed, err := p.box.Seal(accessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to encrypt access token: %w", err)
	}

	if inst.Name == "" {
		inst.Name = "Unknown"
	}
	item := &model.PlaidItem{
		ItemID:          itemID,
		AccessToken:     sealed,
		InstitutionName: inst.Name,
		InstitutionID:   inst.ID,
		ConnectedAt:     p.now(),
	}

	err = p.withUserLock(ctx, userID, func() error {
		return p.storage.SavePlaidItem(ctx, userID, item)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save bank connection: %w", err)
	}

	p.logger.Info("Connected bank",
		"user_id", userID,
		"item_id", itemID,
		"institution", inst.Name)
	return item, nil
}

// Connections returns the user's bank connections.
func (p *Planner) Connections(ctx context.Context, userID string) ([]model.PlaidItem, error) {
	items, err := p.storage.GetPlaidItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bank connections: %w", err)
	}
	return items, nil
}

// SyncItem pulls new transaction changes for one connection.
func (p *Planner) SyncItem(ctx context.Context, userID, itemID string) (*SyncSummary, error) {
	if err := p.requireSource(); err != nil {
		return nil, err
	}

	var summary *SyncSummary
	err := p.withUserLock(ctx, userID, func() error {
		item, err := p.storage.GetPlaidItem(ctx, userID, itemID)
		if err != nil {
			return err
		}
		summary, err = p.syncItem(ctx, userID, item)
		return err
	})
	if err != nil {
		return nil, err
	}
	return summary, nil
}

// SyncAll syncs every connection concurrently. A failing connection is
// reported in its summary and does not stop the others.
func (p *Planner) SyncAll(ctx context.Context, userID string) ([]SyncSummary, error) {
	if err := p.requireSource(); err != nil {
		return nil, err
	}

	var summaries []SyncSummary
	err := p.withUserLock(ctx, userID, func() error {
		items, err := p.storage.GetPlaidItems(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to load bank connections: %w", err)
		}

		summaries = make([]SyncSummary, len(items))
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(p.syncMax)

		for i := range items {
			item := &items[i]
			g.Go(func() error {
				s, err := p.syncItem(gctx, userID, item)
				if err != nil {
					p.logger.Warn("Sync failed",
						"user_id", userID,
						"item_id", item.ItemID,
						"error", err)
					summaries[i] = SyncSummary{
						ItemID:      item.ItemID,
						Institution: item.InstitutionName,
						Error:       err.Error(),
					}
					return nil
				}
				summaries[i] = *s
				return nil
			})
		}
		return g.Wait()
	})
	if err != nil {
		return nil, err
	}
	return summaries, nil
}

// syncItem applies one connection's pending changes and advances its
// cursor. The caller must hold the user's lock.
func (p *Planner) syncItem(ctx context.Context, userID string, item *model.PlaidItem) (*SyncSummary, error) {
	accessToken, err := p.box.Open(item.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt access token for %s: %w", item.ItemID, err)
	}

	res, err := p.source.SyncTransactions(ctx, accessToken, item.Cursor)
	if err != nil {
		return nil, err
	}

	existing, err := p.storage.GetTransactions(ctx, userID, service.TransactionFilter{ItemID: item.ItemID})
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions for %s: %w", item.ItemID, err)
	}
	known := make(map[string]bool, len(existing))
	for _, txn := range existing {
		known[txn.ID] = true
	}

	summary := &SyncSummary{ItemID: item.ItemID, Institution: item.InstitutionName}

	// Added entries we already hold are ignored; modified entries we never
	// saw are ignored too.
	upserts := make([]model.Transaction, 0, len(res.Added)+len(res.Modified))
	for _, txn := range res.Added {
		if known[txn.ID] {
			continue
		}
		txn.ItemID = item.ItemID
		known[txn.ID] = true
		upserts = append(upserts, txn)
		summary.Added++
	}
	for _, txn := range res.Modified {
		if !known[txn.ID] {
			continue
		}
		txn.ItemID = item.ItemID
		upserts = append(upserts, txn)
		summary.Modified++
	}

	var removed []string
	for _, id := range res.Removed {
		if known[id] {
			removed = append(removed, id)
			summary.Removed++
		}
	}

	if len(upserts) > 0 {
		if err := p.storage.SaveTransactions(ctx, userID, upserts); err != nil {
			return nil, fmt.Errorf("failed to save transactions for %s: %w", item.ItemID, err)
		}
	}
	if err := p.storage.DeleteTransactions(ctx, userID, removed); err != nil {
		return nil, fmt.Errorf("failed to remove transactions for %s: %w", item.ItemID, err)
	}

	now := p.now()
	item.Cursor = res.Cursor
	item.LastSync = &now
	if err := p.storage.SavePlaidItem(ctx, userID, item); err != nil {
		return nil, fmt.Errorf("failed to update cursor for %s: %w", item.ItemID, err)
	}

	p.logger.Info("Synced bank connection",
		"user_id", userID,
		"item_id", item.ItemID,
		"added", summary.Added,
		"modified", summary.Modified,
		"removed", summary.Removed)
	return summary, nil
}

// Disconnect removes a connection and every transaction it brought in.
// Failing to revoke the connection upstream is logged and otherwise ignored.
func (p *Planner) Disconnect(ctx context.Context, userID, itemID string) error {
	return p.withUserLock(ctx, userID, func() error {
		item, err := p.storage.GetPlaidItem(ctx, userID, itemID)
		if err != nil {
			return err
		}

		if p.source != nil {
			if err := p.revoke(ctx, item); err != nil {
				p.logger.Warn("Failed to revoke bank connection",
					"user_id", userID,
					"item_id", itemID,
					"error", err)
			}
		}

		if err := p.storage.DeletePlaidItem(ctx, userID, itemID); err != nil {
			return fmt.Errorf("failed to delete bank connection: %w", err)
		}
		if err := p.storage.DeleteItemTransactions(ctx, userID, itemID); err != nil {
			return fmt.Errorf("failed to delete bank transactions: %w", err)
		}

		p.logger.Info("Disconnected bank", "user_id", userID, "item_id", itemID)
		return nil
	})
}

func (p *Planner) revoke(ctx context.Context, item *model.PlaidItem) error {
	accessToken, err := p.box.Open(item.AccessToken)
	if err != nil {
		return err
	}
	return p.source.RemoveItem(ctx, accessToken)
}

// Accounts lists the accounts behind every connection.
func (p *Planner) Accounts(ctx context.Context, userID string) (*AccountsResult, error) {
	if err := p.requireSource(); err != nil {
		return nil, err
	}

	items, err := p.storage.GetPlaidItems(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load bank connections: %w", err)
	}

	result := &AccountsResult{Accounts: []model.Account{}}
	for _, item := range items {
		accounts, err := p.itemAccounts(ctx, &item)
		if err != nil {
			result.Failures = append(result.Failures, SyncSummary{
				ItemID:      item.ItemID,
				Institution: item.InstitutionName,
				Error:       err.Error(),
			})
			continue
		}
		result.Accounts = append(result.Accounts, accounts...)
	}
	return result, nil
}

func (p *Planner) itemAccounts(ctx context.Context, item *model.PlaidItem) ([]model.Account, error) {
	accessToken, err := p.box.Open(item.AccessToken)
	if err != nil {
		return nil, err
	}
	accounts, err := p.source.GetAccounts(ctx, accessToken)
	if err != nil {
		return nil, err
	}
	for i := range accounts {
		accounts[i].ItemID = item.ItemID
		accounts[i].InstitutionName = item.InstitutionName
	}
	return accounts, nil
}

// ImportStatement stores the transactions of an OFX or QFX statement.
// Re-importing the same file updates the stored transactions in place.
func (p *Planner) ImportStatement(ctx context.Context, userID string, r io.Reader) (*ImportResult, error) {
	stmt, err := ofx.NewParser().Parse(ctx, r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidInput, err)
	}
	if len(stmt.Transactions) == 0 {
		return &ImportResult{Accounts: stmt.Accounts}, nil
	}

	err = p.withUserLock(ctx, userID, func() error {
		return p.storage.SaveTransactions(ctx, userID, stmt.Transactions)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save imported transactions: %w", err)
	}

	sort.Strings(stmt.Accounts)
	p.logger.Info("Imported statement",
		"user_id", userID,
		"accounts", len(stmt.Accounts),
		"transactions", len(stmt.Transactions))
	return &ImportResult{Accounts: stmt.Accounts, Imported: len(stmt.Transactions)}, nil
}
