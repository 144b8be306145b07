package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/go-redis/redis/v8"
	"github.com/spf13/viper"

	"github.com/Veraticus/moneyplanner/internal/config"
	"github.com/Veraticus/moneyplanner/internal/lock"
	"github.com/Veraticus/moneyplanner/internal/plaid"
	"github.com/Veraticus/moneyplanner/internal/planner"
	"github.com/Veraticus/moneyplanner/internal/secrets"
	"github.com/Veraticus/moneyplanner/internal/service"
	"github.com/Veraticus/moneyplanner/internal/storage"
)

// app holds everything a command needs. Close releases it.
type app struct {
	cfg     *config.Config
	store   *storage.SQLiteStorage
	redis   *redis.Client
	planner *planner.Planner
}

// newApp loads configuration, opens and migrates the database, and wires
// the planner. Plaid is optional; bank commands report it as missing.
func newApp(ctx context.Context) (*app, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Database.Path), 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}
	store, err := storage.NewSQLiteStorage(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	a := &app{cfg: cfg, store: store}

	var source service.TransactionSource
	if cfg.Plaid.Configured() {
		client, err := plaid.NewClient(plaid.Config{
			ClientID:    cfg.Plaid.ClientID,
			Secret:      cfg.Plaid.Secret,
			Environment: cfg.Plaid.Environment,
			WebhookURL:  cfg.Plaid.WebhookURL,
		})
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("failed to create Plaid client: %w", err)
		}
		source = client
	}

	var locker service.Locker
	if cfg.Redis.Addr != "" {
		a.redis = lock.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err := a.redis.Ping(ctx).Err(); err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to reach redis at %s: %w", cfg.Redis.Addr, err)
		}
		locker = lock.NewRedisLocker(a.redis)
		slog.Debug("Using redis user locks", "addr", cfg.Redis.Addr)
	}

	pcfg := planner.DefaultConfig()
	pcfg.Phase = cfg.Phase
	pcfg.IncomeWindow = cfg.Income.Window
	pcfg.ChangeThreshold = cfg.Income.ChangeThreshold

	a.planner = planner.New(planner.Deps{
		Storage: store,
		Source:  source,
		Locker:  locker,
		Box:     secrets.NewBox(cfg.Security.EncryptionKey),
	}, pcfg)

	return a, nil
}

// user is the id commands act as.
func (a *app) user() string {
	return a.cfg.User.DefaultID
}

func (a *app) Close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if err := a.store.Close(); err != nil {
		slog.Warn("Failed to close database", "error", err)
	}
}
