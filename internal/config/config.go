// Package config loads the planner's configuration from file, environment
// and flags through viper.
package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"

	"github.com/Veraticus/moneyplanner/internal/common"
	"github.com/Veraticus/moneyplanner/internal/income"
	"github.com/Veraticus/moneyplanner/internal/phase"
)

// EnvPrefix is the prefix for environment overrides, e.g. PLANNER_DATABASE_PATH.
const EnvPrefix = "PLANNER"

// Config is the typed application configuration.
type Config struct {
	Database DatabaseConfig
	Logging  LoggingConfig
	Plaid    PlaidConfig
	Security SecurityConfig
	Server   ServerConfig
	Redis    RedisConfig
	User     UserConfig
	Income   IncomeConfig
	Phase    phase.Config
	DevMode  bool
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string
	Format string
}

// PlaidConfig holds aggregator credentials.
type PlaidConfig struct {
	ClientID    string
	Secret      string
	Environment string
	WebhookURL  string
}

// Configured reports whether enough is set to talk to Plaid.
func (p PlaidConfig) Configured() bool {
	return p.ClientID != "" && p.Secret != ""
}

// SecurityConfig holds the token encryption passphrase.
type SecurityConfig struct {
	EncryptionKey string
}

// ServerConfig configures the HTTP surface.
type ServerConfig struct {
	Addr           string
	AllowedOrigins []string
}

// RedisConfig enables cross-process locking when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// UserConfig names the user assumed when none is supplied in dev mode.
type UserConfig struct {
	DefaultID string
}

// IncomeConfig tunes income change detection.
type IncomeConfig struct {
	Window          int
	ChangeThreshold float64
}

// BindEnv makes every key overridable from the environment, so
// database.path is read from PLANNER_DATABASE_PATH.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "~/.local/share/planner/planner.db")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("dev_mode", false)
	v.SetDefault("income.window", income.DefaultWindow)
	v.SetDefault("income.change_threshold", income.DefaultThreshold)
	v.SetDefault("plaid.environment", "sandbox")
	v.SetDefault("server.addr", ":5001")
	v.SetDefault("server.allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("redis.db", 0)
	v.SetDefault("user.default_id", "user-1")
}

// Load reads the typed configuration from v. Phase windows default to the
// production values, or the development values when dev_mode is on; explicit
// phase.* keys override either.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Database: DatabaseConfig{Path: ExpandPath(v.GetString("database.path"))},
		Logging: LoggingConfig{
			Level:  strings.ToLower(v.GetString("logging.level")),
			Format: strings.ToLower(v.GetString("logging.format")),
		},
		DevMode: v.GetBool("dev_mode"),
		Income: IncomeConfig{
			Window:          v.GetInt("income.window"),
			ChangeThreshold: v.GetFloat64("income.change_threshold"),
		},
		Plaid: PlaidConfig{
			ClientID:    firstNonEmpty(v.GetString("plaid.client_id"), os.Getenv("PLAID_CLIENT_ID")),
			Secret:      firstNonEmpty(v.GetString("plaid.secret"), os.Getenv("PLAID_SECRET")),
			Environment: v.GetString("plaid.environment"),
			WebhookURL:  firstNonEmpty(v.GetString("plaid.webhook_url"), os.Getenv("PLAID_WEBHOOK_URL")),
		},
		Security: SecurityConfig{
			EncryptionKey: firstNonEmpty(v.GetString("security.encryption_key"), os.Getenv("ENCRYPTION_KEY")),
		},
		Server: ServerConfig{
			Addr:           v.GetString("server.addr"),
			AllowedOrigins: v.GetStringSlice("server.allowed_origins"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("redis.addr"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		User: UserConfig{DefaultID: v.GetString("user.default_id")},
	}

	cfg.Phase = phase.DefaultConfig()
	if cfg.DevMode {
		cfg.Phase = phase.DevConfig()
	}
	if v.IsSet("phase.observation_days") {
		cfg.Phase.ObservationDays = v.GetInt("phase.observation_days")
	}
	if v.IsSet("phase.budget_cycle_days") {
		cfg.Phase.BudgetCycleDays = v.GetInt("phase.budget_cycle_days")
	}
	if v.IsSet("phase.automation_gate") {
		cfg.Phase.AutomationGate = v.GetBool("phase.automation_gate")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks ranges that would otherwise fail deep inside a request.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q: %w", c.Logging.Level, common.ErrInvalidConfig)
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("invalid log format %q: %w", c.Logging.Format, common.ErrInvalidConfig)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required: %w", common.ErrMissingConfig)
	}
	if c.Income.Window < 1 {
		return fmt.Errorf("income.window must be at least 1: %w", common.ErrInvalidConfig)
	}
	if c.Income.ChangeThreshold <= 0 || c.Income.ChangeThreshold >= 1 {
		return fmt.Errorf("income.change_threshold must be between 0 and 1: %w", common.ErrInvalidConfig)
	}
	if c.Phase.ObservationDays < 0 || c.Phase.BudgetCycleDays < 0 {
		return fmt.Errorf("phase windows cannot be negative: %w", common.ErrInvalidConfig)
	}
	if c.User.DefaultID == "" && c.DevMode {
		return fmt.Errorf("user.default_id is required in dev mode: %w", common.ErrMissingConfig)
	}
	return nil
}

// ExpandPath resolves a leading ~ to the home directory, then $VAR references.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = home + path[1:]
		}
	}
	return os.ExpandEnv(path)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
