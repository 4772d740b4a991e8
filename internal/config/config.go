package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the bot.
type Config struct {
	App        AppConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logger     LoggerConfig
	Auth       AuthConfig
	Discord    DiscordConfig
	Storefront StorefrontConfig
	Panel      PanelConfig
}

// AppConfig controls the operations HTTP server.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values. The DSN is the one piece of
// configuration the process cannot run without.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig secures the operations API. The operator credential is a single
// username plus bcrypt hash supplied via environment.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	OpsUsername           string
	OpsPasswordHash       string
}

// DiscordConfig identifies the guild and the fixed channels/roles the bot
// operates on. An empty token disables the gateway with a logged warning
// rather than failing startup.
type DiscordConfig struct {
	Token            string
	GuildID          string
	ShopChannelID    string
	RedeemChannelID  string
	LogChannelID     string
	TicketCategoryID string
	AccessRoleID     string
	StaffRoleIDs     []string
	Presence         string
}

// StorefrontConfig holds storefront API credentials. Missing credentials
// degrade redemption to a "not configured" user message.
type StorefrontConfig struct {
	APIKey         string
	ShopID         string
	BaseURL        string
	ShopURL        string
	TimeoutSeconds int
}

// PanelConfig drives the redemption dashboard.
type PanelConfig struct {
	ButtonConfigPath       string
	RefreshIntervalSeconds int
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "shopbot"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
			OpsUsername:           getEnv("OPS_USERNAME", "operator"),
			OpsPasswordHash:       os.Getenv("OPS_PASSWORD_HASH"),
		},
		Discord: DiscordConfig{
			Token:            strings.TrimSpace(os.Getenv("DISCORD_TOKEN")),
			GuildID:          os.Getenv("DISCORD_GUILD_ID"),
			ShopChannelID:    os.Getenv("DISCORD_SHOP_CHANNEL_ID"),
			RedeemChannelID:  os.Getenv("DISCORD_REDEEM_CHANNEL_ID"),
			LogChannelID:     os.Getenv("DISCORD_LOG_CHANNEL_ID"),
			TicketCategoryID: os.Getenv("DISCORD_TICKET_CATEGORY_ID"),
			AccessRoleID:     os.Getenv("DISCORD_ACCESS_ROLE_ID"),
			StaffRoleIDs:     getEnvAsList("DISCORD_STAFF_ROLE_IDS"),
			Presence:         getEnv("DISCORD_PRESENCE", "Redeeming Keys"),
		},
		Storefront: StorefrontConfig{
			APIKey:         os.Getenv("STOREFRONT_API_KEY"),
			ShopID:         os.Getenv("STOREFRONT_SHOP_ID"),
			BaseURL:        getEnv("STOREFRONT_BASE_URL", "https://api.sellauth.com"),
			ShopURL:        os.Getenv("SHOP_URL"),
			TimeoutSeconds: getEnvAsInt("STOREFRONT_TIMEOUT_SECONDS", 8),
		},
		Panel: PanelConfig{
			ButtonConfigPath:       getEnv("PANEL_BUTTON_CONFIG", "buttonconfig.json"),
			RefreshIntervalSeconds: getEnvAsInt("PANEL_REFRESH_INTERVAL_SECONDS", 60),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Configured reports whether the gateway can be started at all.
func (d DiscordConfig) Configured() bool {
	return d.Token != "" && d.GuildID != ""
}

// IsStaffRole reports whether the given role id is one of the staff roles.
func (d DiscordConfig) IsStaffRole(roleID string) bool {
	for _, id := range d.StaffRoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// HasStaffRole reports whether any of the member's roles is a staff role.
func (d DiscordConfig) HasStaffRole(roleIDs []string) bool {
	for _, id := range roleIDs {
		if d.IsStaffRole(id) {
			return true
		}
	}
	return false
}

// Configured reports whether storefront lookups can be performed.
func (s StorefrontConfig) Configured() bool {
	return s.APIKey != "" && s.ShopID != ""
}

// Timeout returns the storefront request timeout.
func (s StorefrontConfig) Timeout() time.Duration {
	if s.TimeoutSeconds <= 0 {
		return 8 * time.Second
	}
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// RefreshInterval returns the dashboard refresh cadence.
func (p PanelConfig) RefreshInterval() time.Duration {
	if p.RefreshIntervalSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(p.RefreshIntervalSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsList(key string) []string {
	val := os.Getenv(key)
	if val == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
