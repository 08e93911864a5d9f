package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/relaydesk/ticket-relay/internal/domain"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Slack    SlackConfig
	Relay    RelayConfig
	Dedup    DedupConfig
	Cache    CacheConfig
	Notify   NotifyConfig
	AI       AIConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines dashboard token parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// SlackConfig holds workspace credentials.
type SlackConfig struct {
	BotToken string
	AppToken string
	Debug    bool
}

// RelayConfig describes the two mirrored channels and their presentation.
type RelayConfig struct {
	UserChannelID    string
	StaffChannelID   string
	TeamName         string
	DashboardURL     string
	TicketPrefix     string
	ResolvedReaction string
	ClosingRoles     []domain.StaffRole
	MacrosFile       string
	Macros           domain.Macros
	FilePollDelay    time.Duration
	FilePollAttempts int
	FileTimeout      time.Duration
}

// DedupConfig selects the event deduplication backend.
type DedupConfig struct {
	Backend  string
	Capacity int
	TTL      time.Duration
}

// CacheConfig selects the ticket cache.
type CacheConfig struct {
	Mode     string
	Capacity int
}

// NotifyConfig points at the dashboard refresh endpoint.
type NotifyConfig struct {
	URL     string
	APIKey  string
	Timeout time.Duration
}

// AIConfig configures the language model client. An empty APIKey disables AI features.
type AIConfig struct {
	APIKey      string
	BaseURL     string
	Model       string
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	closingRoles, err := parseRoles(getEnv("CLOSING_ROLES", ""))
	if err != nil {
		return nil, err
	}

	port := getEnv("APP_PORT", "8080")
	team := getEnv("TEAM_NAME", "Support")

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "ticket-relay"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  port,
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Slack: SlackConfig{
			BotToken: os.Getenv("SLACK_BOT_TOKEN"),
			AppToken: os.Getenv("SLACK_APP_TOKEN"),
			Debug:    getEnvAsBool("SLACK_DEBUG", false),
		},
		Relay: RelayConfig{
			UserChannelID:    os.Getenv("USER_CHANNEL_ID"),
			StaffChannelID:   os.Getenv("STAFF_CHANNEL_ID"),
			TeamName:         team,
			DashboardURL:     strings.TrimRight(getEnv("DASHBOARD_URL", "http://localhost:3000"), "/"),
			TicketPrefix:     getEnv("TICKET_PREFIX", "tk"),
			ResolvedReaction: getEnv("RESOLVED_REACTION", "white_check_mark"),
			ClosingRoles:     closingRoles,
			MacrosFile:       os.Getenv("MACROS_FILE"),
			FilePollDelay:    time.Duration(getEnvAsInt("FILE_SHARE_POLL_DELAY_MS", 2000)) * time.Millisecond,
			FilePollAttempts: getEnvAsInt("FILE_SHARE_POLL_ATTEMPTS", 3),
			FileTimeout:      time.Duration(getEnvAsInt("FILE_TRANSFER_TIMEOUT_SECONDS", 60)) * time.Second,
		},
		Dedup: DedupConfig{
			Backend:  strings.ToLower(getEnv("DEDUP_BACKEND", "memory")),
			Capacity: getEnvAsInt("DEDUP_CAPACITY", 1000),
			TTL:      time.Duration(getEnvAsInt("DEDUP_TTL_SECONDS", 3600)) * time.Second,
		},
		Cache: CacheConfig{
			Mode:     strings.ToLower(getEnv("TICKET_CACHE", "memory")),
			Capacity: getEnvAsInt("TICKET_CACHE_CAPACITY", 500),
		},
		Notify: NotifyConfig{
			URL:     getEnv("NOTIFY_URL", "http://localhost:45100/ws/notify"),
			APIKey:  os.Getenv("NOTIFY_API_KEY"),
			Timeout: time.Duration(getEnvAsInt("NOTIFY_TIMEOUT_MS", 500)) * time.Millisecond,
		},
		AI: AIConfig{
			APIKey:      os.Getenv("AI_API_KEY"),
			BaseURL:     os.Getenv("AI_BASE_URL"),
			Model:       getEnv("AI_MODEL", "gpt-4o-mini"),
			Timeout:     time.Duration(getEnvAsInt("AI_TIMEOUT_SECONDS", 30)) * time.Second,
			MaxAttempts: getEnvAsInt("AI_MAX_ATTEMPTS", 3),
			RetryDelay:  time.Duration(getEnvAsInt("AI_RETRY_DELAY_MS", 2000)) * time.Millisecond,
		},
	}

	overrides, err := LoadMacroFile(cfg.Relay.MacrosFile)
	if err != nil {
		return nil, err
	}
	cfg.Relay.Macros = domain.DefaultMacros(team).Merge(overrides)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks settings the relay cannot run without.
func (c *Config) Validate() error {
	var missing []string
	if c.Slack.BotToken == "" {
		missing = append(missing, "SLACK_BOT_TOKEN")
	}
	if c.Slack.AppToken == "" {
		missing = append(missing, "SLACK_APP_TOKEN")
	}
	if c.Relay.UserChannelID == "" {
		missing = append(missing, "USER_CHANNEL_ID")
	}
	if c.Relay.StaffChannelID == "" {
		missing = append(missing, "STAFF_CHANNEL_ID")
	}
	if c.Postgres.DSN == "" {
		missing = append(missing, "POSTGRES_DSN")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required settings: %s", strings.Join(missing, ", "))
	}
	if c.Relay.UserChannelID == c.Relay.StaffChannelID {
		return fmt.Errorf("USER_CHANNEL_ID and STAFF_CHANNEL_ID must differ")
	}
	switch c.Dedup.Backend {
	case "memory":
	case "redis":
		if c.Redis.Addr == "" {
			return fmt.Errorf("DEDUP_BACKEND=redis requires REDIS_ADDR")
		}
	default:
		return fmt.Errorf("invalid DEDUP_BACKEND %q", c.Dedup.Backend)
	}
	if c.Cache.Mode != "none" && c.Cache.Mode != "memory" {
		return fmt.Errorf("invalid TICKET_CACHE %q", c.Cache.Mode)
	}
	return nil
}

// AIEnabled reports whether an AI key was configured.
func (c AIConfig) AIEnabled() bool {
	return c.APIKey != ""
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

// AccessTokenTTL returns the dashboard token lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

func parseRoles(raw string) ([]domain.StaffRole, error) {
	if strings.TrimSpace(raw) == "" {
		return append([]domain.StaffRole(nil), domain.AllStaffRoles...), nil
	}
	var roles []domain.StaffRole
	for _, part := range strings.Split(raw, ",") {
		name := strings.ToUpper(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		role, ok := domain.ParseStaffRole(name)
		if !ok {
			return nil, fmt.Errorf("invalid CLOSING_ROLES entry %q", part)
		}
		roles = append(roles, role)
	}
	return roles, nil
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
