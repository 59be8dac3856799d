package app

import (
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bitshala/guildgate/internal/gate/domain"
	"github.com/joho/godotenv"
)

type Config struct {
	// Discord OAuth application and guild target
	ClientID     string // Required: OAuth2 client id
	ClientSecret string // Required: OAuth2 client secret
	BotToken     string // Required: bot token for guild-join and role-grant calls
	GuildID      string // Required: target guild snowflake
	RedirectURI  string // Required: OAuth2 redirect, e.g. https://host/bot/callback
	// CompletionURL is where users land after a successful role grant,
	// typically a permanent guild invite link.
	CompletionURL string
	// PublicBaseURL is the externally reachable base of this service, used
	// to build redemption links embedded in emails.
	PublicBaseURL string

	// Roles maps cohort selectors to Discord role ids and display names.
	Roles domain.RoleMap

	// TokenTTL controls the advisory expiry stamped on issued tokens.
	TokenTTL time.Duration

	// Email dispatch ("sendgrid", "smtp", or empty to disable)
	EmailMethod    string
	SendGridAPIKey string
	FromName       string
	FromEmail      string
	SMTPHost       string
	SMTPPort       int
	SMTPUser       string
	SMTPPassword   string

	DatabaseFile         string        // Optional: path to SQLite database file (default: ./tokens.db)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Expired-token purge interval (default: 1h)
}

func LoadConfig() Config {
	// Best effort; a missing .env simply means the environment is already set.
	_ = godotenv.Load()

	cfg := Config{
		ClientID:      os.Getenv("CLIENT_ID"),
		ClientSecret:  os.Getenv("CLIENT_SECRET"),
		BotToken:      os.Getenv("DISCORD_TOKEN"),
		GuildID:       os.Getenv("GUILD_ID"),
		RedirectURI:   os.Getenv("REDIRECT_URI"),
		CompletionURL: os.Getenv("INVITE_URL"),
		PublicBaseURL: os.Getenv("PUBLIC_BASE_URL"),

		Roles:    parseRoleMap(os.Getenv("ROLE_MAP"), os.Getenv("ROLE_NAMES")),
		TokenTTL: getEnvDurationOrDefault("TOKEN_TTL", time.Hour),

		EmailMethod:    strings.ToLower(os.Getenv("EMAIL_METHOD")),
		SendGridAPIKey: os.Getenv("SENDGRID_API_KEY"),
		FromName:       getEnvOrDefault("FROM_NAME", "Bitshala Team"),
		FromEmail:      getEnvOrDefault("FROM_EMAIL", "contact@bitshala.org"),
		SMTPHost:       getEnvOrDefault("SMTP_SERVER", "smtp.gmail.com"),
		SMTPPort:       getEnvIntOrDefault("SMTP_PORT", 587),
		SMTPUser:       os.Getenv("SMTP_USER"),
		SMTPPassword:   os.Getenv("SMTP_PASSWORD"),

		DatabaseFile:         getEnvOrDefault("DB_PATH", "tokens.db"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}

	// Derive the public base from the redirect URI when not set explicitly,
	// so a single REDIRECT_URI is enough for simple deployments.
	if cfg.PublicBaseURL == "" && cfg.RedirectURI != "" {
		if u, err := url.Parse(cfg.RedirectURI); err == nil {
			cfg.PublicBaseURL = u.Scheme + "://" + u.Host
		}
	}

	return cfg
}

// CallbackPath returns the path component of the redirect URI, which is also
// the route the HTTP server must answer on.
func (c Config) CallbackPath() string {
	if u, err := url.Parse(c.RedirectURI); err == nil && u.Path != "" {
		return u.Path
	}
	return "/bot/callback"
}

// parseRoleMap builds the role map from two parallel environment variables:
//
//	ROLE_MAP   = "pb=111111,mb=222222"             selector=Discord role id
//	ROLE_NAMES = "pb=Programming Bitcoin,mb=..."   selector=display name
//
// A selector missing from ROLE_NAMES falls back to the selector itself.
func parseRoleMap(rolesEnv, namesEnv string) domain.RoleMap {
	ids := parseKeyValues(rolesEnv)
	names := parseKeyValues(namesEnv)

	m := make(domain.RoleMap, len(ids))
	for key, id := range ids {
		name := names[key]
		if name == "" {
			name = key
		}
		m[key] = domain.Role{Key: key, DiscordID: id, DisplayName: name}
	}
	return m
}

func parseKeyValues(s string) map[string]string {
	out := make(map[string]string)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(key)
		value = strings.TrimSpace(value)
		if key == "" || value == "" {
			continue
		}
		out[key] = value
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}
