package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Sheet     SheetConfig
	Dashboard DashboardConfig
	Export    ExportConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type JWTConfig struct {
	Secret            string
	Expiration        time.Duration
	RefreshExpiration time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// SheetConfig identifies the backing spreadsheet and the service account
// used to sign write requests. Reads go through the API key; writes mint a
// short-lived bearer token from the service-account private key.
type SheetConfig struct {
	SpreadsheetID       string
	SheetName           string
	APIKey              string
	ServiceAccountEmail string
	PrivateKeyPEM       string
	TokenURL            string
	Scope               string
	HTTPTimeout         time.Duration
}

// DashboardConfig tunes the snapshot cache and the background poll.
type DashboardConfig struct {
	CacheTTL        time.Duration
	RefreshInterval time.Duration
	StatsCacheTTL   time.Duration
}

// ExportConfig gates report generation endpoints.
type ExportConfig struct {
	Enabled bool
	Title   string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:            v.GetString("JWT_SECRET"),
		Expiration:        parseDuration(v.GetString("JWT_EXPIRATION"), 24*time.Hour),
		RefreshExpiration: parseDuration(v.GetString("REFRESH_TOKEN_EXPIRATION"), 7*24*time.Hour),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	// The private key usually arrives through the environment with literal
	// "\n" sequences; restore real newlines before parsing the PEM block.
	privateKey := strings.ReplaceAll(v.GetString("SHEET_SERVICE_ACCOUNT_KEY"), `\n`, "\n")

	cfg.Sheet = SheetConfig{
		SpreadsheetID:       v.GetString("SHEET_SPREADSHEET_ID"),
		SheetName:           v.GetString("SHEET_NAME"),
		APIKey:              v.GetString("SHEET_API_KEY"),
		ServiceAccountEmail: v.GetString("SHEET_SERVICE_ACCOUNT_EMAIL"),
		PrivateKeyPEM:       privateKey,
		TokenURL:            v.GetString("SHEET_TOKEN_URL"),
		Scope:               v.GetString("SHEET_SCOPE"),
		HTTPTimeout:         parseDuration(v.GetString("SHEET_HTTP_TIMEOUT"), 30*time.Second),
	}

	cfg.Dashboard = DashboardConfig{
		CacheTTL:        parseDuration(v.GetString("SNAPSHOT_CACHE_TTL"), 5*time.Minute),
		RefreshInterval: parseDuration(v.GetString("SNAPSHOT_REFRESH_INTERVAL"), 5*time.Minute),
		StatsCacheTTL:   parseDuration(v.GetString("DASHBOARD_STATS_CACHE_TTL"), time.Minute),
	}

	cfg.Export = ExportConfig{
		Enabled: v.GetBool("ENABLE_EXPORTS"),
		Title:   v.GetString("EXPORT_REPORT_TITLE"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "requisitions")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", "dev_secret")
	v.SetDefault("JWT_EXPIRATION", "24h")
	v.SetDefault("REFRESH_TOKEN_EXPIRATION", "168h")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("SHEET_SPREADSHEET_ID", "")
	v.SetDefault("SHEET_NAME", "COMPRAS")
	v.SetDefault("SHEET_API_KEY", "")
	v.SetDefault("SHEET_SERVICE_ACCOUNT_EMAIL", "")
	v.SetDefault("SHEET_SERVICE_ACCOUNT_KEY", "")
	v.SetDefault("SHEET_TOKEN_URL", "https://oauth2.googleapis.com/token")
	v.SetDefault("SHEET_SCOPE", "https://www.googleapis.com/auth/spreadsheets")
	v.SetDefault("SHEET_HTTP_TIMEOUT", "30s")

	v.SetDefault("SNAPSHOT_CACHE_TTL", "5m")
	v.SetDefault("SNAPSHOT_REFRESH_INTERVAL", "5m")
	v.SetDefault("DASHBOARD_STATS_CACHE_TTL", "1m")

	v.SetDefault("ENABLE_EXPORTS", true)
	v.SetDefault("EXPORT_REPORT_TITLE", "Solicitações de Compra")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}
