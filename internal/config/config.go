package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Google   GoogleConfig   `yaml:"google"`
	Share    ShareConfig    `yaml:"share"`
	Log      LogConfig      `yaml:"log"`
	CORS     CORSConfig     `yaml:"cors"`
}

// ServerConfig holds the server configuration
type ServerConfig struct {
	Port            int           `yaml:"port"             env:"SERVER_PORT"             env-default:"8080"`
	ReadTimeout     time.Duration `yaml:"read_timeout"     env:"SERVER_READ_TIMEOUT"     env-default:"15s"`
	WriteTimeout    time.Duration `yaml:"write_timeout"    env:"SERVER_WRITE_TIMEOUT"    env-default:"60s"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SERVER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	Mode            string        `yaml:"mode"             env:"GIN_MODE"                env-default:"release"`
}

// DatabaseConfig holds the database configuration
type DatabaseConfig struct {
	Host         string `yaml:"host"           env:"DB_HOST"           env-default:"localhost"`
	Port         int    `yaml:"port"           env:"DB_PORT"           env-default:"5432"`
	Username     string `yaml:"username"       env:"DB_USERNAME"       env-default:"postgres"`
	Password     string `yaml:"password"       env:"DB_PASSWORD"       env-default:"password"`
	DBName       string `yaml:"name"           env:"DB_NAME"           env-default:"invoices"`
	SSLMode      string `yaml:"sslmode"        env:"DB_SSLMODE"        env-default:"disable"`
	MaxOpenConns int    `yaml:"max_open_conns" env:"DB_MAX_OPEN_CONNS" env-default:"25"`
	MaxIdleConns int    `yaml:"max_idle_conns" env:"DB_MAX_IDLE_CONNS" env-default:"5"`
}

// AuthConfig holds the authentication configuration
type AuthConfig struct {
	JWTSecret  string        `yaml:"jwt_secret"  env:"JWT_SECRET"  env-required:"true"`
	SessionTTL time.Duration `yaml:"session_ttl" env:"SESSION_TTL" env-default:"24h"`
	// VaultSecret seals stored refresh tokens
	VaultSecret string `yaml:"vault_secret" env:"VAULT_SECRET" env-required:"true"`
}

// GoogleConfig holds the OAuth client used for sign-in and API access
type GoogleConfig struct {
	ClientID     string `yaml:"client_id"     env:"GOOGLE_CLIENT_ID"`
	ClientSecret string `yaml:"client_secret" env:"GOOGLE_CLIENT_SECRET"`
	RedirectURL  string `yaml:"redirect_url"  env:"GOOGLE_REDIRECT_URL" env-default:"http://localhost:3000/auth/callback"`
}

// ShareConfig holds share link settings
type ShareConfig struct {
	Secret        string        `yaml:"secret"          env:"SHARE_SECRET"          env-required:"true"`
	TTL           time.Duration `yaml:"ttl"             env:"SHARE_TTL"             env-default:"720h"`
	PublicBaseURL string        `yaml:"public_base_url" env:"SHARE_PUBLIC_BASE_URL" env-default:"http://localhost:3000"`
}

// LogConfig holds logging settings
type LogConfig struct {
	Level  string `yaml:"level"  env:"LOG_LEVEL"  env-default:"info"`
	Format string `yaml:"format" env:"LOG_FORMAT" env-default:"json"`
}

// CORSConfig holds CORS settings
type CORSConfig struct {
	AllowedOrigins string        `yaml:"allowed_origins" env:"CORS_ALLOWED_ORIGINS" env-default:"http://localhost:3000"`
	MaxAge         time.Duration `yaml:"max_age"         env:"CORS_MAX_AGE"         env-default:"12h"`
}

// Origins splits AllowedOrigins on commas
func (c CORSConfig) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// GetDSN returns the database connection string
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.Username, c.Password, c.DBName, c.SSLMode,
	)
}

// LoadConfig loads the configuration. An optional .env file is applied to
// the environment first; then the YAML file named by CONFIG_PATH (fallback
// ./config.yaml) is read when present. Environment variables win over YAML.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("config: load .env: %w", err)
	}

	var cfg Config

	path := os.Getenv("CONFIG_PATH")
	explicitPath := path != ""
	if !explicitPath {
		path = "./config.yaml"
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
	} else if explicitPath {
		return nil, fmt.Errorf("config: file %s: %w", path, err)
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Validate checks values cleanenv cannot express
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port %d out of range", c.Server.Port))
	}
	if len(c.Auth.JWTSecret) < 16 {
		errs = append(errs, errors.New("jwt secret must be at least 16 characters"))
	}
	if len(c.Auth.VaultSecret) < 16 {
		errs = append(errs, errors.New("vault secret must be at least 16 characters"))
	}
	if len(c.Share.Secret) < 16 {
		errs = append(errs, errors.New("share secret must be at least 16 characters"))
	}
	if c.Share.TTL <= 0 {
		errs = append(errs, errors.New("share ttl must be positive"))
	}
	if (c.Google.ClientID == "") != (c.Google.ClientSecret == "") {
		errs = append(errs, errors.New("google client id and secret must be set together"))
	}
	switch strings.ToLower(c.Log.Format) {
	case "json", "text":
	default:
		errs = append(errs, fmt.Errorf("log format %q must be json or text", c.Log.Format))
	}
	return errors.Join(errs...)
}
