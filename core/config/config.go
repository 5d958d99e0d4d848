package config

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

// DiscordConfig holds application credentials issued by the Discord developer portal.
type DiscordConfig struct {
	// PublicKey is the hex encoded Ed25519 key used to verify interaction signatures.
	PublicKey     string `yaml:"public_key" envconfig:"DISCORD_PUBLIC_KEY"`
	ApplicationID string `yaml:"application_id" envconfig:"DISCORD_APPLICATION_ID"`
	// Token is the bot token; only needed for command registration and the results board.
	Token   string `yaml:"token" envconfig:"DISCORD_TOKEN"`
	GuildID string `yaml:"guild_id" envconfig:"DISCORD_GUILD_ID"`
	APIBase string `yaml:"api_base" envconfig:"DISCORD_API_BASE"`
}

// HTTPConfig specifies the interactions endpoint listener.
type HTTPConfig struct {
	Listen           string `yaml:"listen" envconfig:"HTTP_LISTEN"`
	Port             int    `yaml:"port" envconfig:"PORT"`
	MaxBodyBytes     int64  `yaml:"max_body_bytes" envconfig:"HTTP_MAX_BODY_BYTES"`
	RequestTimeoutMS int    `yaml:"request_timeout_ms" envconfig:"HTTP_REQUEST_TIMEOUT_MS"`
}

// StorageConfig points at the bucket holding rendered session results.
type StorageConfig struct {
	Driver          string `yaml:"driver" envconfig:"STORAGE_DRIVER"`
	Endpoint        string `yaml:"endpoint" envconfig:"STORAGE_ENDPOINT"`
	Bucket          string `yaml:"bucket" envconfig:"STORAGE_BUCKET"`
	Region          string `yaml:"region" envconfig:"STORAGE_REGION"`
	AccessKeyID     string `yaml:"access_key_id" envconfig:"STORAGE_ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" envconfig:"STORAGE_SECRET_ACCESS_KEY"`
	Secure          bool   `yaml:"secure" envconfig:"STORAGE_SECURE"`
	UsePathStyle    bool   `yaml:"use_path_style" envconfig:"STORAGE_USE_PATH_STYLE"`
}

// DatabaseConfig holds postgres connection settings for the key-value cache.
// An empty Host selects the in-memory cache.
type DatabaseConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
}

// Enabled reports whether a postgres backend is configured.
func (d DatabaseConfig) Enabled() bool {
	return strings.TrimSpace(d.Host) != ""
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	BotFile     string `yaml:"bot_file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

const (
	// KindCommand identifies slash command interactions for rate limit exclusions.
	KindCommand = "command"
	// KindComponent identifies select menu activations for rate limit exclusions.
	KindComponent = "component"
)

// RateLimitConfig holds settings for per-user rate limiting.
// ExcludeKinds accepts interaction kinds to bypass limiting:
// - "command": slash command invocations
// - "component": wizard select menu activations
type RateLimitConfig struct {
	IntervalMS   int      `yaml:"interval_ms" envconfig:"RATE_LIMIT_INTERVAL_MS"`
	ExcludeKinds []string `yaml:"exclude_kinds" envconfig:"RATE_LIMIT_EXCLUDE_KINDS"`
}

// SenderConfig tunes the detached follow-up delivery queue.
type SenderConfig struct {
	QueueSize     int `yaml:"queue_size" envconfig:"SENDER_QUEUE_SIZE"`
	Workers       int `yaml:"workers" envconfig:"SENDER_WORKERS"`
	MaxDurationMS int `yaml:"max_duration_ms" envconfig:"SENDER_MAX_DURATION_MS"`
}

// WizardConfig bounds the seasons offered by the results wizard.
type WizardConfig struct {
	FirstYear int `yaml:"first_year" envconfig:"WIZARD_FIRST_YEAR"`
	LastYear  int `yaml:"last_year" envconfig:"WIZARD_LAST_YEAR"`
}

// BoardConfig configures the pinned results message kept in the guild channel.
type BoardConfig struct {
	APIToken     string `yaml:"api_token" envconfig:"API_TOKEN"`
	Schedule     string `yaml:"schedule" envconfig:"BOARD_SCHEDULE"`
	ChannelName  string `yaml:"channel_name" envconfig:"BOARD_CHANNEL_NAME"`
	ImageBaseURL string `yaml:"image_base_url" envconfig:"CDN_URL"`
}

// TelemetryConfig toggles OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled     bool   `yaml:"enabled" envconfig:"OTEL_ENABLED"`
	ServiceName string `yaml:"service_name" envconfig:"OTEL_SERVICE_NAME"`
}

const (
	// StorageMinio selects the minio client (works against R2 and any S3 compatible store).
	StorageMinio = "minio"
	// StorageS3 selects the AWS SDK client.
	StorageS3 = "s3"
	// StorageMemory keeps objects in process memory; intended for tests and local runs.
	StorageMemory = "memory"
)

const (
	defaultAPIBase      = "https://discord.com/api/v10"
	defaultPort         = 8787
	defaultMaxBodyBytes = 1 << 20
	defaultTimeoutMS    = 10_000
	defaultFirstYear    = 2019
	defaultLastYear     = 2025
	defaultChannelName  = "yarumotors"
	defaultServiceName  = "yarumotors-bot"
)

// Config aggregates the whole bot configuration.
type Config struct {
	Discord   DiscordConfig   `yaml:"discord"`
	HTTP      HTTPConfig      `yaml:"http"`
	Storage   StorageConfig   `yaml:"storage"`
	Database  DatabaseConfig  `yaml:"database"`
	Logging   LoggingConfig   `yaml:"logging"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Sender    SenderConfig    `yaml:"sender"`
	Wizard    WizardConfig    `yaml:"wizard"`
	Board     BoardConfig     `yaml:"board"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// Load reads configuration from a YAML file and environment variables.
// A missing file is tolerated so that deployments can be configured by env only.
func Load(path string) (*Config, error) {
	return load(path, Normalize)
}

// LoadForRegistration reads the same sources as Load but validates only what
// publishing commands needs: the application id and the bot token.
func LoadForRegistration(path string) (*Config, error) {
	return load(path, NormalizeRegistration)
}

func load(path string, normalize func(*Config) error) (*Config, error) {
	var cfg Config

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse YAML config: %w", err)
		}
	case os.IsNotExist(err):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// NormalizeRegistration checks the fields used by the command registration tool.
func NormalizeRegistration(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}
	cfg.Discord.ApplicationID = strings.TrimSpace(cfg.Discord.ApplicationID)
	if cfg.Discord.ApplicationID == "" {
		return fmt.Errorf("discord.application_id is required")
	}
	if strings.TrimSpace(cfg.Discord.Token) == "" {
		return fmt.Errorf("discord.token is required")
	}
	cfg.Discord.GuildID = strings.TrimSpace(cfg.Discord.GuildID)
	normalizeAPIBase(&cfg.Discord)
	return nil
}

func normalizeAPIBase(d *DiscordConfig) {
	d.APIBase = strings.TrimRight(strings.TrimSpace(d.APIBase), "/")
	if d.APIBase == "" {
		d.APIBase = defaultAPIBase
	}
}

// Normalize performs basic validation of required configuration fields and adjusts defaults.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	key := strings.TrimSpace(cfg.Discord.PublicKey)
	if key == "" {
		return fmt.Errorf("discord.public_key is required")
	}
	raw, err := hex.DecodeString(key)
	if err != nil || len(raw) != 32 {
		return fmt.Errorf("discord.public_key must be a 32 byte hex string")
	}
	cfg.Discord.PublicKey = key
	normalizeAPIBase(&cfg.Discord)

	if cfg.HTTP.Port == 0 {
		cfg.HTTP.Port = defaultPort
	}
	if cfg.HTTP.Port < 0 {
		return fmt.Errorf("http.port must be > 0")
	}
	if cfg.HTTP.MaxBodyBytes <= 0 {
		cfg.HTTP.MaxBodyBytes = defaultMaxBodyBytes
	}
	if cfg.HTTP.RequestTimeoutMS <= 0 {
		cfg.HTTP.RequestTimeoutMS = defaultTimeoutMS
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Storage.Driver))
	if driver == "" {
		driver = StorageMinio
	}
	if driver == "r2" { // accept alias
		driver = StorageMinio
	}
	switch driver {
	case StorageMinio, StorageS3:
		if strings.TrimSpace(cfg.Storage.Bucket) == "" {
			return fmt.Errorf("storage.bucket is required when storage.driver is %q", driver)
		}
		if driver == StorageMinio && strings.TrimSpace(cfg.Storage.Endpoint) == "" {
			return fmt.Errorf("storage.endpoint is required when storage.driver is 'minio'")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("invalid storage.driver %q; allowed: minio, s3, memory", cfg.Storage.Driver)
	}
	cfg.Storage.Driver = driver
	if cfg.Storage.Region == "" {
		cfg.Storage.Region = "auto"
	}

	if cfg.Database.Enabled() {
		if cfg.Database.Port == "" {
			cfg.Database.Port = "5432"
		}
		if cfg.Database.SSLMode == "" {
			cfg.Database.SSLMode = "disable"
		}
		if cfg.Database.MaxConnections <= 0 {
			cfg.Database.MaxConnections = 5
		}
	}

	if cfg.Wizard.FirstYear == 0 {
		cfg.Wizard.FirstYear = defaultFirstYear
	}
	if cfg.Wizard.LastYear == 0 {
		cfg.Wizard.LastYear = defaultLastYear
	}
	if cfg.Wizard.FirstYear > cfg.Wizard.LastYear {
		return fmt.Errorf("wizard.first_year (%d) must not exceed wizard.last_year (%d)", cfg.Wizard.FirstYear, cfg.Wizard.LastYear)
	}
	// Discord select menus hold at most 25 options.
	if cfg.Wizard.LastYear-cfg.Wizard.FirstYear >= 25 {
		return fmt.Errorf("wizard year range must contain at most 25 seasons")
	}

	if strings.TrimSpace(cfg.Board.ChannelName) == "" {
		cfg.Board.ChannelName = defaultChannelName
	}
	cfg.Board.ImageBaseURL = strings.TrimRight(strings.TrimSpace(cfg.Board.ImageBaseURL), "/")

	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = defaultServiceName
	}

	allowed := map[string]struct{}{
		KindCommand:   {},
		KindComponent: {},
	}
	for i, v := range cfg.RateLimit.ExcludeKinds {
		kind := strings.ToLower(strings.TrimSpace(v))
		if kind == "" {
			continue
		}
		if _, ok := allowed[kind]; !ok {
			return fmt.Errorf("invalid rate_limit.exclude_kinds value %q; allowed: command, component", v)
		}
		cfg.RateLimit.ExcludeKinds[i] = kind
	}
	return nil
}
