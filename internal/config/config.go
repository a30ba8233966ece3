package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig       `mapstructure:"server"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Sync         SyncConfig         `mapstructure:"sync"`
	Cache        CacheConfig        `mapstructure:"cache"`
	Marketplaces MarketplacesConfig `mapstructure:"marketplaces"`
	Archive      ArchiveConfig      `mapstructure:"archive"`
}

type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	Mode           string   `mapstructure:"mode"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

type DatabaseConfig struct {
	Driver          string        `mapstructure:"driver"`
	Path            string        `mapstructure:"path"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN renders the driver-appropriate connection string.
func (c *DatabaseConfig) DSN() string {
	if c.Driver == "postgres" {
		return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
	}
	return c.Path
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Enabled  bool   `mapstructure:"enabled"`
}

type SyncConfig struct {
	Workers         int           `mapstructure:"workers"`
	PageSize        int           `mapstructure:"page_size"`
	ItemConcurrency int           `mapstructure:"item_concurrency"`
	RetryCount      int           `mapstructure:"retry_count"`
	RetryBackoff    time.Duration `mapstructure:"retry_backoff"`
	PollInterval    time.Duration `mapstructure:"poll_interval"`
	LockTTL         time.Duration `mapstructure:"lock_ttl"`
	LeaseMaxAge     time.Duration `mapstructure:"lease_max_age"`
}

type CacheConfig struct {
	TTLHours       int `mapstructure:"ttl_hours"`
	ProbeBatchSize int `mapstructure:"probe_batch_size"`
}

type MarketplacesConfig struct {
	Shopify ShopifyConfig `mapstructure:"shopify"`
	VTEX    VTEXConfig    `mapstructure:"vtex"`
}

type ShopifyConfig struct {
	APIVersion        string  `mapstructure:"api_version"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type VTEXConfig struct {
	Environment       string  `mapstructure:"environment"`
	RequestsPerSecond float64 `mapstructure:"requests_per_second"`
	Burst             int     `mapstructure:"burst"`
}

type ArchiveConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

	// Set config file path
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./configs")
		v.AddConfigPath(".")
	}

	// Enable environment variable override
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set defaults
	v.SetDefault("server.port", 8081)
	v.SetDefault("server.mode", "release")
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/marketsync.db")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.ssl_mode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 20)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.enabled", true)
	v.SetDefault("sync.workers", 5)
	v.SetDefault("sync.page_size", 50)
	v.SetDefault("sync.item_concurrency", 5)
	v.SetDefault("sync.retry_count", 3)
	v.SetDefault("sync.retry_backoff", 500*time.Millisecond)
	v.SetDefault("sync.poll_interval", 2*time.Second)
	v.SetDefault("sync.lock_ttl", 2*time.Hour)
	v.SetDefault("sync.lease_max_age", 2*time.Hour)
	v.SetDefault("cache.ttl_hours", 24)
	v.SetDefault("cache.probe_batch_size", 5)
	v.SetDefault("marketplaces.shopify.api_version", "2024-07")
	v.SetDefault("marketplaces.shopify.requests_per_second", 2)
	v.SetDefault("marketplaces.shopify.burst", 4)
	v.SetDefault("marketplaces.vtex.environment", "vtexcommercestable")
	v.SetDefault("marketplaces.vtex.requests_per_second", 5)
	v.SetDefault("marketplaces.vtex.burst", 10)
	v.SetDefault("archive.enabled", false)
	v.SetDefault("archive.use_ssl", true)
	v.SetDefault("archive.bucket", "marketsync-raw")

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	v.BindEnv("database.driver", "DB_DRIVER")
	v.BindEnv("database.host", "DB_HOST")
	v.BindEnv("database.port", "DB_PORT")
	v.BindEnv("database.user", "DB_USER")
	v.BindEnv("database.password", "DB_PASSWORD")
	v.BindEnv("database.name", "DB_NAME")
	v.BindEnv("redis.addr", "REDIS_ADDR")
	v.BindEnv("redis.password", "REDIS_PASSWORD")
	v.BindEnv("archive.endpoint", "ARCHIVE_ENDPOINT")
	v.BindEnv("archive.access_key", "ARCHIVE_ACCESS_KEY")
	v.BindEnv("archive.secret_key", "ARCHIVE_SECRET_KEY")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
