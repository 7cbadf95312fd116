package config

import (
	"fmt"
	"os"
	"reflect"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"

	"github.com/ncecere/fedramp_marketplace/internal/models"
)

// Catalog snapshot sources.
const (
	SourceConfig   = "config"
	SourcePostgres = "postgres"
	SourceBlob     = "blob"
)

// Config captures the runtime configuration for the catalog service.
type Config struct {
	Server        ServerConfig        `mapstructure:"server"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Redis         RedisConfig         `mapstructure:"redis"`
	Storage       StorageConfig       `mapstructure:"storage"`
	Catalog       CatalogConfig       `mapstructure:"catalog"`
	Admin         AdminConfig         `mapstructure:"admin"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type ServerConfig struct {
	ListenAddr            string          `mapstructure:"listen_addr"`
	BodyLimitMB           int             `mapstructure:"body_limit_mb"`
	ReadTimeout           time.Duration   `mapstructure:"read_timeout"`
	IdleTimeout           time.Duration   `mapstructure:"idle_timeout"`
	GracefulShutdownDelay time.Duration   `mapstructure:"graceful_shutdown_delay"`
	MaxRequestedProducts  int             `mapstructure:"max_requested_products"`
	RateLimit             RateLimitConfig `mapstructure:"rate_limit"`
}

// RateLimitConfig bounds per-client use of the /v1 API. Limits need redis;
// zero disables a limit.
type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"requests_per_minute"`
	ParallelRequests  int `mapstructure:"parallel_requests"`
	ProductsPerMinute int `mapstructure:"products_per_minute"`
}

func (r RateLimitConfig) Enabled() bool {
	return r.RequestsPerMinute > 0 || r.ParallelRequests > 0 || r.ProductsPerMinute > 0
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type DatabaseConfig struct {
	URL             string        `mapstructure:"url"`
	RunMigrations   bool          `mapstructure:"run_migrations"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MinConns        int32         `mapstructure:"min_conns"`
}

type RedisConfig struct {
	URL      string `mapstructure:"url"`
	DB       int    `mapstructure:"db"`
	PoolSize int    `mapstructure:"pool_size"`
}

type StorageConfig struct {
	Backend string             `mapstructure:"backend"`
	S3      StorageS3Config    `mapstructure:"s3"`
	Local   StorageLocalConfig `mapstructure:"local"`
}

type StorageS3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	UsePathStyle    bool   `mapstructure:"use_path_style"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

type StorageLocalConfig struct {
	Directory string `mapstructure:"directory"`
}

// CatalogConfig selects where the catalog snapshot comes from. Providers,
// Products and Agencies hold the inline catalog used by the config source and
// by the seed and publish commands.
type CatalogConfig struct {
	Source          string                 `mapstructure:"source"`
	BlobKey         string                 `mapstructure:"blob_key"`
	RefreshInterval time.Duration          `mapstructure:"refresh_interval"`
	CacheTTL        time.Duration          `mapstructure:"cache_ttl"`
	Providers       []models.Provider      `mapstructure:"providers"`
	Products        []models.Product       `mapstructure:"products"`
	Agencies        []models.AgencyOptions `mapstructure:"agencies"`
}

// AdminConfig guards the /v1/admin routes. An empty TokenSecret disables
// them.
type AdminConfig struct {
	TokenSecret string        `mapstructure:"token_secret"`
	TokenTTL    time.Duration `mapstructure:"token_ttl"`
	Issuer      string        `mapstructure:"issuer"`
}

func (a AdminConfig) Enabled() bool {
	return strings.TrimSpace(a.TokenSecret) != ""
}

type ObservabilityConfig struct {
	ServiceName   string `mapstructure:"service_name"`
	OTLPEndpoint  string `mapstructure:"otlp_endpoint"`
	EnableOTLP    bool   `mapstructure:"enable_otlp"`
	EnableMetrics bool   `mapstructure:"enable_metrics"`
}

// Options controls the config loader behavior.
type Options struct {
	ConfigFile string
	EnvFile    string
}

// Load returns the merged configuration sourced from YAML and environment variables.
func Load(opts Options) (*Config, error) {
	if opts.EnvFile != "" {
		_ = godotenv.Load(opts.EnvFile)
	} else {
		_ = godotenv.Load()
	}

	v := viper.New()
	setDefaults(v)

	explicitFile := false
	if opts.ConfigFile != "" {
		v.SetConfigFile(opts.ConfigFile)
		explicitFile = true
	} else if cfg := os.Getenv("CATALOG_CONFIG_FILE"); cfg != "" {
		v.SetConfigFile(cfg)
		explicitFile = true
	}

	if !explicitFile {
		v.SetConfigName("catalog")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	v.SetEnvPrefix("CATALOG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(timeStringToDurationHook())); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate ensures required values are set and fills derived defaults.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.ListenAddr) == "" {
		return fmt.Errorf("server.listen_addr must be provided")
	}
	if c.Server.BodyLimitMB <= 0 {
		c.Server.BodyLimitMB = 1
	}
	if c.Server.MaxRequestedProducts < 0 {
		return fmt.Errorf("server.max_requested_products must be >= 0")
	}
	if rl := c.Server.RateLimit; rl.RequestsPerMinute < 0 || rl.ParallelRequests < 0 || rl.ProductsPerMinute < 0 {
		return fmt.Errorf("server.rate_limit values must be >= 0")
	}

	switch strings.ToLower(strings.TrimSpace(c.Logging.Level)) {
	case "", "info":
		c.Logging.Level = "info"
	case "debug", "warn", "error":
		c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	default:
		return fmt.Errorf("logging.level must be debug, info, warn or error")
	}
	switch strings.ToLower(strings.TrimSpace(c.Logging.Format)) {
	case "", "json":
		c.Logging.Format = "json"
	case "text":
		c.Logging.Format = "text"
	default:
		return fmt.Errorf("logging.format must be json or text")
	}

	if c.Database.RunMigrations && c.Database.MigrationsDir == "" {
		return fmt.Errorf("database.migrations_dir must be provided when run_migrations is true")
	}
	if c.Database.MaxConns < 0 {
		return fmt.Errorf("database.max_conns must be >= 0")
	}
	if c.Redis.PoolSize < 0 {
		return fmt.Errorf("redis.pool_size must be >= 0")
	}

	if c.Admin.Enabled() && len(c.Admin.TokenSecret) < 16 {
		return fmt.Errorf("admin.token_secret must be at least 16 characters")
	}
	if c.Admin.TokenTTL <= 0 {
		c.Admin.TokenTTL = time.Hour
	}
	if strings.TrimSpace(c.Admin.Issuer) == "" {
		c.Admin.Issuer = "fedramp-marketplace"
	}

	if err := c.Storage.validate(); err != nil {
		return err
	}
	return c.Catalog.validate(c)
}

func (s *StorageConfig) validate() error {
	backend := strings.ToLower(strings.TrimSpace(s.Backend))
	switch backend {
	case "", "local":
		s.Backend = "local"
		if strings.TrimSpace(s.Local.Directory) == "" {
			s.Local.Directory = "./data/catalog"
		}
	case "s3":
		s.Backend = "s3"
		if strings.TrimSpace(s.S3.Bucket) == "" {
			return fmt.Errorf("storage.s3.bucket must be provided for s3 storage")
		}
		if (s.S3.AccessKeyID == "") != (s.S3.SecretAccessKey == "") {
			return fmt.Errorf("storage.s3.access_key_id and storage.s3.secret_access_key must be set together")
		}
	default:
		return fmt.Errorf("storage.backend must be local or s3")
	}
	return nil
}

func (c *CatalogConfig) validate(root *Config) error {
	c.Source = strings.ToLower(strings.TrimSpace(c.Source))
	switch c.Source {
	case "":
		c.Source = SourceConfig
	case SourceConfig, SourceBlob:
	case SourcePostgres:
		if root.Database.URL == "" {
			return fmt.Errorf("missing required configuration: CATALOG_DATABASE_URL (catalog.source is postgres)")
		}
	default:
		return fmt.Errorf("catalog.source must be config, postgres or blob")
	}
	if strings.TrimSpace(c.BlobKey) == "" {
		c.BlobKey = "catalog/snapshot.json"
	}
	if c.RefreshInterval < 0 {
		return fmt.Errorf("catalog.refresh_interval must be >= 0")
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = 5 * time.Minute
	}

	for i, provider := range c.Providers {
		if strings.TrimSpace(provider.Name) == "" {
			return fmt.Errorf("catalog.providers[%d].name must be provided", i)
		}
	}
	for i, product := range c.Products {
		if strings.TrimSpace(product.Name) == "" {
			return fmt.Errorf("catalog.products[%d].name must be provided", i)
		}
	}
	for i, agency := range c.Agencies {
		if strings.TrimSpace(agency.Name) == "" {
			return fmt.Errorf("catalog.agencies[%d].name must be provided", i)
		}
		if agency.Reuses < 0 || agency.Sponsored < 0 || agency.Authorized < 0 {
			return fmt.Errorf("catalog.agencies[%d] counters must be >= 0", i)
		}
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.listen_addr", ":8080")
	v.SetDefault("server.body_limit_mb", 1)
	v.SetDefault("server.read_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.graceful_shutdown_delay", "5s")
	v.SetDefault("server.max_requested_products", 500)
	v.SetDefault("server.rate_limit.requests_per_minute", 0)
	v.SetDefault("server.rate_limit.parallel_requests", 0)
	v.SetDefault("server.rate_limit.products_per_minute", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("database.url", "")
	v.SetDefault("database.run_migrations", false)
	v.SetDefault("database.migrations_dir", "./migrations")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_idle_time", "10m")
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("redis.url", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.local.directory", "./data/catalog")
	v.SetDefault("storage.s3.bucket", "")
	v.SetDefault("storage.s3.prefix", "")
	v.SetDefault("storage.s3.region", "")
	v.SetDefault("storage.s3.endpoint", "")
	v.SetDefault("storage.s3.use_path_style", false)
	v.SetDefault("storage.s3.access_key_id", "")
	v.SetDefault("storage.s3.secret_access_key", "")

	v.SetDefault("catalog.source", SourceConfig)
	v.SetDefault("catalog.blob_key", "catalog/snapshot.json")
	v.SetDefault("catalog.refresh_interval", "0s")
	v.SetDefault("catalog.cache_ttl", "5m")

	v.SetDefault("admin.token_secret", "")
	v.SetDefault("admin.token_ttl", "1h")
	v.SetDefault("admin.issuer", "fedramp-marketplace")

	v.SetDefault("observability.service_name", "fedramp-marketplace")
	v.SetDefault("observability.enable_otlp", false)
	v.SetDefault("observability.enable_metrics", true)
	v.SetDefault("observability.otlp_endpoint", "http://localhost:4317")
}

func timeStringToDurationHook() mapstructure.DecodeHookFunc {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != reflect.TypeOf(time.Duration(0)) {
			return data, nil
		}

		switch v := data.(type) {
		case time.Duration:
			return v, nil
		case string:
			d, err := time.ParseDuration(v)
			if err != nil {
				return nil, err
			}
			return d, nil
		case int:
			return time.Duration(v) * time.Second, nil
		default:
			return nil, fmt.Errorf("cannot decode %T into time.Duration", data)
		}
	}
}
