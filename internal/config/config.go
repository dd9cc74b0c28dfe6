package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Storage  StorageConfig  `mapstructure:"storage"`
	Feed     FeedConfig     `mapstructure:"feed"`
	Importer ImporterConfig `mapstructure:"importer"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port int        `mapstructure:"port"`
	Mode string     `mapstructure:"mode"`
	CORS CORSConfig `mapstructure:"cors"`
}

type CORSConfig struct {
	AllowedOrigins  []string `mapstructure:"allowed_origins"`
	AllowAllOrigins bool     `mapstructure:"allow_all_origins"`
}

// DatabaseConfig selects the gorm driver. Driver is "sqlite" (Path) or
// "postgres" (Host, Port, User, Password, DBName, SSLMode).
type DatabaseConfig struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`

	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	AutoMigrate     bool          `mapstructure:"auto_migrate"`
}

// DSN returns the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// StorageConfig configures object storage for image assets and staged datasets.
type StorageConfig struct {
	Type      string `mapstructure:"type"` // local, s3, r2, s3compatible
	Root      string `mapstructure:"root"` // local only
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Bucket    string `mapstructure:"bucket"`
	Region    string `mapstructure:"region"`
	PublicURL string `mapstructure:"public_url"`
	KeyPrefix string `mapstructure:"key_prefix"` // s3 only, shared buckets
}

// FeedConfig configures the vendor feed transport. URL, BatchSize and
// AutoImport seed the persisted feed source on first start.
type FeedConfig struct {
	URL        string        `mapstructure:"url"`
	Timeout    time.Duration `mapstructure:"timeout"`
	BatchSize  int           `mapstructure:"batch_size"`
	AutoImport bool          `mapstructure:"auto_import"`
	UserAgent  string        `mapstructure:"user_agent"`
}

type ImporterConfig struct {
	StepDelay     time.Duration `mapstructure:"step_delay"`
	DailyAt       string        `mapstructure:"daily_at"`
	ImageTimeout  time.Duration `mapstructure:"image_timeout"`
	ShippingClass string        `mapstructure:"shipping_class"`
	MetaPrefix    string        `mapstructure:"meta_prefix"`
	TaxRate       float64       `mapstructure:"tax_rate"`
}

// DailyTime parses DailyAt ("HH:MM") into hour and minute.
func (c ImporterConfig) DailyTime() (hour, minute int, err error) {
	t, err := time.Parse("15:04", c.DailyAt)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid importer.daily_at %q: %w", c.DailyAt, err)
	}
	return t.Hour(), t.Minute(), nil
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Format      string `mapstructure:"format"`
	File        string `mapstructure:"file"`
	FileOnly    bool   `mapstructure:"file_only"`
	MaxSize     int    `mapstructure:"max_size"`
	MaxBackups  int    `mapstructure:"max_backups"`
	MaxAge      int    `mapstructure:"max_age"`
	Compress    bool   `mapstructure:"compress"`
	ImportDir   string `mapstructure:"import_dir"`
	ImportLevel string `mapstructure:"import_level"`
	Retention   int    `mapstructure:"retention"`
}

func Load(configPath string) (*Config, error) {
	// Load .env file if exists
	_ = godotenv.Load()

	v := viper.New()

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

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Bind environment variables explicitly for sensitive data
	_ = v.BindEnv("database.password", "DATABASE_PASSWORD")
	_ = v.BindEnv("storage.access_key", "STORAGE_ACCESS_KEY")
	_ = v.BindEnv("storage.secret_key", "STORAGE_SECRET_KEY")
	_ = v.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	_ = v.BindEnv("feed.url", "FEED_URL")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.mode", "debug")
	v.SetDefault("server.cors.allow_all_origins", true)
	v.SetDefault("server.cors.allowed_origins", []string{})
	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.path", "./data/catalog.db")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.auto_migrate", true)
	v.SetDefault("storage.type", "local")
	v.SetDefault("storage.root", "./data/objects")
	v.SetDefault("storage.bucket", "catalog")
	v.SetDefault("feed.url", "")
	v.SetDefault("feed.timeout", 30*time.Second)
	v.SetDefault("feed.batch_size", 50)
	v.SetDefault("feed.auto_import", false)
	v.SetDefault("feed.user_agent", "catalogsync/1.0")
	v.SetDefault("importer.step_delay", 2*time.Second)
	v.SetDefault("importer.daily_at", "03:00")
	v.SetDefault("importer.image_timeout", 30*time.Second)
	v.SetDefault("importer.shipping_class", "juta")
	v.SetDefault("importer.meta_prefix", "juta_")
	v.SetDefault("importer.tax_rate", 0.21)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("log.file", "")
	v.SetDefault("log.file_only", false)
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 7)
	v.SetDefault("log.max_age", 30)
	v.SetDefault("log.compress", true)
	v.SetDefault("log.import_dir", "./data/import-logs")
	v.SetDefault("log.import_level", "debug")
	v.SetDefault("log.retention", 7)
}

// Validate checks values the importer cannot run with.
func (c *Config) Validate() error {
	if c.Feed.BatchSize < 1 || c.Feed.BatchSize > 1000 {
		return fmt.Errorf("feed.batch_size must be between 1 and 1000, got %d", c.Feed.BatchSize)
	}
	if c.Feed.URL != "" {
		if err := ValidateFeedURL(c.Feed.URL); err != nil {
			return err
		}
	}
	if _, _, err := c.Importer.DailyTime(); err != nil {
		return err
	}
	if c.Importer.TaxRate < 0 {
		return fmt.Errorf("importer.tax_rate must not be negative")
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	return nil
}

// ValidateFeedURL accepts absolute http(s) URLs only.
func ValidateFeedURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("invalid feed url %q", raw)
	}
	return nil
}
