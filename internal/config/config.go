package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Channels ChannelsConfig `yaml:"channels" mapstructure:"channels"`
	Source   SourceConfig   `yaml:"source" mapstructure:"source"`
	Archive  ArchiveConfig  `yaml:"archive" mapstructure:"archive"`
	Collage  CollageConfig  `yaml:"collage" mapstructure:"collage"`
	Storage  StorageConfig  `yaml:"storage" mapstructure:"storage"`
	Search   SearchConfig   `yaml:"search" mapstructure:"search"`
	Notion   NotionConfig   `yaml:"notion" mapstructure:"notion"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// ChannelsConfig names the source channels per listing kind.
type ChannelsConfig struct {
	Base      string `yaml:"base" mapstructure:"base"`
	Office    string `yaml:"office" mapstructure:"office"`
	Warehouse string `yaml:"warehouse" mapstructure:"warehouse"`
}

// SourceConfig tunes the channel web preview scraper.
type SourceConfig struct {
	MaxPages       int     `yaml:"max_pages" mapstructure:"max_pages"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
	TimeoutSecs    int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
}

// ArchiveConfig configures the posting archive backend.
type ArchiveConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	ReadLimit   int    `yaml:"read_limit" mapstructure:"read_limit"`
}

// CollageConfig configures collage rendering and local caching.
type CollageConfig struct {
	Width             int    `yaml:"width" mapstructure:"width"`
	Height            int    `yaml:"height" mapstructure:"height"`
	Quality           int    `yaml:"quality" mapstructure:"quality"`
	Dir               string `yaml:"dir" mapstructure:"dir"`
	IndexPath         string `yaml:"index_path" mapstructure:"index_path"`
	RemoteFolder      string `yaml:"remote_folder" mapstructure:"remote_folder"`
	MaxParallelPhotos int64  `yaml:"max_parallel_photos" mapstructure:"max_parallel_photos"`
}

// StorageConfig holds the remote FTP tier credentials. An empty Addr
// disables the remote tier entirely.
type StorageConfig struct {
	Addr       string `yaml:"addr" mapstructure:"addr"`
	User       string `yaml:"user" mapstructure:"user"`
	Password   string `yaml:"password" mapstructure:"password"`
	PublicBase string `yaml:"public_base" mapstructure:"public_base"`
}

// SearchConfig tunes result presentation.
type SearchConfig struct {
	PageSize int `yaml:"page_size" mapstructure:"page_size"`
}

// NotionConfig holds Notion export credentials.
type NotionConfig struct {
	Token   string `yaml:"token" mapstructure:"token"`
	OfferDB string `yaml:"offer_db" mapstructure:"offer_db"`
}

// ServerConfig configures the HTTP API server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("RENTSCOUT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("channels.base", "https://t.me")
	v.SetDefault("channels.office", "KyivOfficeRent")
	v.SetDefault("channels.warehouse", "KievSKLAD123")
	v.SetDefault("source.max_pages", 5)
	v.SetDefault("source.requests_per_sec", 1)
	v.SetDefault("source.timeout_secs", 30)
	v.SetDefault("archive.driver", "sqlite")
	v.SetDefault("archive.database_url", "rentscout.db")
	v.SetDefault("archive.read_limit", 200)
	v.SetDefault("collage.width", 1280)
	v.SetDefault("collage.height", 720)
	v.SetDefault("collage.quality", 85)
	v.SetDefault("collage.dir", "temp_collages")
	v.SetDefault("collage.index_path", "collage_url_cache.yaml")
	v.SetDefault("collage.remote_folder", "collages")
	v.SetDefault("collage.max_parallel_photos", 6)
	v.SetDefault("search.page_size", 5)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// Validate checks that the configuration can support the given run mode.
// Problems are collected so one run reports everything that is missing.
func (c *Config) Validate(mode string) error {
	var problems []string

	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	check(c.Channels.Office != "", "channels.office is required")
	check(c.Channels.Warehouse != "", "channels.warehouse is required")
	check(c.Search.PageSize >= 1 && c.Search.PageSize <= 50, "search.page_size must be between 1 and 50")

	switch mode {
	case "search", "warm":
		check(c.Archive.DatabaseURL != "", "archive.database_url is required")
	case "serve":
		check(c.Archive.DatabaseURL != "", "archive.database_url is required")
		check(c.Server.Port > 0, "server.port must be > 0")
	case "export":
		check(c.Archive.DatabaseURL != "", "archive.database_url is required")
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if len(problems) > 0 {
		return eris.Errorf("config: %s", strings.Join(problems, "; "))
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
