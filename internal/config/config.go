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
	Fill   FillConfig   `yaml:"fill" mapstructure:"fill"`
	Batch  BatchConfig  `yaml:"batch" mapstructure:"batch"`
	Store  StoreConfig  `yaml:"store" mapstructure:"store"`
	Remote RemoteConfig `yaml:"remote" mapstructure:"remote"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// FillConfig configures template/map resolution behavior.
type FillConfig struct {
	TemplateSheet string `yaml:"template_sheet" mapstructure:"template_sheet"`
	LOVSheet      string `yaml:"lov_sheet" mapstructure:"lov_sheet"`
	Strict        bool   `yaml:"strict" mapstructure:"strict"`
	// Filename substrings used to auto-detect workbooks in an input directory.
	MapPattern       string   `yaml:"map_pattern" mapstructure:"map_pattern"`
	TemplatePatterns []string `yaml:"template_patterns" mapstructure:"template_patterns"`
	OverlayName      string   `yaml:"overlay_name" mapstructure:"overlay_name"`
}

// BatchConfig configures batch processing.
type BatchConfig struct {
	ParseConcurrency int    `yaml:"parse_concurrency" mapstructure:"parse_concurrency"`
	OutputName       string `yaml:"output_name" mapstructure:"output_name"`
}

// StoreConfig configures the run-history backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// RemoteConfig configures FTP retrieval of plan exports.
type RemoteConfig struct {
	Host     string `yaml:"host" mapstructure:"host"`
	User     string `yaml:"user" mapstructure:"user"`
	Password string `yaml:"password" mapstructure:"password"`
	Dir      string `yaml:"dir" mapstructure:"dir"`
}

// ServerConfig configures the job server.
type ServerConfig struct {
	Port            int     `yaml:"port" mapstructure:"port"`
	EventsPerSecond float64 `yaml:"events_per_second" mapstructure:"events_per_second"`
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
	v.SetEnvPrefix("PLANFILL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("fill.template_sheet", "Plan Express Data Points")
	v.SetDefault("fill.lov_sheet", "LOV")
	v.SetDefault("fill.strict", true)
	v.SetDefault("fill.map_pattern", "map")
	v.SetDefault("fill.template_patterns", []string{"data points", "tpa"})
	v.SetDefault("batch.parse_concurrency", 4)
	v.SetDefault("batch.output_name", "plan_express_filled_batch.csv")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "planfill.db")
	v.SetDefault("remote.dir", "/")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.events_per_second", 10)
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
