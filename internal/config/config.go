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
	Store    StoreConfig    `yaml:"store" mapstructure:"store"`
	Objstore ObjstoreConfig `yaml:"objstore" mapstructure:"objstore"`
	OCR      OCRConfig      `yaml:"ocr" mapstructure:"ocr"`
	Vision   VisionConfig   `yaml:"vision" mapstructure:"vision"`
	Jobs     JobsConfig     `yaml:"jobs" mapstructure:"jobs"`
	Sync     SyncConfig     `yaml:"sync" mapstructure:"sync"`
	Batch    BatchConfig    `yaml:"batch" mapstructure:"batch"`
	Scan     ScanConfig     `yaml:"scan" mapstructure:"scan"`
	Server   ServerConfig   `yaml:"server" mapstructure:"server"`
	Log      LogConfig      `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	SQLitePath  string `yaml:"sqlite_path" mapstructure:"sqlite_path"`
}

// ObjstoreConfig configures the remote object store for screenshot bytes.
type ObjstoreConfig struct {
	Provider  string `yaml:"provider" mapstructure:"provider"` // "s3" or "fs"
	Endpoint  string `yaml:"endpoint" mapstructure:"endpoint"`
	Region    string `yaml:"region" mapstructure:"region"`
	Bucket    string `yaml:"bucket" mapstructure:"bucket"`
	AccessKey string `yaml:"access_key" mapstructure:"access_key"`
	SecretKey string `yaml:"secret_key" mapstructure:"secret_key"`
	CDNURL    string `yaml:"cdn_url" mapstructure:"cdn_url"`
	LocalDir  string `yaml:"local_dir" mapstructure:"local_dir"`
}

// OCRConfig configures screenshot text extraction.
type OCRConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"` // "tesseract" or "mistral"
	TesseractPath string `yaml:"tesseract_path" mapstructure:"tesseract_path"`
	Languages     string `yaml:"languages" mapstructure:"languages"`
	MistralKey    string `yaml:"mistral_api_key" mapstructure:"mistral_api_key"`
	MistralModel  string `yaml:"mistral_ocr_model" mapstructure:"mistral_ocr_model"`
}

// VisionConfig configures the optional vision classifier. An empty key
// disables the classifier without blocking the pipeline.
type VisionConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int64  `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// JobsConfig configures the background job runner.
type JobsConfig struct {
	Broker              string `yaml:"broker" mapstructure:"broker"` // "inline" or "nats"
	NATSURL             string `yaml:"nats_url" mapstructure:"nats_url"`
	AnalysisConcurrency int    `yaml:"analysis_concurrency" mapstructure:"analysis_concurrency"`
	SyncConcurrency     int    `yaml:"sync_concurrency" mapstructure:"sync_concurrency"`
	ScanConcurrency     int    `yaml:"scan_concurrency" mapstructure:"scan_concurrency"`
}

// SyncConfig configures the upload engine.
type SyncConfig struct {
	UploadConcurrency int `yaml:"upload_concurrency" mapstructure:"upload_concurrency"`
}

// BatchConfig configures batch arbitration pacing.
type BatchConfig struct {
	PaceEvery   int `yaml:"pace_every" mapstructure:"pace_every"`
	PaceDelayMs int `yaml:"pace_delay_ms" mapstructure:"pace_delay_ms"`
}

// ScanConfig configures directory scanning.
type ScanConfig struct {
	Root string `yaml:"root" mapstructure:"root"`
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
	v.SetEnvPrefix("LENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.sqlite_path", "competitor-lens.db")
	v.SetDefault("objstore.provider", "s3")
	v.SetDefault("objstore.region", "eu-central-1")
	v.SetDefault("objstore.bucket", "competitor-lens-screenshots")
	v.SetDefault("ocr.provider", "tesseract")
	v.SetDefault("ocr.tesseract_path", "tesseract")
	v.SetDefault("ocr.languages", "tur+eng")
	v.SetDefault("ocr.mistral_ocr_model", "pixtral-large-latest")
	v.SetDefault("vision.model", "claude-haiku-4-5-20251001")
	v.SetDefault("vision.max_tokens", 300)
	v.SetDefault("jobs.broker", "inline")
	v.SetDefault("jobs.nats_url", "nats://localhost:4222")
	v.SetDefault("jobs.analysis_concurrency", 5)
	v.SetDefault("jobs.sync_concurrency", 1)
	v.SetDefault("jobs.scan_concurrency", 1)
	v.SetDefault("sync.upload_concurrency", 5)
	v.SetDefault("batch.pace_every", 10)
	v.SetDefault("batch.pace_delay_ms", 100)
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
