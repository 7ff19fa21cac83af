package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. FINGEST_DATABASE_PATH.
const EnvPrefix = "FINGEST"

// Config represents the application configuration
type Config struct {
	Database   DatabaseConfig   `mapstructure:"database"`
	Storage    StorageConfig    `mapstructure:"storage"`
	Classifier ClassifierConfig `mapstructure:"classifier"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Budget     BudgetConfig     `mapstructure:"budget"`
	Notion     NotionConfig     `mapstructure:"notion"`
	BigQuery   BigQueryConfig   `mapstructure:"bigquery"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Log        LogConfig        `mapstructure:"log"`

	DefaultCurrency string `mapstructure:"default_currency"`
}

type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// StorageConfig selects where uploaded files live. A non-empty GCSBucket
// takes precedence over UploadDir.
type StorageConfig struct {
	UploadDir string `mapstructure:"upload_dir"`
	GCSBucket string `mapstructure:"gcs_bucket"`
}

type ClassifierConfig struct {
	ModelPath string `mapstructure:"model_path"`
}

// ExtractionConfig controls the field extractors and OCR.
type ExtractionConfig struct {
	GeminiEnabled  bool   `mapstructure:"gemini_enabled"`
	GeminiModel    string `mapstructure:"gemini_model"`
	GeminiProject  string `mapstructure:"gemini_project"`
	GeminiLocation string `mapstructure:"gemini_location"`
	TesseractPath  string `mapstructure:"tesseract_path"`
}

// BudgetConfig controls synchronization and threshold alerts.
type BudgetConfig struct {
	AutoCreate      bool    `mapstructure:"auto_create"`
	WarningPercent  float64 `mapstructure:"warning_percent"`
	ExceededPercent float64 `mapstructure:"exceeded_percent"`
}

// NotionConfig configures the Notion mirror. DatabaseID receives transactions,
// NotificationsDatabaseID (optional) receives notification events.
type NotionConfig struct {
	Token                   string `mapstructure:"token"`
	DatabaseID              string `mapstructure:"database_id"`
	NotificationsDatabaseID string `mapstructure:"notifications_database_id"`
}

type BigQueryConfig struct {
	ProjectID string `mapstructure:"project_id"`
	Dataset   string `mapstructure:"dataset"`
}

type WorkerConfig struct {
	PollInterval time.Duration `mapstructure:"poll_interval"`
	Concurrency  int           `mapstructure:"concurrency"`
	MaxRetries   int           `mapstructure:"max_retries"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "fingest.db")
	v.SetDefault("storage.upload_dir", "uploads")
	v.SetDefault("storage.gcs_bucket", "")
	v.SetDefault("classifier.model_path", "category_model.json")
	v.SetDefault("default_currency", "INR")
	v.SetDefault("extraction.gemini_enabled", false)
	v.SetDefault("extraction.gemini_model", "gemini-2.5-flash")
	v.SetDefault("extraction.gemini_project", "")
	v.SetDefault("extraction.gemini_location", "us-central1")
	v.SetDefault("extraction.tesseract_path", "tesseract")
	v.SetDefault("budget.auto_create", false)
	v.SetDefault("budget.warning_percent", 80.0)
	v.SetDefault("budget.exceeded_percent", 100.0)
	v.SetDefault("notion.token", "")
	v.SetDefault("notion.database_id", "")
	v.SetDefault("notion.notifications_database_id", "")
	v.SetDefault("bigquery.project_id", "")
	v.SetDefault("bigquery.dataset", "finance")
	v.SetDefault("worker.poll_interval", "30s")
	v.SetDefault("worker.concurrency", 2)
	v.SetDefault("worker.max_retries", 3)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// LoadConfig loads configuration from file and environment variables.
// An empty configPath yields defaults plus environment overrides.
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

// Validate checks values viper cannot type-check.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("config: database.path must be set")
	}
	if c.Budget.WarningPercent <= 0 || c.Budget.WarningPercent > c.Budget.ExceededPercent {
		return fmt.Errorf("config: budget.warning_percent must be in (0, exceeded_percent], got %v", c.Budget.WarningPercent)
	}
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("config: worker.concurrency must be positive, got %d", c.Worker.Concurrency)
	}
	if c.Worker.PollInterval <= 0 {
		return fmt.Errorf("config: worker.poll_interval must be positive")
	}
	return nil
}

// NotionEnabled reports whether the Notion mirror is configured.
func (c *Config) NotionEnabled() bool {
	return c.Notion.Token != "" && c.Notion.DatabaseID != ""
}

// BigQueryEnabled reports whether the warehouse is configured.
func (c *Config) BigQueryEnabled() bool {
	return c.BigQuery.ProjectID != ""
}
