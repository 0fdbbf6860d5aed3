package config

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Apify   ApifyConfig   `yaml:"apify" mapstructure:"apify"`
	Search  SearchConfig  `yaml:"search" mapstructure:"search"`
	Sheet   SheetConfig   `yaml:"sheet" mapstructure:"sheet"`
	Enrich  EnrichConfig  `yaml:"enrich" mapstructure:"enrich"`
	Verify  VerifyConfig  `yaml:"verify" mapstructure:"verify"`
	Email   EmailConfig   `yaml:"email" mapstructure:"email"`
	Reviews ReviewsConfig `yaml:"reviews" mapstructure:"reviews"`
	Store   StoreConfig   `yaml:"store" mapstructure:"store"`
	Server  ServerConfig  `yaml:"server" mapstructure:"server"`
	Log     LogConfig     `yaml:"log" mapstructure:"log"`

	Monitoring MonitoringConfig `yaml:"monitoring" mapstructure:"monitoring"`
}

// ApifyConfig holds the scraping service credentials and polling bounds.
type ApifyConfig struct {
	Token               string `yaml:"token" mapstructure:"token"`
	BaseURL             string `yaml:"base_url" mapstructure:"base_url"`
	Actor               string `yaml:"actor" mapstructure:"actor"`
	PollIntervalSecs    int    `yaml:"poll_interval_secs" mapstructure:"poll_interval_secs"`
	PollMaxIntervalSecs int    `yaml:"poll_max_interval_secs" mapstructure:"poll_max_interval_secs"`
	PollMaxWaitSecs     int    `yaml:"poll_max_wait_secs" mapstructure:"poll_max_wait_secs"`
	StatusAttempts      int    `yaml:"status_attempts" mapstructure:"status_attempts"`
}

// PollInterval returns the initial interval between status checks.
func (c ApifyConfig) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSecs) * time.Second
}

// PollMaxInterval returns the cap on the interval between status checks.
func (c ApifyConfig) PollMaxInterval() time.Duration {
	return time.Duration(c.PollMaxIntervalSecs) * time.Second
}

// PollMaxWait returns the overall bound on waiting for a run.
func (c ApifyConfig) PollMaxWait() time.Duration {
	return time.Duration(c.PollMaxWaitSecs) * time.Second
}

// SearchConfig describes the places search submitted by the workflow.
type SearchConfig struct {
	Term       string `yaml:"term" mapstructure:"term"`
	Location   string `yaml:"location" mapstructure:"location"`
	MaxResults int    `yaml:"max_results" mapstructure:"max_results"`
	Language   string `yaml:"language" mapstructure:"language"`
}

// SheetConfig selects and configures the lead table backend.
type SheetConfig struct {
	Backend         string `yaml:"backend" mapstructure:"backend"`
	SpreadsheetID   string `yaml:"spreadsheet_id" mapstructure:"spreadsheet_id"`
	SheetName       string `yaml:"sheet_name" mapstructure:"sheet_name"`
	CredentialsFile string `yaml:"credentials_file" mapstructure:"credentials_file"`
	Path            string `yaml:"path" mapstructure:"path"`
}

// EnrichConfig configures website fetching for contact extraction.
type EnrichConfig struct {
	MaxConcurrent     int     `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// VerifyConfig configures social link verification.
type VerifyConfig struct {
	MaxConcurrent     int     `yaml:"max_concurrent" mapstructure:"max_concurrent"`
	TimeoutSecs       int     `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
}

// EmailConfig configures email validation.
type EmailConfig struct {
	CheckDomain    bool   `yaml:"check_domain" mapstructure:"check_domain"`
	DNSServer      string `yaml:"dns_server" mapstructure:"dns_server"`
	DNSTimeoutSecs int    `yaml:"dns_timeout_secs" mapstructure:"dns_timeout_secs"`
	MaxConcurrent  int    `yaml:"max_concurrent" mapstructure:"max_concurrent"`
}

// ReviewsConfig configures the place reviews scrape.
type ReviewsConfig struct {
	Actor      string `yaml:"actor" mapstructure:"actor"`
	MaxReviews int    `yaml:"max_reviews" mapstructure:"max_reviews"`
	Language   string `yaml:"language" mapstructure:"language"`
	Output     string `yaml:"output" mapstructure:"output"`
}

// StoreConfig configures the run history database.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// ServerConfig configures the webhook server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// MonitoringConfig configures run failure alerting in serve mode. Alerting
// is off while WebhookURL is empty.
type MonitoringConfig struct {
	WebhookURL           string  `yaml:"webhook_url" mapstructure:"webhook_url"`
	FailureRateThreshold float64 `yaml:"failure_rate_threshold" mapstructure:"failure_rate_threshold"`
	LookbackWindowHours  int     `yaml:"lookback_window_hours" mapstructure:"lookback_window_hours"`
	CheckIntervalSecs    int     `yaml:"check_interval_secs" mapstructure:"check_interval_secs"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Modes accepted by Validate.
const (
	ModeRun    = "run"
	ModeDedupe = "dedupe"
	ModeVerify = "verify"
	ModeEmails = "emails"
	ModeServe  = "serve"

	ModeReviews = "reviews"
)

// legacyEnv maps config keys to the bare environment names used by earlier
// deployments of the tool.
var legacyEnv = map[string]string{
	"apify.token":              "APIFY_TOKEN",
	"apify.poll_interval_secs": "POLL_INTERVAL",
	"sheet.spreadsheet_id":     "GOOGLE_SHEET_ID",
	"sheet.sheet_name":         "GOOGLE_SHEET_NAME",
	"search.term":              "SEARCH_TERM",
	"search.location":          "LOCATION",
	"search.max_results":       "MAX_RESULTS",
}

// Load reads configuration from .env, config.yaml and the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("LEADS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		prefixed := "LEADS_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, prefixed, legacy); err != nil {
			return nil, eris.Wrapf(err, "config: bind env %s", key)
		}
	}

	// Defaults
	v.SetDefault("apify.base_url", "https://api.apify.com/v2")
	v.SetDefault("apify.actor", "compass~crawler-google-places")
	v.SetDefault("apify.poll_interval_secs", 30)
	v.SetDefault("apify.poll_max_interval_secs", 120)
	v.SetDefault("apify.poll_max_wait_secs", 1800)
	v.SetDefault("apify.status_attempts", 1)
	v.SetDefault("search.term", "plumber")
	v.SetDefault("search.location", "Manchester, GB")
	v.SetDefault("search.max_results", 120)
	v.SetDefault("search.language", "en")
	v.SetDefault("sheet.backend", "google")
	v.SetDefault("sheet.sheet_name", "scraped_leads")
	v.SetDefault("sheet.credentials_file", "credentials.json")
	v.SetDefault("sheet.path", "")
	v.SetDefault("enrich.max_concurrent", 1)
	v.SetDefault("enrich.timeout_secs", 10)
	v.SetDefault("enrich.requests_per_second", 0)
	v.SetDefault("verify.max_concurrent", 1)
	v.SetDefault("verify.timeout_secs", 10)
	v.SetDefault("verify.requests_per_second", 2)
	v.SetDefault("email.check_domain", true)
	v.SetDefault("email.dns_server", "")
	v.SetDefault("email.dns_timeout_secs", 5)
	v.SetDefault("email.max_concurrent", 4)
	v.SetDefault("reviews.actor", "compass~google-maps-reviews-scraper")
	v.SetDefault("reviews.max_reviews", 100)
	v.SetDefault("reviews.language", "en")
	v.SetDefault("reviews.output", "reviews.json")
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "leads.db")
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("monitoring.failure_rate_threshold", 0.5)
	v.SetDefault("monitoring.lookback_window_hours", 24)
	v.SetDefault("monitoring.check_interval_secs", 300)

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

// Validate checks that the values required by mode are present and that
// numeric settings are in range.
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case ModeRun, ModeServe:
		if c.Apify.Token == "" {
			errs = append(errs, "apify.token is required (APIFY_TOKEN)")
		}
		if strings.TrimSpace(c.Search.Term) == "" {
			errs = append(errs, "search.term is required")
		}
		if c.Search.MaxResults <= 0 {
			errs = append(errs, "search.max_results must be > 0")
		}
		if mode == ModeServe && c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
	case ModeDedupe, ModeVerify, ModeEmails:
	case ModeReviews:
		// Reviews never touch the sheet.
		if c.Apify.Token == "" {
			errs = append(errs, "apify.token is required (APIFY_TOKEN)")
		}
		if c.Reviews.MaxReviews < 1 || c.Reviews.MaxReviews > 1000 {
			errs = append(errs, "reviews.max_reviews must be between 1 and 1000")
		}
		return joinErrs(errs)
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	switch c.Sheet.Backend {
	case "google":
		if c.Sheet.SpreadsheetID == "" {
			errs = append(errs, "sheet.spreadsheet_id is required (GOOGLE_SHEET_ID)")
		}
		if c.Sheet.SheetName == "" {
			errs = append(errs, "sheet.sheet_name is required")
		}
	case "csv", "xlsx":
		if c.Sheet.Path == "" {
			errs = append(errs, "sheet.path is required for the "+c.Sheet.Backend+" backend")
		}
	default:
		errs = append(errs, fmt.Sprintf("sheet.backend %q is not one of google, csv, xlsx", c.Sheet.Backend))
	}

	for name, n := range map[string]int{
		"enrich.max_concurrent": c.Enrich.MaxConcurrent,
		"verify.max_concurrent": c.Verify.MaxConcurrent,
		"email.max_concurrent":  c.Email.MaxConcurrent,
	} {
		if n < 1 || n > 32 {
			errs = append(errs, name+" must be between 1 and 32")
		}
	}

	return joinErrs(errs)
}

func joinErrs(errs []string) error {
	if len(errs) == 0 {
		return nil
	}
	sort.Strings(errs)
	return eris.Errorf("config: %s", strings.Join(errs, "; "))
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
