package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/samvad-hq/samvad-social-poster/internal/errors"
	"github.com/samvad-hq/samvad-social-poster/pkg/formatters"
)

// Posting modes accepted by post_mode / --mode.
const (
	ModeBatch         = "batch"
	ModeSingleFIFO    = "single-fifo"
	ModeThreadedReply = "threaded-reply"
)

// Config holds the application configuration loaded from files and environment variables.
type Config struct {
	AppName   string `mapstructure:"app_name"`
	Env       string `mapstructure:"app_env"`
	LogLevel  string `mapstructure:"log_level"`
	LogFormat string `mapstructure:"log_format"`

	StateType string `mapstructure:"state_type"`
	StatePath string `mapstructure:"state_path"`
	LockPath  string `mapstructure:"lock_path"`

	PostMode         string        `mapstructure:"post_mode"`
	PostLimit        int           `mapstructure:"post_limit"`
	PostDelaySeconds int64         `mapstructure:"post_delay_seconds"`
	PostDelay        time.Duration `mapstructure:"-"`
	DryRun           bool          `mapstructure:"dry_run"`

	CandidatesFile string `mapstructure:"candidates_file"`
	SourcesFile    string `mapstructure:"sources_file"`
	PublishersFile string `mapstructure:"publishers_file"`

	FormatterType string `mapstructure:"formatter_type"`
	LLMBaseURL    string `mapstructure:"llm_base_url"`
	LLMModel      string `mapstructure:"llm_model"`
	LLMAPIKeyEnv  string `mapstructure:"llm_api_key_env"`

	ScheduleCron      string        `mapstructure:"schedule_cron"`
	ScheduleTimezone  string        `mapstructure:"schedule_timezone"`
	RunTimeoutSeconds int64         `mapstructure:"run_timeout_seconds"`
	RunTimeout        time.Duration `mapstructure:"-"`

	KeyringService string `mapstructure:"keyring_service"`
}

// Overrides carries command-line values that take precedence over config.
// Nil fields are left untouched.
type Overrides struct {
	Limit          *int
	Mode           *string
	StatePath      *string
	DryRun         *bool
	CandidatesFile *string
}

// Load reads configuration from environment variables and config files.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	v := viper.New()

	v.SetDefault("app_name", "samvad-social-poster")
	v.SetDefault("app_env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("state_type", "json")
	v.SetDefault("state_path", "./data/posted_history.json")
	v.SetDefault("lock_path", "")
	v.SetDefault("post_mode", ModeBatch)
	v.SetDefault("post_limit", 5)
	v.SetDefault("post_delay_seconds", 60)
	v.SetDefault("dry_run", false)
	v.SetDefault("candidates_file", "")
	v.SetDefault("sources_file", "./configs/sources.yaml")
	v.SetDefault("publishers_file", "./configs/publishers.yaml")
	v.SetDefault("formatter_type", "template")
	v.SetDefault("llm_base_url", formatters.DefaultLLMBaseURL)
	v.SetDefault("llm_model", formatters.DefaultLLMModel)
	v.SetDefault("llm_api_key_env", "GROQ_API_KEY")
	v.SetDefault("schedule_cron", "0 */6 * * *")
	v.SetDefault("schedule_timezone", "UTC")
	v.SetDefault("run_timeout_seconds", int64((30*time.Minute)/time.Second))
	v.SetDefault("keyring_service", "samvad-social-poster")

	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Mark(fmt.Errorf("unmarshal config: %w", err), errors.ErrConfig)
	}

	if err := cfg.normalize(); err != nil {
		return nil, errors.Mark(err, errors.ErrConfig)
	}
	return &cfg, nil
}

// normalize validates values and fills derived fields.
func (c *Config) normalize() error {
	c.StateType = strings.ToLower(strings.TrimSpace(c.StateType))
	c.StatePath = strings.TrimSpace(c.StatePath)
	c.PostMode = strings.ToLower(strings.TrimSpace(c.PostMode))
	c.FormatterType = strings.ToLower(strings.TrimSpace(c.FormatterType))

	if c.StateType != "memory" && c.StatePath == "" {
		return fmt.Errorf("state_path is required for state_type %q", c.StateType)
	}
	if strings.TrimSpace(c.LockPath) == "" && c.StatePath != "" {
		c.LockPath = c.StatePath + ".lock"
	}
	if !ValidMode(c.PostMode) {
		return fmt.Errorf("invalid post_mode %q (expected batch, single-fifo or threaded-reply)", c.PostMode)
	}
	if c.PostLimit < 0 {
		return fmt.Errorf("invalid post_limit (must be zero or positive)")
	}
	if c.PostDelaySeconds < 0 {
		return fmt.Errorf("invalid post_delay_seconds (must be zero or positive seconds)")
	}
	c.PostDelay = time.Duration(c.PostDelaySeconds) * time.Second

	if c.RunTimeoutSeconds <= 0 {
		return fmt.Errorf("invalid run_timeout_seconds (must be positive seconds)")
	}
	c.RunTimeout = time.Duration(c.RunTimeoutSeconds) * time.Second

	switch c.FormatterType {
	case "template", "llm":
	default:
		return fmt.Errorf("unsupported formatter_type %q", c.FormatterType)
	}
	return nil
}

// ApplyOverrides layers command-line values over the loaded config.
func (c *Config) ApplyOverrides(o Overrides) error {
	if o.Limit != nil {
		if *o.Limit < 0 {
			return errors.Mark(fmt.Errorf("--limit must be zero or positive, got %d", *o.Limit), errors.ErrInvalidArgument)
		}
		c.PostLimit = *o.Limit
	}
	if o.Mode != nil {
		mode := strings.ToLower(strings.TrimSpace(*o.Mode))
		if !ValidMode(mode) {
			return errors.Mark(fmt.Errorf("--mode %q is not one of batch, single-fifo, threaded-reply", *o.Mode), errors.ErrInvalidArgument)
		}
		c.PostMode = mode
	}
	if o.StatePath != nil {
		path := strings.TrimSpace(*o.StatePath)
		if path == "" {
			return errors.Mark(fmt.Errorf("--state-path must not be empty"), errors.ErrInvalidArgument)
		}
		if c.LockPath == c.StatePath+".lock" {
			c.LockPath = path + ".lock"
		}
		c.StatePath = path
	}
	if o.DryRun != nil {
		c.DryRun = *o.DryRun
	}
	if o.CandidatesFile != nil {
		c.CandidatesFile = strings.TrimSpace(*o.CandidatesFile)
	}
	return nil
}

// ValidMode reports whether mode is a supported posting mode.
func ValidMode(mode string) bool {
	switch mode {
	case ModeBatch, ModeSingleFIFO, ModeThreadedReply:
		return true
	default:
		return false
	}
}
