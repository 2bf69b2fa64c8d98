package publishers

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/samvad-hq/samvad-social-poster/internal/errors"
)

const (
	// Supported publisher types.
	TypeBluesky  = "bluesky"
	TypeTelegram = "telegram"
	TypeHTTP     = "http"
	TypeSQS      = "sqs"
	TypeSNS      = "sns"
	TypePubSub   = "pubsub"

	httpDefaultMethod         = "POST"
	httpDefaultTimeoutSeconds = 5

	blueskyDefaultHost        = "https://bsky.social"
	blueskyDefaultHandleEnv   = "BLUESKY_HANDLE"
	blueskyDefaultPasswordEnv = "BLUESKY_APP_PASSWORD"
	telegramDefaultTokenEnv   = "TELEGRAM_BOT_TOKEN"
)

// configFile represents the structure of the publishers configuration file.
type configFile struct {
	Publishers []PublisherConfig `json:"publishers" yaml:"publishers"`
}

// PublisherConfig represents a single publisher entry declared in config files.
type PublisherConfig struct {
	ID      string `json:"id" yaml:"id"`
	Type    string `json:"type" yaml:"type"`
	Enabled *bool  `json:"enabled" yaml:"enabled"`
	// Primary marks the publisher whose receipt is recorded in history.
	Primary  bool                     `json:"primary" yaml:"primary"`
	Bluesky  *BlueskyPublisherConfig  `json:"bluesky" yaml:"bluesky"`
	Telegram *TelegramPublisherConfig `json:"telegram" yaml:"telegram"`
	HTTP     *HTTPPublisherConfig     `json:"http" yaml:"http"`
	SQS      *SQSPublisherConfig      `json:"sqs" yaml:"sqs"`
	SNS      *SNSPublisherConfig      `json:"sns" yaml:"sns"`
	PubSub   *PubSubPublisherConfig   `json:"pubsub" yaml:"pubsub"`
}

// BlueskyPublisherConfig holds AT Protocol account settings. Credentials are
// read from the named environment variables (or the keyring).
type BlueskyPublisherConfig struct {
	Host        string `json:"host" yaml:"host"`
	HandleEnv   string `json:"handle_env" yaml:"handle_env"`
	PasswordEnv string `json:"password_env" yaml:"password_env"`
	Lang        string `json:"lang" yaml:"lang"`
}

// TelegramPublisherConfig holds bot settings.
type TelegramPublisherConfig struct {
	TokenEnv  string `json:"token_env" yaml:"token_env"`
	ChatID    int64  `json:"chat_id" yaml:"chat_id"`
	ParseMode string `json:"parse_mode" yaml:"parse_mode"`
	// APIEndpoint overrides the Bot API URL format, e.g. for a local bot server.
	APIEndpoint string `json:"api_endpoint" yaml:"api_endpoint"`
}

// HTTPPublisherConfig holds generic HTTP sink settings.
type HTTPPublisherConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
	RetryCount     int               `json:"retry_count" yaml:"retry_count"`
}

// SQSPublisherConfig holds AWS SQS specific settings.
type SQSPublisherConfig struct {
	QueueURL string `json:"uri" yaml:"uri"`
	Region   string `json:"region" yaml:"region"`
}

// SNSPublisherConfig holds AWS SNS specific settings.
type SNSPublisherConfig struct {
	TopicARN string `json:"topic_arn" yaml:"topic_arn"`
	Region   string `json:"region" yaml:"region"`
}

// PubSubPublisherConfig holds Google Cloud Pub/Sub settings.
type PubSubPublisherConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// ConfigRegistry materializes publisher definitions loaded from config files.
type ConfigRegistry struct {
	mu         sync.RWMutex
	publishers []PublisherConfig
	idx        map[string]PublisherConfig
}

// LoadRegistry loads the publisher registry from a YAML/JSON file.
func LoadRegistry(path string) (*ConfigRegistry, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, configErr("publishers file path is empty")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Mark(fmt.Errorf("open publishers file: %w", err), errors.ErrConfig)
	}
	defer file.Close()

	raw, err := io.ReadAll(file)
	if err != nil {
		return nil, errors.Mark(fmt.Errorf("read publishers file: %w", err), errors.ErrConfig)
	}
	return ParseRegistry(raw, filepath.Ext(path))
}

// ParseRegistry builds a registry from YAML or JSON content.
func ParseRegistry(raw []byte, ext string) (*ConfigRegistry, error) {
	fileReg, err := parsePublisherRegistry(raw, ext)
	if err != nil {
		return nil, err
	}
	if len(fileReg.Publishers) == 0 {
		return nil, configErr("publishers file contains no publishers entries")
	}

	reg := &ConfigRegistry{
		publishers: make([]PublisherConfig, len(fileReg.Publishers)),
		idx:        make(map[string]PublisherConfig, len(fileReg.Publishers)),
	}

	for i := range fileReg.Publishers {
		cfg := sanitizePublisherConfig(fileReg.Publishers[i])
		if err := validatePublisherConfig(cfg); err != nil {
			return nil, errors.Mark(fmt.Errorf("publishers[%d]: %w", i, err), errors.ErrConfig)
		}
		if _, exists := reg.idx[cfg.ID]; exists {
			return nil, configErr("duplicate publisher id %q", cfg.ID)
		}
		reg.publishers[i] = cfg
		reg.idx[cfg.ID] = cfg
	}

	return reg, nil
}

func configErr(format string, args ...any) error {
	return errors.Mark(fmt.Errorf(format, args...), errors.ErrConfig)
}

// parsePublisherRegistry attempts to decode the publishers file content.
func parsePublisherRegistry(data []byte, ext string) (configFile, error) {
	ext = strings.ToLower(strings.TrimSpace(ext))
	decoders := []struct {
		name string
		ext  string
		fn   func([]byte, any) error
	}{
		{name: "yaml", ext: ".yaml", fn: yaml.Unmarshal},
		{name: "yaml", ext: ".yml", fn: yaml.Unmarshal},
		{name: "json", ext: ".json", fn: json.Unmarshal},
	}

	for _, d := range decoders {
		if ext != "" && ext != d.ext {
			continue
		}
		var reg configFile
		if err := d.fn(data, &reg); err == nil {
			return reg, nil
		}
	}

	return configFile{}, configErr("publishers file format not recognized (expected YAML or JSON)")
}

// sanitizePublisherConfig trims and normalizes the publisher config fields.
func sanitizePublisherConfig(cfg PublisherConfig) PublisherConfig {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))

	if cfg.Enabled == nil {
		def := true
		cfg.Enabled = &def
	}
	if cfg.Type == TypeBluesky {
		c := BlueskyPublisherConfig{}
		if cfg.Bluesky != nil {
			c = *cfg.Bluesky
		}
		c.Host = strings.TrimRight(strings.TrimSpace(c.Host), "/")
		if c.Host == "" {
			c.Host = blueskyDefaultHost
		}
		c.HandleEnv = orDefault(c.HandleEnv, blueskyDefaultHandleEnv)
		c.PasswordEnv = orDefault(c.PasswordEnv, blueskyDefaultPasswordEnv)
		c.Lang = strings.TrimSpace(c.Lang)
		cfg.Bluesky = &c
	}
	if cfg.Telegram != nil {
		c := *cfg.Telegram
		c.TokenEnv = orDefault(c.TokenEnv, telegramDefaultTokenEnv)
		c.ParseMode = strings.TrimSpace(c.ParseMode)
		c.APIEndpoint = strings.TrimSpace(c.APIEndpoint)
		cfg.Telegram = &c
	}
	if cfg.SQS != nil {
		c := *cfg.SQS
		c.QueueURL = strings.TrimSpace(c.QueueURL)
		c.Region = strings.TrimSpace(c.Region)
		cfg.SQS = &c
	}
	if cfg.SNS != nil {
		c := *cfg.SNS
		c.TopicARN = strings.TrimSpace(c.TopicARN)
		c.Region = strings.TrimSpace(c.Region)
		cfg.SNS = &c
	}
	if cfg.PubSub != nil {
		c := *cfg.PubSub
		c.ProjectID = strings.TrimSpace(c.ProjectID)
		c.Topic = strings.TrimSpace(c.Topic)
		c.CredentialsFile = strings.TrimSpace(c.CredentialsFile)
		cfg.PubSub = &c
	}
	if cfg.HTTP != nil {
		c := *cfg.HTTP
		c.URL = strings.TrimSpace(c.URL)
		c.Method = strings.ToUpper(strings.TrimSpace(c.Method))
		if c.Method == "" {
			c.Method = httpDefaultMethod
		}
		c.Headers = sanitizeHeaders(c.Headers)
		if c.TimeoutSeconds <= 0 {
			c.TimeoutSeconds = httpDefaultTimeoutSeconds
		}
		if c.RetryCount < 0 {
			c.RetryCount = 0
		}
		cfg.HTTP = &c
	}

	return cfg
}

func orDefault(v, def string) string {
	if v = strings.TrimSpace(v); v == "" {
		return def
	}
	return v
}

// sanitizeHeaders trims and removes empty headers.
func sanitizeHeaders(headers map[string]string) map[string]string {
	if len(headers) == 0 {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		key := strings.TrimSpace(k)
		val := strings.TrimSpace(v)
		if key == "" || val == "" {
			continue
		}
		out[key] = val
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// validatePublisherConfig checks that required fields are present.
func validatePublisherConfig(cfg PublisherConfig) error {
	if cfg.ID == "" {
		return fmt.Errorf("id is required")
	}
	switch cfg.Type {
	case "":
		return fmt.Errorf("type is required for publisher %q", cfg.ID)
	case TypeBluesky:
		// defaults cover every field
	case TypeTelegram:
		if cfg.Telegram == nil || cfg.Telegram.ChatID == 0 {
			return fmt.Errorf("telegram.chat_id is required for publisher %q", cfg.ID)
		}
	case TypeHTTP:
		if cfg.HTTP == nil {
			return fmt.Errorf("http config required for publisher %q", cfg.ID)
		}
		if cfg.HTTP.URL == "" {
			return fmt.Errorf("http.url is required for publisher %q", cfg.ID)
		}
	case TypeSQS:
		if cfg.SQS == nil {
			return fmt.Errorf("sqs config required for publisher %q", cfg.ID)
		}
		if cfg.SQS.QueueURL == "" {
			return fmt.Errorf("sqs.uri is required for publisher %q", cfg.ID)
		}
		if cfg.SQS.Region == "" {
			return fmt.Errorf("sqs.region is required for publisher %q", cfg.ID)
		}
	case TypeSNS:
		if cfg.SNS == nil || cfg.SNS.TopicARN == "" {
			return fmt.Errorf("sns.topic_arn is required for publisher %q", cfg.ID)
		}
		if cfg.SNS.Region == "" {
			return fmt.Errorf("sns.region is required for publisher %q", cfg.ID)
		}
	case TypePubSub:
		if cfg.PubSub == nil || cfg.PubSub.ProjectID == "" || cfg.PubSub.Topic == "" {
			return fmt.Errorf("pubsub.project_id and pubsub.topic are required for publisher %q", cfg.ID)
		}
	default:
		return fmt.Errorf("unknown type %q for publisher %q", cfg.Type, cfg.ID)
	}
	if cfg.Primary && !cfg.EnabledValue() {
		return fmt.Errorf("publisher %q is primary but disabled", cfg.ID)
	}
	return nil
}

// ByID returns the publisher config by id.
func (r *ConfigRegistry) ByID(id string) (PublisherConfig, bool) {
	if r == nil {
		return PublisherConfig{}, false
	}

	id = strings.TrimSpace(id)
	if id == "" {
		return PublisherConfig{}, false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	cfg, ok := r.idx[id]
	return cfg, ok
}

// All returns all configured publishers.
func (r *ConfigRegistry) All() []PublisherConfig {
	if r == nil {
		return nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]PublisherConfig, len(r.publishers))
	copy(out, r.publishers)
	return out
}

// Enabled returns publishers that are enabled.
func (r *ConfigRegistry) Enabled() []PublisherConfig {
	all := r.All()
	if len(all) == 0 {
		return nil
	}

	out := make([]PublisherConfig, 0, len(all))
	for _, cfg := range all {
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out
}

// Split returns the primary publisher and the enabled mirrors. A single
// enabled publisher is primary without being flagged.
func (r *ConfigRegistry) Split() (PublisherConfig, []PublisherConfig, error) {
	enabled := r.Enabled()
	if len(enabled) == 0 {
		return PublisherConfig{}, nil, configErr("no enabled publishers configured")
	}

	primaryIdx := -1
	for i, cfg := range enabled {
		if !cfg.Primary {
			continue
		}
		if primaryIdx >= 0 {
			return PublisherConfig{}, nil, configErr("publishers %q and %q are both marked primary", enabled[primaryIdx].ID, cfg.ID)
		}
		primaryIdx = i
	}
	if primaryIdx < 0 {
		if len(enabled) > 1 {
			return PublisherConfig{}, nil, configErr("%d publishers enabled but none is marked primary", len(enabled))
		}
		primaryIdx = 0
	}

	mirrors := make([]PublisherConfig, 0, len(enabled)-1)
	for i, cfg := range enabled {
		if i != primaryIdx {
			mirrors = append(mirrors, cfg)
		}
	}
	return enabled[primaryIdx], mirrors, nil
}

// EnabledValue returns enabled flag defaulting to true.
func (cfg PublisherConfig) EnabledValue() bool {
	if cfg.Enabled == nil {
		return true
	}
	return *cfg.Enabled
}
