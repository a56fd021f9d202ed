// Package config loads SkillCraft settings from the environment, an optional
// .env file and an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Configuration errors
var (
	// ErrMissingAPIKey indicates the watsonx API key is not set
	ErrMissingAPIKey = errors.New("watsonx API key is required (API_KEY)")

	// ErrMissingProjectID indicates the watsonx project is not set
	ErrMissingProjectID = errors.New("watsonx project ID is required (PROJECT_ID)")

	// ErrMissingSlackToken indicates the bot token is not set
	ErrMissingSlackToken = errors.New("Slack bot token is required (SLACK_BOT_TOKEN)")

	// ErrMissingSigningSecret indicates the signing secret is not set
	ErrMissingSigningSecret = errors.New("Slack signing secret is required (SLACK_SIGNING_SECRET)")

	// ErrMissingCostFile indicates the usage log path is empty
	ErrMissingCostFile = errors.New("cost file path must not be empty")
)

// Config holds every setting the commands need.
type Config struct {
	Watsonx WatsonxConfig `yaml:"watsonx"`
	Slack   SlackConfig   `yaml:"slack"`
	Server  ServerConfig  `yaml:"server"`

	// CostFile is the CSV usage log
	CostFile string `yaml:"cost_file"`

	// RedisURL enables the shared event dedupe store when set
	RedisURL string `yaml:"redis_url"`
}

// WatsonxConfig holds the hosted model settings.
type WatsonxConfig struct {
	URL       string `yaml:"url"`
	IAMURL    string `yaml:"iam_url"`
	APIKey    string `yaml:"api_key"`
	ProjectID string `yaml:"project_id"`
	ModelID   string `yaml:"model_id"`
}

// SlackConfig holds the bot credentials and inbound limits.
type SlackConfig struct {
	BotToken      string `yaml:"bot_token"`
	SigningSecret string `yaml:"signing_secret"`

	// RateLimitRPS is messages per second allowed per user
	RateLimitRPS float64 `yaml:"rate_limit_rps"`

	// RateLimitBurst is the per-user burst
	RateLimitBurst int `yaml:"rate_limit_burst"`
}

// ServerConfig holds the HTTP listener settings.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns a Config populated from the environment with defaults.
func DefaultConfig() *Config {
	return &Config{
		Watsonx: WatsonxConfig{
			URL:       getEnvOrDefault("WATSONX_URL", "https://us-south.ml.cloud.ibm.com"),
			IAMURL:    getEnvOrDefault("WATSONX_IAM_URL", "https://iam.cloud.ibm.com"),
			APIKey:    os.Getenv("API_KEY"),
			ProjectID: os.Getenv("PROJECT_ID"),
			ModelID:   getEnvOrDefault("WATSONX_MODEL_ID", "granite-3-8b-instruct"),
		},
		Slack: SlackConfig{
			BotToken:       os.Getenv("SLACK_BOT_TOKEN"),
			SigningSecret:  os.Getenv("SLACK_SIGNING_SECRET"),
			RateLimitRPS:   getEnvFloat("SKILLCRAFT_RATE_LIMIT_RPS", 0.2),
			RateLimitBurst: getEnvInt("SKILLCRAFT_RATE_LIMIT_BURST", 3),
		},
		Server: ServerConfig{
			Addr: getEnvOrDefault("SKILLCRAFT_ADDR", ":8000"),
		},
		CostFile: getEnvOrDefault("SKILLCRAFT_COST_FILE", filepath.Join("costing", "cost_sheet.csv")),
		RedisURL: os.Getenv("REDIS_URL"),
	}
}

// Load reads .env from the working directory (if any), builds the default
// config and overlays the YAML file at path. A missing file is only an error
// when explicit is true.
func Load(path string, explicit bool) (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("could not load .env: %w", err)
	}

	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !explicit {
			return cfg, nil
		}
		return nil, fmt.Errorf("could not read config %s: %w", path, err)
	}

	var file Config
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("could not parse config %s: %w", path, err)
	}
	cfg.overlay(&file)
	return cfg, nil
}

// DefaultPath returns ~/.skillcraft/config.yaml, or "" if there is no home.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".skillcraft", "config.yaml")
}

// overlay copies every non-zero field of f onto c.
func (c *Config) overlay(f *Config) {
	setString(&c.Watsonx.URL, f.Watsonx.URL)
	setString(&c.Watsonx.IAMURL, f.Watsonx.IAMURL)
	setString(&c.Watsonx.APIKey, f.Watsonx.APIKey)
	setString(&c.Watsonx.ProjectID, f.Watsonx.ProjectID)
	setString(&c.Watsonx.ModelID, f.Watsonx.ModelID)
	setString(&c.Slack.BotToken, f.Slack.BotToken)
	setString(&c.Slack.SigningSecret, f.Slack.SigningSecret)
	setString(&c.Server.Addr, f.Server.Addr)
	setString(&c.CostFile, f.CostFile)
	setString(&c.RedisURL, f.RedisURL)
	if f.Slack.RateLimitRPS > 0 {
		c.Slack.RateLimitRPS = f.Slack.RateLimitRPS
	}
	if f.Slack.RateLimitBurst > 0 {
		c.Slack.RateLimitBurst = f.Slack.RateLimitBurst
	}
}

// Validate checks what every completion-issuing command needs.
func (c *Config) Validate() error {
	if c.CostFile == "" {
		return ErrMissingCostFile
	}
	if c.Watsonx.APIKey == "" {
		return ErrMissingAPIKey
	}
	if c.Watsonx.ProjectID == "" {
		return ErrMissingProjectID
	}
	return nil
}

// ValidateServe additionally checks the Slack credentials.
func (c *Config) ValidateServe() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Slack.BotToken == "" {
		return ErrMissingSlackToken
	}
	if c.Slack.SigningSecret == "" {
		return ErrMissingSigningSecret
	}
	return nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
