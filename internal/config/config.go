package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds runtime configuration values.
type Config struct {
	Port        string            `json:"port" yaml:"port"`
	DatabaseURL string            `json:"database_url" yaml:"database_url"`
	Log         LogConfig         `json:"log" yaml:"log"`
	AI          AIConfig          `json:"ai" yaml:"ai"`
	Vertex      VertexConfig      `json:"vertex" yaml:"vertex"`
	Pexels      PexelsConfig      `json:"pexels" yaml:"pexels"`
	Retry       RetryConfig       `json:"retry" yaml:"retry"`
	Leads       LeadsConfig       `json:"leads" yaml:"leads"`
	Media       MediaConfig       `json:"media" yaml:"media"`
	Diagnostics DiagnosticsConfig `json:"diagnostics" yaml:"diagnostics"`
}

// LogConfig controls the zerolog output.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Pretty bool   `json:"pretty" yaml:"pretty"`
}

// AIConfig groups the language/vision model providers.
type AIConfig struct {
	TextProvider string       `json:"text_provider" yaml:"text_provider"`
	Temperature  float64      `json:"temperature" yaml:"temperature"`
	MaxTokens    int          `json:"max_tokens" yaml:"max_tokens"`
	OpenAI       OpenAIConfig `json:"openai" yaml:"openai"`
	Gemini       GeminiConfig `json:"gemini" yaml:"gemini"`
}

// OpenAIConfig configures chat, vision and image generation calls.
type OpenAIConfig struct {
	APIKey      string `json:"api_key" yaml:"api_key"`
	Model       string `json:"model" yaml:"model"`
	VisionModel string `json:"vision_model" yaml:"vision_model"`
	ImageModel  string `json:"image_model" yaml:"image_model"`
}

// GeminiConfig configures the Gemini image tier and the optional Gemini text client.
type GeminiConfig struct {
	APIKey             string `json:"api_key" yaml:"api_key"`
	Model              string `json:"model" yaml:"model"`
	TextModel          string `json:"text_model" yaml:"text_model"`
	ServiceAccountJSON string `json:"service_account_json" yaml:"service_account_json"`
}

// VertexConfig describes how to reach Imagen on Vertex AI.
type VertexConfig struct {
	ProjectID          string `json:"project_id" yaml:"project_id"`
	Location           string `json:"location" yaml:"location"`
	Model              string `json:"model" yaml:"model"`
	ServiceAccountFile string `json:"service_account_file" yaml:"service_account_file"`
}

// Enabled reports whether enough is configured to attempt Imagen calls.
func (v VertexConfig) Enabled() bool {
	return v.ProjectID != "" && v.Location != "" && v.Model != ""
}

// PexelsConfig holds the stock photo API key.
type PexelsConfig struct {
	APIKey string `json:"api_key" yaml:"api_key"`
}

// RetryConfig tunes the provider retry wrapper. BudgetMS caps a whole renovation
// request across every provider call; zero keeps the orchestrator default.
type RetryConfig struct {
	Attempts  int `json:"attempts" yaml:"attempts"`
	TimeoutMS int `json:"timeout_ms" yaml:"timeout_ms"`
	BudgetMS  int `json:"budget_ms" yaml:"budget_ms"`
}

// Timeout returns the per-attempt timeout.
func (r RetryConfig) Timeout() time.Duration {
	return time.Duration(r.TimeoutMS) * time.Millisecond
}

// Budget returns the per-request budget.
func (r RetryConfig) Budget() time.Duration {
	return time.Duration(r.BudgetMS) * time.Millisecond
}

// LeadsConfig configures where enriched leads are delivered.
type LeadsConfig struct {
	WebhookURL string `json:"webhook_url" yaml:"webhook_url"`
}

// MediaConfig describes where rendered images are stored. The static keys are
// optional; without them the default AWS credential chain is used.
type MediaConfig struct {
	Bucket          string `json:"bucket" yaml:"bucket"`
	Region          string `json:"region" yaml:"region"`
	Endpoint        string `json:"endpoint" yaml:"endpoint"`
	PublicURL       string `json:"public_url" yaml:"public_url"`
	KeyPrefix       string `json:"key_prefix" yaml:"key_prefix"`
	ForcePathStyle  bool   `json:"force_path_style" yaml:"force_path_style"`
	LocalDir        string `json:"local_dir" yaml:"local_dir"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
}

// DiagnosticsConfig protects the diagnostic endpoints.
type DiagnosticsConfig struct {
	KeyHash string `json:"key_hash" yaml:"key_hash"`
}

// Load reads an optional config file (.json, .yaml or .yml), applies environment
// overrides and fills defaults. A missing file is not an error.
func Load(path string) (Config, error) {
	var cfg Config
	if path != "" {
		if err := readFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)

	if cfg.Port == "" {
		return Config{}, errors.New("port cannot be empty")
	}
	return cfg, nil
}

// FromEnv loads configuration from environment variables only.
func FromEnv() Config {
	var cfg Config
	applyEnv(&cfg)
	applyDefaults(&cfg)
	return cfg
}

func readFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", path, err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse yaml config: %w", err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse json config: %w", err)
		}
	}
	return nil
}

func applyEnv(cfg *Config) {
	setString(&cfg.Port, "APP_PORT")
	setString(&cfg.DatabaseURL, "DATABASE_URL")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	setBool(&cfg.Log.Pretty, "LOG_PRETTY")

	setString(&cfg.AI.TextProvider, "TEXT_PROVIDER")
	setFloat(&cfg.AI.Temperature, "AI_TEMPERATURE")
	setInt(&cfg.AI.MaxTokens, "AI_MAX_TOKENS")
	setString(&cfg.AI.OpenAI.APIKey, "OPENAI_API_KEY")
	setString(&cfg.AI.OpenAI.Model, "OPENAI_MODEL")
	setString(&cfg.AI.OpenAI.VisionModel, "OPENAI_VISION_MODEL")
	setString(&cfg.AI.OpenAI.ImageModel, "OPENAI_IMAGE_MODEL")
	setString(&cfg.AI.Gemini.APIKey, "GOOGLE_AI_API_KEY")
	setString(&cfg.AI.Gemini.APIKey, "GEMINI_API_KEY")
	setString(&cfg.AI.Gemini.Model, "GEMINI_MODEL")
	setString(&cfg.AI.Gemini.TextModel, "GEMINI_TEXT_MODEL")
	setString(&cfg.AI.Gemini.ServiceAccountJSON, "GEMINI_SERVICE_ACCOUNT_JSON")

	setString(&cfg.Vertex.ProjectID, "VERTEX_PROJECT_ID")
	setString(&cfg.Vertex.Location, "VERTEX_LOCATION")
	setString(&cfg.Vertex.Model, "VERTEX_IMAGEN_MODEL")
	setString(&cfg.Vertex.ServiceAccountFile, "VERTEX_SERVICE_ACCOUNT_FILE")

	setString(&cfg.Pexels.APIKey, "PEXELS_API_KEY")
	setInt(&cfg.Retry.Attempts, "RETRY_ATTEMPTS")
	setInt(&cfg.Retry.TimeoutMS, "RETRY_TIMEOUT_MS")
	setInt(&cfg.Retry.BudgetMS, "REQUEST_BUDGET_MS")
	setString(&cfg.Leads.WebhookURL, "LEAD_WEBHOOK_URL")

	setString(&cfg.Media.Bucket, "S3_BUCKET")
	setString(&cfg.Media.Region, "S3_REGION")
	setString(&cfg.Media.Endpoint, "S3_ENDPOINT")
	setString(&cfg.Media.PublicURL, "S3_PUBLIC_URL")
	setString(&cfg.Media.KeyPrefix, "S3_KEY_PREFIX")
	setBool(&cfg.Media.ForcePathStyle, "S3_FORCE_PATH_STYLE")
	setString(&cfg.Media.LocalDir, "MEDIA_DIR")
	setString(&cfg.Media.AccessKeyID, "S3_ACCESS_KEY_ID")
	setString(&cfg.Media.SecretAccessKey, "S3_SECRET_ACCESS_KEY")

	setString(&cfg.Diagnostics.KeyHash, "DIAGNOSTICS_KEY_HASH")
}

func applyDefaults(cfg *Config) {
	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.AI.TextProvider == "" {
		cfg.AI.TextProvider = "openai"
	}
	if cfg.AI.Temperature <= 0 {
		cfg.AI.Temperature = 0.7
	}
	if cfg.AI.MaxTokens <= 0 {
		cfg.AI.MaxTokens = 2000
	}
	if cfg.AI.OpenAI.Model == "" {
		cfg.AI.OpenAI.Model = "gpt-4o"
	}
	if cfg.AI.OpenAI.VisionModel == "" {
		cfg.AI.OpenAI.VisionModel = "gpt-4o"
	}
	if cfg.AI.OpenAI.ImageModel == "" {
		cfg.AI.OpenAI.ImageModel = "dall-e-3"
	}
	if cfg.AI.Gemini.Model == "" {
		cfg.AI.Gemini.Model = "gemini-2.5-flash-image"
	}
	if cfg.AI.Gemini.TextModel == "" {
		cfg.AI.Gemini.TextModel = "gemini-2.5-flash"
	}
	if cfg.Retry.Attempts <= 0 {
		cfg.Retry.Attempts = 3
	}
	if cfg.Retry.TimeoutMS <= 0 {
		cfg.Retry.TimeoutMS = 30000
	}
	cfg.Media.KeyPrefix = strings.Trim(cfg.Media.KeyPrefix, "/")
}

func setString(dst *string, key string) {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		*dst = value
	}
}

func setBool(dst *bool, key string) {
	val := os.Getenv(key)
	if val == "" {
		return
	}
	if parsed, err := strconv.ParseBool(val); err == nil {
		*dst = parsed
	}
}

func setInt(dst *int, key string) {
	val := os.Getenv(key)
	if val == "" {
		return
	}
	if parsed, err := strconv.Atoi(val); err == nil {
		*dst = parsed
	}
}

func setFloat(dst *float64, key string) {
	val := os.Getenv(key)
	if val == "" {
		return
	}
	if parsed, err := strconv.ParseFloat(val, 64); err == nil {
		*dst = parsed
	}
}
