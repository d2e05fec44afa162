package main

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	LLMProvider     string  `yaml:"llm_provider"`
	LLMBaseURL      string  `yaml:"llm_base_url"`
	LLMModel        string  `yaml:"llm_model"`
	LLMTemperature  float64 `yaml:"llm_temperature"`
	LLMMaxTokens    int     `yaml:"llm_max_tokens"`
	LLMTimeoutMs    int     `yaml:"llm_timeout_ms"`
	LLMMaxRetries   int     `yaml:"llm_max_retries"`
	AnthropicAPIKey string  `yaml:"anthropic_api_key"`

	Method              string  `yaml:"method"`
	SchemaName          string  `yaml:"schema_name"`
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	LexiconPath         string  `yaml:"lexicon_path"`

	Ensemble EnsembleConfig `yaml:"ensemble"`

	DataPath    string   `yaml:"data_path"`
	EvalModels  []string `yaml:"eval_models"`
	EvalMethods []string `yaml:"eval_methods"`
	BatchSize   int      `yaml:"batch_size"`

	DBPath          string `yaml:"db_path"`
	ReportOutputDir string `yaml:"report_output_dir"`

	SlackBotToken   string `yaml:"slack_bot_token"`
	ReportChannelID string `yaml:"report_channel_id"`

	EvaluateSchedule string `yaml:"evaluate_schedule"`
}

// EnsembleConfig declares the sub-methods of the ensemble in priority order.
// Quorum 0 means simple majority.
type EnsembleConfig struct {
	Quorum  int              `yaml:"quorum"`
	Members []EnsembleMember `yaml:"members"`
}

type EnsembleMember struct {
	Method string `yaml:"method"`
	Model  string `yaml:"model"`
}

func LoadConfig() Config {
	var cfg Config

	// Load from config.yaml if it exists
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMBaseURL, "LLM_BASE_URL")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverrideFloat(&cfg.LLMTemperature, "LLM_TEMPERATURE")
	envOverrideInt(&cfg.LLMMaxTokens, "LLM_MAX_TOKENS")
	envOverrideInt(&cfg.LLMTimeoutMs, "LLM_TIMEOUT_MS")
	envOverrideInt(&cfg.LLMMaxRetries, "LLM_MAX_RETRIES")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.Method, "CLASSIFY_METHOD")
	envOverride(&cfg.SchemaName, "SCHEMA_NAME")
	envOverrideFloat(&cfg.ConfidenceThreshold, "CONFIDENCE_THRESHOLD")
	envOverride(&cfg.LexiconPath, "LEXICON_PATH")
	envOverride(&cfg.DataPath, "DATA_PATH")
	envOverrideInt(&cfg.BatchSize, "BATCH_SIZE")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverride(&cfg.ReportOutputDir, "REPORT_OUTPUT_DIR")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.ReportChannelID, "REPORT_CHANNEL_ID")
	envOverride(&cfg.EvaluateSchedule, "EVALUATE_SCHEDULE")

	if models := os.Getenv("EVAL_MODELS"); models != "" {
		cfg.EvalModels = splitList(models)
	}
	if methods := os.Getenv("EVAL_METHODS"); methods != "" {
		cfg.EvalMethods = splitList(methods)
	}

	// Defaults
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "ollama"
	}
	if cfg.LLMBaseURL == "" {
		cfg.LLMBaseURL = "http://localhost:11434"
	}
	if cfg.LLMModel == "" {
		cfg.LLMModel = "llama3.2:3b"
	}
	if cfg.LLMTemperature == 0 {
		cfg.LLMTemperature = 0.1
	}
	if cfg.LLMTimeoutMs == 0 {
		cfg.LLMTimeoutMs = 30000
	}
	if cfg.LLMMaxRetries == 0 {
		cfg.LLMMaxRetries = 2
	}
	if cfg.Method == "" {
		cfg.Method = "hybrid"
	}
	if cfg.SchemaName == "" {
		cfg.SchemaName = "standard"
	}
	if cfg.ConfidenceThreshold == 0 {
		cfg.ConfidenceThreshold = 0.8
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 10
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./classibot.db"
	}
	if cfg.ReportOutputDir == "" {
		cfg.ReportOutputDir = "./reports"
	}
	if len(cfg.EvalMethods) == 0 {
		cfg.EvalMethods = []string{"rule-based", "hybrid"}
	}

	return cfg
}

// Validate rejects configurations that would only fail mid-run.
func (cfg Config) Validate() error {
	if _, err := ParseMethodKind(cfg.Method); err != nil {
		return fmt.Errorf("method: %w", err)
	}
	for _, m := range cfg.EvalMethods {
		if _, err := ParseMethodKind(m); err != nil {
			return fmt.Errorf("eval_methods: %w", err)
		}
	}
	if cfg.ConfidenceThreshold < 0 || cfg.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold %g outside [0, 1]", cfg.ConfidenceThreshold)
	}
	if cfg.LLMProvider == "anthropic" && cfg.AnthropicAPIKey == "" {
		return fmt.Errorf("llm_provider anthropic requires anthropic_api_key")
	}
	if cfg.Ensemble.Quorum < 0 {
		return fmt.Errorf("ensemble quorum %d is negative", cfg.Ensemble.Quorum)
	}
	return nil
}

func envOverride(target *string, key string) {
	if v := os.Getenv(key); v != "" {
		*target = v
	}
}

func envOverrideInt(target *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*target = n
		} else {
			log.Printf("Invalid %s=%q, ignoring", key, v)
		}
	}
}

func envOverrideFloat(target *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*target = f
		} else {
			log.Printf("Invalid %s=%q, ignoring", key, v)
		}
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
