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
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	OpenAI    OpenAIConfig    `yaml:"openai" mapstructure:"openai"`
	Anthropic AnthropicConfig `yaml:"anthropic" mapstructure:"anthropic"`
	LLM       LLMConfig       `yaml:"llm" mapstructure:"llm"`
	DocText   DocTextConfig   `yaml:"doctext" mapstructure:"doctext"`
	Prompts   PromptsConfig   `yaml:"prompts" mapstructure:"prompts"`
	Run       RunConfig       `yaml:"run" mapstructure:"run"`
	Scoring   ScoringConfig   `yaml:"scoring" mapstructure:"scoring"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// StoreConfig configures the local database used for the extracted-text
// cache and the cumulative refinement table.
type StoreConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// OpenAIConfig holds Azure OpenAI settings for chat and embeddings.
type OpenAIConfig struct {
	Key                 string `yaml:"key" mapstructure:"key"`
	Endpoint            string `yaml:"endpoint" mapstructure:"endpoint"`
	APIVersion          string `yaml:"api_version" mapstructure:"api_version"`
	Deployment          string `yaml:"deployment" mapstructure:"deployment"`
	EmbeddingDeployment string `yaml:"embedding_deployment" mapstructure:"embedding_deployment"`
}

// AnthropicConfig holds Anthropic API settings.
type AnthropicConfig struct {
	Key       string `yaml:"key" mapstructure:"key"`
	Model     string `yaml:"model" mapstructure:"model"`
	MaxTokens int    `yaml:"max_tokens" mapstructure:"max_tokens"`
}

// LLMConfig selects the chat-completion provider and call pacing.
type LLMConfig struct {
	Provider          string  `yaml:"provider" mapstructure:"provider"`
	RequestsPerMinute float64 `yaml:"requests_per_minute" mapstructure:"requests_per_minute"`
}

// DocTextConfig configures PDF text extraction.
type DocTextConfig struct {
	Provider      string `yaml:"provider" mapstructure:"provider"`
	Key           string `yaml:"key" mapstructure:"key"`
	Endpoint      string `yaml:"endpoint" mapstructure:"endpoint"`
	PdfToTextPath string `yaml:"pdftotext_path" mapstructure:"pdftotext_path"`
	CacheTexts    bool   `yaml:"cache_texts" mapstructure:"cache_texts"`
}

// PromptsConfig points at the prompt and parameter definition files.
type PromptsConfig struct {
	PromptsPath    string `yaml:"prompts_path" mapstructure:"prompts_path"`
	ParametersPath string `yaml:"parameters_path" mapstructure:"parameters_path"`
}

// RunConfig holds per-run pipeline settings.
type RunConfig struct {
	OutputDir    string `yaml:"output_dir" mapstructure:"output_dir"`
	RAGTopK      int    `yaml:"rag_top_k" mapstructure:"rag_top_k"`
	Explanations bool   `yaml:"explanations" mapstructure:"explanations"`
	MaxDocChars  int    `yaml:"max_doc_chars" mapstructure:"max_doc_chars"`
}

// ScoringConfig configures ground-truth comparison.
type ScoringConfig struct {
	Tolerance float64 `yaml:"tolerance" mapstructure:"tolerance"`
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
	v.SetEnvPrefix("EPIEXTRACT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.path", "epiextract.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("openai.api_version", "2024-02-01")
	v.SetDefault("openai.deployment", "gpt-4o-mini")
	v.SetDefault("openai.embedding_deployment", "text-embedding-3-large")
	v.SetDefault("anthropic.model", "claude-haiku-4-5-20251001")
	v.SetDefault("anthropic.max_tokens", 4096)
	v.SetDefault("llm.provider", "azure")
	v.SetDefault("llm.requests_per_minute", 60)
	v.SetDefault("doctext.provider", "local")
	v.SetDefault("doctext.pdftotext_path", "pdftotext")
	v.SetDefault("doctext.cache_texts", true)
	v.SetDefault("prompts.prompts_path", "config/prompts.yaml")
	v.SetDefault("prompts.parameters_path", "config/parameters.yaml")
	v.SetDefault("run.output_dir", "output")
	v.SetDefault("run.rag_top_k", 5)
	v.SetDefault("run.max_doc_chars", 25000)
	v.SetDefault("scoring.tolerance", 1.0)

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
