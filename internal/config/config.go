package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderONNX   = "onnx"
)

type Config struct {
	EmbedLLM     LLMConfig `yaml:"embed_llm"`
	InferenceLLM LLMConfig `yaml:"inference_llm"`
	RAG          RAGConfig `yaml:"rag"`
	Log          LogConfig `yaml:"log"`
}

// LLMConfig describes a model endpoint. The onnx provider reads the model
// and tokenizer from disk instead of calling BaseURL.
type LLMConfig struct {
	Provider          string `yaml:"provider"`
	BaseURL           string `yaml:"base_url"`
	Key               string `yaml:"key"`
	Model             string `yaml:"model"`
	ModelPath         string `yaml:"model_path"`
	TokenizerPath     string `yaml:"tokenizer_path"`
	SharedLibraryPath string `yaml:"shared_library_path"`
}

type RAGConfig struct {
	EmbeddingDim    int     `yaml:"embedding_dim"`
	SimilarityFloor float32 `yaml:"similarity_floor"`
	TextWeight      float64 `yaml:"text_weight"`
	VectorWeight    float64 `yaml:"vector_weight"`
	DefaultLimit    int     `yaml:"default_limit"`
	OverFetch       int     `yaml:"over_fetch"`
	ProgressBuffer  int     `yaml:"progress_buffer"`
	QueueSize       int     `yaml:"queue_size"`
	SpeakingRate    float64 `yaml:"speaking_rate"` // words per second, for untimed transcripts
}

type LogConfig struct {
	Level string `yaml:"level"`
}

const (
	defaultEmbeddingDim    = 384
	defaultSimilarityFloor = 0.4
	defaultTextWeight      = 0.5
	defaultVectorWeight    = 0.5
	defaultLimit           = 10
	defaultOverFetch       = 2
	defaultProgressBuffer  = 64
	defaultQueueSize       = 16
	defaultSpeakingRate    = 2.5
)

// Default returns the configuration used by the reference deployment:
// a local 384-d MiniLM embedder served by ollama.
func Default() *Config {
	return &Config{
		EmbedLLM: LLMConfig{
			Provider: ProviderOllama,
			BaseURL:  "http://localhost:11434",
			Model:    "all-minilm",
		},
		RAG: RAGConfig{
			EmbeddingDim:    defaultEmbeddingDim,
			SimilarityFloor: defaultSimilarityFloor,
			TextWeight:      defaultTextWeight,
			VectorWeight:    defaultVectorWeight,
			DefaultLimit:    defaultLimit,
			OverFetch:       defaultOverFetch,
			ProgressBuffer:  defaultProgressBuffer,
			QueueSize:       defaultQueueSize,
			SpeakingRate:    defaultSpeakingRate,
		},
		Log: LogConfig{Level: "info"},
	}
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyDefaults fills tunables that must not be zero. Keys missing from the
// YAML file already hold their Default value, so similarity_floor and
// progress_buffer keep an explicit 0.
func (c *Config) ApplyDefaults() {
	r := &c.RAG
	if r.EmbeddingDim == 0 {
		r.EmbeddingDim = defaultEmbeddingDim
	}
	if r.TextWeight == 0 && r.VectorWeight == 0 {
		r.TextWeight, r.VectorWeight = defaultTextWeight, defaultVectorWeight
	}
	if r.DefaultLimit == 0 {
		r.DefaultLimit = defaultLimit
	}
	if r.OverFetch == 0 {
		r.OverFetch = defaultOverFetch
	}
	if r.QueueSize == 0 {
		r.QueueSize = defaultQueueSize
	}
	if r.SpeakingRate == 0 {
		r.SpeakingRate = defaultSpeakingRate
	}
	if c.EmbedLLM.Provider == "" {
		c.EmbedLLM.Provider = ProviderOllama
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c *Config) Validate() error {
	r := c.RAG
	switch {
	case r.EmbeddingDim < 1:
		return fmt.Errorf("rag.embedding_dim must be positive, got %d", r.EmbeddingDim)
	case r.SimilarityFloor < 0 || r.SimilarityFloor > 1:
		return fmt.Errorf("rag.similarity_floor must be within [0,1], got %v", r.SimilarityFloor)
	case r.TextWeight < 0 || r.VectorWeight < 0:
		return fmt.Errorf("rag weights must not be negative")
	case r.DefaultLimit < 1:
		return fmt.Errorf("rag.default_limit must be at least 1, got %d", r.DefaultLimit)
	case r.OverFetch < 1:
		return fmt.Errorf("rag.over_fetch must be at least 1, got %d", r.OverFetch)
	case r.ProgressBuffer < 0 || r.QueueSize < 1:
		return fmt.Errorf("rag.progress_buffer and rag.queue_size are out of range")
	case r.SpeakingRate <= 0:
		return fmt.Errorf("rag.speaking_rate must be positive, got %v", r.SpeakingRate)
	}

	switch strings.ToLower(c.EmbedLLM.Provider) {
	case ProviderOllama, ProviderOpenAI:
		if c.EmbedLLM.Model == "" {
			return fmt.Errorf("embed_llm.model is required for provider %s", c.EmbedLLM.Provider)
		}
	case ProviderONNX:
		if c.EmbedLLM.ModelPath == "" || c.EmbedLLM.TokenizerPath == "" {
			return fmt.Errorf("embed_llm.model_path and embed_llm.tokenizer_path are required for provider onnx")
		}
	default:
		return fmt.Errorf("unsupported embed_llm.provider: %s", c.EmbedLLM.Provider)
	}
	return nil
}
