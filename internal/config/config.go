package config

import (
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// OpenAIEmbedderConfig holds configuration for the OpenAI-compatible embedder.
type OpenAIEmbedderConfig struct {
	BaseURL     string `yaml:"base_url"`
	APIKeyEnv   string `yaml:"api_key_env"`
	Model       string `yaml:"model"`
	TimeoutSecs int    `yaml:"timeout_secs"`
	BatchSize   int    `yaml:"batch_size"`
}

// GeminiConfig configures the Gemini API client used for embeddings and chat.
type GeminiConfig struct {
	APIKeyEnv      string `yaml:"api_key_env"`
	EmbeddingModel string `yaml:"embedding_model"`
	Dimension      int    `yaml:"dimension"`
	BatchSize      int    `yaml:"batch_size"`
}

// EmbedderConfig selects and configures the text embedder implementation.
type EmbedderConfig struct {
	Type   string                `yaml:"type"`
	OpenAI *OpenAIEmbedderConfig `yaml:"openai,omitempty"`
	Gemini *GeminiConfig         `yaml:"gemini,omitempty"`
}

// ChunkerConfig configures how documents are split into chunks. Sizes are in characters.
type ChunkerConfig struct {
	MarkdownChunkSize int  `yaml:"markdown_chunk_size"`
	MarkdownOverlap   int  `yaml:"markdown_overlap"`
	CodeChunkSize     int  `yaml:"code_chunk_size"`
	CodeOverlap       int  `yaml:"code_overlap"`
	DisableTreeSitter bool `yaml:"disable_tree_sitter"`
}

// VectorStoreConfig selects and configures the vector store implementation.
type VectorStoreConfig struct {
	Type   string        `yaml:"type"`
	Qdrant *QdrantConfig `yaml:"qdrant,omitempty"`
	SQLite *SQLiteConfig `yaml:"sqlite,omitempty"`
}

// QdrantConfig contains connection details for a Qdrant vector store.
type QdrantConfig struct {
	URL         string `yaml:"url"`
	APIKey      string `yaml:"api_key"`
	Collection  string `yaml:"collection"`
	Distance    string `yaml:"distance"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// SQLiteConfig locates the persistent vector database.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// SummarizerConfig selects and configures the summarizer.
type SummarizerConfig struct {
	Type         string `yaml:"type"`
	MaxSentences int    `yaml:"max_sentences"`
}

// LLMConfig selects the chat model.
type LLMConfig struct {
	Type        string  `yaml:"type"`
	BaseURL     string  `yaml:"base_url"`
	APIKeyEnv   string  `yaml:"api_key_env"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	TimeoutSecs int     `yaml:"timeout_secs"`
	MaxRetries  int     `yaml:"max_retries"`
}

// StreamConfig sets the streaming cut points.
type StreamConfig struct {
	MinChars      int `yaml:"min_chars"`
	MaxChars      int `yaml:"max_chars"`
	HeartbeatSecs int `yaml:"heartbeat_secs"`
}

// AnswerConfig tunes retrieval and the answer guards.
type AnswerConfig struct {
	TopK                   int     `yaml:"top_k"`
	ConfidenceThreshold    float64 `yaml:"confidence_threshold"`
	MaxCitations           int     `yaml:"max_citations"`
	DisableExampleVariants bool    `yaml:"disable_example_variants"`
}

// DocsConfig describes the documentation corpus.
type DocsConfig struct {
	Roots          []string `yaml:"roots"`
	CodeExtensions []string `yaml:"code_extensions"`
	MaxFileKB      int      `yaml:"max_file_kb"`
	SkipDirs       []string `yaml:"skip_dirs"`
	SkipFiles      []string `yaml:"skip_files"`
}

// LogConfig configures the zap logger.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// AppConfig is the root application configuration structure.
type AppConfig struct {
	Embedder    EmbedderConfig    `yaml:"embedder"`
	Chunker     ChunkerConfig     `yaml:"chunker"`
	VectorStore VectorStoreConfig `yaml:"vector_store"`
	Summarizer  SummarizerConfig  `yaml:"summarizer"`
	LLM         LLMConfig         `yaml:"llm"`
	Stream      StreamConfig      `yaml:"stream"`
	Answer      AnswerConfig      `yaml:"answer"`
	Docs        DocsConfig        `yaml:"docs"`
	Log         LogConfig         `yaml:"log"`
}

// Load reads a config from a specified path. If the file does not exist, returns defaults.
// A .env file in the working directory is loaded first, and DOCQA_* variables override
// the file.
func Load(path string) (*AppConfig, error) {
	_ = godotenv.Load()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := baseConfig()
			applyEnvOverrides(cfg)
			applyConfigDefaults(cfg)
			return cfg, nil
		}
		return nil, err
	}
	var cfg AppConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}
	applyEnvOverrides(&cfg)
	applyConfigDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault tries ./config.yaml first, then ~/.config/docqa/config.yaml.
// If neither exists, it writes defaults to ~/.config/docqa/config.yaml and returns them.
func LoadDefault() (*AppConfig, string, error) {
	cwdPath := "config.yaml"
	if _, err := os.Stat(cwdPath); err == nil {
		cfg, err := Load(cwdPath)
		return cfg, cwdPath, err
	}
	userPath, err := defaultUserConfigPath()
	if err != nil {
		return nil, "", err
	}
	if _, err := os.Stat(userPath); err == nil {
		cfg, err := Load(userPath)
		return cfg, userPath, err
	}
	if err := Save(userPath, defaultConfig()); err != nil {
		return nil, "", err
	}
	cfg, err := Load(userPath)
	return cfg, userPath, err
}

// Save writes the config to the given path, creating directories as needed.
func Save(path string, cfg *AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

func defaultUserConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "docqa", "config.yaml"), nil
}

func defaultConfig() *AppConfig {
	cfg := baseConfig()
	applyConfigDefaults(cfg)
	return cfg
}

func baseConfig() *AppConfig {
	return &AppConfig{
		Embedder:    EmbedderConfig{Type: "tfidf"},
		VectorStore: VectorStoreConfig{Type: "memory"},
		Summarizer:  SummarizerConfig{Type: "frequency", MaxSentences: 5},
		LLM:         LLMConfig{Type: "openai"},
		Docs:        DocsConfig{Roots: []string{"docs"}},
	}
}

func applyConfigDefaults(cfg *AppConfig) {
	if cfg.Embedder.Type == "" {
		cfg.Embedder.Type = "tfidf"
	}
	if cfg.Embedder.Type == "openai" {
		if cfg.Embedder.OpenAI == nil {
			cfg.Embedder.OpenAI = &OpenAIEmbedderConfig{}
		}
		if cfg.Embedder.OpenAI.BaseURL == "" {
			cfg.Embedder.OpenAI.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.Embedder.OpenAI.APIKeyEnv == "" {
			cfg.Embedder.OpenAI.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.Embedder.OpenAI.Model == "" {
			cfg.Embedder.OpenAI.Model = "text-embedding-3-small"
		}
		if cfg.Embedder.OpenAI.TimeoutSecs == 0 {
			cfg.Embedder.OpenAI.TimeoutSecs = 30
		}
		if cfg.Embedder.OpenAI.BatchSize == 0 {
			cfg.Embedder.OpenAI.BatchSize = 32
		}
	}
	if cfg.Embedder.Type == "gemini" || cfg.LLM.Type == "gemini" {
		if cfg.Embedder.Gemini == nil {
			cfg.Embedder.Gemini = &GeminiConfig{}
		}
		if cfg.Embedder.Gemini.APIKeyEnv == "" {
			cfg.Embedder.Gemini.APIKeyEnv = "GEMINI_API_KEY"
		}
		if cfg.Embedder.Gemini.EmbeddingModel == "" {
			cfg.Embedder.Gemini.EmbeddingModel = "text-embedding-004"
		}
		if cfg.Embedder.Gemini.Dimension == 0 {
			cfg.Embedder.Gemini.Dimension = 768
		}
		if cfg.Embedder.Gemini.BatchSize == 0 {
			cfg.Embedder.Gemini.BatchSize = 32
		}
	}

	if cfg.Chunker.MarkdownChunkSize == 0 {
		cfg.Chunker.MarkdownChunkSize = 1000
	}
	if cfg.Chunker.MarkdownOverlap == 0 {
		cfg.Chunker.MarkdownOverlap = 200
	}
	if cfg.Chunker.CodeChunkSize == 0 {
		cfg.Chunker.CodeChunkSize = 1400
	}
	if cfg.Chunker.CodeOverlap == 0 {
		cfg.Chunker.CodeOverlap = 120
	}

	if cfg.VectorStore.Type == "" {
		cfg.VectorStore.Type = "memory"
	}
	if cfg.VectorStore.Type == "qdrant" {
		if cfg.VectorStore.Qdrant == nil {
			cfg.VectorStore.Qdrant = &QdrantConfig{}
		}
		if cfg.VectorStore.Qdrant.URL == "" {
			cfg.VectorStore.Qdrant.URL = "http://localhost:6333"
		}
		if cfg.VectorStore.Qdrant.Collection == "" {
			cfg.VectorStore.Qdrant.Collection = "docqa"
		}
		if cfg.VectorStore.Qdrant.Distance == "" {
			cfg.VectorStore.Qdrant.Distance = "Cosine"
		}
		if cfg.VectorStore.Qdrant.TimeoutSecs == 0 {
			cfg.VectorStore.Qdrant.TimeoutSecs = 15
		}
	}
	if cfg.VectorStore.Type == "sqlite" {
		if cfg.VectorStore.SQLite == nil {
			cfg.VectorStore.SQLite = &SQLiteConfig{}
		}
		if cfg.VectorStore.SQLite.Path == "" {
			cfg.VectorStore.SQLite.Path = "docqa.db"
		}
	}

	if cfg.Summarizer.MaxSentences == 0 {
		cfg.Summarizer.MaxSentences = 5
	}

	if cfg.LLM.Type == "" {
		cfg.LLM.Type = "openai"
	}
	switch cfg.LLM.Type {
	case "openai":
		if cfg.LLM.BaseURL == "" {
			cfg.LLM.BaseURL = "https://api.openai.com/v1"
		}
		if cfg.LLM.APIKeyEnv == "" {
			cfg.LLM.APIKeyEnv = "OPENAI_API_KEY"
		}
		if cfg.LLM.Model == "" {
			cfg.LLM.Model = "gpt-4o-mini"
		}
	case "gemini":
		if cfg.LLM.APIKeyEnv == "" {
			cfg.LLM.APIKeyEnv = "GEMINI_API_KEY"
		}
		if cfg.LLM.Model == "" {
			cfg.LLM.Model = "gemini-2.5-flash"
		}
	}
	if cfg.LLM.TimeoutSecs == 0 {
		cfg.LLM.TimeoutSecs = 120
	}
	if cfg.LLM.MaxRetries == 0 {
		cfg.LLM.MaxRetries = 3
	}

	if cfg.Stream.MinChars == 0 {
		cfg.Stream.MinChars = 16
	}
	if cfg.Stream.MaxChars == 0 {
		cfg.Stream.MaxChars = 120
	}
	if cfg.Stream.HeartbeatSecs == 0 {
		cfg.Stream.HeartbeatSecs = 15
	}

	if cfg.Answer.TopK == 0 {
		cfg.Answer.TopK = 4
	}
	if cfg.Answer.ConfidenceThreshold == 0 {
		cfg.Answer.ConfidenceThreshold = 0.45
	}
	if cfg.Answer.MaxCitations == 0 {
		cfg.Answer.MaxCitations = 6
	}

	if len(cfg.Docs.CodeExtensions) == 0 {
		cfg.Docs.CodeExtensions = []string{".h", ".hpp", ".cc", ".cpp", ".cxx"}
	}
	if cfg.Docs.MaxFileKB == 0 {
		cfg.Docs.MaxFileKB = 512
	}
	if len(cfg.Docs.SkipDirs) == 0 {
		cfg.Docs.SkipDirs = []string{"node_modules", ".git", "build", ".cache"}
	}
	if len(cfg.Docs.SkipFiles) == 0 {
		cfg.Docs.SkipFiles = []string{"LICENSE", "CHANGELOG"}
	}

	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
}

// applyEnvOverrides lets DOCQA_* variables take precedence over the file.
func applyEnvOverrides(cfg *AppConfig) {
	if v := os.Getenv("DOCQA_EMBEDDER"); v != "" {
		cfg.Embedder.Type = v
	}
	if v := os.Getenv("DOCQA_VECTOR_STORE"); v != "" {
		cfg.VectorStore.Type = v
	}
	if v := os.Getenv("DOCQA_LLM"); v != "" {
		cfg.LLM.Type = v
	}
	if v := os.Getenv("DOCQA_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}
	if v := os.Getenv("DOCQA_LLM_BASE_URL"); v != "" {
		cfg.LLM.BaseURL = v
	}
	if v := os.Getenv("DOCQA_DOCS_ROOTS"); v != "" {
		var roots []string
		for _, r := range strings.Split(v, ",") {
			if r = strings.TrimSpace(r); r != "" {
				roots = append(roots, r)
			}
		}
		cfg.Docs.Roots = roots
	}
	if v := os.Getenv("DOCQA_TOP_K"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Answer.TopK = n
		}
	}
	if v := os.Getenv("DOCQA_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
}
