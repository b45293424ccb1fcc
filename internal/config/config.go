package config

import (
	"fmt"
	"log"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port  string `envconfig:"PORT" default:"8080"`
	Debug bool   `envconfig:"DEBUG" default:"false"`

	DatabaseURL string `envconfig:"DATABASE_URL" required:"true"`

	// Vector index persistence (chromem collection on disk)
	VectorDir        string `envconfig:"VECTOR_DIR" default:"vectorstore"`
	VectorCollection string `envconfig:"VECTOR_COLLECTION" default:"campus-docs"`
	VectorCompress   bool   `envconfig:"VECTOR_COMPRESS" default:"false"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"docqa-uploads"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`

	OpenAIAPIKey   string `envconfig:"OPENAI_API_KEY"`
	ChatModel      string `envconfig:"CHAT_MODEL" default:"gpt-4o-mini"`
	EmbeddingModel string `envconfig:"EMBEDDING_MODEL"`

	// External identity service that verifies bearer tokens
	IdentityURL string `envconfig:"IDENTITY_URL"`

	// Retrieval tuning
	RetrievalTopK      int     `envconfig:"RETRIEVAL_TOP_K" default:"3"`
	RetrievalThreshold float64 `envconfig:"RETRIEVAL_THRESHOLD" default:"0.3"`

	// Conversation memory window for follow-up questions
	HistoryWindow int `envconfig:"HISTORY_WINDOW" default:"5"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("DOCQA", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) HasIdentity() bool {
	return c.IdentityURL != ""
}
