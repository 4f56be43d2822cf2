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

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	// CrossCoachID is the distinguished coach identity allowed to search
	// across all coach partitions. Every other identity is scoped to itself.
	CrossCoachID string `envconfig:"CROSS_COACH_ID" default:"head-coach"`

	// S3 document source for the knowledge-refresh pipeline
	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"coachd-knowledge"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Prefix    string `envconfig:"S3_PREFIX"`
}

// DebugConfig carries per-component debug toggles. It is passed explicitly
// into components at construction so tests can set it per-case without
// shared mutable state.
type DebugConfig struct {
	LogContext bool
	LogSearch  bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("COACHD", &cfg); err != nil {
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

// DebugConfig derives component debug toggles from the top-level flag.
func (c *Config) DebugConfig() DebugConfig {
	return DebugConfig{
		LogContext: c.Debug,
		LogSearch:  c.Debug,
	}
}
