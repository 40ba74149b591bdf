// Package config centralises all environment configuration for the ingestion
// service. It should be imported only by the binaries under cmd/ (and test
// code). Business-logic layers receive already-built values via
// dependency injection.
package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds every runtime option the binaries need.
// Keep it flat and simple: prefer primitive types over embedding structs.
type Config struct {
	// Network
	Port         string        `envconfig:"PORT" default:"8080"`
	ReadTimeout  time.Duration `envconfig:"READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`

	// Metadata store
	MongoURI string `envconfig:"MONGODB_URI"`
	DBName   string `envconfig:"MONGODB_DB" default:"firstcommit"`

	// Vector database
	ChromaURL     string        `envconfig:"CHROMA_URL" default:"http://localhost:8000"`
	ResultsNumber int           `envconfig:"CHROMA_RESULTS_NUMBER" default:"5"`
	BatchSize     int           `envconfig:"INDEX_BATCH_SIZE" default:"50"`
	ChunkSize     int           `envconfig:"INDEX_CHUNK_SIZE" default:"4000"`
	UpsertTimeout time.Duration `envconfig:"INDEX_UPSERT_TIMEOUT" default:"30s"`
	HTTPRetryMax  int           `envconfig:"HTTP_RETRY_MAX" default:"3"`

	// GitHub
	GitHubAPIURL   string `envconfig:"GITHUB_API_URL" default:"https://api.github.com/"`
	GitHubMaxPages int    `envconfig:"GITHUB_MAX_PAGES" default:"3"`
	FetchStrategy  string `envconfig:"FETCH_STRATEGY" default:"archive"`
	WorkDir        string `envconfig:"WORK_DIR"`

	// Orchestrator
	ReimportPolicy string `envconfig:"REIMPORT_POLICY" default:"skip-ready"`

	// Embeddings
	EmbeddingProvider string `envconfig:"EMBEDDING_PROVIDER" default:"chroma"`
	EmbeddingModel    string `envconfig:"EMBEDDING_MODEL" default:"text-embedding-005"`
	ProjectID         string `envconfig:"GCP_PROJECT_ID"`
	Location          string `envconfig:"GCP_LOCATION" default:"us-central1"`
	CredentialsFile   string `envconfig:"GCP_CREDENTIALS_FILE"`

	// Logging
	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`
}

// Load parses the environment (and an optional .env file) into Config.
// Unknown enum values are reported so mis-configurations fail fast.
// MONGODB_URI is checked by the binaries, since the operator CLI can run
// against an in-memory store.
func Load() (Config, error) {
	// godotenv.Load() is a no-op if .env doesn't exist, safe in production.
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	switch c.FetchStrategy {
	case "archive", "clone":
	default:
		return fmt.Errorf("FETCH_STRATEGY must be archive or clone, got %q", c.FetchStrategy)
	}
	switch c.ReimportPolicy {
	case "skip-ready", "always":
	default:
		return fmt.Errorf("REIMPORT_POLICY must be skip-ready or always, got %q", c.ReimportPolicy)
	}
	switch c.EmbeddingProvider {
	case "chroma":
	case "vertex":
		if c.ProjectID == "" {
			return fmt.Errorf("GCP_PROJECT_ID is required when EMBEDDING_PROVIDER=vertex")
		}
	default:
		return fmt.Errorf("EMBEDDING_PROVIDER must be chroma or vertex, got %q", c.EmbeddingProvider)
	}
	if c.BatchSize <= 0 || c.ChunkSize <= 0 {
		return fmt.Errorf("INDEX_BATCH_SIZE and INDEX_CHUNK_SIZE must be positive")
	}
	return nil
}
