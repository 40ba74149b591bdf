package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ahmednasr/firstcommit/internal/config"
	"github.com/ahmednasr/firstcommit/internal/models"
)

func baseConfig() config.Config {
	return config.Config{
		ChromaURL:         "http://127.0.0.1:1",
		BatchSize:         50,
		ChunkSize:         4000,
		GitHubMaxPages:    3,
		FetchStrategy:     "archive",
		ReimportPolicy:    "skip-ready",
		EmbeddingProvider: "chroma",
		ResultsNumber:     5,
	}
}

func TestBuildInMemory(t *testing.T) {
	s, err := Build(context.Background(), baseConfig(), Options{InMemory: true})
	require.NoError(t, err)
	defer s.Close()

	assert.Nil(t, s.Mongo)
	assert.NotNil(t, s.Imports)
	assert.NotNil(t, s.Integrity)
	assert.NotNil(t, s.Search)

	_, err = s.Imports.Status(context.Background(), "unknown")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestBuildRequiresMongoURI(t *testing.T) {
	_, err := Build(context.Background(), baseConfig(), Options{})
	assert.ErrorContains(t, err, "MONGODB_URI")
}
