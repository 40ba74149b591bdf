// Package app assembles the ingestion services from configuration. Both
// binaries under cmd/ build their dependency graph here, once, at startup.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/ahmednasr/firstcommit/internal/chroma"
	"github.com/ahmednasr/firstcommit/internal/config"
	"github.com/ahmednasr/firstcommit/internal/database"
	"github.com/ahmednasr/firstcommit/internal/fetcher"
	"github.com/ahmednasr/firstcommit/internal/github"
	"github.com/ahmednasr/firstcommit/internal/repository"
	"github.com/ahmednasr/firstcommit/internal/repository/memstore"
	"github.com/ahmednasr/firstcommit/internal/service"
)

// Options alter how Build wires the graph.
type Options struct {
	// InMemory replaces MongoDB with an in-process store. Nothing survives
	// the process; used by the operator CLI for one-off imports.
	InMemory bool
}

// Services is the assembled dependency graph.
type Services struct {
	Mongo     *mongo.Client // nil when in memory
	Chroma    *chroma.Client
	Store     service.MetadataStore
	Imports   service.ImportService
	Integrity service.IntegrityService
	Search    service.SearchService

	closers []func() error
}

// Build connects to the stores and wires every service.
func Build(ctx context.Context, cfg config.Config, opts Options) (*Services, error) {
	s := &Services{}

	if opts.InMemory {
		s.Store = memstore.New()
	} else {
		if cfg.MongoURI == "" {
			return nil, errors.New("MONGODB_URI is required")
		}
		client, err := database.NewMongo(ctx, cfg.MongoURI)
		if err != nil {
			return nil, fmt.Errorf("connect to MongoDB: %w", err)
		}
		s.Mongo = client
		s.closers = append(s.closers, func() error { return client.Disconnect(context.Background()) })

		store := repository.NewMongoStore(client.Database(cfg.DBName))
		if err := store.EnsureIndexes(ctx); err != nil {
			s.Close()
			return nil, err
		}
		s.Store = store
		log.Info().Str("database", cfg.DBName).Msg("connected to MongoDB")
	}

	gh, err := github.NewClient(github.Options{
		BaseURL:  cfg.GitHubAPIURL,
		MaxPages: cfg.GitHubMaxPages,
		RetryMax: cfg.HTTPRetryMax,
	})
	if err != nil {
		s.Close()
		return nil, fmt.Errorf("github client: %w", err)
	}

	var f fetcher.Fetcher
	switch cfg.FetchStrategy {
	case "clone":
		f = fetcher.NewCloneFetcher(cfg.WorkDir)
	default:
		f = fetcher.NewArchiveFetcher(gh, cfg.WorkDir)
	}

	var embedder service.Embedder
	if cfg.EmbeddingProvider == "vertex" {
		v, err := service.NewVertexEmbedder(ctx, service.VertexConfig{
			ProjectID:       cfg.ProjectID,
			Location:        cfg.Location,
			Model:           cfg.EmbeddingModel,
			CredentialsFile: cfg.CredentialsFile,
		})
		if err != nil {
			s.Close()
			return nil, err
		}
		s.closers = append(s.closers, v.Close)
		embedder = v
	}

	s.Chroma = chroma.NewClient(cfg.ChromaURL, cfg.HTTPRetryMax)
	indexer := service.NewChromaIndexer(s.Chroma, embedder, service.IndexerConfig{
		BatchSize:     cfg.BatchSize,
		ChunkSize:     cfg.ChunkSize,
		UpsertTimeout: cfg.UpsertTimeout,
	})

	s.Imports = service.NewImportService(s.Store, gh, f, indexer, service.NewMemoryGuard(), service.ImportConfig{
		Policy: service.ReimportPolicy(cfg.ReimportPolicy),
	})
	s.Integrity = service.NewIntegrityService(s.Store, indexer)
	s.Search = service.NewSearchService(s.Store, indexer, cfg.ResultsNumber)

	log.Info().
		Str("fetch_strategy", cfg.FetchStrategy).
		Str("embedding_provider", cfg.EmbeddingProvider).
		Str("reimport_policy", cfg.ReimportPolicy).
		Str("chroma_url", cfg.ChromaURL).
		Msg("services wired")
	return s, nil
}

// Close releases connections in reverse order of acquisition.
func (s *Services) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
	s.closers = nil
}
