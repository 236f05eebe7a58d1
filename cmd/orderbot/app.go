package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"voiceorder/internal/catalog"
	"voiceorder/internal/config"
	"voiceorder/internal/embedding"
	"voiceorder/internal/ordering"
	"voiceorder/internal/parse"
	"voiceorder/internal/patterns"
	"voiceorder/internal/resolve"
	"voiceorder/internal/session"
	"voiceorder/internal/similarity"
	"voiceorder/internal/store"
)

// app is the wired object graph shared by every subcommand.
type app struct {
	cfg        *config.Config
	patterns   *patterns.Cache
	watcher    *patterns.Watcher
	engine     embedding.EmbeddingEngine
	embeddings *embedding.Cache
	scorer     *similarity.Scorer
	parser     *parse.Parser
	db         *store.DB
	index      catalog.Index
	sessions   *session.Manager
	ledger     ordering.Ledger
	menu       *resolve.MenuResolver
	packaging  *resolve.PackagingResolver
	service    *ordering.Service
	closers    []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}
	if err := a.wire(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *app) wire(ctx context.Context) error {
	var err error
	cfg := a.cfg

	a.patterns, err = patterns.NewCache(cfg.Patterns.Dir)
	if err != nil {
		return fmt.Errorf("load patterns: %w", err)
	}
	if cfg.Patterns.Watch {
		a.watcher, err = patterns.NewWatcher(a.patterns)
		if err != nil {
			return fmt.Errorf("pattern watcher: %w", err)
		}
		if err := a.watcher.Start(ctx); err != nil {
			logger.Warn("pattern hot reload disabled", zap.Error(err))
		} else {
			a.closers = append(a.closers, func() error { a.watcher.Stop(); return nil })
		}
	}

	a.engine, err = embedding.NewEngine(embedding.Config{
		Provider:       cfg.Embedding.Provider,
		OllamaEndpoint: cfg.Embedding.OllamaEndpoint,
		OllamaModel:    cfg.Embedding.OllamaModel,
		GenAIAPIKey:    cfg.Embedding.GenAIAPIKey,
		GenAIModel:     cfg.Embedding.GenAIModel,
		TaskType:       cfg.Embedding.TaskType,
		HashDimensions: cfg.Embedding.HashDimensions,
	})
	if err != nil {
		return err
	}
	if hc, ok := a.engine.(embedding.HealthChecker); ok {
		hctx, cancel := context.WithTimeout(ctx, cfg.GetEmbeddingTimeout())
		if err := hc.HealthCheck(hctx); err != nil {
			logger.Warn("embedding backend not healthy", zap.String("engine", a.engine.Name()), zap.Error(err))
		}
		cancel()
	}
	a.embeddings, err = embedding.NewCache(a.engine, cfg.Embedding.CacheSize, cfg.Embedding.BatchSize)
	if err != nil {
		return err
	}
	// A pattern reload starts from a cold embedding memo.
	a.patterns.OnReload(func(*patterns.Snapshot) {
		a.embeddings.Invalidate()
		logger.Debug("embedding memo cleared after pattern reload")
	})
	a.scorer = similarity.NewScorer(a.embeddings, func() float64 {
		return a.patterns.Current().Config.Thresholds.VectorWeight
	})
	a.parser = parse.New(a.patterns)

	if err := a.wireStores(ctx); err != nil {
		return err
	}

	a.menu = resolve.NewMenuResolver(a.patterns, a.index, a.embeddings, a.scorer, resolve.MenuOptions{
		TopK:       cfg.Search.MenuTopK,
		ScoreFloor: cfg.Search.MenuScoreFloor,
	})
	a.packaging = resolve.NewPackagingResolver(a.patterns, a.index, a.embeddings, a.scorer, cfg.Search.PackagingTopK)
	a.service = ordering.NewService(ordering.Deps{
		Sessions:  a.sessions,
		Parser:    a.parser,
		Menu:      a.menu,
		Packaging: a.packaging,
		Scorer:    a.scorer,
		Ledger:    a.ledger,
	}, ordering.Options{
		DefaultQuantityWhenMissing: cfg.Search.DefaultQuantityWhenMissing,
		PackagingFallback:          catalog.PackagingType(cfg.Search.PackagingFallback),
	})
	return nil
}

func (a *app) wireStores(ctx context.Context) error {
	cfg := a.cfg
	opts := session.Options{
		TTL:          cfg.GetSessionTTL(),
		CompletedTTL: cfg.GetCompletedTTL(),
		MaxRetries:   cfg.Session.MaxRetries,
	}

	if cfg.Store.SessionBackend == "memory" {
		idx := catalog.NewMemoryIndex()
		if err := catalog.Seed(ctx, idx, a.embeddings, catalog.DefaultSeed()); err != nil {
			return err
		}
		a.index = idx
		a.sessions = session.NewManager(session.NewMemoryStore(nil), opts)
		a.ledger = ordering.NewMemoryLedger()
		return nil
	}

	db, err := store.Open(cfg.Store.DatabasePath)
	if err != nil {
		return err
	}
	a.db = db
	a.closers = append(a.closers, db.Close)

	idx := store.NewCatalogIndex(db)
	menuCount, _, err := idx.Counts(ctx)
	if err != nil {
		return err
	}
	if menuCount == 0 {
		logger.Info("seeding empty catalog with the default menu")
		if err := catalog.Seed(ctx, idx, a.embeddings, catalog.DefaultSeed()); err != nil {
			return err
		}
	}
	a.index = idx
	a.ledger = store.NewLedger(db)

	var st session.Store
	switch cfg.Store.SessionBackend {
	case "redis":
		rs, err := store.NewRedisSessionStore(ctx, cfg.Store.RedisURL)
		if err != nil {
			return err
		}
		a.closers = append(a.closers, rs.Close)
		st = rs
	default:
		st = store.NewSessionStore(db, nil)
	}
	a.sessions = session.NewManager(st, opts)
	return nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("close failed", zap.Error(err))
		}
	}
	a.closers = nil
}
