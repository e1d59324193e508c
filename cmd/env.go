package main

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/rapidreach/lead-finder/internal/agent"
	"github.com/rapidreach/lead-finder/internal/model"
	"github.com/rapidreach/lead-finder/internal/notify"
	"github.com/rapidreach/lead-finder/internal/search"
	"github.com/rapidreach/lead-finder/internal/store"
	"github.com/rapidreach/lead-finder/pkg/anthropic"
	"github.com/rapidreach/lead-finder/pkg/places"
)

type appEnv struct {
	Store  store.Store
	Memory *store.MemoryStore
	Agent  *agent.Agent
}

// Close releases resources held by the environment.
func (e *appEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initEnv validates config for the given mode and wires the store, search
// finder, coordinator, and notifier. Callers should defer env.Close().
func initEnv(ctx context.Context, mode string) (*appEnv, error) {
	if err := cfg.Validate(mode); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	// Places client is optional. Without a key the finder runs in mock
	// mode and synthesizes deterministic results.
	var placesClient places.Client
	if cfg.Places.Key != "" {
		opts := []places.Option{}
		if cfg.Places.BaseURL != "" {
			opts = append(opts, places.WithBaseURL(cfg.Places.BaseURL))
		}
		placesClient = places.NewClient(cfg.Places.Key, opts...)
	} else {
		zap.L().Warn("LEADFINDER_PLACES_KEY not set, search runs in mock mode")
	}

	chains := search.DefaultChains()
	if cfg.Search.ChainsFile != "" {
		chains, err = search.LoadChains(cfg.Search.ChainsFile)
		if err != nil {
			_ = st.Close()
			return nil, err
		}
	}

	finder := search.NewFinder(placesClient, search.Options{
		Chains:         chains,
		PageTokenDelay: cfg.Search.PageTokenDelay(),
		DetailQPS:      cfg.Search.DetailQPS,
	})

	// Anthropic coordinator is optional too; without it discovery runs
	// the deterministic pipeline.
	var llm anthropic.Client
	if cfg.Anthropic.Key != "" {
		llm = anthropic.NewClient(cfg.Anthropic.Key)
	} else {
		zap.L().Debug("LEADFINDER_ANTHROPIC_KEY not set, using deterministic orchestration")
	}

	memory := store.NewMemory()
	notifier := notify.New(cfg.Notify.URL, cfg.Notify.Timeout())

	return &appEnv{
		Store:  st,
		Memory: memory,
		Agent: agent.New(finder, st, memory, notifier, agent.Options{
			LLM:   llm,
			Model: cfg.Anthropic.Model,
			Defaults: model.SearchDefaults{
				BusinessTypes: cfg.Search.BusinessTypes,
				RadiusKM:      cfg.Search.RadiusKM,
				MaxResults:    cfg.Search.MaxResults,
				MinRating:     cfg.Search.MinRating,
			},
		}),
	}, nil
}

func initStore(ctx context.Context) (store.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.Path
		if dsn == "" {
			dsn = "leads.db"
		}
		return store.NewSQLite(dsn, cfg.Store.LeadsTable)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.LeadsTable, nil)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}
