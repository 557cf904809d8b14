package main

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/enrich-cli/internal/evidence"
	"github.com/sells-group/enrich-cli/internal/fanout"
	"github.com/sells-group/enrich-cli/internal/pipeline"
	"github.com/sells-group/enrich-cli/internal/provider"
)

func initStore(ctx context.Context) (evidence.Store, error) {
	switch cfg.Store.Driver {
	case "sqlite":
		dsn := cfg.Store.DatabaseURL
		if dsn == "" {
			dsn = "enrich.db"
		}
		st, err := evidence.NewSQLite(dsn)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil
	case "postgres":
		st, err := evidence.NewPostgres(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := st.Migrate(ctx); err != nil {
			st.Close()
			return nil, err
		}
		return st, nil
	case "memory":
		return evidence.NewMemory(), nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initFanout resolves the active providers and builds the orchestrator.
func initFanout() (*fanout.Orchestrator, error) {
	providers, err := provider.NewRegistry().Resolve(cfg.Providers)
	if err != nil {
		return nil, err
	}
	return fanout.New(providers, cfg.Fanout.ToFanout()), nil
}

func initPipeline(st evidence.Store, force bool) (*pipeline.Pipeline, error) {
	fo, err := initFanout()
	if err != nil {
		return nil, err
	}
	return pipeline.New(fo, cfg.Gate, st, pipeline.Options{
		Concurrency: cfg.Batch.Concurrency,
		Force:       force,
	}), nil
}
