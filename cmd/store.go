package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/mashnote/mashnote/internal/importer"
	"github.com/mashnote/mashnote/internal/store"
	"github.com/mashnote/mashnote/pkg/catalog"
)

// openStore opens the configured backend and makes sure the schema exists.
func openStore(ctx context.Context) (store.Store, error) {
	var (
		st  store.Store
		err error
	)
	switch cfg.Store.Driver {
	case "sqlite":
		st, err = store.NewSQLite(cfg.Store.Path, cfg.Match.MinConfidence)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, cfg.Store.Pool, cfg.Match.MinConfidence)
	default:
		return nil, eris.Errorf("cmd: unknown store driver %q", cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}

	if err := st.Migrate(ctx); err != nil {
		st.Close()
		return nil, err
	}

	zap.L().Debug("store opened", zap.String("driver", cfg.Store.Driver))
	return st, nil
}

// catalogService is the ingredient side of an import: the matcher and the
// batch creator. Both store backends and the remote catalog client satisfy it.
type catalogService interface {
	importer.Matcher
	importer.Creator
}

// ingredientService picks where imports match and create ingredients: the
// hosted catalog when one is configured, the local store otherwise.
func ingredientService(st store.Store) catalogService {
	if cfg.Catalog.URL == "" {
		return st
	}
	return catalog.New(cfg.Catalog.URL, cfg.Catalog.APIKey,
		catalog.WithMinConfidence(cfg.Match.MinConfidence),
		catalog.WithTimeout(time.Duration(cfg.Catalog.TimeoutSecs)*time.Second),
	)
}
