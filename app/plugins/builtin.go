package plugins

import (
	"context"

	"github.com/kilianp07/dayplan/config"
	"github.com/kilianp07/dayplan/core/store"
	infrastore "github.com/kilianp07/dayplan/infra/store"
)

func init() {
	RegisterStore("memory", func(context.Context, config.StoreConfig) (store.PlanStore, error) {
		return store.NewMemoryStore(), nil
	})
	RegisterStore("sqlite", func(_ context.Context, cfg config.StoreConfig) (store.PlanStore, error) {
		return infrastore.NewSQLiteStore(cfg.Path)
	})
	RegisterStore("postgres", func(ctx context.Context, cfg config.StoreConfig) (store.PlanStore, error) {
		return infrastore.NewPostgresStore(ctx, cfg.DSN)
	})
}
