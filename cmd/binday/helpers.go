package main

import (
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/spf13/afero"

	"binday/internal/analyzer"
	"binday/internal/api"
	"binday/internal/cache"
	"binday/internal/config"
	"binday/internal/models"
	"binday/internal/poller"
	"binday/internal/registry"
	"binday/internal/setup"
)

// app bundles the wired components shared by the subcommands.
type app struct {
	cfg      *config.Config
	log      *slog.Logger
	cache    *cache.Store
	fetcher  *cache.CachedClient
	resolver *setup.Resolver
	store    *registry.Store
	registry *registry.Registry
	now      func() time.Time
}

func newApp(cfg *config.Config) (*app, error) {
	log := newLogger(cfg)
	loc := cfg.Location()
	now := func() time.Time { return time.Now().In(loc) }

	client := api.NewClient(cfg)
	store := cache.NewStore(afero.NewOsFs(), cfg.Storage.CacheDir, loc, log)
	fetcher := cache.NewCachedClient(client, store, log, now)
	resolver := setup.NewResolver(client, log)

	regStore, err := registry.OpenStore(cfg.Storage.Database)
	if err != nil {
		return nil, err
	}

	intervals := poller.Intervals{
		Fast:   cfg.Poll.FastInterval,
		Medium: cfg.Poll.MediumInterval,
		Long:   cfg.Poll.LongInterval,
	}

	return &app{
		cfg:      cfg,
		log:      log,
		cache:    store,
		fetcher:  fetcher,
		resolver: resolver,
		store:    regStore,
		registry: registry.New(regStore, resolver, fetcher, store, intervals, cfg.Poll.SyncInterval, log),
		now:      now,
	}, nil
}

func (a *app) Close() error {
	return a.store.Close()
}

func setupApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return newApp(cfg)
}

func printView(out io.Writer, name string, state models.CollectionState, now time.Time) {
	view := analyzer.BuildView(state, now)

	fmt.Fprintf(out, "\n%s (premises %s)\n", name, view.PremisesID)
	fmt.Fprintf(out, "%-15s %-12s %-32s %s\n", "Bin", "Date", "State", "Days")
	fmt.Fprintf(out, "%s\n", "--------------------------------------------------------------------")
	for _, c := range view.Categories {
		date, days := "-", "-"
		if c.Date != nil {
			date = *c.Date
		}
		if c.Days != nil {
			days = fmt.Sprintf("%d", *c.Days)
		}
		fmt.Fprintf(out, "%-15s %-12s %-32s %s\n", c.Label, date, c.State, days)
	}

	if view.Next != nil {
		fmt.Fprintf(out, "Next: %s (%s)\n", view.Next.Label, view.Next.State)
	}
	if view.LastModified != "" {
		fmt.Fprintf(out, "Feed updated: %s\n", view.LastModified)
	}
}
