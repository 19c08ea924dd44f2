package main

import (
	"fmt"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/oilfield/sgmfm/internal/config"
	"github.com/oilfield/sgmfm/internal/metrics"
	"github.com/oilfield/sgmfm/internal/pipeline"
	"github.com/oilfield/sgmfm/internal/store"
)

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:           "sgmfm",
		Short:         "Multiphase flow meter reconciliation and cross-validation batch runner",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (defaults applied otherwise)")

	root.AddCommand(newIngestCmd(&configPath))
	root.AddCommand(newReconcileCmd(&configPath))
	root.AddCommand(newCrossValidateCmd(&configPath))
	root.AddCommand(newStatusCmd(&configPath))

	return root
}

// buildPipeline loads configuration and wires a Pipeline over a real
// Postgres-backed Store when database_path looks like a DSN (contains "://"
// or an "@host" segment), otherwise an in-process MemStore for local/dev
// runs with no database configured.
func buildPipeline(configPath string) (*pipeline.Pipeline, func(), error) {
	cfg := config.Default()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, nil, configError("loading configuration", err)
		}
		cfg = loaded
	}

	st, closeStore, err := openStore(cfg.DatabasePath)
	if err != nil {
		return nil, nil, configError("opening store", err)
	}

	var cache *redis.Client
	if cfg.RedisAddr != "" {
		cache = redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	}

	reg := metrics.NewRegistry(prometheus.NewRegistry())
	p := pipeline.New(cfg, st, cache, reg)
	cleanup := func() {
		closeStore()
		if cache != nil {
			_ = cache.Close()
		}
	}
	return p, cleanup, nil
}

func openStore(databasePath string) (store.Store, func(), error) {
	if strings.Contains(databasePath, "://") || strings.Contains(databasePath, "@") {
		ps, err := store.Open(databasePath)
		if err != nil {
			return nil, nil, fmt.Errorf("connecting to %s: %w", databasePath, err)
		}
		return ps, func() { _ = ps.Close() }, nil
	}
	ms := store.NewMemStore()
	return ms, func() { _ = ms.Close() }, nil
}
