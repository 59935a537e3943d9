package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/MakeNowJust/heredoc"
	"github.com/goto/salt/log"
	"github.com/goto/sift/core/search"
	siftserver "github.com/goto/sift/internal/server"
	esStore "github.com/goto/sift/internal/store/elasticsearch"
	"github.com/goto/sift/internal/store/memory"
	"github.com/goto/sift/internal/store/postgres"
	"github.com/goto/sift/pkg/statsd"
	"github.com/goto/sift/pkg/telemetry"
	"github.com/spf13/cobra"
)

func serverCmd(cfg *Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "server <command>",
		Aliases: []string{"s"},
		Short:   "Run sift server",
		Long:    "Server management commands.",
		Example: heredoc.Doc(`
			$ sift server start
			$ sift server start -c ./config.yaml
			$ sift server migrate
			$ sift server migrate -c ./config.yaml
		`),
	}

	cmd.AddCommand(
		serverStartCommand(cfg),
		serverMigrateCommand(cfg),
	)

	return cmd
}

func serverStartCommand(cfg *Config) *cobra.Command {
	c := &cobra.Command{
		Use:     "start",
		Short:   "Start server on default port 8080",
		Example: "sift server start",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := runServer(cmd.Context(), cfg); err != nil {
				return fmt.Errorf("run server: %w", err)
			}
			return nil
		},
	}

	return c
}

func serverMigrateCommand(cfg *Config) *cobra.Command {
	var down bool
	c := &cobra.Command{
		Use:   "migrate",
		Short: "Run storage migration",
		Example: heredoc.Doc(`
			$ sift server migrate
			$ sift server migrate --down
		`),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), cfg, down)
		},
	}
	c.Flags().BoolVar(&down, "down", false, "Roll back the latest postgres migration")

	return c
}

func runServer(ctx context.Context, config *Config) error {
	logger := initLogger(config.LogLevel)
	logger.Info("sift starting", "version", Version, "store", config.Store)

	tcfg := config.Telemetry
	tcfg.AppVersion = Version
	nrApp, cleanUpTelemetry, err := telemetry.Init(ctx, tcfg, logger)
	if err != nil {
		return err
	}
	defer cleanUpTelemetry()

	statsdReporter, err := statsd.Init(logger, config.StatsD)
	if err != nil {
		return err
	}

	ds, closers, err := initStore(ctx, logger, config)
	if err != nil {
		return err
	}

	searchers, err := newSearchers(ds, append(config.Search.options(), search.WithLogger(logger))...)
	if err != nil {
		return err
	}

	return siftserver.Serve(ctx, config.Service, logger, siftserver.Deps{
		NRApp:          nrApp,
		StatsDReporter: statsdReporter,
		Searchers:      searchers,
		Closers:        append(closers, statsdReporter),
	})
}

func initLogger(logLevel string) *log.Logrus {
	logger := log.NewLogrus(
		log.LogrusWithLevel(logLevel),
		log.LogrusWithWriter(os.Stdout),
	)
	return logger
}

// initStore connects the backend selected by config.Store.
func initStore(ctx context.Context, logger log.Logger, config *Config) (search.DataSource, []io.Closer, error) {
	switch config.Store {
	case storePG, "":
		pgClient, err := initPostgres(ctx, logger, config)
		if err != nil {
			return nil, nil, err
		}
		repo, err := postgres.NewSearchRepository(pgClient)
		if err != nil {
			pgClient.Close()
			return nil, nil, fmt.Errorf("create new search repository: %w", err)
		}
		return repo, []io.Closer{pgClient}, nil

	case storeES:
		esClient, err := initElasticsearch(logger, config.Elasticsearch)
		if err != nil {
			return nil, nil, err
		}
		return esStore.NewSearchRepository(esClient), nil, nil

	case storeMemory:
		store, err := memory.NewFromConfig(config.Memory)
		if err != nil {
			return nil, nil, fmt.Errorf("create memory store: %w", err)
		}
		logger.Info("memory store loaded", "tables", fmt.Sprint(store.Tables()))
		return store, nil, nil
	}
	return nil, nil, fmt.Errorf("unknown store %q, expected %s, %s or %s", config.Store, storePG, storeES, storeMemory)
}

func initElasticsearch(logger log.Logger, config esStore.Config) (*esStore.Client, error) {
	esClient, err := esStore.NewClient(logger, config)
	if err != nil {
		return nil, fmt.Errorf("create new elasticsearch client: %w", err)
	}
	got, err := esClient.Init()
	if err != nil {
		return nil, fmt.Errorf("establish connection to elasticsearch: %w", err)
	}
	logger.Info("connected to elasticsearch", "info", got)
	return esClient, nil
}

func initPostgres(ctx context.Context, logger log.Logger, config *Config) (*postgres.Client, error) {
	pgClient, err := postgres.NewClient(config.DB)
	if err != nil {
		return nil, fmt.Errorf("error creating postgres client: %w", err)
	}
	if err := pgClient.Ping(ctx); err != nil {
		pgClient.Close()
		return nil, fmt.Errorf("error reaching postgres: %w", err)
	}
	logger.Info("connected to postgres server", "host", config.DB.Host, "port", config.DB.Port)

	return pgClient, nil
}

func runMigrations(ctx context.Context, config *Config, down bool) error {
	logger := initLogger(config.LogLevel)
	logger.Info("sift is migrating", "version", Version, "store", config.Store)

	switch config.Store {
	case storePG, "":
		logger.Info("Migrating Postgres...")
		if err := migratePostgres(ctx, logger, config, down); err != nil {
			return err
		}
		logger.Info("Migration Postgres done.")

	case storeES:
		if down {
			return fmt.Errorf("rolling back is not supported for %s", storeES)
		}
		logger.Info("Migrating Elasticsearch...")
		if err := migrateElasticsearch(ctx, logger, config); err != nil {
			return err
		}
		logger.Info("Migration Elasticsearch done.")

	case storeMemory:
		logger.Info("memory store needs no migration")

	default:
		return fmt.Errorf("unknown store %q", config.Store)
	}
	return nil
}

func migratePostgres(ctx context.Context, logger log.Logger, config *Config, down bool) (err error) {
	logger.Info("Initiating Postgres client...")

	pgClient, err := initPostgres(ctx, logger, config)
	if err != nil {
		logger.Error("failed to prepare migration", "error", err)
		return err
	}
	defer pgClient.Close()

	if down {
		err = pgClient.MigrateDown()
	} else {
		err = pgClient.Migrate()
	}
	if err != nil {
		return fmt.Errorf("problem with migration %w", err)
	}

	return nil
}

func migrateElasticsearch(ctx context.Context, logger log.Logger, config *Config) error {
	esClient, err := initElasticsearch(logger, config.Elasticsearch)
	if err != nil {
		return err
	}

	for _, name := range entityNames() {
		e := entities[name]
		if err := esClient.Migrate(ctx, e.table, esStore.MappingFor(e.whitelist, e.columns, e.scope...)); err != nil {
			return fmt.Errorf("migrate %s index: %w", name, err)
		}
		logger.Info("index migrated", "entity", name)
	}
	return nil
}
