/*
Variable values service

2021 © Postgres.ai

HTTP service resolving values of dashboard query variables.
*/

package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/pkg/errors"

	"gitlab.com/postgres-ai/database-lab/v2/pkg/log"

	"gitlab.com/postgres-ai/varfetch/pkg/app"
	"gitlab.com/postgres-ai/varfetch/pkg/config"
	"gitlab.com/postgres-ai/varfetch/pkg/services/querier"
	"gitlab.com/postgres-ai/varfetch/pkg/services/resolver"
	"gitlab.com/postgres-ai/varfetch/pkg/services/storage"
)

const (
	shutdownTimeout = 60 * time.Second

	configFilePath = "config/config.yml"
)

// ldflag variables.
var buildTime, version string

func main() {
	version := formatVersion()

	cfg, err := loadConfig(configFilePath)
	if err != nil {
		log.Fatal("failed to load config: ", err)
	}

	log.SetDebug(cfg.App.Debug)

	log.Dbg("version: ", version)

	cfg.App.Version = version

	ctx, cancel := context.WithCancel(context.Background())
	shutdownCh := setShutdownListener()

	executor, closeExecutor, err := initExecutor(ctx, cfg.Source)
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to init a query executor"))
	}

	defer closeExecutor()

	valueResolver := resolver.NewResolver(executor, resolver.Options{
		Cache:    initCache(cfg.Cache),
		Coalesce: !cfg.Cache.DisableCoalescing,
	})

	var cacheStorage storage.PersistentCacheStorage

	if cfg.Cache.SnapshotPath != "" {
		cacheStorage = storage.NewJSONCacheStorage(cfg.Cache.SnapshotPath, valueResolver)

		if err := cacheStorage.Load(); err != nil {
			log.Fatal("unable to load cache data: ", err)
		}
	}

	varApp := app.NewApp(cfg, valueResolver, cacheStorage)

	go setSighupListener(ctx, varApp)

	go func() {
		if err := varApp.RunServer(ctx); err != nil && err != http.ErrServerClosed {
			log.Fatal(err)
		}
	}()

	<-shutdownCh
	log.Dbg("shutdown request received")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := varApp.Shutdown(shutdownCtx); err != nil {
		log.Msg(err)
	}
}

func loadConfig(configPath string) (*config.Config, error) {
	var cfg config.Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to read a config file")
	}

	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, "invalid configuration")
	}

	return &cfg, nil
}

func initExecutor(ctx context.Context, source config.Source) (resolver.Executor, func(), error) {
	switch source.Type {
	case config.SourcePostgres:
		pool, err := querier.InitPool(ctx, source.ConnString)
		if err != nil {
			return nil, nil, err
		}

		return querier.NewPostgresExecutor(pool), pool.Close, nil

	default:
		executor, err := querier.NewHTTPExecutor(source)
		if err != nil {
			return nil, nil, err
		}

		return executor, func() {}, nil
	}
}

func initCache(cfg config.Cache) resolver.Cache {
	if cfg.Bounded() {
		log.Msg("Use a bounded cache, size: ", cfg.Size, ", ttl: ", cfg.TTL)

		return resolver.NewLRUCache(cfg.Size, cfg.TTL)
	}

	return resolver.NewMapCache()
}

func formatVersion() string {
	return version + "-" + buildTime
}

func setShutdownListener() chan os.Signal {
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	return c
}

// setSighupListener allows to dump cached values.
func setSighupListener(ctx context.Context, varApp *app.App) {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGHUP)

	for {
		select {
		case <-ctx.Done():
			return
		case <-c:
			if err := varApp.SaveCache(); err != nil {
				log.Err("failed to save cache data: ", err)
			}
		}
	}
}
