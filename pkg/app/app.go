/*
2019 © Postgres.ai
*/

// Package app provides the HTTP service exposing variable values.
package app

import (
	"context"
	"fmt"
	"net"
	"net/http"

	"github.com/pkg/errors"

	"gitlab.com/postgres-ai/database-lab/v2/pkg/log"

	"gitlab.com/postgres-ai/varfetch/pkg/config"
	"gitlab.com/postgres-ai/varfetch/pkg/services/resolver"
	"gitlab.com/postgres-ai/varfetch/pkg/services/storage"
	"gitlab.com/postgres-ai/varfetch/pkg/util"
)

// App defines an application struct.
type App struct {
	Config       *config.Config
	resolver     *resolver.Resolver
	cacheStorage storage.PersistentCacheStorage
	httpSrv      *http.Server
	stopSaving   chan struct{}
}

// HealthResponse represents a response for heath-check requests.
type HealthResponse struct {
	Version      string `json:"version"`
	Source       string `json:"source"`
	CacheEntries int    `json:"cache_entries"`
}

// NewApp creates a new application. The cache storage is optional.
func NewApp(cfg *config.Config, valueResolver *resolver.Resolver, cacheStorage storage.PersistentCacheStorage) *App {
	return &App{
		Config:       cfg,
		resolver:     valueResolver,
		cacheStorage: cacheStorage,
	}
}

// Handler returns the HTTP handler of the application.
func (a *App) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("POST /variable-values", a.variableValues)
	mux.HandleFunc("POST /variable-values/batch", a.batchVariableValues)

	mux.HandleFunc("GET /", a.healthCheck)

	return mux
}

// RunServer starts a server for variable requests.
func (a *App) RunServer(ctx context.Context) error {
	if a.cacheStorage != nil && a.Config.Cache.SnapshotInterval > 0 {
		a.stopSaving = util.RunInterval(a.Config.Cache.SnapshotInterval, func() {
			if err := a.SaveCache(); err != nil {
				log.Err("failed to save cache snapshot: ", err)
			}
		})
	}

	addr := fmt.Sprintf("%s:%d", a.Config.App.Host, a.Config.App.Port)

	log.Msg(fmt.Sprintf("Server start listening on %s", addr))
	a.httpSrv = &http.Server{
		Addr:        addr,
		Handler:     a.Handler(),
		BaseContext: func(_ net.Listener) context.Context { return ctx },
	}

	return a.httpSrv.ListenAndServe()
}

// Shutdown gracefully shuts down the server and saves the cache.
func (a *App) Shutdown(ctx context.Context) error {
	if a.stopSaving != nil {
		close(a.stopSaving)
		a.stopSaving = nil
	}

	if a.httpSrv != nil {
		if err := a.httpSrv.Shutdown(ctx); err != nil {
			log.Msg(err)
		}
	}

	if err := a.SaveCache(); err != nil {
		return errors.Wrap(err, "unable to dump cache data")
	}

	return nil
}

// SaveCache dumps cached values to the storage.
func (a *App) SaveCache() error {
	if a.cacheStorage == nil {
		return nil
	}

	log.Dbg(fmt.Sprintf("Save %d cache entries", a.resolver.CacheLen()))

	return a.cacheStorage.Save()
}
