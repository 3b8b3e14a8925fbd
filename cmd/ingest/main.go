package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/disregardfiat/honeygraph/internal/accountcache"
	"github.com/disregardfiat/honeygraph/internal/auth"
	"github.com/disregardfiat/honeygraph/internal/forkmgr"
	"github.com/disregardfiat/honeygraph/internal/graphstore"
	"github.com/disregardfiat/honeygraph/internal/pathacc"
	"github.com/disregardfiat/honeygraph/internal/registry"
	"github.com/disregardfiat/honeygraph/internal/snapshot"
	"github.com/disregardfiat/honeygraph/internal/transform"
	"github.com/disregardfiat/honeygraph/internal/types"
	"github.com/disregardfiat/honeygraph/internal/worker"
	"github.com/disregardfiat/honeygraph/pkg/config"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		logrus.WithError(err).Fatal("ingest: failed to load configuration")
	}

	log := logrus.StandardLogger()
	if lvl, err := logrus.ParseLevel(cfg.Logging.Level); err == nil {
		log.SetLevel(lvl)
	}

	store, err := graphstore.New(graphstore.Config{
		Endpoint:    cfg.Graph.Endpoint,
		DialTimeout: cfg.Graph.DialTimeout,
	}, log)
	if err != nil {
		log.WithError(err).Fatal("ingest: failed to construct graph store")
	}

	accounts := accountcache.New(nil)
	paths := pathacc.New()
	xf := transform.New(accounts, paths, log)

	forks := forkmgr.New(log)
	if err := forks.LoadForks(context.Background(), storeForkLoader{store}); err != nil {
		log.WithError(err).Warn("ingest: failed to rebuild fork state from store, starting empty")
	}

	zapLog, _ := zap.NewProduction()
	snaps := snapshot.New(cfg.Snapshot.MaxSnapshots, nil, forks, zapLog)

	reg := registry.New(cfg.Registry.DataPath, log)
	if err := reg.Reload(); err != nil {
		log.WithError(err).Warn("ingest: failed to reload registry, starting empty")
	}

	verifier := auth.HMACVerifier{Secret: []byte(cfg.Ingest.HMACSecret)}
	authn := auth.New(verifier, cfg.Ingest.TimestampWindow, cfg.Ingest.AuthMode, cfg.Ingest.AcceptedAccounts)

	pool := worker.New(log, nil)
	pool.Start(context.Background())
	defer pool.Stop()

	srv := NewServer(store, xf, pool, forks, snaps, reg, authn, log)

	restServer := &http.Server{Addr: cfg.Ingest.RESTAddr, Handler: srv.NewRouter()}

	wsRouter := mux.NewRouter()
	wsRouter.Use(requestLogger(log))
	wsRouter.HandleFunc("/operations", srv.handleOperationStream)
	wsServer := &http.Server{Addr: cfg.Ingest.WSAddr, Handler: wsRouter}

	go func() {
		log.WithField("addr", restServer.Addr).Info("ingest: REST listener starting")
		if err := restServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("ingest: REST listener failed")
		}
	}()
	go func() {
		log.WithField("addr", wsServer.Addr).Info("ingest: websocket listener starting")
		if err := wsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Fatal("ingest: websocket listener failed")
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("ingest: shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = restServer.Shutdown(ctx)
	_ = wsServer.Shutdown(ctx)
}

// storeForkLoader adapts the graph store to forkmgr.StoreLoader. The
// store has no dedicated fork-listing query yet, so boot simply starts
// with no known forks rather than failing — the fork manager learns
// about forks again as new blocks are replicated.
type storeForkLoader struct {
	store *graphstore.Store
}

func (l storeForkLoader) LoadForks(ctx context.Context) ([]types.Fork, error) {
	return nil, nil
}
