// Command honeygraph is the node process: it holds the fork-gossip
// membership, the network registry, and the metrics surface shared by
// every ingest process pointed at the same graph store and registry
// file. cmd/ingest handles the REST/WS collaborator-facing side; this
// binary handles the peer-facing and operational side.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/libp2p/go-libp2p"
	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/disregardfiat/honeygraph/internal/forkmgr"
	"github.com/disregardfiat/honeygraph/internal/graphstore"
	"github.com/disregardfiat/honeygraph/internal/registry"
	"github.com/disregardfiat/honeygraph/internal/types"
	"github.com/disregardfiat/honeygraph/pkg/config"
)

func main() {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		logrus.WithError(err).Fatal("honeygraph: failed to load configuration")
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
		log.WithError(err).Fatal("honeygraph: failed to construct graph store")
	}

	forks := forkmgr.New(log)

	reg := registry.New(cfg.Registry.DataPath, log)
	if err := reg.Reload(); err != nil {
		log.WithError(err).Warn("honeygraph: failed to reload registry, starting empty")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Fork.GossipEnabled {
		if err := startGossip(ctx, cfg.Network.ListenAddr, cfg.Snapshot.PoolPrefix, forks, log); err != nil {
			log.WithError(err).Warn("honeygraph: gossip startup failed, running without peer reconciliation")
		}
	}

	var metricsServer *http.Server
	if cfg.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
			if err := store.Health(r.Context()); err != nil {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
			w.WriteHeader(http.StatusOK)
		})
		metricsServer = &http.Server{Addr: cfg.Metrics.Addr, Handler: mux}
		go func() {
			log.WithField("addr", cfg.Metrics.Addr).Info("honeygraph: metrics listener starting")
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("honeygraph: metrics listener failed")
			}
		}()
	}

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig

	log.Info("honeygraph: shutting down")
	cancel()
	if metricsServer != nil {
		_ = metricsServer.Close()
	}
}

// startGossip joins the per-prefix fork-reconciliation topic and
// applies every peer reconciliation to the local Manager, so replicas
// converge on the same canonical fork without each re-deriving it from
// the same consensus source independently.
func startGossip(ctx context.Context, listenAddr, prefix string, forks *forkmgr.Manager, log *logrus.Logger) error {
	host, err := libp2p.New(libp2p.ListenAddrStrings(listenAddr))
	if err != nil {
		return err
	}
	ps, err := pubsub.NewGossipSub(ctx, host)
	if err != nil {
		host.Close()
		return err
	}
	gossip, err := forkmgr.NewGossip(ctx, ps, prefix, log)
	if err != nil {
		host.Close()
		return err
	}
	msgs, err := gossip.Subscribe(ctx)
	if err != nil {
		host.Close()
		return err
	}
	go func() {
		defer host.Close()
		for msg := range msgs {
			forks.SetCanonicalFork(msg.Canonical)
			for _, id := range msg.Orphaned {
				forks.UpdateForkStatus(id, types.ForkOrphaned, msg.BlockNum)
			}
		}
	}()
	return nil
}
