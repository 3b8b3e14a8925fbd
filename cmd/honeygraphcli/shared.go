package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/disregardfiat/honeygraph/internal/forkmgr"
	"github.com/disregardfiat/honeygraph/internal/graphstore"
	"github.com/disregardfiat/honeygraph/internal/registry"
	"github.com/disregardfiat/honeygraph/internal/snapshot"
	"github.com/disregardfiat/honeygraph/internal/types"
	"github.com/disregardfiat/honeygraph/pkg/config"
)

var (
	initOnce sync.Once
	initErr error

	cliStore *graphstore.Store
	cliForks *forkmgr.Manager
	cliSnaps *snapshot.Controller
	cliReg *registry.Registry
)

// cliInit lazily loads configuration and wires the components every
// subcommand needs.
func cliInit(cmd *cobra.Command, _ []string) error {
	initOnce.Do(func() {
		cfg, err := config.LoadFromEnv()
		if err != nil {
			initErr = fmt.Errorf("load config: %w", err)
			return
		}

		cliStore, err = graphstore.New(graphstore.Config{
			Endpoint: cfg.Graph.Endpoint,
			DialTimeout: cfg.Graph.DialTimeout,
		}, nil)
		if err != nil {
			initErr = fmt.Errorf("connect to graph store: %w", err)
			return
		}

		cliForks = forkmgr.New(nil)
		if err := cliForks.LoadForks(context.Background(), cliForkLoader{}); err != nil {
			initErr = fmt.Errorf("load forks: %w", err)
			return
		}

		zapLog, _ := zap.NewProduction()
		cliSnaps = snapshot.New(cfg.Snapshot.MaxSnapshots, nil, cliForks, zapLog)

		cliReg = registry.New(cfg.Registry.DataPath, nil)
		if err := cliReg.Reload(); err != nil {
			initErr = fmt.Errorf("reload registry: %w", err)
			return
		}
	})
	return initErr
}

// cliForkLoader degrades to "no known forks" until the store grows a
// dedicated fork-listing query, same posture as cmd/ingest's loader.
type cliForkLoader struct{}

func (cliForkLoader) LoadForks(ctx context.Context) ([]types.Fork, error) { return nil, nil }
