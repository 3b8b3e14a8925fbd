package forkmgr

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	pubsub "github.com/libp2p/go-libp2p-pubsub"
	"github.com/sirupsen/logrus"
)

// ReconciliationMessage is broadcast to other replicas whenever this
// process reconciles forks, so peers converge on the same canonical
// choice instead of rediscovering it independently.
type ReconciliationMessage struct {
	BlockNum uint64 `json:"blockNum"`
	ConsensusHash string `json:"consensusHash"`
	Canonical string `json:"canonical"`
	Orphaned []string `json:"orphaned"`
}

// Gossip wraps a libp2p-pubsub topic for fork reconciliation broadcast,
// so independent replicas converge on the same canonical fork instead
// of each rediscovering it on its own. Optional: a Manager works fine
// with a nil Gossip, same degrade-gracefully posture as the Snapshot
// Controller.
type Gossip struct {
	mu sync.Mutex
	ps *pubsub.PubSub
	topic *pubsub.Topic
	name string
	log *logrus.Logger
}

// NewGossip joins the topic "honeygraph/forks/<prefix>" on ps.
func NewGossip(ctx context.Context, ps *pubsub.PubSub, prefix string, logger *logrus.Logger) (*Gossip, error) {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	name := fmt.Sprintf("honeygraph/forks/%s", prefix)
	topic, err := ps.Join(name)
	if err != nil {
		return nil, fmt.Errorf("forkmgr: join topic %s: %w", name, err)
	}
	return &Gossip{ps: ps, topic: topic, name: name, log: logger}, nil
}

// PublishReconciliation broadcasts a ReconciliationResult so peers can
// adopt the same canonical fork without independently re-deriving it.
func (g *Gossip) PublishReconciliation(ctx context.Context, blockNum uint64, consensusHash string, r ReconciliationResult) error {
	msg := ReconciliationMessage{
		BlockNum: blockNum,
		ConsensusHash: consensusHash,
		Canonical: r.Canonical,
		Orphaned: r.Orphaned,
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.topic.Publish(ctx, data); err != nil {
		g.log.WithError(err).Warn("forkmgr: reconciliation publish failed")
		return err
	}
	return nil
}

// Subscribe returns a channel of reconciliation messages observed from
// peers, decoded from the topic's raw pubsub messages.
func (g *Gossip) Subscribe(ctx context.Context) (<-chan ReconciliationMessage, error) {
	sub, err := g.topic.Subscribe()
	if err != nil {
		return nil, fmt.Errorf("forkmgr: subscribe %s: %w", g.name, err)
	}
	out := make(chan ReconciliationMessage)
	go func() {
		defer close(out)
		for {
			m, err := sub.Next(ctx)
			if err != nil {
				g.log.WithError(err).Warn("forkmgr: reconciliation subscription ended")
				return
			}
			var rm ReconciliationMessage
			if err := json.Unmarshal(m.Data, &rm); err != nil {
				g.log.WithError(err).Warn("forkmgr: malformed reconciliation message")
				continue
			}
			select {
			case out <- rm:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}
