package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/disregardfiat/honeygraph/internal/graphstore"
	"github.com/disregardfiat/honeygraph/internal/registry"
	"github.com/disregardfiat/honeygraph/internal/transform"
	"github.com/disregardfiat/honeygraph/internal/worker"
)

// writeJSON encodes v as the response body.
func writeJSON(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func toGraphEntities(mutations []transform.Entity) []graphstore.Entity {
	out := make([]graphstore.Entity, len(mutations))
	for i, e := range mutations {
		out[i] = graphstore.Entity(e)
	}
	return out
}

func opDedupKey(op transform.Op) string {
	return fmt.Sprintf("%d:%s:%d", op.BlockNum, strings.Join(op.Path, "/"), op.Index)
}

// applyOps runs ops through the transformer and submits the resulting
// mutation to the graph store, logging (not failing the batch on) any
// skipped operations.
func (s *Server) applyOps(ctx context.Context, ops []transform.Op, block transform.BlockInfo) error {
	result := s.xf.Transform(ctx, ops, block)
	for _, skipped := range result.Skipped {
		s.log.WithField("reason", skipped.Reason).WithField("path", skipped.Op.Path).
			Warn("ingest: dropped malformed operation")
	}
	if len(result.Mutations) == 0 {
		return nil
	}
	_, err := s.store.Mutate(ctx, graphstore.Mutation{Set: toGraphEntities(result.Mutations)})
	return err
}

type blockFrame struct {
	BlockNum uint64 `json:"blockNum"`
	BlockHash string `json:"blockHash"`
	PreviousHash string `json:"previousHash"`
	Operations []transform.Op `json:"operations"`
}

func (s *Server) handleReplicateBlock(w http.ResponseWriter, r *http.Request) {
	var f blockFrame
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	forkID := s.forks.DetectFork(f.BlockNum, f.BlockHash, f.PreviousHash)
	block := transform.BlockInfo{
		BlockNum: f.BlockNum,
		BlockHash: f.BlockHash,
		PreviousHash: f.PreviousHash,
		ForkID: forkID,
	}

	job := worker.NewJob(worker.KindReplicateBlock, forkID, 0, func(ctx context.Context) error {
		return s.applyOps(ctx, f.Operations, block)
	})
	s.pool.Submit(job)

	writeJSON(w, map[string]any{"forkId": forkID, "accepted": len(f.Operations)})
}

type consensusFrame struct {
	BlockNum uint64 `json:"blockNum"`
	ConsensusHash string `json:"consensusHash"`
}

func (s *Server) handleReplicateConsensus(w http.ResponseWriter, r *http.Request) {
	var f consensusFrame
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := worker.NewJob(worker.KindUpdateConsensus, "", 0, func(ctx context.Context) error {
		result := s.forks.ReconcileForks(f.BlockNum, f.ConsensusHash)
		s.log.WithField("canonical", result.Canonical).WithField("orphaned", result.Orphaned).
			Info("ingest: reconciled forks against consensus")
		return nil
	})
	s.pool.Submit(job)

	writeJSON(w, map[string]any{"queued": true})
}

type checkpointFrame struct {
	BlockNum uint64 `json:"blockNum"`
	Tag string `json:"tag"`
}

func (s *Server) handleReplicateCheckpoint(w http.ResponseWriter, r *http.Request) {
	var f checkpointFrame
	if err := json.NewDecoder(r.Body).Decode(&f); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	job := worker.NewJob(worker.KindCreateCheckpoint, "", 0, func(ctx context.Context) error {
		_, err := s.snaps.CreateCheckpoint(ctx, f.BlockNum, f.Tag)
		return err
	})
	s.pool.Submit(job)

	writeJSON(w, map[string]any{"queued": true})
}

func (s *Server) handleRegisterPrefix(w http.ResponseWriter, r *http.Request) {
	prefix := mux.Vars(r)["prefix"]
	var e registry.Entry
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	e.Prefix = prefix
	if err := s.reg.Register(e); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, e)
}

func (s *Server) handleListRegistry(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.reg.List())
}

// wsFrame is one operation pushed over the WebSocket stream. Op is kept
// as raw JSON so the exact bytes the sender signed can be hashed for
// auth without risking a re-encoding mismatch.
type wsFrame struct {
	Account string `json:"account"`
	Timestamp int64 `json:"timestamp"`
	Signature string `json:"signature"`
	Op json.RawMessage `json:"op"`
}

func (s *Server) handleOperationStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.WithError(err).Warn("ingest: websocket upgrade failed")
		return
	}
	defer conn.Close()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			return
		}

		var f wsFrame
		if err := json.Unmarshal(raw, &f); err != nil {
			s.log.WithError(err).Warn("ingest: dropped malformed ws frame")
			continue
		}
		if err := s.auth.Authenticate(f.Account, f.Timestamp, f.Op, f.Signature); err != nil {
			s.log.WithError(err).WithField("account", f.Account).Warn("ingest: rejected unsigned ws operation")
			continue
		}

		var op transform.Op
		if err := json.Unmarshal(f.Op, &op); err != nil {
			s.log.WithError(err).Warn("ingest: dropped malformed ws operation payload")
			continue
		}

		block := transform.BlockInfo{BlockNum: op.BlockNum, ForkID: op.ForkHash}
		job := worker.NewJob(worker.KindProcessOperation, "", 5, func(ctx context.Context) error {
			return s.applyOps(ctx, []transform.Op{op}, block)
		})
		job.DedupKey = opDedupKey(op)
		s.pool.Submit(job)
	}
}
