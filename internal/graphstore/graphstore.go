// Package graphstore implements a thin typed wrapper over the graph
// database — schema application, mutation submit, parameterized query,
// transaction lifecycle. No retry logic lives here; failures propagate
// to the caller (the worker owns retry policy). Config-driven
// constructor, a single *http.Client with a fixed timeout, typed JSON
// request/response, errors wrapped with utils.Wrap rather than
// returned bare.
package graphstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/disregardfiat/honeygraph/pkg/utils"
)

// Entity is one mutation-bound node: a map of predicate -> value, plus a
// "uid" key holding either a blank-node label ("_:account_alice") or a
// previously resolved store id. Using a bare map (rather than a struct)
// mirrors the store's own schemaless mutation wire format and lets every
// component (the transformer's output, tests) build entities without a
// graphstore import cycle.
type Entity map[string]any

// Mutation is one atomic set of entity upserts and entity deletes
// (a batch is atomic, all-or-nothing).
type Mutation struct {
	Set []Entity
	Delete []Entity
}

// Config configures the store's endpoint and dial behavior.
type Config struct {
	Endpoint string
	DialTimeout time.Duration
}

// Store is the typed graph-store client.
type Store struct {
	endpoint string
	client *http.Client
	logger *logrus.Logger
}

// New wires a Store instance against cfg.
func New(cfg Config, logger *logrus.Logger) (*Store, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("graphstore: endpoint required")
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Store{
		endpoint: cfg.Endpoint,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}, nil
}

// ApplySchema pushes a schema document to the store. Startup-only;
// failure here is SchemaConflict and is fatal to the caller.
func (s *Store) ApplySchema(ctx context.Context, schemaText string) error {
	_, err := s.post(ctx, "/alter", map[string]any{"schema": schemaText})
	if err != nil {
		return utils.Wrap(err, "graphstore: apply schema")
	}
	return nil
}

// Query runs a parameterized read against the store's native query
// language (DQL-like) and returns the raw JSON result.
func (s *Store) Query(ctx context.Context, query string, vars map[string]string) (json.RawMessage, error) {
	body, err := s.post(ctx, "/query", map[string]any{"query": query, "vars": vars})
	if err != nil {
		return nil, utils.Wrap(err, "graphstore: query")
	}
	return body, nil
}

// QueryGlobal is Query with the response's namespace prefix stripped, so
// callers that don't care which per-network instance served the read
// see bare predicate names.
func (s *Store) QueryGlobal(ctx context.Context, query string, vars map[string]string) (json.RawMessage, error) {
	raw, err := s.Query(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	return stripNamespace(raw), nil
}

func stripNamespace(raw json.RawMessage) json.RawMessage {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return raw
	}
	stripped := stripNamespaceValue(v)
	out, err := json.Marshal(stripped)
	if err != nil {
		return raw
	}
	return out
}

func stripNamespaceValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if idx := lastDot(k); idx >= 0 {
				k = k[idx+1:]
			}
			out[k] = stripNamespaceValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = stripNamespaceValue(e)
		}
		return out
	default:
		return v
	}
}

func lastDot(s string) int {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == '.' {
			return i
		}
	}
	return -1
}

// Mutate submits m as a single atomic transaction and returns the
// blank-node-label -> resolved-id mapping the store assigns on commit
// (deferred-identifier resolution).
func (s *Store) Mutate(ctx context.Context, m Mutation) (uidMap map[string]string, err error) {
	body, err := s.post(ctx, "/mutate", map[string]any{"set": m.Set, "delete": m.Delete})
	if err != nil {
		return nil, utils.Wrap(err, "graphstore: mutate")
	}
	var resp struct {
		Uids map[string]string `json:"uids"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, utils.Wrap(err, "graphstore: decode mutate response")
	}
	return resp.Uids, nil
}

// Health reports whether the store is reachable.
func (s *Store) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.endpoint+"/health", nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return utils.Wrap(err, "graphstore: health")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("graphstore: health status %d", resp.StatusCode)
	}
	return nil
}

func (s *Store) post(ctx context.Context, path string, payload any) (json.RawMessage, error) {
	buf, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint+path, bytes.NewReader(buf))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		var msg struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&msg)
		s.logger.WithField("path", path).WithField("status", resp.StatusCode).Warn("graphstore: non-200 response")
		if msg.Error != "" {
			return nil, fmt.Errorf("%s: %s", path, msg.Error)
		}
		return nil, fmt.Errorf("%s: status %d", path, resp.StatusCode)
	}
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}
	return raw, nil
}
