// Command ingest implements the ingest endpoints: a REST listener for
// block/consensus/checkpoint replication and a WebSocket listener for a
// push stream of individual operations, both behind a shared
// signed-request verifier. The router is a gorilla/mux router with a
// requestLogger/jsonHeaders middleware chain, and each handler follows a
// decode-body/call-core/writeJSON pattern.
package main

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"

	"github.com/disregardfiat/honeygraph/internal/auth"
	"github.com/disregardfiat/honeygraph/internal/forkmgr"
	"github.com/disregardfiat/honeygraph/internal/graphstore"
	"github.com/disregardfiat/honeygraph/internal/registry"
	"github.com/disregardfiat/honeygraph/internal/snapshot"
	"github.com/disregardfiat/honeygraph/internal/transform"
	"github.com/disregardfiat/honeygraph/internal/worker"
)

// Server holds every component the ingest listeners call into.
type Server struct {
	store *graphstore.Store
	xf *transform.Transformer
	pool *worker.Pool
	forks *forkmgr.Manager
	snaps *snapshot.Controller
	reg *registry.Registry
	auth *auth.Authenticator
	log *logrus.Logger
	upgrader websocket.Upgrader
}

// NewServer wires a Server from its already-constructed dependencies.
func NewServer(store *graphstore.Store, xf *transform.Transformer, pool *worker.Pool, forks *forkmgr.Manager, snaps *snapshot.Controller, reg *registry.Registry, authn *auth.Authenticator, log *logrus.Logger) *Server {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Server{
		store: store,
		xf: xf,
		pool: pool,
		forks: forks,
		snaps: snaps,
		reg: reg,
		auth: authn,
		log: log,
		upgrader: websocket.Upgrader{
			ReadBufferSize: 4096,
			WriteBufferSize: 4096,
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// NewRouter configures the HTTP routes for the ingest server.
func (s *Server) NewRouter() *mux.Router {
	r := mux.NewRouter()

	r.Use(requestLogger(s.log))
	r.Use(jsonHeaders)

	r.HandleFunc("/replicate/block", s.requireSignedRequest(s.handleReplicateBlock)).Methods(http.MethodPost)
	r.HandleFunc("/replicate/consensus", s.requireSignedRequest(s.handleReplicateConsensus)).Methods(http.MethodPost)
	r.HandleFunc("/replicate/checkpoint", s.requireSignedRequest(s.handleReplicateCheckpoint)).Methods(http.MethodPost)
	r.HandleFunc("/registry/{prefix}", s.requireSignedRequest(s.handleRegisterPrefix)).Methods(http.MethodPost)
	r.HandleFunc("/registry", s.handleListRegistry).Methods(http.MethodGet)

	// WebSocket push: the handshake itself isn't signed (browsers can't
	// set custom headers on it); every frame received over the
	// connection carries its own account/timestamp/signature and is
	// authenticated individually before being enqueued.
	r.HandleFunc("/operations", s.handleOperationStream)

	return r
}
