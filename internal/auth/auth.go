// Package auth implements the signed-request verifier shared by the
// REST and WebSocket ingest listeners. Checking a signature against the
// chain's actual native signing scheme is a collaborator boundary — out
// of scope here — so SignatureVerifier is the seam a real
// implementation plugs into. HMACVerifier is a stand-in that satisfies
// the seam with a shared-secret HMAC: derive an expected value, compare,
// fail closed, the same hash-then-compare shape transaction signature
// checks use elsewhere.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/disregardfiat/honeygraph/pkg/utils"
)

// SignatureVerifier checks a signature computed over
// account:timestamp:body. Implementations wrap whatever the upstream
// chain actually uses to sign operations.
type SignatureVerifier interface {
	Verify(account string, timestamp int64, body []byte, signature string) error
}

// HMACVerifier is a SignatureVerifier backed by a shared secret. It
// exists so ingest can be exercised end to end before a real
// chain-signature collaborator is wired in.
type HMACVerifier struct {
	Secret []byte
}

// Verify recomputes the hex-encoded HMAC-SHA256 of
// "account:timestamp:" + body and compares it against signature in
// constant time.
func (v HMACVerifier) Verify(account string, timestamp int64, body []byte, signature string) error {
	if len(v.Secret) == 0 {
		return utils.Wrap(utils.ErrAuthFailure, "auth: no HMAC secret configured")
	}
	mac := hmac.New(sha256.New, v.Secret)
	fmt.Fprintf(mac, "%s:%d:", account, timestamp)
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return utils.Wrap(utils.ErrAuthFailure, "auth: signature mismatch for "+account)
	}
	return nil
}

// Authenticator is the request-level gate both ingest listeners call
// before enqueuing a frame: whitelist, then timestamp window, then the
// signature itself.
type Authenticator struct {
	Verifier SignatureVerifier
	Window time.Duration
	Mode string // "required" | "accepted"
	accepted map[string]bool
	now func() time.Time
}

// New builds an Authenticator. mode "accepted" rejects any account not
// in accepted (an empty accepted list under "accepted" mode accepts
// everyone that clears the signature check, matching an unset
// whitelist meaning "no restriction").
func New(verifier SignatureVerifier, window time.Duration, mode string, accepted []string) *Authenticator {
	m := make(map[string]bool, len(accepted))
	for _, a := range accepted {
		m[a] = true
	}
	return &Authenticator{
		Verifier: verifier,
		Window: window,
		Mode: mode,
		accepted: m,
		now: time.Now,
	}
}

// Authenticate validates account/timestamp/body/signature, returning
// utils.ErrAuthFailure (wrapped) on any rejection.
func (a *Authenticator) Authenticate(account string, timestamp int64, body []byte, signature string) error {
	if a.Mode == "accepted" && len(a.accepted) > 0 && !a.accepted[account] {
		return utils.Wrap(utils.ErrAuthFailure, "auth: account not in accepted list: "+account)
	}
	ts := time.Unix(timestamp, 0)
	now := a.now()
	if ts.Before(now.Add(-a.Window)) || ts.After(now.Add(a.Window)) {
		return utils.Wrap(utils.ErrAuthFailure, "auth: timestamp outside window")
	}
	if a.Verifier == nil {
		return utils.Wrap(utils.ErrAuthFailure, "auth: no signature verifier configured")
	}
	return a.Verifier.Verify(account, timestamp, body, signature)
}
