package main

import (
	"bytes"
	"io"
	"net/http"
	"strconv"

	"github.com/sirupsen/logrus"
)

// requestLogger writes basic request info using structured logging.
func requestLogger(log *logrus.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log.WithFields(logrus.Fields{
				"method": r.Method,
				"path": r.URL.Path,
			}).Info("incoming request")
			next.ServeHTTP(w, r)
		})
	}
}

// jsonHeaders sets Content-Type application/json for all responses.
func jsonHeaders(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// requireSignedRequest enforces the shared auth.Authenticator over
// X-Account / X-Timestamp / X-Signature headers and the raw request
// body, then rewinds the body so the handler can still decode it.
func (s *Server) requireSignedRequest(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		account := r.Header.Get("X-Account")
		tsHeader := r.Header.Get("X-Timestamp")
		signature := r.Header.Get("X-Signature")
		ts, err := strconv.ParseInt(tsHeader, 10, 64)
		if account == "" || signature == "" || err != nil {
			http.Error(w, "missing or malformed auth headers", http.StatusUnauthorized)
			return
		}

		body, err := io.ReadAll(r.Body)
		if err != nil {
			http.Error(w, "unreadable body", http.StatusBadRequest)
			return
		}
		r.Body = io.NopCloser(bytes.NewReader(body))

		if err := s.auth.Authenticate(account, ts, body, signature); err != nil {
			s.log.WithError(err).WithField("account", account).Warn("ingest: rejected unsigned or invalid request")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
