//
// Copyright (C) 2025 membridge authors.
//
// membridge is licensed under the Apache License Version 2.0.
//

// Package proxy provides an authenticated pass-through HTTP server in
// front of the remote memory service, so browser-side hosts can call
// the memory API without ever holding the service credential.
package proxy

import (
	"errors"
	"net/http"
	"net/http/httputil"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"

	"github.com/membridge/membridge/log"
)

var (
	// ErrTargetRequired is returned by New without an upstream URL.
	ErrTargetRequired = errors.New("proxy: target base URL is required")
	// ErrAPIKeyRequired is returned by New without a service credential.
	ErrAPIKeyRequired = errors.New("proxy: API key is required")
)

const requestIDHeader = "X-Request-Id"

// Server rewrites incoming /api/v1/memory requests onto the remote
// service, injecting the service credential. No business logic lives
// here; task lifecycle stays in the bridge package.
type Server struct {
	target *url.URL
	apiKey string
	router *mux.Router

	corsOpts cors.Options
}

// Option configures the Server instance.
type Option func(*Server)

// WithCORSOptions replaces the default permissive CORS policy.
func WithCORSOptions(opts cors.Options) Option {
	return func(s *Server) { s.corsOpts = opts }
}

// New creates a proxy server forwarding to targetBaseURL and
// authenticating with apiKey.
func New(targetBaseURL, apiKey string, opts ...Option) (*Server, error) {
	if targetBaseURL == "" {
		return nil, ErrTargetRequired
	}
	if apiKey == "" {
		return nil, ErrAPIKeyRequired
	}
	target, err := url.Parse(targetBaseURL)
	if err != nil {
		return nil, err
	}

	s := &Server{
		target: target,
		apiKey: apiKey,
		router: mux.NewRouter(),
		corsOpts: cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowCredentials: true,
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"*"},
			ExposedHeaders:   []string{"Content-Length", "Content-Type"},
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	s.router.Use(cors.New(s.corsOpts).Handler)
	s.router.Use(requestLog)
	s.registerRoutes()
	return s, nil
}

// Handler returns the http.Handler for the server.
func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) registerRoutes() {
	rp := &httputil.ReverseProxy{
		Director: s.direct,
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			log.Warnf("proxy: upstream request %s failed: %v", r.Header.Get(requestIDHeader), err)
			w.WriteHeader(http.StatusBadGateway)
		},
	}

	// Only the memory API surface is forwarded. Everything else 404s
	// without touching the upstream.
	s.router.PathPrefix("/api/v1/memory/").Handler(rp).Methods(
		http.MethodGet, http.MethodPost, http.MethodDelete)
	s.router.PathPrefix("/api/v1/memory/").HandlerFunc(preflight).Methods(http.MethodOptions)
}

// direct rewrites the request onto the upstream host and swaps the
// credential: whatever authorization the client sent is discarded.
func (s *Server) direct(r *http.Request) {
	r.URL.Scheme = s.target.Scheme
	r.URL.Host = s.target.Host
	r.Host = s.target.Host
	r.Header.Del("Authorization")
	r.Header.Set("Authorization", "Bearer "+s.apiKey)
	r.Header.Del("Cookie")
}

func preflight(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}

// requestLog tags each request with an ID and logs method, path,
// status and duration.
func requestLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)

		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.Infof("proxy: %s %s %s -> %d (%s)",
			id, r.Method, r.URL.Path, rec.status, time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
