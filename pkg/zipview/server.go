// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package zipview serves the contents of zip archives over HTTP.
package zipview

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/yeetrun/zipview/pkg/archive"
	"github.com/yeetrun/zipview/pkg/compress"
	"github.com/yeetrun/zipview/pkg/config"
	"github.com/yeetrun/zipview/pkg/fdlimit"
	"go.uber.org/zap"
)

const resourceVDir = config.ResourceVDir

// Config contains the server dependencies.
type Config struct {
	// ConfigPath is the configuration file read on start and on reload.
	ConfigPath string
	// Archives, if set, is used instead of reading ConfigPath on start.
	Archives *config.Config
	// FlushInterval overrides the configured flush interval when positive.
	FlushInterval time.Duration
	Logger        *zap.Logger
}

// Server serves the archives of one configuration and periodically closes
// archive handles that are not in use.
type Server struct {
	cfg       Config
	logger    *zap.Logger
	handler   http.Handler
	waitGroup sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	// retune carries a new flush interval to the flusher after a reload.
	retune   chan time.Duration
	reloadMu sync.Mutex // serializes Reload

	mu    sync.Mutex // protects the following
	repo  *archive.Repository
	conf  *config.Config
	every time.Duration
}

var errNoConfigPath = errors.New("zipview: no configuration file")

// NewUnstartedServer creates a new Server with the provided configuration
// but does not start its background work.
func NewUnstartedServer(cfg *Config) (*Server, error) {
	s := &Server{
		cfg:    *cfg,
		logger: cfg.Logger,
		retune: make(chan time.Duration, 1),
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	conf := cfg.Archives
	if conf == nil {
		if cfg.ConfigPath == "" {
			return nil, errNoConfigPath
		}
		var err error
		if conf, err = config.Load(cfg.ConfigPath); err != nil {
			return nil, err
		}
	}
	s.install(conf)
	s.handler = s.logRequests(compress.Handler(s.newMux()))
	return s, nil
}

// NewServer creates and starts a new Server.
func NewServer(cfg *Config) (*Server, error) {
	s, err := NewUnstartedServer(cfg)
	if err != nil {
		return nil, err
	}
	s.Start()
	return s, nil
}

// Start starts the flusher. It panics if the server is already started.
func (s *Server) Start() {
	if s.cancel != nil {
		panic("server already started")
	}
	s.ctx, s.cancel = context.WithCancel(context.Background())
	s.waitGroup.Go(s.flusher)
}

// Shutdown stops the flusher and closes every archive. Handles in use by
// in-flight requests are closed when those requests finish.
func (s *Server) Shutdown() {
	if s.cancel != nil {
		s.cancel()
	}
	s.waitGroup.Wait()
	s.Repository().Close()
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// Repository returns the archives currently served.
func (s *Server) Repository() *archive.Repository {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo
}

// ListenAddr returns the configured listen address.
func (s *Server) ListenAddr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conf.Listen
}

// Reload reads the configuration file again and replaces the served
// archives. The previous archives close their idle handles immediately and
// the rest as in-flight requests release them.
func (s *Server) Reload() error {
	if s.cfg.ConfigPath == "" {
		return errNoConfigPath
	}
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()
	conf, err := config.Load(s.cfg.ConfigPath)
	if err != nil {
		return fmt.Errorf("failed to reload config: %w", err)
	}
	old := s.install(conf)
	old.Close()
	s.logger.Info("configuration reloaded",
		zap.String("path", conf.Path),
		zap.Int("archives", len(conf.Archives)))
	return nil
}

// install makes conf the served configuration and returns the previous
// repository, or nil.
func (s *Server) install(conf *config.Config) *archive.Repository {
	repo := archive.NewRepository(conf, s.logger)
	every := conf.FlushInterval
	if s.cfg.FlushInterval > 0 {
		every = s.cfg.FlushInterval
	}
	if every <= 0 {
		every = config.DefaultFlushInterval
	}
	s.checkLimit(repo)

	s.mu.Lock()
	old := s.repo
	s.repo, s.conf = repo, conf
	changed := s.every != every
	s.every = every
	s.mu.Unlock()

	if changed && old != nil {
		select {
		case <-s.retune:
		default:
		}
		s.retune <- every
	}
	return old
}

func (s *Server) checkLimit(repo *archive.Repository) {
	need := repo.MaxHandles()
	l, err := fdlimit.Ensure(need)
	if errors.Is(err, fdlimit.ErrUnsupported) {
		return
	}
	if err != nil {
		s.logger.Warn("failed to raise open file limit", zap.Int("handles", need), zap.Error(err))
		return
	}
	if !l.Allows(need) {
		s.logger.Warn("open file limit is lower than the archive pools can use",
			zap.Int("handles", need), zap.Uint64("soft_limit", l.Soft))
	}
}

func (s *Server) flushInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.every
}

// FlushIdle closes the idle handles of every served archive.
func (s *Server) FlushIdle() int {
	return s.Repository().FlushIdle()
}

func (s *Server) flusher() {
	ctx := s.ctx
	ticker := time.NewTicker(s.flushInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case d := <-s.retune:
			ticker.Reset(d)
		case <-ticker.C:
			if n := s.FlushIdle(); n > 0 {
				s.logger.Debug("closed idle archive handles", zap.Int("count", n))
			}
		}
	}
}
