// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package archive

import (
	"github.com/yeetrun/zipview/pkg/config"
	"go.uber.org/zap"
	"tailscale.com/util/mak"
)

// Repository is the set of archives described by one configuration. It is
// immutable after construction and safe for concurrent use.
type Repository struct {
	archives []*Archive // listing order
	byName   map[string]*Archive
	resource *Archive
}

// NewRepository creates an Archive for every configured zip file. The
// resource zip, if configured, is reachable through Get under
// config.ResourceVDir but is not part of Archives.
func NewRepository(cfg *config.Config, logger *zap.Logger) *Repository {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Repository{}
	for _, c := range cfg.Archives {
		eps := make([]EntryPoint, len(c.EntryPoints))
		for i, ep := range c.EntryPoints {
			eps[i] = EntryPoint{URL: ep.URL, Description: ep.Description}
		}
		a := New(Options{
			Name:         c.VDir,
			File:         c.File,
			Description:  c.Description,
			DefaultEntry: c.DefaultEntry,
			EntryPoints:  eps,
			PoolSize:     c.PoolSize,
			Logger:       logger,
		})
		r.archives = append(r.archives, a)
		mak.Set(&r.byName, a.Name, a)
	}
	if cfg.ResourceZip != "" {
		r.resource = New(Options{
			Name:        config.ResourceVDir,
			File:        cfg.ResourceZip,
			Description: "Resource file",
			PoolSize:    cfg.PoolSize,
			Logger:      logger,
		})
		mak.Set(&r.byName, r.resource.Name, r.resource)
	}
	return r
}

// Get returns the archive served under name.
func (r *Repository) Get(name string) (*Archive, bool) {
	a, ok := r.byName[name]
	return a, ok
}

// Archives returns the listed archives in configuration order.
func (r *Repository) Archives() []*Archive {
	out := make([]*Archive, len(r.archives))
	copy(out, r.archives)
	return out
}

func (r *Repository) all() []*Archive {
	if r.resource == nil {
		return r.archives
	}
	return append(r.Archives(), r.resource)
}

// FlushIdle closes the idle handles of every archive and returns how many
// were closed.
func (r *Repository) FlushIdle() int {
	n := 0
	for _, a := range r.all() {
		n += a.FlushIdle()
	}
	return n
}

// Close closes every archive. Handles still in use are closed as they are
// released.
func (r *Repository) Close() {
	for _, a := range r.all() {
		a.Close()
	}
}

// MaxHandles is the number of files the repository may hold open at once.
func (r *Repository) MaxHandles() int {
	n := 0
	for _, a := range r.all() {
		n += a.PoolSize()
	}
	return n
}
