// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package archive binds resource pools to zip archives. Each Archive owns at
// most one pool of open handles, built on first use, and a Repository holds
// the archives described by one configuration.
package archive

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/yeetrun/zipview/pkg/respool"
	"go.uber.org/zap"
)

// DefaultPoolSize is the number of handles an archive keeps open at most
// when Options.PoolSize is unset.
const DefaultPoolSize = 10

// EntryPoint is a published document inside an archive.
type EntryPoint struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

func (e EntryPoint) String() string {
	return e.URL + ":" + e.Description
}

// Options describe one archive.
type Options struct {
	// Name is the virtual directory the archive is served under.
	Name string
	// File is the path of the zip file on disk.
	File         string
	Description  string
	DefaultEntry string
	EntryPoints  []EntryPoint
	// PoolSize bounds the number of concurrently open handles.
	PoolSize int
	Logger   *zap.Logger

	// open overrides Open in tests.
	open func(path string) (*Handle, error)
}

// Archive is a named zip file served through a lazily built pool of handles.
type Archive struct {
	Name         string
	File         string
	Description  string
	DefaultEntry string
	EntryPoints  []EntryPoint

	poolSize int
	logger   *zap.Logger
	open     func(path string) (*Handle, error)

	poolOnce   sync.Once
	pool       *respool.Pool[*Handle]
	poolsBuilt atomic.Int32

	invalid atomic.Bool
}

// New returns an Archive for opts. No file is opened until the first Acquire.
func New(opts Options) *Archive {
	a := &Archive{
		Name:         opts.Name,
		File:         opts.File,
		Description:  opts.Description,
		DefaultEntry: opts.DefaultEntry,
		EntryPoints:  opts.EntryPoints,
		poolSize:     opts.PoolSize,
		logger:       opts.Logger,
		open:         opts.open,
	}
	if a.poolSize <= 0 {
		a.poolSize = DefaultPoolSize
	}
	if a.logger == nil {
		a.logger = zap.NewNop()
	}
	if a.open == nil {
		a.open = Open
	}
	return a
}

// PoolSize returns the maximum number of handles the archive opens at once.
func (a *Archive) PoolSize() int { return a.poolSize }

// Valid reports whether every attempt to open the archive has succeeded so
// far. Once an open fails the archive stays invalid; it is still retried on
// the next Acquire.
func (a *Archive) Valid() bool { return !a.invalid.Load() }

// Invalidate marks the archive as invalid.
func (a *Archive) Invalidate() { a.invalid.Store(true) }

func (a *Archive) getPool() *respool.Pool[*Handle] {
	a.poolOnce.Do(func() {
		a.poolsBuilt.Add(1)
		a.pool = respool.New[*Handle](a.poolSize, respool.Funcs[*Handle]{
			New:   a.openHandle,
			Close: a.closeHandle,
		})
	})
	return a.pool
}

// builtPool returns the pool if it has been built, or nil.
func (a *Archive) builtPool() *respool.Pool[*Handle] {
	if a.poolsBuilt.Load() == 0 {
		return nil
	}
	return a.getPool()
}

func (a *Archive) openHandle() (*Handle, error) {
	a.logger.Debug("opening archive", zap.String("archive", a.Name), zap.String("file", a.File))
	return a.open(a.File)
}

func (a *Archive) closeHandle(h *Handle) error {
	a.logger.Debug("closing archive", zap.String("archive", a.Name), zap.String("file", a.File))
	if err := h.Close(); err != nil {
		a.logger.Debug("close failed", zap.String("archive", a.Name), zap.Error(err))
		return err
	}
	return nil
}

// Acquire returns an open handle for the archive, blocking while all of the
// archive's handles are in use. The handle must be given back with Release
// on every path. A failure to open the file marks the archive invalid.
func (a *Archive) Acquire(ctx context.Context) (*Handle, error) {
	h, err := a.getPool().AcquireContext(ctx)
	if err != nil {
		if ctx.Err() == nil && !errors.Is(err, respool.ErrClosed) {
			a.Invalidate()
			a.logger.Warn("archive unavailable", zap.String("archive", a.Name), zap.Error(err))
		}
		return nil, fmt.Errorf("acquire %s: %w", a.Name, err)
	}
	return h, nil
}

// Release gives h back to the archive's pool.
func (a *Archive) Release(h *Handle) {
	a.getPool().Release(h)
}

// With acquires a handle, calls fn with it and releases it again.
func (a *Archive) With(ctx context.Context, fn func(*Handle) error) error {
	h, err := a.Acquire(ctx)
	if err != nil {
		return err
	}
	defer a.Release(h)
	return fn(h)
}

// FlushIdle closes the handles that are open but not in use. It is a no-op
// for an archive that was never opened.
func (a *Archive) FlushIdle() int {
	p := a.builtPool()
	if p == nil {
		return 0
	}
	return p.FlushIdle()
}

// Close closes idle handles and makes the archive close the remaining ones
// as they are released. Later Acquire calls fail.
func (a *Archive) Close() {
	// Build the pool so that an Acquire racing with Close sees it closed.
	a.getPool().Close()
}

// Stats returns the pool statistics and whether the pool has been built.
func (a *Archive) Stats() (respool.Stats, bool) {
	p := a.builtPool()
	if p == nil {
		return respool.Stats{Capacity: a.poolSize}, false
	}
	return p.Stats(), true
}

func (a *Archive) String() string {
	s := fmt.Sprintf("%s:%s:%s:%s", a.Name, a.File, a.Description, a.DefaultEntry)
	if len(a.EntryPoints) == 0 {
		return s + ":no entry points"
	}
	s += "{" + a.EntryPoints[0].String()
	for _, e := range a.EntryPoints[1:] {
		s += "," + e.String()
	}
	return s + "}"
}
