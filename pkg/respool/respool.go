// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package respool implements a bounded, lazily populated, blocking pool of
// expensive resource handles.
//
// A Pool owns a fixed number of slots. Each slot is Empty, Reserved (a
// resource is being created for it), Idle or Allocated. Acquire prefers Idle
// resources, creates new ones while the pool is under capacity and otherwise
// blocks until a Release, FlushIdle or failed creation frees room. Waiters are
// not served in FIFO order; any blocked caller may win the retry.
package respool

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// ErrClosed is returned by Acquire after the pool has been closed.
var ErrClosed = errors.New("respool: pool is closed")

// Factory creates and destroys the resources held by a Pool.
type Factory[T any] interface {
	// Create allocates one new resource.
	Create() (T, error)
	// Destroy releases one resource. Errors are ignored by the pool.
	Destroy(T) error
}

// Funcs adapts a pair of functions to the Factory interface.
type Funcs[T any] struct {
	New   func() (T, error)
	Close func(T) error
}

func (f Funcs[T]) Create() (T, error) { return f.New() }

func (f Funcs[T]) Destroy(r T) error {
	if f.Close == nil {
		return nil
	}
	return f.Close(r)
}

type slotState uint8

const (
	slotEmpty slotState = iota
	slotReserved
	slotIdle
	slotAllocated
)

func (s slotState) String() string {
	switch s {
	case slotEmpty:
		return "empty"
	case slotReserved:
		return "reserved"
	case slotIdle:
		return "idle"
	case slotAllocated:
		return "allocated"
	default:
		return fmt.Sprintf("slotState(%d)", uint8(s))
	}
}

type slot[T comparable] struct {
	state slotState
	res   T
}

// Stats is a point-in-time snapshot of a Pool's accounting.
type Stats struct {
	Capacity  int    `json:"capacity"`
	Used      int    `json:"used"` // reserved + idle + allocated
	Idle      int    `json:"idle"`
	Allocated int    `json:"allocated"`
	Waiters   int    `json:"waiters"`
	Created   uint64 `json:"created"`
	Destroyed uint64 `json:"destroyed"`
	Closed    bool   `json:"closed"`
}

// Pool is a capacity-bounded pool of resources of type T. The zero value is
// not usable; create pools with New.
type Pool[T comparable] struct {
	factory Factory[T]

	mu        sync.Mutex // protects the following
	slots     []slot[T]
	used      int
	idle      int
	waiters   int
	created   uint64
	destroyed uint64
	closed    bool
	// changed is closed and replaced whenever capacity may have become
	// available; blocked acquirers wait on it.
	changed chan struct{}
}

// New returns a pool of the given capacity backed by f. It panics if capacity
// is not positive or f is nil.
func New[T comparable](capacity int, f Factory[T]) *Pool[T] {
	if capacity <= 0 {
		panic("respool: capacity must be positive")
	}
	if f == nil {
		panic("respool: nil factory")
	}
	return &Pool[T]{
		factory: f,
		slots:   make([]slot[T], capacity),
		changed: make(chan struct{}),
	}
}

// Acquire returns an idle resource or creates a new one, blocking for as long
// as the pool is saturated. Errors come only from the factory or from a
// closed pool.
func (p *Pool[T]) Acquire() (T, error) {
	return p.AcquireContext(context.Background())
}

// AcquireContext is like Acquire but gives up waiting when ctx is done.
func (p *Pool[T]) AcquireContext(ctx context.Context) (T, error) {
	var zero T
	p.mu.Lock()
	for {
		if p.closed {
			p.mu.Unlock()
			return zero, ErrClosed
		}
		if i := p.findLocked(slotIdle); i >= 0 {
			s := &p.slots[i]
			s.state = slotAllocated
			p.idle--
			p.mu.Unlock()
			return s.res, nil
		}
		if p.used < len(p.slots) {
			i := p.findLocked(slotEmpty)
			p.slots[i].state = slotReserved
			p.used++
			p.mu.Unlock()
			return p.create(i)
		}
		if err := ctx.Err(); err != nil {
			p.mu.Unlock()
			return zero, err
		}
		ch := p.changed
		p.waiters++
		p.mu.Unlock()
		select {
		case <-ch:
		case <-ctx.Done():
		}
		p.mu.Lock()
		p.waiters--
	}
}

// create runs the factory for the reserved slot i without holding p.mu.
func (p *Pool[T]) create(i int) (T, error) {
	var zero T
	res, err := p.factory.Create()

	p.mu.Lock()
	defer p.mu.Unlock()
	s := &p.slots[i]
	if err != nil {
		s.state = slotEmpty
		s.res = zero
		p.used--
		p.broadcastLocked()
		return zero, err
	}
	p.created++
	if p.closed {
		p.destroyLocked(i, res)
		return zero, ErrClosed
	}
	s.state = slotAllocated
	s.res = res
	return res, nil
}

// Release returns r to the pool. r must have been returned by Acquire on this
// pool and not released since; anything else panics.
func (p *Pool[T]) Release(r T) {
	p.mu.Lock()
	defer p.mu.Unlock()
	i := p.indexLocked(r)
	if i < 0 {
		panic("respool: release of a resource not owned by this pool")
	}
	s := &p.slots[i]
	if s.state != slotAllocated {
		panic(fmt.Sprintf("respool: release of %s resource", s.state))
	}
	if p.closed {
		p.destroyLocked(i, r)
	} else {
		s.state = slotIdle
		p.idle++
	}
	p.broadcastLocked()
}

// FlushIdle destroys every idle resource and frees its slot. Allocated
// resources are left alone. It returns the number of resources destroyed.
func (p *Pool[T]) FlushIdle() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.flushLocked()
}

func (p *Pool[T]) flushLocked() int {
	if p.idle == 0 {
		return 0
	}
	n := 0
	for i := range p.slots {
		if p.slots[i].state != slotIdle {
			continue
		}
		p.idle--
		p.destroyLocked(i, p.slots[i].res)
		n++
	}
	p.broadcastLocked()
	return n
}

// Close flushes idle resources and puts the pool into a terminal state:
// acquires fail with ErrClosed and resources released afterwards are
// destroyed instead of kept. Close is idempotent.
func (p *Pool[T]) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	p.flushLocked()
	p.broadcastLocked()
}

// Stats returns a snapshot of the pool's counters.
func (p *Pool[T]) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	st := Stats{
		Capacity:  len(p.slots),
		Used:      p.used,
		Idle:      p.idle,
		Waiters:   p.waiters,
		Created:   p.created,
		Destroyed: p.destroyed,
		Closed:    p.closed,
	}
	for _, s := range p.slots {
		if s.state == slotAllocated {
			st.Allocated++
		}
	}
	return st
}

// destroyLocked destroys res and marks slot i empty. The slot must not be
// idle in p.idle's accounting when this is called.
func (p *Pool[T]) destroyLocked(i int, res T) {
	var zero T
	_ = p.factory.Destroy(res)
	p.destroyed++
	p.slots[i] = slot[T]{state: slotEmpty, res: zero}
	p.used--
}

func (p *Pool[T]) findLocked(state slotState) int {
	for i := range p.slots {
		if p.slots[i].state == state {
			return i
		}
	}
	return -1
}

func (p *Pool[T]) indexLocked(r T) int {
	for i := range p.slots {
		s := &p.slots[i]
		if (s.state == slotIdle || s.state == slotAllocated) && s.res == r {
			return i
		}
	}
	return -1
}

func (p *Pool[T]) broadcastLocked() {
	close(p.changed)
	p.changed = make(chan struct{})
}
