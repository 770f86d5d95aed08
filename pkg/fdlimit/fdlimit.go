// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package fdlimit inspects and raises the process limit on open files.
package fdlimit

import "errors"

// Reserve is the number of descriptors kept free for listeners, client
// connections and log files on top of the archive handles.
const Reserve = 64

// ErrUnsupported is returned on platforms without RLIMIT_NOFILE.
var ErrUnsupported = errors.New("fdlimit: not supported on this platform")

// Limit is the soft and hard open file limit of the process.
type Limit struct {
	Soft uint64
	Hard uint64
}

// Allows reports whether handles open files plus Reserve fit below the soft
// limit.
func (l Limit) Allows(handles int) bool {
	return uint64(handles)+Reserve <= l.Soft
}

// Ensure raises the soft limit, up to the hard limit, so that handles open
// files plus Reserve fit. It returns the resulting limit.
func Ensure(handles int) (Limit, error) {
	l, err := Current()
	if err != nil {
		return l, err
	}
	if l.Allows(handles) {
		return l, nil
	}
	want := min(uint64(handles)+Reserve, l.Hard)
	if err := setSoft(want); err != nil {
		return l, err
	}
	return Current()
}
