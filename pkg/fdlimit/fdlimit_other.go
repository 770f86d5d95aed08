// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build !linux && !darwin

package fdlimit

// Current returns ErrUnsupported.
func Current() (Limit, error) {
	return Limit{}, ErrUnsupported
}

func setSoft(uint64) error {
	return ErrUnsupported
}
