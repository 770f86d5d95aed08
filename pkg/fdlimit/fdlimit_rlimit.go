// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

//go:build linux || darwin

package fdlimit

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Current returns the open file limit of the process.
func Current() (Limit, error) {
	var rl unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		return Limit{}, fmt.Errorf("failed to get RLIMIT_NOFILE: %w", err)
	}
	return Limit{Soft: uint64(rl.Cur), Hard: uint64(rl.Max)}, nil
}

func setSoft(soft uint64) error {
	var rl unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		return fmt.Errorf("failed to get RLIMIT_NOFILE: %w", err)
	}
	rl.Cur = soft
	if err := unix.Setrlimit(unix.RLIMIT_NOFILE, &rl); err != nil {
		return fmt.Errorf("failed to set RLIMIT_NOFILE: %w", err)
	}
	return nil
}
