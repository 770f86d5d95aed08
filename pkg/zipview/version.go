// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipview

import (
	"runtime/debug"
	"strings"
)

// buildVersion is injected at build time via
// -ldflags "-X github.com/yeetrun/zipview/pkg/zipview.buildVersion=v1.2.3".
var buildVersion string

// Version returns the release version if set, otherwise the short commit
// hash of the build, or "dev".
func Version() string {
	if v := strings.TrimSpace(buildVersion); v != "" {
		return v
	}
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "unknown"
	}
	if v := bi.Main.Version; v != "" && v != "(devel)" {
		return v
	}
	var commit string
	var dirty bool
	for _, s := range bi.Settings {
		switch s.Key {
		case "vcs.revision":
			commit = s.Value
		case "vcs.modified":
			dirty = s.Value == "true"
		}
	}
	if commit == "" {
		return "dev"
	}
	commit = commit[:min(len(commit), 9)]
	if dirty {
		commit += "+dirty"
	}
	return commit
}
