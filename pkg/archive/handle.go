// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package archive

import (
	"fmt"
	"strings"

	"github.com/klauspost/compress/zip"
	"github.com/klauspost/compress/zstd"
)

// Handle is one open archive file together with an index of its entries.
// A Handle is not safe for concurrent use; the pool hands it to one caller
// at a time.
type Handle struct {
	path  string
	zr    *zip.ReadCloser
	names []string // archive order
	files map[string]*zip.File
}

// Open opens the zip file at path and indexes its entries.
func Open(path string) (*Handle, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open archive %s: %w", path, err)
	}
	zr.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())
	h := &Handle{
		path:  path,
		zr:    zr,
		names: make([]string, 0, len(zr.File)),
		files: make(map[string]*zip.File, len(zr.File)),
	}
	for _, f := range zr.File {
		if _, dup := h.files[f.Name]; dup {
			continue
		}
		h.names = append(h.names, f.Name)
		h.files[f.Name] = f
	}
	return h, nil
}

// Path returns the file the handle was opened from.
func (h *Handle) Path() string { return h.path }

// Close closes the underlying file.
func (h *Handle) Close() error {
	return h.zr.Close()
}

// Lookup finds the entry called name. Some archivers store names with a
// leading "/" or "./", so those spellings are tried as well.
func (h *Handle) Lookup(name string) (*zip.File, bool) {
	for _, n := range []string{name, "/" + name, "./" + name} {
		if f, ok := h.files[n]; ok {
			return f, true
		}
	}
	return nil, false
}

// IsDir reports whether name refers to a directory, either through an
// explicit directory entry or because other entries live below it.
func (h *Handle) IsDir(name string) bool {
	if name == "" {
		return true
	}
	dir := strings.TrimSuffix(name, "/") + "/"
	if f, ok := h.Lookup(dir); ok && f.FileInfo().IsDir() {
		return true
	}
	for _, n := range h.names {
		if strings.HasPrefix(n, dir) {
			return true
		}
	}
	return false
}

// Entries returns the names of all entries in archive order.
func (h *Handle) Entries() []string {
	out := make([]string, len(h.names))
	copy(out, h.names)
	return out
}

// List returns the immediate children of dir, relative to dir. Directories
// are returned with a trailing "/". dir is "" for the archive root.
func (h *Handle) List(dir string) []string {
	if dir != "" && !strings.HasSuffix(dir, "/") {
		dir += "/"
	}
	var out []string
	seen := make(map[string]bool)
	for _, n := range h.names {
		if !strings.HasPrefix(n, dir) {
			continue
		}
		rest := n[len(dir):]
		if rest == "" {
			continue
		}
		if i := strings.IndexByte(rest, '/'); i >= 0 {
			rest = rest[:i+1]
		}
		if seen[rest] {
			continue
		}
		seen[rest] = true
		out = append(out, rest)
	}
	return out
}
