// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package ftdetect guesses the type of configuration and archive files from
// their name and their leading bytes.
package ftdetect

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

type FileType int

const (
	Unknown FileType = iota
	TOML
	YAML
	XML
	Zip
	Zstd
)

func (t FileType) String() string {
	switch t {
	case TOML:
		return "toml"
	case YAML:
		return "yaml"
	case XML:
		return "xml"
	case Zip:
		return "zip"
	case Zstd:
		return "zstd"
	}
	return "unknown"
}

// sniffLen is how much of a file DetectFile reads.
const sniffLen = 4096

var (
	utf8BOM   = []byte{0xef, 0xbb, 0xbf}
	zipMagics = [][]byte{
		[]byte("PK\x03\x04"), // local file header
		[]byte("PK\x05\x06"), // end of central directory, empty archive
		[]byte("PK\x07\x08"), // spanned archive
	}
	zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}
)

// DetectFile reads the start of the file at path and returns its type.
func DetectFile(path string) (FileType, error) {
	f, err := os.Open(path)
	if err != nil {
		return Unknown, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()
	head := make([]byte, sniffLen)
	n, err := io.ReadFull(f, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return Unknown, fmt.Errorf("failed to read file: %w", err)
	}
	return Detect(path, head[:n]), nil
}

// Detect returns the type of a file named name whose content starts with
// content. Binary types are recognized by their signature only. Text types
// are named by the extension, and the content is sniffed only when the
// extension is ambiguous.
func Detect(name string, content []byte) FileType {
	if ft, ok := detectMagic(content); ok {
		return ft
	}
	if ft, ok := detectByName(name); ok {
		return ft
	}
	return detectText(content)
}

func detectMagic(content []byte) (FileType, bool) {
	for _, m := range zipMagics {
		if bytes.HasPrefix(content, m) {
			return Zip, true
		}
	}
	if bytes.HasPrefix(content, zstdMagic) {
		return Zstd, true
	}
	return Unknown, false
}

func detectByName(name string) (FileType, bool) {
	if name == "" {
		return Unknown, false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".toml":
		return TOML, true
	case ".yaml", ".yml":
		return YAML, true
	case ".xml":
		return XML, true
	}
	return Unknown, false
}

// detectText tells the three configuration syntaxes apart. TOML tables and
// key = value lines do not decode as a YAML mapping, so a document that does
// is YAML.
func detectText(content []byte) FileType {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(content, utf8BOM))
	if len(trimmed) == 0 {
		return Unknown
	}
	if trimmed[0] == '<' {
		return XML
	}
	var m map[string]any
	if err := yaml.Unmarshal(trimmed, &m); err == nil && len(m) > 0 {
		return YAML
	}
	return TOML
}
