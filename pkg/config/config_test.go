// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadTOML(t *testing.T) {
	path := writeConfig(t, "zipview.toml", `
resource_zip = "res.zip"
flush_interval = "30s"

[[archive]]
vdir = "jdk"
file = "docs/jdk.zip"
description = "JDK docs"
default_entry = "index.html"
  [[archive.entry_point]]
  url = "api/index.html"
  description = "API"

[[archive]]
vdir = "go"
file = "/srv/go.zip"
pool_size = 2
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	dir := filepath.Dir(path)
	want := &Config{
		ResourceZip:   filepath.Join(dir, "res.zip"),
		PoolSize:      DefaultPoolSize,
		FlushInterval: 30 * time.Second,
		Listen:        DefaultListen,
		Path:          path,
		Archives: []Archive{
			{
				VDir:         "jdk",
				File:         filepath.Join(dir, "docs/jdk.zip"),
				Description:  "JDK docs",
				DefaultEntry: "index.html",
				PoolSize:     DefaultPoolSize,
				EntryPoints:  []EntryPoint{{URL: "api/index.html", Description: "API"}},
			},
			{VDir: "go", File: "/srv/go.zip", PoolSize: 2},
		},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Fatalf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadTOMLUnknownKey(t *testing.T) {
	path := writeConfig(t, "zipview.toml", `
pool_sise = 3
`)
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "pool_sise") {
		t.Fatalf("Load error = %v, want unknown key pool_sise", err)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, "zipview.yaml", `
pool_size: 4
flush_interval: 1m
archive:
  - vdir: jdk
    file: /srv/jdk.zip
    entry_point:
      - url: index.html
        description: Start
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []Archive{{
		VDir:        "jdk",
		File:        "/srv/jdk.zip",
		PoolSize:    4,
		EntryPoints: []EntryPoint{{URL: "index.html", Description: "Start"}},
	}}
	if diff := cmp.Diff(want, cfg.Archives); diff != "" {
		t.Fatalf("archives mismatch (-want +got):\n%s", diff)
	}
	if cfg.FlushInterval != time.Minute {
		t.Errorf("FlushInterval = %v, want 1m", cfg.FlushInterval)
	}
}

func TestLoadYAMLUnknownField(t *testing.T) {
	path := writeConfig(t, "zipview.yml", "archives: []\n")
	if _, err := Load(path); err == nil {
		t.Fatal("Load succeeded, want unknown field error")
	}
}

func TestLoadLegacyXML(t *testing.T) {
	doc := `<?xml version="1.0" encoding="ISO-8859-1" standalone="yes"?>
<!DOCTYPE ZipViewList [
  <!ELEMENT ZipViewList (ResourceZip,ZipList)>
]>
<ZipViewList>
  <ResourceZip><File>/srv/resources.zip</File></ResourceZip>
  <ZipList>
    <ZipFile>
      <VDir>docs</VDir>
      <File>/srv/docs.zip</File>
      <Description>Documenta` + "\xe7\xe3" + `o</Description>
      <DefEntryPoint><RelURL>index.html</RelURL></DefEntryPoint>
      <EntryPoint><RelURL>api/</RelURL><Description>API</Description></EntryPoint>
      <EntryPoint><RelURL></RelURL><Description>empty</Description></EntryPoint>
    </ZipFile>
    <ZipFile>
      <VDir></VDir>
      <File>/srv/skipped.zip</File>
    </ZipFile>
    <ZipFile>
      <VDir>nofile</VDir>
    </ZipFile>
  </ZipList>
</ZipViewList>
`
	path := writeConfig(t, "zipviewservlet.conf", doc)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.ResourceZip != "/srv/resources.zip" {
		t.Errorf("ResourceZip = %q", cfg.ResourceZip)
	}
	want := []Archive{{
		VDir:         "docs",
		File:         "/srv/docs.zip",
		Description:  "Documentação",
		DefaultEntry: "index.html",
		PoolSize:     DefaultPoolSize,
		EntryPoints:  []EntryPoint{{URL: "api/", Description: "API"}},
	}}
	if diff := cmp.Diff(want, cfg.Archives); diff != "" {
		t.Fatalf("archives mismatch (-want +got):\n%s", diff)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		archive []Archive
		want    string
	}{
		{
			name:    "ok",
			archive: []Archive{{VDir: "a", File: "a.zip"}, {VDir: "b", File: "b.zip"}},
		},
		{
			name:    "missing vdir",
			archive: []Archive{{File: "a.zip"}},
			want:    "vdir is required",
		},
		{
			name:    "missing file",
			archive: []Archive{{VDir: "a"}},
			want:    "file is required",
		},
		{
			name:    "slash",
			archive: []Archive{{VDir: "a/b", File: "a.zip"}},
			want:    "must not contain",
		},
		{
			name:    "reserved",
			archive: []Archive{{VDir: ResourceVDir, File: "a.zip"}},
			want:    "reserved",
		},
		{
			name:    "duplicate",
			archive: []Archive{{VDir: "a", File: "a.zip"}, {VDir: "a", File: "b.zip"}},
			want:    "duplicate vdir",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{Archives: tt.archive}
			cfg.applyDefaults()
			err := cfg.Validate()
			if tt.want == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate = %v, want error containing %q", err, tt.want)
			}
			if !errors.Is(err, ErrInvalid) {
				t.Fatalf("Validate error does not wrap ErrInvalid: %v", err)
			}
		})
	}
}

func TestLoadSniffsAmbiguousExtension(t *testing.T) {
	path := writeConfig(t, "zipview.conf", `
pool_size = 4

[[archive]]
vdir = "jdk"
file = "/srv/jdk.zip"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.PoolSize != 4 || len(cfg.Archives) != 1 || cfg.Archives[0].VDir != "jdk" {
		t.Errorf("Load = %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("Load error = %v, want ErrNotExist", err)
	}
}

func TestSampleParses(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSample(&buf); err != nil {
		t.Fatalf("WriteSample: %v", err)
	}
	cfg, err := Parse(FormatTOML, buf.Bytes())
	if err != nil {
		t.Fatalf("Parse sample: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate sample: %v", err)
	}
	if len(cfg.Archives) != 1 || cfg.Archives[0].VDir != "jdk" {
		t.Fatalf("unexpected sample archives: %+v", cfg.Archives)
	}
	if _, ok := cfg.Lookup("jdk"); !ok {
		t.Fatal("Lookup(jdk) = false")
	}
}

func TestDefaultPathPrefersLegacyWhenOnlyLegacyExists(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	got, err := DefaultPath()
	if err != nil {
		t.Fatalf("DefaultPath: %v", err)
	}
	if want := filepath.Join(home, defaultConfigName); got != want {
		t.Fatalf("DefaultPath = %q, want %q", got, want)
	}
	legacy := filepath.Join(home, legacyConfigName)
	if err := os.WriteFile(legacy, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	got, err = DefaultPath()
	if err != nil {
		t.Fatalf("DefaultPath: %v", err)
	}
	if got != legacy {
		t.Fatalf("DefaultPath = %q, want %q", got, legacy)
	}
}
