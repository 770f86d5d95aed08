// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package ftdetect

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDetect(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		fileName string
		contents string
		want     FileType
	}{
		{
			name:     "toml_by_ext",
			fileName: "zipview.toml",
			contents: "archives: yaml-looking\n",
			want:     TOML,
		},
		{
			name:     "yaml_by_ext",
			fileName: "zipview.yml",
			contents: "pool_size = 3\n",
			want:     YAML,
		},
		{
			name:     "xml_conf",
			fileName: ".zipviewservlet.conf",
			contents: "<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n<ZipList/>\n",
			want:     XML,
		},
		{
			name:     "xml_with_bom",
			fileName: "servlet.conf",
			contents: "\xef\xbb\xbf  <ZipFileList></ZipFileList>",
			want:     XML,
		},
		{
			name:     "yaml_conf",
			fileName: "zipview.conf",
			contents: "pool_size: 3\narchive:\n  - vdir: jdk\n",
			want:     YAML,
		},
		{
			name:     "toml_conf",
			fileName: "zipview.conf",
			contents: "pool_size = 3\n\n[[archive]]\nvdir = \"jdk\"\n",
			want:     TOML,
		},
		{
			name:     "zip_magic_beats_name",
			fileName: "docs.toml",
			contents: "PK\x03\x04rest",
			want:     Zip,
		},
		{
			name:     "empty_zip",
			fileName: "empty",
			contents: "PK\x05\x06",
			want:     Zip,
		},
		{
			name:     "zstd_magic",
			fileName: "data",
			contents: "\x28\xb5\x2f\xfdxx",
			want:     Zstd,
		},
		{
			name:     "empty",
			fileName: "zipview.conf",
			contents: "",
			want:     Unknown,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			if got := Detect(tc.fileName, []byte(tc.contents)); got != tc.want {
				t.Fatalf("Detect type mismatch: got %v want %v", got, tc.want)
			}
		})
	}
}

func TestDetectFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "archive.bin")
	if err := os.WriteFile(path, []byte("PK\x03\x04"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}
	ft, err := DetectFile(path)
	if err != nil {
		t.Fatalf("DetectFile error: %v", err)
	}
	if ft != Zip {
		t.Fatalf("DetectFile = %v, want zip", ft)
	}
}

func TestDetectFileMissing(t *testing.T) {
	t.Parallel()

	ft, err := DetectFile(filepath.Join(t.TempDir(), "missing.zip"))
	if err == nil {
		t.Fatalf("expected error, got nil (type %v)", ft)
	}
	if ft != Unknown {
		t.Fatalf("expected Unknown type, got %v", ft)
	}
}
