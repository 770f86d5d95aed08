// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
)

// legacyList is the ZipViewList document used by older installations.
//
//	<ZipViewList>
//	  <ResourceZip><File>resources.zip</File></ResourceZip>
//	  <ZipList>
//	    <ZipFile>
//	      <VDir>jdk</VDir>
//	      <File>/srv/docs/jdk.zip</File>
//	      <Description>JDK docs</Description>
//	      <DefEntryPoint><RelURL>index.html</RelURL></DefEntryPoint>
//	      <EntryPoint><RelURL>api/index.html</RelURL><Description>API</Description></EntryPoint>
//	    </ZipFile>
//	  </ZipList>
//	</ZipViewList>
type legacyList struct {
	XMLName     xml.Name    `xml:"ZipViewList"`
	ResourceZip string      `xml:"ResourceZip>File"`
	Zips        []legacyZip `xml:"ZipList>ZipFile"`
}

type legacyZip struct {
	VDir          string             `xml:"VDir"`
	File          string             `xml:"File"`
	Description   string             `xml:"Description"`
	DefEntryPoint []legacyEntryPoint `xml:"DefEntryPoint"`
	EntryPoints   []legacyEntryPoint `xml:"EntryPoint"`
}

type legacyEntryPoint struct {
	RelURL      string `xml:"RelURL"`
	Description string `xml:"Description"`
}

func charsetReader(label string, in io.Reader) (io.Reader, error) {
	enc, err := ianaindex.IANA.Encoding(label)
	if err != nil || enc == nil {
		return nil, fmt.Errorf("unsupported charset %q", label)
	}
	return enc.NewDecoder().Reader(in), nil
}

// parseLegacy converts a ZipViewList document. Zip files without a VDir or
// File and entry points without a RelURL are skipped. When several
// DefEntryPoint elements are present the last non-empty one wins.
func parseLegacy(raw []byte) (*Config, error) {
	dec := xml.NewDecoder(bytes.NewReader(raw))
	dec.CharsetReader = charsetReader
	var doc legacyList
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	cfg := &Config{ResourceZip: strings.TrimSpace(doc.ResourceZip)}
	for _, z := range doc.Zips {
		a := Archive{
			VDir:        strings.TrimSpace(z.VDir),
			File:        strings.TrimSpace(z.File),
			Description: strings.TrimSpace(z.Description),
		}
		if a.VDir == "" || a.File == "" {
			continue
		}
		for _, d := range z.DefEntryPoint {
			if u := strings.TrimSpace(d.RelURL); u != "" {
				a.DefaultEntry = u
			}
		}
		for _, ep := range z.EntryPoints {
			u := strings.TrimSpace(ep.RelURL)
			if u == "" {
				continue
			}
			a.EntryPoints = append(a.EntryPoints, EntryPoint{
				URL:         u,
				Description: strings.TrimSpace(ep.Description),
			})
		}
		cfg.Archives = append(cfg.Archives, a)
	}
	return cfg, nil
}
