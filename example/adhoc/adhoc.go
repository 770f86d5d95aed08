// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Command adhoc serves the zip files named on its command line without a
// configuration file. Each archive is served under its base name.
//
//	go run ./example/adhoc docs.zip api.jar
package main

import (
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/yeetrun/zipview/pkg/config"
	"github.com/yeetrun/zipview/pkg/zipview"
	"tailscale.com/util/must"
)

func main() {
	conf := &config.Config{
		PoolSize:      2,
		FlushInterval: config.DefaultFlushInterval,
		Listen:        "127.0.0.1:8080",
	}
	for _, arg := range os.Args[1:] {
		base := filepath.Base(arg)
		conf.Archives = append(conf.Archives, config.Archive{
			VDir:     strings.TrimSuffix(base, filepath.Ext(base)),
			File:     must.Get(filepath.Abs(arg)),
			PoolSize: conf.PoolSize,
		})
	}
	must.Do(conf.Validate())

	s := must.Get(zipview.NewServer(&zipview.Config{Archives: conf}))
	defer s.Shutdown()
	log.Printf("serving %d archives on http://%s/", len(conf.Archives), conf.Listen)
	log.Fatal(http.ListenAndServe(conf.Listen, s))
}
