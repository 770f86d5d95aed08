// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package config

import "io"

const sample = `# zipview configuration.

# Zip file holding styles/style.css and other shared page resources. It is
# served under /.resource/ and not listed on the index page.
# resource_zip = "resources.zip"

# Maximum number of open handles per archive.
pool_size = 10

# How often handles that are not in use are closed.
flush_interval = "15m"

listen = ":8080"

# Relative file paths are resolved against the directory of this file.
[[archive]]
vdir = "jdk"
file = "/srv/docs/jdk-docs.zip"
description = "JDK documentation"
default_entry = "docs/index.html"

  [[archive.entry_point]]
  url = "docs/api/index.html"
  description = "API specification"
`

// WriteSample writes a commented sample TOML configuration to w.
func WriteSample(w io.Writer) error {
	_, err := io.WriteString(w, sample)
	return err
}
