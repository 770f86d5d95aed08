// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package compress provides HTTP response compression middleware.
//
// # Supported Encodings
//
// The package negotiates one of three compression algorithms from the
// request's Accept-Encoding header:
//
//   - zstd (Zstandard)
//   - gzip
//   - deflate
//
// When quality values are equal the preference order is zstd, gzip,
// deflate. An encoding with q=0 is never selected.
//
// # Usage
//
// Wrap a handler with Handler:
//
//	mux := http.NewServeMux()
//	http.ListenAndServe(":8080", compress.Handler(mux))
//
// Or drive a ResponseWriter directly:
//
//	cw := compress.NewResponseWriter(w, compress.SelectEncoding(r.Header.Get("Accept-Encoding")))
//	defer cw.Close()
//	cw.Write(data)
//
// The ResponseWriter sets Content-Encoding and Vary, removes Content-Length
// and leaves bodiless statuses, pre-encoded responses and already compressed
// media types (images, audio, video, archives) untouched.
package compress
