// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package compress provides HTTP response compression for the zstd, gzip and
// deflate encodings.
package compress

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Supported encodings in order of preference.
var encodings = []string{"zstd", "gzip", "deflate"}

// Handler compresses the responses of next according to the request's
// Accept-Encoding header.
func Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		encoding := SelectEncoding(r.Header.Get("Accept-Encoding"))
		if encoding == "" || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		cw := NewResponseWriter(w, encoding)
		defer cw.Close()
		next.ServeHTTP(cw, r)
	})
}

// ResponseWriter wraps an http.ResponseWriter to provide transparent
// compression. The decision to compress is made when the header is written:
// responses without a body, responses that already carry a
// Content-Encoding and media that is already compressed pass through
// unchanged.
type ResponseWriter struct {
	http.ResponseWriter
	encoding    string
	writer      io.WriteCloser // nil when passing through
	wroteHeader bool
}

// NewResponseWriter returns a ResponseWriter that compresses with encoding.
// An unsupported encoding disables compression.
func NewResponseWriter(w http.ResponseWriter, encoding string) *ResponseWriter {
	cw := &ResponseWriter{ResponseWriter: w}
	for _, e := range encodings {
		if e == encoding {
			cw.encoding = encoding
		}
	}
	return cw
}

// Encoding returns the encoding in effect, or "" when the response is sent
// uncompressed.
func (cw *ResponseWriter) Encoding() string {
	if cw.wroteHeader && cw.writer == nil {
		return ""
	}
	return cw.encoding
}

// WriteHeader decides whether to compress and writes the status code.
func (cw *ResponseWriter) WriteHeader(code int) {
	if cw.wroteHeader {
		return
	}
	cw.wroteHeader = true
	h := cw.ResponseWriter.Header()
	if cw.encoding != "" && bodyAllowed(code) && h.Get("Content-Encoding") == "" && compressible(h.Get("Content-Type")) {
		w, err := newWriter(cw.ResponseWriter, cw.encoding)
		if err == nil {
			cw.writer = w
			h.Set("Content-Encoding", cw.encoding)
			// The compressed size differs; the body is sent chunked.
			h.Del("Content-Length")
			h.Add("Vary", "Accept-Encoding")
		}
	}
	cw.ResponseWriter.WriteHeader(code)
}

// Write compresses data and writes it to the underlying response writer.
func (cw *ResponseWriter) Write(data []byte) (int, error) {
	if !cw.wroteHeader {
		h := cw.ResponseWriter.Header()
		if h.Get("Content-Type") == "" {
			h.Set("Content-Type", http.DetectContentType(data))
		}
		cw.WriteHeader(http.StatusOK)
	}
	if cw.writer == nil {
		return cw.ResponseWriter.Write(data)
	}
	return cw.writer.Write(data)
}

// Flush flushes buffered compressed data to the client.
func (cw *ResponseWriter) Flush() {
	if f, ok := cw.writer.(interface{ Flush() error }); ok {
		f.Flush()
	}
	if f, ok := cw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap returns the underlying response writer for http.ResponseController.
func (cw *ResponseWriter) Unwrap() http.ResponseWriter {
	return cw.ResponseWriter
}

// Close flushes and closes the compression writer.
func (cw *ResponseWriter) Close() error {
	if cw.writer == nil {
		return nil
	}
	return cw.writer.Close()
}

// SelectEncoding chooses the best compression encoding based on client preferences.
// It parses the Accept-Encoding header and selects the encoding with the
// highest quality value, breaking ties in the order zstd, gzip, deflate.
// Returns the encoding name or empty string if no compression should be used.
func SelectEncoding(acceptEncoding string) string {
	quality := make(map[string]float64)
	wildcard := -1.0
	for part := range strings.SplitSeq(acceptEncoding, ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(part), ";")
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		q := 1.0
		if v, ok := strings.CutPrefix(strings.TrimSpace(params), "q="); ok {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				q = f
			}
		}
		if name == "*" {
			wildcard = q
			continue
		}
		quality[name] = q
	}

	best, bestQ := "", 0.0
	for _, e := range encodings {
		q, ok := quality[e]
		if !ok {
			q = wildcard
		}
		if q > bestQ {
			best, bestQ = e, q
		}
	}
	return best
}

func newWriter(w io.Writer, encoding string) (io.WriteCloser, error) {
	switch encoding {
	case "zstd":
		return zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedFastest))
	case "gzip":
		return gzip.NewWriterLevel(w, gzip.DefaultCompression)
	default:
		return flate.NewWriter(w, flate.DefaultCompression)
	}
}

func bodyAllowed(code int) bool {
	switch {
	case code >= 100 && code <= 199:
		return false
	case code == http.StatusNoContent, code == http.StatusNotModified:
		return false
	}
	return true
}

// compressible reports whether a body of the given media type is worth
// compressing.
func compressible(contentType string) bool {
	mt, _, _ := strings.Cut(contentType, ";")
	mt = strings.ToLower(strings.TrimSpace(mt))
	switch {
	case mt == "image/svg+xml":
		return true
	case strings.HasPrefix(mt, "image/"), strings.HasPrefix(mt, "video/"), strings.HasPrefix(mt, "audio/"):
		return false
	}
	switch mt {
	case "application/zip", "application/gzip", "application/x-gzip", "application/zstd",
		"application/x-7z-compressed", "application/x-rar-compressed", "application/pdf":
		return false
	}
	return true
}
