// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipview

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zip"
	"github.com/yeetrun/zipview/pkg/archive"
	"github.com/yeetrun/zipview/pkg/respool"
	"go.uber.org/zap"
)

const (
	browseCookie   = "zipview_browse"
	zipNotFoundMsg = "Zip file not found"
)

type renderMode int

const (
	renderNormal renderMode = iota
	renderText
	renderHex
)

// newMux routes requests. A query string naming a global action (reload,
// browse, nobrowse, sidebar, stats) is handled regardless of the path;
// everything else is routed by path.
func (s *Server) newMux() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /{vdir}", s.handleArchiveRoot)
	mux.HandleFunc("GET /{vdir}/{name...}", s.handleArchive)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.RawQuery {
		case "reload":
			s.handleReload(w, r)
		case "browse", "nobrowse":
			s.handleBrowseMode(w, r)
		case "sidebar":
			s.handleSidebar(w, r)
		case "stats":
			s.handleStats(w, r)
		default:
			mux.ServeHTTP(w, r)
		}
	})
}

func browsing(r *http.Request) bool {
	c, err := r.Cookie(browseCookie)
	return err == nil && c.Value == "1"
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.renderIndex(w, r, s.Repository(), http.StatusOK, "")
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.Reload(); err != nil {
		s.requestLogger(r).Error("reload failed", zap.Error(err))
		s.renderIndex(w, r, s.Repository(), http.StatusInternalServerError, "Reload failed: "+err.Error())
		return
	}
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleBrowseMode(w http.ResponseWriter, r *http.Request) {
	c := &http.Cookie{
		Name:     browseCookie,
		Value:    "1",
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if r.URL.RawQuery == "nobrowse" {
		c.Value = ""
		c.MaxAge = -1
	}
	http.SetCookie(w, c)
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *Server) handleSidebar(w http.ResponseWriter, r *http.Request) {
	repo := s.Repository()
	p := s.newPage(r, repo)
	p.Archives = archiveRows(repo)
	s.render(w, r, http.StatusOK, "sidebar", p)
}

// ArchiveStats is the state of one archive as reported by ?stats.
type ArchiveStats struct {
	Name  string        `json:"name"`
	File  string        `json:"file"`
	Valid bool          `json:"valid"`
	Open  bool          `json:"open"` // the handle pool has been built
	Pool  respool.Stats `json:"pool"`
}

// StatsResponse is the body of a ?stats response.
type StatsResponse struct {
	Version    string         `json:"version"`
	MaxHandles int            `json:"maxHandles"`
	Archives   []ArchiveStats `json:"archives"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	repo := s.Repository()
	resp := StatsResponse{
		Version:    Version(),
		MaxHandles: repo.MaxHandles(),
		Archives:   []ArchiveStats{},
	}
	for _, a := range repo.Archives() {
		st, open := a.Stats()
		resp.Archives = append(resp.Archives, ArchiveStats{
			Name:  a.Name,
			File:  a.File,
			Valid: a.Valid(),
			Open:  open,
			Pool:  st,
		})
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		s.requestLogger(r).Debug("failed to write stats", zap.Error(err))
	}
}

// handleArchiveRoot redirects /vdir to /vdir/ so relative links resolve
// inside the archive.
func (s *Server) handleArchiveRoot(w http.ResponseWriter, r *http.Request) {
	u := *r.URL
	u.Path += "/"
	http.Redirect(w, r, u.String(), http.StatusMovedPermanently)
}

func (s *Server) handleArchive(w http.ResponseWriter, r *http.Request) {
	repo := s.Repository()
	a, ok := repo.Get(r.PathValue("vdir"))
	if !ok {
		s.renderIndex(w, r, repo, http.StatusNotFound, zipNotFoundMsg)
		return
	}

	h, err := a.Acquire(r.Context())
	if err != nil {
		switch {
		case errors.Is(err, respool.ErrClosed):
			http.Error(w, "archive is being reloaded, try again", http.StatusServiceUnavailable)
		case r.Context().Err() != nil:
		default:
			s.requestLogger(r).Warn("cannot open archive", zap.String("archive", a.Name), zap.Error(err))
			http.Redirect(w, r, "/", http.StatusFound)
		}
		return
	}
	defer a.Release(h)

	name := r.PathValue("name")
	switch r.URL.RawQuery {
	case "browseall":
		s.renderAll(w, r, repo, a, h)
	case "text":
		s.serveEntry(w, r, repo, a, h, name, renderText)
	case "hex":
		s.serveEntry(w, r, repo, a, h, name, renderHex)
	default:
		s.serveEntry(w, r, repo, a, h, name, renderNormal)
	}
}

func (s *Server) serveEntry(w http.ResponseWriter, r *http.Request, repo *archive.Repository, a *archive.Archive, h *archive.Handle, name string, mode renderMode) {
	if name == "" {
		if browsing(r) || a.DefaultEntry == "" {
			s.renderDir(w, r, repo, h, "")
			return
		}
		http.Redirect(w, r, "/"+a.Name+"/"+a.DefaultEntry, http.StatusFound)
		return
	}

	f, ok := h.Lookup(name)
	if !ok || f.FileInfo().IsDir() {
		switch {
		case !h.IsDir(name):
			p := s.newPage(r, repo)
			s.render(w, r, http.StatusNotFound, "notfound", p)
		case !strings.HasSuffix(name, "/"):
			http.Redirect(w, r, r.URL.Path+"/", http.StatusMovedPermanently)
		default:
			s.renderDir(w, r, repo, h, name)
		}
		return
	}
	s.sendFile(w, r, repo, f, mode)
}

func (s *Server) sendFile(w http.ResponseWriter, r *http.Request, repo *archive.Repository, f *zip.File, mode renderMode) {
	rc, err := f.Open()
	if err != nil {
		s.requestLogger(r).Warn("cannot read entry", zap.String("entry", f.Name), zap.Error(err))
		http.Error(w, "cannot read "+f.Name, http.StatusInternalServerError)
		return
	}
	defer rc.Close()

	hdr := w.Header()
	if !f.Modified.IsZero() {
		hdr.Set("Last-Modified", f.Modified.UTC().Format(http.TimeFormat))
	}
	switch mode {
	case renderHex:
		hdr.Set("Content-Type", "text/html; charset=utf-8")
		err = writeHexPage(w, s.newPage(r, repo), rc)
	case renderText:
		hdr.Set("Content-Type", "text/plain; charset=utf-8")
		_, err = io.Copy(w, rc)
	default:
		if ct := mime.TypeByExtension(path.Ext(f.Name)); ct != "" {
			hdr.Set("Content-Type", ct)
		}
		hdr.Set("Content-Length", strconv.FormatUint(f.UncompressedSize64, 10))
		_, err = io.Copy(w, rc)
	}
	if err != nil {
		s.requestLogger(r).Debug("failed to send entry", zap.String("entry", f.Name), zap.Error(err))
	}
}

func (s *Server) renderDir(w http.ResponseWriter, r *http.Request, repo *archive.Repository, h *archive.Handle, dir string) {
	p := s.newPage(r, repo)
	p.Message = "Contents for directory /" + dir + ":"
	p.Entries = h.List(dir)
	s.render(w, r, http.StatusOK, "dir", p)
}

func (s *Server) renderAll(w http.ResponseWriter, r *http.Request, repo *archive.Repository, a *archive.Archive, h *archive.Handle) {
	p := s.newPage(r, repo)
	p.Message = "Entire zip contents:"
	p.VDir = a.Name
	p.Entries = h.Entries()
	s.render(w, r, http.StatusOK, "all", p)
}

type loggerKey struct{}

func (s *Server) requestLogger(r *http.Request) *zap.Logger {
	if l, ok := r.Context().Value(loggerKey{}).(*zap.Logger); ok {
		return l
	}
	return s.logger
}

// statusWriter records the status and size of a response.
type statusWriter struct {
	http.ResponseWriter
	status int
	size   int64
}

func (sw *statusWriter) WriteHeader(code int) {
	if sw.status == 0 {
		sw.status = code
	}
	sw.ResponseWriter.WriteHeader(code)
}

func (sw *statusWriter) Write(b []byte) (int, error) {
	if sw.status == 0 {
		sw.status = http.StatusOK
	}
	n, err := sw.ResponseWriter.Write(b)
	sw.size += int64(n)
	return n, err
}

func (sw *statusWriter) Flush() {
	if f, ok := sw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sw *statusWriter) Unwrap() http.ResponseWriter {
	return sw.ResponseWriter
}

// logRequests tags every request with a request id and logs it once served.
func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-Id", id)
		logger := s.logger.With(zap.String("request_id", id))
		r = r.WithContext(context.WithValue(r.Context(), loggerKey{}, logger))

		sw := &statusWriter{ResponseWriter: w}
		start := time.Now()
		next.ServeHTTP(sw, r)
		logger.Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("query", r.URL.RawQuery),
			zap.Int("status", sw.status),
			zap.Int64("bytes", sw.size),
			zap.Duration("elapsed", time.Since(start)))
	})
}
