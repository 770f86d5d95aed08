// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package zipview

import (
	"html/template"
	"net/http"

	"github.com/yeetrun/zipview/pkg/archive"
	"go.uber.org/zap"
)

const pageTemplates = `
{{define "head"}}<!DOCTYPE html>
<html>
<head>
<title>ZipView</title>
{{if .StyleSheet}}<link rel="stylesheet" type="text/css" href="{{.StyleSheet}}">
{{end}}</head>
{{end}}

{{define "title"}}<span class="title">ZipView</span><br>
{{if .Message}}<span class="subtitle">{{.Message}}</span>
{{end}}<hr>
{{end}}

{{define "index"}}{{template "head" .}}<body>
{{template "title" .}}<center>
<table width="80%"><tr><td>
<table border="0" cellspacing="0" cellpadding="1" width="100%" class="outerbox">
<tr><td class="tableheader">Available zips</td></tr>
<tr><td><table border="0" cellspacing="0" cellpadding="3" width="100%" class="innerbox">
{{range .Archives}}<tr>
<td class="data">{{if .Valid}}<a href="/{{.Name}}/">{{.Name}}</a>{{else}}{{.Name}}{{end}}</td>
<td class="desc"><a href="/{{.Name}}/">{{if .Description}}{{.Description}}{{else}}<em>No description</em>{{end}}</a>
{{- $name := .Name}}{{range .EntryPoints}}<br>&nbsp;&nbsp;<a href="/{{$name}}/{{.URL}}">{{if .Description}}{{.Description}}{{else}}{{.URL}}{{end}}</a>{{end}}</td>
<td class="data">{{if .Valid}}<span style="color:#00ff00">OK</span>{{else}}<span style="color:#ff0000">Invalid</span>{{end}}</td>
</tr>
{{end}}</table></td></tr>
</table><br>
<table width="100%"><tr>
<td width="33%"></td>
<td width="33%" align="center" class="specialcell"><a href="/?sidebar">Sidebar</a></td>
<td width="33%" align="center" class="specialcell">{{if .Browsing}}<a href="/?nobrowse">Disable browse mode</a>{{else}}<a href="/?browse">Enable browse mode</a>{{end}}</td>
</tr></table>
</td></tr></table>
</center>
<hr>
<span class="notes"><b>ZipView {{.Version}}</b><ul>
<li>Append "?text" to any zipped file URL to see it as plain text.</li>
<li>Append "?hex" to any zipped file URL to see an hex dump of it.</li>
<li>Append "?browseall" to a zip URL to list every file in it.</li>
</ul></span>
</body>
</html>
{{end}}

{{define "sidebar"}}{{template "head" .}}<body style="margin: 0px;">
<center>
<table width="100%" class="desc">
{{range .Archives}}<tr><td class="desc"><a href="/{{.Name}}/" target="_content">{{if .Description}}{{.Description}}{{else}}<em>No description</em>{{end}}</a></td></tr>
{{end}}</table>
</center>
</body>
</html>
{{end}}

{{define "dir"}}{{template "head" .}}<body>
{{template "title" .}}<div class="direntry">
[&nbsp;<a href="../">&nbsp;Up one level&nbsp;</a>&nbsp;]<br>
{{range .Entries}}<a href="./{{.}}">{{.}}</a><br>
{{end}}</div>
</body>
</html>
{{end}}

{{define "all"}}{{template "head" .}}<body>
{{template "title" .}}<div class="direntry">
{{$vdir := .VDir}}{{range .Entries}}<a href="/{{$vdir}}/{{.}}">{{.}}</a><br>
{{end}}</div>
</body>
</html>
{{end}}

{{define "notfound"}}{{template "head" .}}<body>
{{template "title" .}}<h2>Requested file not found</h2>
</body>
</html>
{{end}}
`

var templates = template.Must(template.New("zipview").Parse(pageTemplates))

// page is the data rendered by every template.
type page struct {
	StyleSheet string
	Message    string
	Version    string
	Browsing   bool
	Archives   []archiveRow
	VDir       string
	Entries    []string
}

type archiveRow struct {
	Name        string
	Description string
	Valid       bool
	EntryPoints []archive.EntryPoint
}

func (s *Server) newPage(r *http.Request, repo *archive.Repository) *page {
	p := &page{
		Version:  Version(),
		Browsing: browsing(r),
	}
	if _, ok := repo.Get(resourceVDir); ok {
		p.StyleSheet = "/" + resourceVDir + "/styles/style.css"
	}
	return p
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, status int, name string, p *page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := templates.ExecuteTemplate(w, name, p); err != nil {
		s.requestLogger(r).Warn("failed to render page", zap.String("template", name), zap.Error(err))
	}
}

func (s *Server) renderIndex(w http.ResponseWriter, r *http.Request, repo *archive.Repository, status int, msg string) {
	p := s.newPage(r, repo)
	p.Message = msg
	p.Archives = archiveRows(repo)
	s.render(w, r, status, "index", p)
}

func archiveRows(repo *archive.Repository) []archiveRow {
	var rows []archiveRow
	for _, a := range repo.Archives() {
		rows = append(rows, archiveRow{
			Name:        a.Name,
			Description: a.Description,
			Valid:       a.Valid(),
			EntryPoints: a.EntryPoints,
		})
	}
	return rows
}
