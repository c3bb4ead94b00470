package handlers

import (
	"embed"
	"html/template"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

//nolint:gochecknoglobals // Разбираются один раз при старте.
var pageTemplates = template.Must(template.New("pages").Funcs(template.FuncMap{
	"formatTime": func(t time.Time) string { return t.UTC().Format("2006-01-02 15:04:05") },
}).ParseFS(templateFS, "templates/*.html"))
