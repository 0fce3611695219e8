// Package web holds the UI's templates and static files, compiled into the
// expenses-ui binary.
package web

import "embed"

var (
	//go:embed templates/*.html
	TemplatesFS embed.FS

	//go:embed static/*
	StaticFS embed.FS
)
