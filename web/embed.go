// Package web holds the HTML templates and static assets. Both are embedded
// into the binary, so the server has no runtime dependency on the working
// directory.
package web

import "embed"

// Files contains templates/*.html and static/*.
//
//go:embed templates static
var Files embed.FS
