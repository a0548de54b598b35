// Package web embeds the HTML templates of the admin application.
package web

import "embed"

//go:embed templates/*.html
var Templates embed.FS
