package site

import (
	"embed"
	"io/fs"
	"net/http"
)

//go:embed static/*.html
var staticFS embed.FS

var pages fs.FS = func() fs.FS {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		return staticFS
	}
	return sub
}()

// FS returns an http.FileSystem for the embedded pages.
func FS() http.FileSystem {
	return http.FS(pages)
}
