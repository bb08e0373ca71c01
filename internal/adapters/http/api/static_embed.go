package api

import (
	"embed"
	"io/fs"
)

//go:embed static/*.html
var apiStaticFS embed.FS

// pagesFS exposes a sub-filesystem rooted at static/.
var pagesFS fs.FS = func() fs.FS {
	sub, err := fs.Sub(apiStaticFS, "static")
	if err != nil {
		return apiStaticFS
	}
	return sub
}()
