package httpapi

import (
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"
)

// uploadsHandler serves locally-hosted image files under /uploads/. Content
// type comes from the file extension; a missing or escaping path gets the
// structured 404 body instead of the stdlib plain-text one.
func uploadsHandler(root string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := strings.TrimPrefix(r.URL.Path, "/uploads/")

		rel := filepath.FromSlash(key)
		if key == "" || !filepath.IsLocal(rel) {
			writeErrorBody(w, http.StatusNotFound, codeNotFound, "Image not found", nil)
			return
		}

		path := filepath.Join(root, rel)
		fi, err := os.Stat(path)
		if err != nil || !fi.Mode().IsRegular() {
			writeErrorBody(w, http.StatusNotFound, codeNotFound, "Image not found", nil)
			return
		}

		if ct := mime.TypeByExtension(filepath.Ext(path)); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		http.ServeFile(w, r, path)
	})
}
