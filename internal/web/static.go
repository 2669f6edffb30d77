package web

import (
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
)

// SPA serves files from dir and answers every other GET with dir/index.html,
// so client-side routes resolve to the application shell. When dir is empty
// or has no index.html, shell is served instead.
func SPA(dir string, shell http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if dir == "" {
			shell.ServeHTTP(w, r)
			return
		}

		upath := path.Clean("/" + r.URL.Path)
		r2 := new(http.Request)
		*r2 = *r
		r2.URL = new(url.URL)
		*r2.URL = *r.URL
		r2.URL.Path = upath
		r = r2

		name := filepath.Join(dir, filepath.FromSlash(upath))
		if info, err := os.Stat(name); err == nil && !info.IsDir() {
			http.ServeFile(w, r, name)
			return
		}

		index := filepath.Join(dir, "index.html")
		if _, err := os.Stat(index); err != nil {
			shell.ServeHTTP(w, r)
			return
		}
		http.ServeFile(w, r, index)
	})
}
