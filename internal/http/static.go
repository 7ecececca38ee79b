package http

import (
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	apierrors "github.com/pribylovaa/go-admin-bff/internal/errors"
)

// spaHandler раздаёт собранный дашборд из dir.
//
// Существующий файл отдаётся как есть, любой другой путь получает index.html
// (маршрутизация на клиенте). Пути под /api/ и пустой dir -> JSON 404.
func spaHandler(dir string) http.Handler {
	notFound := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		apierrors.WriteError(w, r, apierrors.ErrNotFound)
	})
	if dir == "" {
		return notFound
	}

	root := http.Dir(dir)
	files := http.FileServer(root)
	index := filepath.Join(dir, "index.html")

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clean := path.Clean("/" + r.URL.Path)
		if clean == "/api" || strings.HasPrefix(clean, "/api/") {
			notFound(w, r)
			return
		}

		if isFile(root, clean) {
			files.ServeHTTP(w, r)
			return
		}

		if _, err := os.Stat(index); err != nil {
			notFound(w, r)
			return
		}

		w.Header().Set("Cache-Control", "no-cache")
		http.ServeFile(w, r, index)
	})
}

func isFile(root http.FileSystem, name string) bool {
	f, err := root.Open(name)
	if err != nil {
		return false
	}
	defer f.Close()

	st, err := f.Stat()
	return err == nil && !st.IsDir()
}
