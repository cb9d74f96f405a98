package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/streamhive/streamhive/internal/domain"
	"github.com/streamhive/streamhive/internal/port"
)

// HLSHandler serves the published playlist/segment tree straight from the
// blob store, addressed by public token. The uploaded source under
// <token>/source is never exposed.
type HLSHandler struct {
	blobs port.BlobStore
}

func NewHLSHandler(blobs port.BlobStore) *HLSHandler {
	return &HLSHandler{blobs: blobs}
}

func contentTypeFor(path string) string {
	switch {
	case strings.HasSuffix(path, ".m3u8"):
		return "application/vnd.apple.mpegurl"
	case strings.HasSuffix(path, ".ts"):
		return "video/mp2t"
	default:
		return "application/octet-stream"
	}
}

func (h *HLSHandler) Serve() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.PathValue("token")
		rest := r.PathValue("path")
		if token == "" || rest == "" || strings.Contains(rest, "..") {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		if strings.HasPrefix(rest, "source/") {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}

		f, err := h.blobs.Open(token + "/" + rest)
		if err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				http.Error(w, "not found", http.StatusNotFound)
				return
			}
			http.Error(w, "storage error", http.StatusBadGateway)
			return
		}
		defer func() { _ = f.Close() }()

		w.Header().Set("Content-Type", contentTypeFor(rest))
		w.Header().Set("Cache-Control", "no-cache")
		http.ServeContent(w, r, rest, time.Time{}, f)
	}
}
