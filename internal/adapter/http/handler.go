package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"os"

	"github.com/streamhive/streamhive/internal/domain"
	"github.com/streamhive/streamhive/internal/infrastructure/logger"
)

type VideoService interface {
	Upload(ctx context.Context, title, filename string, file *os.File) (*domain.Video, error)
	Get(ctx context.Context, token string) (*domain.Video, error)
	List(ctx context.Context) ([]*domain.Video, error)
	Delete(ctx context.Context, token string) error
	Resubmit(ctx context.Context, token string) error
}

type ViewService interface {
	Record(ctx context.Context, userID int64, report domain.ViewReport) (*domain.ViewRecord, int64, error)
	Totals(ctx context.Context) ([]domain.ViewTotals, error)
}

type Handlers struct {
	videoSvc  VideoService
	viewSvc   ViewService
	maxSizeMB int
}

func NewHandlers(videoSvc VideoService, viewSvc ViewService, maxSizeMB int) *Handlers {
	return &Handlers{
		videoSvc:  videoSvc,
		viewSvc:   viewSvc,
		maxSizeMB: maxSizeMB,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// videoResponse augments the catalog record with the public playback URL.
// Internal IDs never appear; the token addresses everything.
type videoResponse struct {
	Token       string   `json:"token"`
	Title       string   `json:"title"`
	Status      string   `json:"status"`
	Renditions  []string `json:"renditions"`
	ViewCount   int64    `json:"view_count"`
	PlaybackURL string   `json:"playback_url,omitempty"`
	Error       string   `json:"error,omitempty"`
}

func toVideoResponse(v *domain.Video) videoResponse {
	resp := videoResponse{
		Token:      v.Token,
		Title:      v.Title,
		Status:     string(v.Status),
		Renditions: v.Renditions,
		ViewCount:  v.ViewCount,
		Error:      v.ErrorMessage,
	}
	if v.Streamable() {
		resp.PlaybackURL = "/hls/" + v.Token + "/master.m3u8"
	}
	return resp
}

func (h *Handlers) Login(authSvc AuthService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var creds struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		token, err := authSvc.Login(r.Context(), creds.Username, creds.Password)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"token": token})
	}
}

func (h *Handlers) Upload() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, int64(h.maxSizeMB)*1024*1024)

		if err := r.ParseMultipartForm(32 << 20); err != nil {
			writeError(w, http.StatusRequestEntityTooLarge, "file too large")
			return
		}

		file, header, err := r.FormFile("video")
		if err != nil {
			writeError(w, http.StatusBadRequest, "no video file provided")
			return
		}
		defer file.Close() //nolint:errcheck

		tmpFile, err := os.CreateTemp("", "upload-*.tmp")
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to process upload")
			return
		}
		defer func() {
			_ = tmpFile.Close()
			_ = os.Remove(tmpFile.Name())
		}()

		if _, err := io.Copy(tmpFile, file); err != nil {
			writeError(w, http.StatusInternalServerError, "failed to save file")
			return
		}

		v, err := h.videoSvc.Upload(r.Context(), r.FormValue("title"), header.Filename, tmpFile)
		if err != nil {
			logger.Error.Printf("upload %s: %v", logger.SanitizeForLog(header.Filename), err)
			if errors.Is(err, domain.ErrCapacityExceeded) {
				writeError(w, http.StatusInsufficientStorage, "storage full")
				return
			}
			writeError(w, http.StatusInternalServerError, "upload failed")
			return
		}

		writeJSON(w, http.StatusCreated, map[string]any{
			"message": "upload accepted, transcoding is in progress",
			"video":   toVideoResponse(v),
		})
	}
}

func (h *Handlers) ListVideos() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		videos, err := h.videoSvc.List(r.Context())
		if err != nil {
			logger.Error.Printf("list videos: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to list videos")
			return
		}
		out := make([]videoResponse, 0, len(videos))
		for _, v := range videos {
			out = append(out, toVideoResponse(v))
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (h *Handlers) GetVideo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		v, err := h.videoSvc.Get(r.Context(), r.PathValue("token"))
		if err != nil {
			writeError(w, http.StatusNotFound, "video not found")
			return
		}
		writeJSON(w, http.StatusOK, toVideoResponse(v))
	}
}

func (h *Handlers) DeleteVideo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.videoSvc.Delete(r.Context(), r.PathValue("token")); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				writeError(w, http.StatusNotFound, "video not found")
				return
			}
			logger.Error.Printf("delete video: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to delete video")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "video deleted"})
	}
}

func (h *Handlers) ResubmitVideo() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.videoSvc.Resubmit(r.Context(), r.PathValue("token")); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				writeError(w, http.StatusNotFound, "video not found or not failed")
				return
			}
			logger.Error.Printf("resubmit video: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to resubmit video")
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"message": "video resubmitted"})
	}
}

func (h *Handlers) RecordView() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFrom(r.Context())
		if !ok {
			writeError(w, http.StatusUnauthorized, "missing caller identity")
			return
		}

		var report domain.ViewReport
		if err := json.NewDecoder(r.Body).Decode(&report); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		report.UserAgent = r.Header.Get("User-Agent")

		rec, count, err := h.viewSvc.Record(r.Context(), user.ID, report)
		switch {
		case errors.Is(err, domain.ErrDuplicateReport):
			writeJSON(w, http.StatusOK, map[string]any{"duplicate": true})
			return
		case errors.Is(err, domain.ErrNotFound):
			writeError(w, http.StatusNotFound, "video not found")
			return
		case err != nil:
			logger.Error.Printf("record view: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to record view")
			return
		}

		writeJSON(w, http.StatusOK, map[string]any{
			"record":     rec,
			"view_count": count,
		})
	}
}

func (h *Handlers) ViewTotals() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		totals, err := h.viewSvc.Totals(r.Context())
		if err != nil {
			logger.Error.Printf("view totals: %v", err)
			writeError(w, http.StatusInternalServerError, "failed to fetch analytics")
			return
		}
		writeJSON(w, http.StatusOK, totals)
	}
}

func (h *Handlers) Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
