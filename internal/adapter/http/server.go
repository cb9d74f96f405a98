package http

import (
	"net/http"

	"github.com/streamhive/streamhive/internal/port"
	"github.com/streamhive/streamhive/internal/service"
)

type Server struct {
	mux        *http.ServeMux
	handlers   *Handlers
	sseHandler *SSEHandler
	hlsHandler *HLSHandler
	authSvc    AuthService
}

func NewServer(authSvc AuthService, videoSvc VideoService, viewSvc ViewService, eventBus *service.EventBus, blobs port.BlobStore, metricsHandler http.Handler, maxSizeMB int) *Server {
	mux := http.NewServeMux()

	s := &Server{
		mux:        mux,
		handlers:   NewHandlers(videoSvc, viewSvc, maxSizeMB),
		sseHandler: NewSSEHandler(eventBus, videoSvc),
		hlsHandler: NewHLSHandler(blobs),
		authSvc:    authSvc,
	}

	s.registerRoutes(metricsHandler)
	return s
}

func (s *Server) registerRoutes(metricsHandler http.Handler) {
	s.mux.HandleFunc("POST /api/login", s.handlers.Login(s.authSvc))

	s.mux.HandleFunc("GET /api/videos", s.handlers.ListVideos())
	s.mux.HandleFunc("GET /api/videos/{token}", s.handlers.GetVideo())
	s.mux.HandleFunc("POST /api/videos/upload", AdminMiddleware(s.authSvc, s.handlers.Upload()))
	s.mux.HandleFunc("DELETE /api/videos/{token}", AdminMiddleware(s.authSvc, s.handlers.DeleteVideo()))
	s.mux.HandleFunc("POST /api/videos/{token}/resubmit", AdminMiddleware(s.authSvc, s.handlers.ResubmitVideo()))

	s.mux.HandleFunc("POST /api/analytics/view", AuthMiddleware(s.authSvc, s.handlers.RecordView()))
	s.mux.HandleFunc("GET /api/analytics/views", AdminMiddleware(s.authSvc, s.handlers.ViewTotals()))

	s.mux.HandleFunc("GET /events/{token}", AuthMiddleware(s.authSvc, s.sseHandler.Events()))

	s.mux.HandleFunc("GET /hls/{token}/{path...}", s.hlsHandler.Serve())

	s.mux.Handle("GET /metrics", metricsHandler)
	s.mux.HandleFunc("GET /healthz", s.handlers.Health())
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}
