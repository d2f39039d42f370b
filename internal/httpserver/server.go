package httpserver

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/blackmichael/postmock/internal/avatar"
	"github.com/blackmichael/postmock/internal/card"
	"github.com/blackmichael/postmock/internal/config"
	"github.com/blackmichael/postmock/internal/domain"
	"github.com/blackmichael/postmock/internal/locale"
	"github.com/blackmichael/postmock/internal/markup"
	"github.com/blackmichael/postmock/internal/session"
	"github.com/blackmichael/postmock/internal/snapshot"
	"github.com/blackmichael/postmock/internal/studio"
)

// maxPostBytes bounds JSON post bodies. Avatars ride along as data URIs.
const maxPostBytes = 8 << 20

// Server is the HTTP server for the editor API, preview page and live
// sessions.
type Server struct {
	cfg        *config.Config
	studio     *studio.Studio
	logger     *slog.Logger
	httpServer *http.Server
}

// NewServer creates a new HTTP server backed by st.
func NewServer(cfg *config.Config, st *studio.Studio, logger *slog.Logger) *Server {
	s := &Server{
		cfg:    cfg,
		studio: st,
		logger: logger,
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.Routes(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Routes returns the router. It is exposed for tests.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler { return withLogging(s.logger, next) })

	r.Get("/health", s.handleHealth)
	r.Get("/", s.handlePage)
	r.Get("/ws", session.NewHandler(s.studio, s.logger).ServeHTTP)

	r.Route("/api", func(r chi.Router) {
		r.Get("/locales", s.handleLocales)
		r.Get("/locales/{code}", s.handleLocale)
		r.Post("/preview", s.handlePreview)
		r.Post("/export", s.handleExport)
		r.Post("/avatar", s.handleAvatar)
		r.Get("/profile", s.handleProfile)
	})

	return r
}

// Start begins listening for HTTP requests. It blocks until the server is
// shut down or an error occurs.
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully shuts down the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handlePage renders the card for an empty post in the caller's language.
func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	post := domain.NewPost()
	post.Language = s.requestLanguage(r)

	doc, err := card.HTML(s.studio.Preview(*post))
	if err != nil {
		s.logger.Error("failed to render page", "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "failed to render page")
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(doc))
}

func (s *Server) handleLocales(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"primary": locale.Primary,
		"codes":   s.studio.Locales().Codes(),
	})
}

func (s *Server) handleLocale(w http.ResponseWriter, r *http.Request) {
	code := locale.Code(chi.URLParam(r, "code"))
	bundle, ok := s.studio.Locales().Lookup(code)
	if !ok {
		writeError(w, http.StatusNotFound, "NotFound", fmt.Sprintf("no bundle for %q", code))
		return
	}
	writeJSON(w, http.StatusOK, bundle)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	post, ok := s.decodePost(w, r)
	if !ok {
		return
	}

	view := s.studio.Preview(*post)
	writeJSON(w, http.StatusOK, map[string]any{
		"post":      post,
		"view":      view,
		"body_html": markup.Sanitize(markup.HTML(view.Body)),
	})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	post, ok := s.decodePost(w, r)
	if !ok {
		return
	}

	art, err := s.studio.Export(r.Context(), *post)
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		s.logger.Debug("export abandoned", "error", err)
		return
	case errors.Is(err, snapshot.ErrCapture), errors.Is(err, snapshot.ErrEncode):
		writeError(w, http.StatusUnprocessableEntity, "ExportFailed", err.Error())
		return
	case err != nil:
		s.logger.Error("export failed", "error", err)
		writeError(w, http.StatusInternalServerError, "InternalError", "export failed")
		return
	case art == nil:
		w.WriteHeader(http.StatusNoContent)
		return
	}

	filename := r.URL.Query().Get("filename")
	if filename == "" {
		filename = s.cfg.ExportFilename
	}
	if err := snapshot.Download(art, filename, responseSink{w}); err != nil {
		s.logger.Error("failed to write artifact", "error", err)
	}
}

func (s *Server) handleAvatar(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes+(1<<20))
	file, _, err := r.FormFile("avatar")
	if err != nil {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "multipart field avatar is required")
		return
	}
	defer file.Close()

	uri, err := avatar.FromReader(file, s.cfg.MaxUploadBytes)
	switch {
	case errors.Is(err, avatar.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, "TooLarge", err.Error())
		return
	case errors.Is(err, avatar.ErrNotImage):
		writeError(w, http.StatusUnsupportedMediaType, "NotImage", err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadRequest, "InvalidRequest", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"avatar": uri})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		writeError(w, http.StatusBadRequest, "InvalidRequest", "q parameter is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.cfg.LookupTimeout)
	defer cancel()

	prof, uri, err := s.studio.FetchProfile(ctx, query)
	switch {
	case errors.Is(err, studio.ErrLookupDisabled):
		writeError(w, http.StatusServiceUnavailable, "Unavailable", err.Error())
		return
	case err != nil:
		writeError(w, http.StatusBadGateway, "LookupFailed", err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"profile": prof,
		"avatar":  uri,
	})
}

// decodePost reads a Post from the request body. Language falls back to
// the request's language; the body is truncated.
func (s *Server) decodePost(w http.ResponseWriter, r *http.Request) (*domain.Post, bool) {
	if ct := r.Header.Get("Content-Type"); ct != "" {
		if mt, _, _ := mime.ParseMediaType(ct); mt != "application/json" {
			writeError(w, http.StatusUnsupportedMediaType, "InvalidRequest", "expected application/json")
			return nil, false
		}
	}

	post := domain.NewPost()
	post.Language = ""
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxPostBytes))
	if err := dec.Decode(post); err != nil {
		s.logger.Warn("invalid post body", "error", err)
		writeError(w, http.StatusBadRequest, "InvalidRequest", "invalid post JSON")
		return nil, false
	}

	if post.Language == "" {
		post.Language = s.requestLanguage(r)
	}
	post.Body = domain.TruncateBody(post.Body)
	return post, true
}

func (s *Server) requestLanguage(r *http.Request) locale.Code {
	if code := locale.Code(r.URL.Query().Get("lang")); code != "" {
		if _, ok := s.studio.Locales().Lookup(code); ok {
			return code
		}
	}
	return s.studio.Locales().Match(r.Header.Get("Accept-Language"))
}

// responseSink delivers an artifact as a file download.
type responseSink struct {
	w http.ResponseWriter
}

func (s responseSink) Save(filename, contentType string, data []byte) error {
	s.w.Header().Set("Content-Type", contentType)
	s.w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	s.w.WriteHeader(http.StatusOK)
	_, err := s.w.Write(data)
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, errType, message string) {
	writeJSON(w, status, map[string]string{
		"error":   errType,
		"message": message,
	})
}

func withLogging(logger *slog.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(wrapped, r)
		logger.Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", wrapped.status,
			"duration", time.Since(start),
			"request_id", middleware.GetReqID(r.Context()),
		)
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}

// Hijack lets WebSocket upgrades through the wrapper.
func (w *statusWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := w.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	w.status = http.StatusSwitchingProtocols
	return h.Hijack()
}
