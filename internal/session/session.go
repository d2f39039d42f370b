// Package session serves the live editor over a WebSocket. Each connection
// owns one Post; edits, lookups and exports arrive as JSON messages and every
// change is answered with a fresh preview.
package session

import (
	"context"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/blackmichael/postmock/internal/domain"
	"github.com/blackmichael/postmock/internal/locale"
	"github.com/blackmichael/postmock/internal/markup"
	"github.com/blackmichael/postmock/internal/snapshot"
	"github.com/blackmichael/postmock/internal/studio"
)

const (
	writeTimeout   = 10 * time.Second
	maxMessageSize = 8 << 20
	outboxSize     = 16
)

// Handler upgrades requests to WebSocket sessions.
type Handler struct {
	studio   *studio.Studio
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewHandler(st *studio.Studio, logger *slog.Logger) *Handler {
	return &Handler{
		studio: st,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		logger: logger,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	post := domain.NewPost()
	if code := locale.Code(r.URL.Query().Get("lang")); code != "" {
		if _, ok := h.studio.Locales().Lookup(code); ok {
			post.Language = code
		}
	} else {
		post.Language = h.studio.Locales().Match(r.Header.Get("Accept-Language"))
	}

	s := &session{
		conn:    conn,
		studio:  h.studio,
		logger:  h.logger.With("remote", r.RemoteAddr),
		post:    *post,
		out:     make(chan any, outboxSize),
		results: make(chan func(), 1),
	}
	s.run(r.Context())
}

// session state is owned by the run loop goroutine. Background work hands
// results back through the results channel.
type session struct {
	conn   *websocket.Conn
	studio *studio.Studio
	logger *slog.Logger

	post domain.Post

	// lookupGen identifies the newest lookup; older results are dropped.
	lookupGen    uint64
	cancelLookup context.CancelFunc

	// exporting is set while this session's export runs.
	exporting bool

	out     chan any
	results chan func()
}

func (s *session) run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.writePump(ctx)
	}()

	defer func() {
		cancel()
		wg.Wait()
		s.conn.Close()
		s.logger.Info("session closed")
	}()

	inbound := make(chan []byte)
	readErr := make(chan error, 1)
	go s.readPump(ctx, inbound, readErr)

	s.logger.Info("session opened", "lang", s.post.Language)
	s.sendPreview(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case err := <-readErr:
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Warn("session read error", "error", err)
			}
			return
		case data := <-inbound:
			msg, err := parseMessage(data)
			if err != nil {
				s.logger.Warn("bad session message", "error", err)
				s.sendError(ctx, "message", err)
				continue
			}
			s.handle(ctx, msg)
		case apply := <-s.results:
			apply()
		}
	}
}

func (s *session) readPump(ctx context.Context, inbound chan<- []byte, readErr chan<- error) {
	s.conn.SetReadLimit(maxMessageSize)
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			readErr <- err
			return
		}
		select {
		case inbound <- data:
		case <-ctx.Done():
			return
		}
	}
}

// writePump is the connection's only writer.
func (s *session) writePump(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second))
			return
		case msg := <-s.out:
			s.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := s.conn.WriteJSON(msg); err != nil {
				s.logger.Warn("session write failed", "error", err)
				return
			}
		}
	}
}

func (s *session) handle(ctx context.Context, msg *inbound) {
	switch msg.Type {
	case typeEdit:
		if err := domain.ApplyEdit(&s.post, msg.Edit, s.studio.Locales()); err != nil {
			s.sendError(ctx, typeEdit, err)
			return
		}
		s.sendPreview(ctx)
	case typeLookup:
		s.startLookup(ctx, msg.Query)
	case typeExport:
		s.startExport(ctx, msg.Filename)
	}
}

// startLookup runs the lookup in the background. A newer lookup cancels
// the running one and its result, if it still arrives, is ignored.
func (s *session) startLookup(ctx context.Context, query string) {
	if s.cancelLookup != nil {
		s.cancelLookup()
	}
	s.lookupGen++
	gen := s.lookupGen

	lctx, cancel := context.WithCancel(ctx)
	s.cancelLookup = cancel

	go func() {
		defer cancel()
		prof, avatar, err := s.studio.FetchProfile(lctx, query)
		s.deliver(ctx, func() {
			if gen != s.lookupGen {
				s.logger.Debug("dropping stale lookup", "query", query, "generation", gen)
				return
			}
			s.cancelLookup = nil
			if err != nil {
				s.sendError(ctx, typeLookup, err)
				return
			}
			s.post.ApplyProfile(prof, avatar)
			s.sendPreview(ctx)
		})
	}()
}

// startExport captures the post as it is now. A second export from the same
// session is refused until the first is delivered; other sessions are not
// affected.
func (s *session) startExport(ctx context.Context, filename string) {
	if s.exporting {
		s.sendError(ctx, typeExport, snapshot.ErrBusy)
		return
	}
	s.exporting = true

	post := s.post
	go func() {
		art, err := s.studio.Export(ctx, post)
		s.deliver(ctx, func() {
			s.exporting = false
			if err != nil {
				s.sendError(ctx, typeExport, err)
				return
			}
			sink := &messageSink{session: s, ctx: ctx, artifact: art}
			if err := snapshot.Download(art, filename, sink); err != nil {
				s.sendError(ctx, typeExport, err)
			}
		})
	}()
}

func (s *session) deliver(ctx context.Context, apply func()) {
	select {
	case s.results <- apply:
	case <-ctx.Done():
	}
}

func (s *session) send(ctx context.Context, msg any) {
	select {
	case s.out <- msg:
	case <-ctx.Done():
	}
}

func (s *session) sendPreview(ctx context.Context) {
	view := s.studio.Preview(s.post)
	s.send(ctx, preview{
		Type:     typePreview,
		Post:     s.post,
		View:     view,
		BodyHTML: markup.Sanitize(markup.HTML(view.Body)),
	})
}

func (s *session) sendError(ctx context.Context, op string, err error) {
	msg := err.Error()
	if errors.Is(err, snapshot.ErrBusy) {
		msg = "export already in progress"
	}
	s.send(ctx, failure{Type: typeError, Op: op, Message: msg})
}

// messageSink delivers an artifact as an outbound message.
type messageSink struct {
	session  *session
	ctx      context.Context
	artifact *snapshot.Artifact
}

func (m *messageSink) Save(filename, contentType string, data []byte) error {
	m.session.send(m.ctx, artifact{
		Type:       typeArtifact,
		Filename:   filename,
		DataURI:    "data:" + contentType + ";base64," + base64.StdEncoding.EncodeToString(data),
		Width:      m.artifact.Width,
		Height:     m.artifact.Height,
		Generation: m.artifact.Generation,
	})
	return nil
}
