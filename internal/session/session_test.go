package session

import (
	"context"
	"encoding/json"
	"image"
	"io"
	"log/slog"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/blackmichael/postmock/internal/card"
	"github.com/blackmichael/postmock/internal/domain"
	"github.com/blackmichael/postmock/internal/locale"
	"github.com/blackmichael/postmock/internal/snapshot"
	"github.com/blackmichael/postmock/internal/studio"
)

type blankRaster struct{}

func (blankRaster) Rasterize(_ context.Context, n *card.Node) (image.Image, error) {
	return image.NewRGBA(n.Bounds()), nil
}

// queryLookup answers "slow" only when canceled and anything else at once.
type queryLookup struct{}

func (queryLookup) LookupProfile(ctx context.Context, q string) (*domain.Profile, error) {
	if q == "slow" {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if q == "ghost" {
		return nil, domain.ErrProfileNotFound
	}
	return &domain.Profile{Name: "Name " + q, ScreenName: q, Status: domain.Status{Text: "from " + q}}, nil
}

type envelope struct {
	Type     string      `json:"type"`
	Op       string      `json:"op"`
	Message  string      `json:"message"`
	Post     domain.Post `json:"post"`
	View     card.View   `json:"view"`
	BodyHTML string      `json:"body_html"`
	Filename string      `json:"filename"`
	DataURI  string      `json:"data_uri"`
	Width    int         `json:"width"`
}

// gatedRaster holds every capture until release is closed.
type gatedRaster struct {
	started chan struct{}
	release chan struct{}
}

func (g *gatedRaster) Rasterize(_ context.Context, n *card.Node) (image.Image, error) {
	g.started <- struct{}{}
	<-g.release
	return image.NewRGBA(n.Bounds()), nil
}

func newServer(t *testing.T, raster snapshot.Rasterizer) *httptest.Server {
	t.Helper()

	fonts, err := card.DefaultFonts()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { fonts.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	st := studio.New(locale.NewStore(), fonts, snapshot.NewPipelineLimit(raster, 4, logger), queryLookup{}, nil, logger)

	srv := httptest.NewServer(NewHandler(st, logger))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, query string) *websocket.Conn {
	t.Helper()
	return dialServer(t, newServer(t, blankRaster{}), query)
}

func dialServer(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func read(t *testing.T, conn *websocket.Conn) envelope {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var env envelope
	if err := conn.ReadJSON(&env); err != nil {
		t.Fatalf("read: %v", err)
	}
	return env
}

func send(t *testing.T, conn *websocket.Conn, msg map[string]string) {
	t.Helper()
	data, _ := json.Marshal(msg)
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		t.Fatalf("write: %v", err)
	}
}

func TestInitialPreview(t *testing.T) {
	conn := dial(t, "lang=en")

	env := read(t, conn)
	if env.Type != "preview" {
		t.Fatalf("type = %q", env.Type)
	}
	if env.View.Language != locale.English || env.View.DisplayName != "Full Name" {
		t.Errorf("view = %+v", env.View)
	}
}

func TestEditRoundTrip(t *testing.T) {
	conn := dial(t, "")
	read(t, conn)

	send(t, conn, map[string]string{"type": "edit", "field": "body", "value": "selam @ada #Çalışma"})
	env := read(t, conn)
	if env.Type != "preview" || env.Post.Body != "selam @ada #Çalışma" {
		t.Fatalf("preview = %+v", env)
	}
	if !strings.Contains(env.BodyHTML, `<span class="hashtag">#Çalışma</span>`) {
		t.Errorf("body html = %q", env.BodyHTML)
	}

	send(t, conn, map[string]string{"type": "edit", "field": "likes", "value": "1500"})
	env = read(t, conn)
	if env.View.Stats[2].Value != "1,5 B" {
		t.Errorf("likes stat = %q", env.View.Stats[2].Value)
	}

	send(t, conn, map[string]string{"type": "edit", "field": "lang", "value": "de"})
	env = read(t, conn)
	if env.Type != "error" || env.Op != "edit" {
		t.Errorf("unknown language reply = %+v", env)
	}
}

func TestBadMessage(t *testing.T) {
	conn := dial(t, "")
	read(t, conn)

	send(t, conn, map[string]string{"type": "dance"})
	if env := read(t, conn); env.Type != "error" {
		t.Errorf("reply = %+v", env)
	}
}

func TestLookupSupersedes(t *testing.T) {
	conn := dial(t, "")
	read(t, conn)

	send(t, conn, map[string]string{"type": "lookup", "query": "slow"})
	send(t, conn, map[string]string{"type": "lookup", "query": "ada"})

	env := read(t, conn)
	if env.Type != "preview" || env.Post.Handle != "ada" || env.Post.Body != "from ada" {
		t.Fatalf("after lookup = %+v", env)
	}

	// The canceled lookup must not surface as an error.
	send(t, conn, map[string]string{"type": "edit", "field": "verified", "value": "evet"})
	env = read(t, conn)
	if env.Type != "preview" || !env.Post.Verified {
		t.Errorf("next message = %+v", env)
	}
}

func TestLookupFailure(t *testing.T) {
	conn := dial(t, "")
	read(t, conn)

	send(t, conn, map[string]string{"type": "edit", "field": "display_name", "value": "Keep"})
	read(t, conn)

	send(t, conn, map[string]string{"type": "lookup", "query": "ghost"})
	if env := read(t, conn); env.Type != "error" || env.Op != "lookup" {
		t.Fatalf("reply = %+v", env)
	}

	send(t, conn, map[string]string{"type": "edit", "field": "handle", "value": "x"})
	if env := read(t, conn); env.Post.DisplayName != "Keep" {
		t.Errorf("post changed by failed lookup: %+v", env.Post)
	}
}

func TestExport(t *testing.T) {
	conn := dial(t, "")
	read(t, conn)

	send(t, conn, map[string]string{"type": "export"})
	env := read(t, conn)
	if env.Type != "artifact" {
		t.Fatalf("reply = %+v", env)
	}
	if env.Filename != snapshot.DefaultFilename {
		t.Errorf("filename = %q", env.Filename)
	}
	if !strings.HasPrefix(env.DataURI, "data:image/png;base64,") {
		t.Errorf("data uri = %.40s", env.DataURI)
	}
	if env.Width != card.Width {
		t.Errorf("width = %d", env.Width)
	}
}

func TestExportOnePerSession(t *testing.T) {
	raster := &gatedRaster{started: make(chan struct{}, 1), release: make(chan struct{})}
	conn := dialServer(t, newServer(t, raster), "")
	read(t, conn)

	send(t, conn, map[string]string{"type": "export"})
	send(t, conn, map[string]string{"type": "export"})

	env := read(t, conn)
	if env.Type != "error" || env.Op != "export" || env.Message != "export already in progress" {
		t.Fatalf("second export reply = %+v", env)
	}

	<-raster.started
	close(raster.release)
	if env := read(t, conn); env.Type != "artifact" {
		t.Fatalf("first export reply = %+v", env)
	}

	// Once delivered, the session can export again.
	send(t, conn, map[string]string{"type": "export"})
	<-raster.started
	if env := read(t, conn); env.Type != "artifact" {
		t.Errorf("next export reply = %+v", env)
	}
}

func TestExportSessionsIndependent(t *testing.T) {
	raster := &gatedRaster{started: make(chan struct{}, 2), release: make(chan struct{})}
	srv := newServer(t, raster)

	ada := dialServer(t, srv, "")
	grace := dialServer(t, srv, "")
	read(t, ada)
	read(t, grace)

	send(t, ada, map[string]string{"type": "export", "filename": "ada.png"})
	send(t, grace, map[string]string{"type": "export", "filename": "grace.png"})

	// Both captures are running at the same time.
	<-raster.started
	<-raster.started
	close(raster.release)

	for conn, want := range map[*websocket.Conn]string{ada: "ada.png", grace: "grace.png"} {
		env := read(t, conn)
		if env.Type != "artifact" || env.Filename != want {
			t.Errorf("reply = %+v, want artifact %s", env, want)
		}
	}
}
