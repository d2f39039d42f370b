package studio

import (
	"context"
	"errors"
	"image"
	"io"
	"log/slog"
	"testing"

	"github.com/blackmichael/postmock/internal/card"
	"github.com/blackmichael/postmock/internal/domain"
	"github.com/blackmichael/postmock/internal/locale"
	"github.com/blackmichael/postmock/internal/snapshot"
)

type fakeLookup struct {
	prof *domain.Profile
	err  error
}

func (f fakeLookup) LookupProfile(context.Context, string) (*domain.Profile, error) {
	return f.prof, f.err
}

type fakeAvatars struct {
	uri string
	err error
}

func (f fakeAvatars) FetchAvatar(context.Context, string) (string, error) {
	return f.uri, f.err
}

type blankRaster struct{}

func (blankRaster) Rasterize(_ context.Context, n *card.Node) (image.Image, error) {
	return image.NewRGBA(n.Bounds()), nil
}

func newStudio(t *testing.T, lookup domain.ProfileLookup, avatars domain.AvatarFetcher) *Studio {
	t.Helper()
	fonts, err := card.DefaultFonts()
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { fonts.Close() })

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(locale.NewStore(), fonts, snapshot.NewPipeline(blankRaster{}, logger), lookup, avatars, logger)
}

func testProfile() *domain.Profile {
	return &domain.Profile{
		Name:            "Ada",
		ScreenName:      "ada",
		ProfileImageURL: "http://img/ada.png",
		Status:          domain.Status{Text: "hi #go", RetweetCount: 1500, FavoriteCount: 20},
	}
}

func TestPreviewUnknownLanguageFallsBack(t *testing.T) {
	s := newStudio(t, nil, nil)

	v := s.Preview(domain.Post{Language: "xx"})
	if v.Language != locale.Primary {
		t.Errorf("language = %q, want primary", v.Language)
	}
	if v.DisplayName != "Ad Soyad" {
		t.Errorf("name = %q", v.DisplayName)
	}
}

func TestExport(t *testing.T) {
	s := newStudio(t, nil, nil)

	a, err := s.Export(context.Background(), domain.Post{Body: "merhaba"})
	if err != nil {
		t.Fatalf("Export: %v", err)
	}
	if a.Width != card.Width || a.Height <= 0 {
		t.Errorf("artifact %dx%d", a.Width, a.Height)
	}
}

func TestLookupApplies(t *testing.T) {
	s := newStudio(t, fakeLookup{prof: testProfile()}, fakeAvatars{uri: "data:image/png;base64,AA=="})

	p := domain.Post{Quotes: 5, Language: locale.English}
	if err := s.Lookup(context.Background(), &p, "ada"); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if p.DisplayName != "Ada" || p.Handle != "ada" || p.Body != "hi #go" {
		t.Errorf("post = %+v", p)
	}
	if p.Retweets != 1500 || p.Likes != 20 || p.Quotes != 5 {
		t.Errorf("counts = %d/%d/%d", p.Retweets, p.Quotes, p.Likes)
	}
	if p.Avatar != "data:image/png;base64,AA==" {
		t.Errorf("avatar = %q", p.Avatar)
	}
	if p.Language != locale.English {
		t.Errorf("language changed to %q", p.Language)
	}
}

func TestLookupAvatarFailureKeepsOldAvatar(t *testing.T) {
	s := newStudio(t, fakeLookup{prof: testProfile()}, fakeAvatars{err: errors.New("timeout")})

	p := domain.Post{Avatar: "data:image/png;base64,OLD="}
	if err := s.Lookup(context.Background(), &p, "ada"); err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if p.Avatar != "data:image/png;base64,OLD=" {
		t.Errorf("avatar = %q, want old one kept", p.Avatar)
	}
	if p.DisplayName != "Ada" {
		t.Errorf("other fields not applied: %+v", p)
	}
}

func TestLookupFailureLeavesPost(t *testing.T) {
	s := newStudio(t, fakeLookup{err: domain.ErrProfileNotFound}, nil)

	p := domain.Post{DisplayName: "Keep", Body: "me"}
	err := s.Lookup(context.Background(), &p, "ghost")
	if !errors.Is(err, domain.ErrProfileNotFound) {
		t.Errorf("err = %v", err)
	}
	if p.DisplayName != "Keep" || p.Body != "me" {
		t.Errorf("post changed: %+v", p)
	}

	s = newStudio(t, nil, nil)
	if err := s.Lookup(context.Background(), &p, "ada"); !errors.Is(err, ErrLookupDisabled) {
		t.Errorf("nil lookup err = %v", err)
	}
}
