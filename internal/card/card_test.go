package card

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"

	"github.com/blackmichael/postmock/internal/domain"
	"github.com/blackmichael/postmock/internal/locale"
	"github.com/blackmichael/postmock/internal/markup"
)

func testFonts(t *testing.T) *Fonts {
	t.Helper()
	f, err := DefaultFonts()
	if err != nil {
		t.Fatalf("DefaultFonts: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func pngURI(t *testing.T) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(4, 4, color.RGBA{R: 200, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatal(err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestBuildPlaceholders(t *testing.T) {
	store := locale.NewStore()

	tests := []struct {
		lang       locale.Code
		wantName   string
		wantHandle string
		wantBody   string
	}{
		{locale.Turkish, "Ad Soyad", "@kullaniciadi", "Bu alana örnek tweet gelecek"},
		{locale.English, "Full Name", "@username", "Your sample tweet will appear here"},
	}

	for _, tt := range tests {
		t.Run(string(tt.lang), func(t *testing.T) {
			v := Build(domain.Post{Body: "  \n "}, store.MustLookup(tt.lang))
			if v.DisplayName != tt.wantName {
				t.Errorf("name = %q, want %q", v.DisplayName, tt.wantName)
			}
			if v.Handle != tt.wantHandle {
				t.Errorf("handle = %q, want %q", v.Handle, tt.wantHandle)
			}
			if len(v.Body) != 1 || v.Body[0].Text != tt.wantBody {
				t.Errorf("body = %+v", v.Body)
			}
		})
	}
}

func TestBuildStats(t *testing.T) {
	store := locale.NewStore()
	p := domain.Post{
		DisplayName: "Ada",
		Handle:      "@ada",
		Body:        "hi @bob",
		Retweets:    1500,
		Quotes:      999,
		Likes:       12000,
	}

	v := Build(p, store.MustLookup(locale.Turkish))
	if v.Handle != "@ada" {
		t.Errorf("handle = %q, want a single @", v.Handle)
	}
	want := []Stat{{"1,5 B", "Retweet"}, {"999", "Alıntı Tweetler"}, {"12 B", "Beğeni"}}
	for i, s := range v.Stats {
		if s != want[i] {
			t.Errorf("stat %d = %+v, want %+v", i, s, want[i])
		}
	}
	if len(v.Body) != 2 || v.Body[1].Kind != markup.KindMention {
		t.Errorf("body = %+v", v.Body)
	}

	en := Build(p, store.MustLookup(locale.English))
	if en.Stats[0].Value != "1.5K" {
		t.Errorf("en retweets = %q", en.Stats[0].Value)
	}
}

func TestLayoutRequiresFonts(t *testing.T) {
	if _, err := Layout(View{}, nil); err != ErrNoFonts {
		t.Errorf("err = %v, want ErrNoFonts", err)
	}
}

func TestLayoutGrowsWithBody(t *testing.T) {
	fonts := testFonts(t)
	b := locale.NewStore().MustLookup(locale.Primary)

	short, err := Layout(Build(domain.Post{Body: "kısa"}, b), fonts)
	if err != nil {
		t.Fatal(err)
	}
	long, err := Layout(Build(domain.Post{Body: strings.Repeat("uzun bir cümle ", 18)}, b), fonts)
	if err != nil {
		t.Fatal(err)
	}

	if !short.Mounted() || short.Width != Width {
		t.Fatalf("short node = %dx%d", short.Width, short.Height)
	}
	if long.Height <= short.Height {
		t.Errorf("long height %d not greater than short %d", long.Height, short.Height)
	}

	for _, r := range long.Runs {
		if r.Style != StyleBody {
			continue
		}
		end := r.X + fonts.Face(StyleBody).Advance(r.Text)
		if strings.TrimSpace(r.Text) != "" && end > Width-Padding+0.5 {
			t.Errorf("run %q overflows to %.1f", r.Text, end)
		}
	}
}

func TestLayoutLinebreaks(t *testing.T) {
	fonts := testFonts(t)
	b := locale.NewStore().MustLookup(locale.Primary)

	n, err := Layout(Build(domain.Post{Body: "a\n\nb"}, b), fonts)
	if err != nil {
		t.Fatal(err)
	}

	var ys []float64
	for _, r := range n.Runs {
		if r.Style == StyleBody {
			ys = append(ys, r.Y)
		}
	}
	if len(ys) != 2 {
		t.Fatalf("body runs = %d, want 2", len(ys))
	}
	if ys[1] <= ys[0] {
		t.Errorf("second line baseline %.1f not below first %.1f", ys[1], ys[0])
	}
}

func TestLayoutAvatarAndBadge(t *testing.T) {
	fonts := testFonts(t)
	b := locale.NewStore().MustLookup(locale.Primary)

	n, err := Layout(Build(domain.Post{Avatar: pngURI(t), Verified: true}, b), fonts)
	if err != nil {
		t.Fatal(err)
	}
	if n.Avatar == nil {
		t.Error("avatar not decoded")
	}
	if n.Badge.Empty() {
		t.Error("verified badge missing")
	}

	n, err = Layout(Build(domain.Post{Avatar: "data:image/png;base64,AAAA"}, b), fonts)
	if err != nil {
		t.Fatal(err)
	}
	if n.Avatar != nil {
		t.Error("broken avatar should fall back to placeholder")
	}
	if !n.Badge.Empty() {
		t.Error("badge shown for unverified author")
	}

	// A tiny file declaring a 12000x12000 canvas is never decoded.
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewGray(image.Rect(0, 0, 1, 1))); err != nil {
		t.Fatal(err)
	}
	huge := buf.Bytes()
	binary.BigEndian.PutUint32(huge[16:20], 12000)
	binary.BigEndian.PutUint32(huge[20:24], 12000)
	binary.BigEndian.PutUint32(huge[29:33], crc32.ChecksumIEEE(huge[12:29]))
	n, err = Layout(Build(domain.Post{Avatar: "data:image/png;base64," + base64.StdEncoding.EncodeToString(huge)}, b), fonts)
	if err != nil {
		t.Fatal(err)
	}
	if n.Avatar != nil {
		t.Error("oversized avatar should fall back to placeholder")
	}
}

func TestTokens(t *testing.T) {
	got := tokens("ab  cd e")
	want := []string{"ab", "  ", "cd", " ", "e"}
	if len(got) != len(want) {
		t.Fatalf("tokens = %q", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("token %d = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestHTML(t *testing.T) {
	b := locale.NewStore().MustLookup(locale.English)
	p := domain.Post{
		DisplayName: "<script>x</script>",
		Handle:      "ada",
		Verified:    true,
		Body:        "see https://go.dev\nok #go",
		Avatar:      pngURI(t),
	}

	doc, err := HTML(Build(p, b))
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		`class="tweet"`,
		`<span class="link">https://go.dev</span>`,
		`<span class="hashtag">#go</span>`,
		`<br`,
		`class="badge"`,
		`src="data:image/png;base64,`,
		`&lt;script&gt;`,
	} {
		if !strings.Contains(doc, want) {
			t.Errorf("document missing %q", want)
		}
	}
	if strings.Contains(doc, "<script>") {
		t.Error("display name not escaped")
	}
}

func TestHTMLRejectsNonImageAvatar(t *testing.T) {
	v := Build(domain.Post{Avatar: "javascript:alert(1)"}, locale.NewStore().MustLookup(locale.Primary))
	doc, err := HTML(v)
	if err != nil {
		t.Fatal(err)
	}
	if strings.Contains(doc, "javascript:") {
		t.Error("non-image avatar inlined")
	}
}
