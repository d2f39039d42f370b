package card

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/blackmichael/postmock/internal/markup"
)

// RootClass is the class of the card element inside the rendered document.
// Browser-based capture targets it.
const RootClass = "tweet"

var pageTemplate = template.Must(template.New("card").Parse(`<!DOCTYPE html>
<html lang="{{.Lang}}">
<head>
<meta charset="utf-8">
<style>
body { margin: 0; background: #fff; font-family: -apple-system, "Segoe UI", Roboto, Helvetica, Arial, sans-serif; }
.tweet { width: {{.Width}}px; box-sizing: border-box; padding: {{.Padding}}px; background: #fff; color: #0f1419; }
.header { display: flex; align-items: center; gap: 12px; }
.avatar { width: {{.AvatarSize}}px; height: {{.AvatarSize}}px; border-radius: 50%; background: #cfd9de; object-fit: cover; }
.name { font-weight: 700; font-size: 15px; }
.badge { display: inline-block; width: 16px; height: 16px; margin-left: 4px; border-radius: 50%; background: #1d9bf0; vertical-align: -2px; }
.handle { color: #536471; font-size: 15px; }
.body { margin-top: 12px; font-size: 20px; line-height: 1.4; white-space: pre-wrap; overflow-wrap: anywhere; }
.mention, .hashtag, .link { color: #1d9bf0; }
.stats { margin-top: 16px; padding: 16px 0; border-top: 1px solid #eff3f4; border-bottom: 1px solid #eff3f4; font-size: 14px; color: #536471; }
.stats b { color: #0f1419; margin-right: 4px; }
.stats span { margin-right: 20px; }
.actions { height: 48px; }
</style>
</head>
<body>
<div class="tweet">
  <div class="header">
    {{if .Avatar}}<img class="avatar" src="{{.Avatar}}" alt="">{{else}}<div class="avatar"></div>{{end}}
    <div>
      <div class="name">{{.View.DisplayName}}{{if .View.Verified}}<span class="badge"></span>{{end}}</div>
      <div class="handle">{{.View.Handle}}</div>
    </div>
  </div>
  <div class="body">{{.Body}}</div>
  <div class="stats">{{range .View.Stats}}<span><b>{{.Value}}</b>{{.Label}}</span>{{end}}</div>
  <div class="actions"></div>
</div>
</body>
</html>
`))

// HTML renders v as a standalone document whose single .tweet element is
// the card. The body markup is sanitized before it is inlined.
func HTML(v View) (string, error) {
	data := struct {
		View       View
		Lang       string
		Width      int
		Padding    int
		AvatarSize int
		Avatar     template.URL
		Body       template.HTML
	}{
		View:       v,
		Lang:       string(v.Language),
		Width:      Width,
		Padding:    Padding,
		AvatarSize: AvatarSize,
		Body:       template.HTML(markup.Sanitize(markup.HTML(v.Body))),
	}
	// Only inline image data URIs; anything else falls back to the placeholder.
	if strings.HasPrefix(v.Avatar, "data:image/") {
		data.Avatar = template.URL(v.Avatar)
	}

	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render card html: %w", err)
	}
	return buf.String(), nil
}
