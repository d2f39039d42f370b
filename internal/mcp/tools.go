package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/blackmichael/postmock/internal/domain"
	"github.com/blackmichael/postmock/internal/locale"
	"github.com/blackmichael/postmock/internal/markup"
	"github.com/blackmichael/postmock/internal/snapshot"
	"github.com/blackmichael/postmock/internal/studio"
)

// --- Format count tool ---

// FormatCountInput is the input for the format_count tool.
type FormatCountInput struct {
	Count int64  `json:"count"          jsonschema:"engagement count to abbreviate"`
	Lang  string `json:"lang,omitempty" jsonschema:"language code: tr (default) or en"`
}

// FormatCountOutput is the output for the format_count tool.
type FormatCountOutput struct {
	Formatted string `json:"formatted" jsonschema:"abbreviated count"`
}

func handleFormatCount(st *studio.Studio) mcp.ToolHandlerFor[FormatCountInput, FormatCountOutput] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input FormatCountInput) (*mcp.CallToolResult, FormatCountOutput, error) {
		bundle := st.Bundle(locale.Code(input.Lang))
		count := domain.CountOf(input.Count)
		return nil, FormatCountOutput{Formatted: bundle.Numbers.Format(count.Int64())}, nil
	}
}

// --- Transform text tool ---

// TransformTextInput is the input for the transform_text tool.
type TransformTextInput struct {
	Text string `json:"text"           jsonschema:"raw post text; blank text yields the locale's placeholder"`
	Lang string `json:"lang,omitempty" jsonschema:"language code selecting the hashtag alphabet"`
}

// TransformTextOutput is the output for the transform_text tool.
type TransformTextOutput struct {
	Segments []markup.Segment `json:"segments" jsonschema:"tagged segments in text order"`
	HTML     string           `json:"html"     jsonschema:"sanitized HTML fragment"`
}

func handleTransformText(st *studio.Studio) mcp.ToolHandlerFor[TransformTextInput, TransformTextOutput] {
	return func(_ context.Context, _ *mcp.CallToolRequest, input TransformTextInput) (*mcp.CallToolResult, TransformTextOutput, error) {
		bundle := st.Bundle(locale.Code(input.Lang))
		segs := markup.ForLetters(bundle.HashtagLetters).Display(input.Text, bundle.BodyPlaceholder)
		return nil, TransformTextOutput{
			Segments: segs,
			HTML:     markup.Sanitize(markup.HTML(segs)),
		}, nil
	}
}

// --- Render post tool ---

// RenderPostInput is the input for the render_post tool.
type RenderPostInput struct {
	Lookup      string `json:"lookup,omitempty"       jsonschema:"profile to look up and fill the post from"`
	DisplayName string `json:"display_name,omitempty" jsonschema:"author name"`
	Handle      string `json:"handle,omitempty"       jsonschema:"author username without @"`
	Verified    bool   `json:"verified,omitempty"     jsonschema:"show the verified badge"`
	Body        string `json:"body,omitempty"         jsonschema:"post text, at most 290 characters"`
	Retweets    int64  `json:"retweets,omitempty"     jsonschema:"retweet count"`
	Quotes      int64  `json:"quotes,omitempty"       jsonschema:"quote count"`
	Likes       int64  `json:"likes,omitempty"        jsonschema:"like count"`
	Lang        string `json:"lang,omitempty"         jsonschema:"language code: tr (default) or en"`
	OutputDir   string `json:"output_dir"             jsonschema:"directory to write the PNG into"`
	Filename    string `json:"filename,omitempty"     jsonschema:"file name (default tweet.png)"`
}

// RenderPostOutput is the output for the render_post tool.
type RenderPostOutput struct {
	Path   string `json:"path"   jsonschema:"written PNG file"`
	Width  int    `json:"width"  jsonschema:"image width in pixels"`
	Height int    `json:"height" jsonschema:"image height in pixels"`
}

func handleRenderPost(st *studio.Studio) mcp.ToolHandlerFor[RenderPostInput, RenderPostOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input RenderPostInput) (*mcp.CallToolResult, RenderPostOutput, error) {
		if input.OutputDir == "" {
			return nil, RenderPostOutput{}, errors.New("output_dir is required")
		}

		post := domain.NewPost()
		if input.Lookup != "" {
			if err := st.Lookup(ctx, post, input.Lookup); err != nil {
				return nil, RenderPostOutput{}, err
			}
		}
		overlay(post, input, st.Locales())

		art, err := st.Export(ctx, *post)
		if err != nil {
			return nil, RenderPostOutput{}, fmt.Errorf("rendering post: %w", err)
		}
		if art == nil {
			return nil, RenderPostOutput{}, errors.New("nothing to render")
		}

		filename := input.Filename
		if filename == "" {
			filename = snapshot.DefaultFilename
		}
		sink := snapshot.DirSink{Dir: input.OutputDir}
		if err := snapshot.Download(art, filename, sink); err != nil {
			return nil, RenderPostOutput{}, err
		}

		return nil, RenderPostOutput{
			Path:   sink.Path(filename),
			Width:  art.Width,
			Height: art.Height,
		}, nil
	}
}

// overlay copies the non-empty input fields onto post.
func overlay(post *domain.Post, input RenderPostInput, langs domain.LanguageChecker) {
	edits := []domain.Edit{
		{Field: domain.FieldDisplayName, Value: input.DisplayName},
		{Field: domain.FieldHandle, Value: input.Handle},
		{Field: domain.FieldBody, Value: input.Body},
		{Field: domain.FieldLanguage, Value: input.Lang},
	}
	for _, e := range edits {
		if e.Value != "" {
			// Unknown languages keep the current one.
			_ = domain.ApplyEdit(post, e, langs)
		}
	}
	if input.Verified {
		post.Verified = true
	}
	if input.Retweets > 0 {
		post.Retweets = domain.Count(input.Retweets)
	}
	if input.Quotes > 0 {
		post.Quotes = domain.Count(input.Quotes)
	}
	if input.Likes > 0 {
		post.Likes = domain.Count(input.Likes)
	}
}
