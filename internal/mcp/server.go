// Package mcp exposes post formatting and rendering as Model Context
// Protocol tools.
package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/blackmichael/postmock/internal/studio"
)

// NewServer creates an MCP server with all postmock tools registered.
func NewServer(version string, st *studio.Studio) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "postmock",
		Version: version,
	}, nil)
	registerTools(server, st)
	return server
}

func boolPtr(b bool) *bool {
	return &b
}

func readOnlyAnnotations() *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		ReadOnlyHint:   true,
		IdempotentHint: true,
		OpenWorldHint:  boolPtr(false),
	}
}

// renderAnnotations mark render_post: it writes a file and may reach the
// network for a profile lookup.
func renderAnnotations() *mcp.ToolAnnotations {
	return &mcp.ToolAnnotations{
		DestructiveHint: boolPtr(false),
		OpenWorldHint:   boolPtr(true),
	}
}

func registerTools(server *mcp.Server, st *studio.Studio) {
	mcp.AddTool(server, &mcp.Tool{
		Name:        "format_count",
		Description: "Abbreviate an engagement count the way the post card shows it, e.g. 1500 -> \"1,5 B\" in Turkish or \"1.5K\" in English.",
		Annotations: readOnlyAnnotations(),
	}, handleFormatCount(st))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "transform_text",
		Description: "Split post text into plain, mention, hashtag, link and linebreak segments, and return the sanitized HTML.",
		Annotations: readOnlyAnnotations(),
	}, handleTransformText(st))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "render_post",
		Description: "Render a mock post card to a PNG file. Optionally fill the author and latest post from a profile lookup first.",
		Annotations: renderAnnotations(),
	}, handleRenderPost(st))
}
