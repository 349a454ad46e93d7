// ABOUTME: MCP tool implementations for archive inspection.
// ABOUTME: Registers list_posts, get_post, and preview_segments tools.
package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fedimove/fedimove/internal/archive"
	"github.com/fedimove/fedimove/internal/mastodon"
	"github.com/fedimove/fedimove/internal/segment"
)

func (s *Server) registerArchiveTools() {
	s.mcp.AddTool(&gomcp.Tool{
		Name:        "list_posts",
		Description: "List posts in the archive, oldest first, with their ids and a text preview.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"limit": {"type": "number", "description": "Maximum number of posts to return (default 20)"},
				"offset": {"type": "number", "description": "Number of posts to skip (default 0)"},
				"bookmarked_only": {"type": "boolean", "description": "Only list bookmarked posts"}
			}
		}`),
	}, s.handleListPosts)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "get_post",
		Description: "Show one archived post in full: text, flags, media files and remote ids.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "The archive id of the post.", "minLength": 1}
			},
			"required": ["id"]
		}`),
	}, s.handleGetPost)

	s.mcp.AddTool(&gomcp.Tool{
		Name:        "preview_segments",
		Description: "Preview how a post's text would split into statuses at a given character limit.",
		InputSchema: json.RawMessage(`{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "The archive id of the post.", "minLength": 1},
				"limit": {"type": "number", "description": "Server character limit (default 500)"}
			},
			"required": ["id"]
		}`),
	}, s.handlePreviewSegments)
}

func (s *Server) handleListPosts(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		Limit          int  `json:"limit"`
		Offset         int  `json:"offset"`
		BookmarkedOnly bool `json:"bookmarked_only"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}

	if args.Limit <= 0 {
		args.Limit = 20
	}

	posts := s.arch.Posts()
	if args.BookmarkedOnly {
		kept := posts[:0]
		for _, p := range posts {
			if p.Bookmarked() {
				kept = append(kept, p)
			}
		}
		posts = kept
	}
	if args.Offset >= len(posts) {
		return &gomcp.CallToolResult{
			Content: []gomcp.Content{&gomcp.TextContent{Text: "No posts found."}},
		}, nil
	}
	posts = posts[args.Offset:]
	if len(posts) > args.Limit {
		posts = posts[:args.Limit]
	}

	var sb strings.Builder
	for _, p := range posts {
		sb.WriteString(fmt.Sprintf("---\n%s", p.LocalID()))
		if p.Visibility() != "" {
			sb.WriteString(fmt.Sprintf(" [%s]", p.Visibility()))
		}
		if p.Bookmarked() {
			sb.WriteString(" bookmarked")
		}
		if p.Pinned() {
			sb.WriteString(" pinned")
		}
		if p.HasMedia() {
			sb.WriteString(fmt.Sprintf(" media:%d", len(p.Media())))
		}
		sb.WriteString(fmt.Sprintf("\n%s\n", preview(p)))
	}

	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: sb.String()}},
	}, nil
}

func preview(p *archive.Post) string {
	if p.ReblogURL() != "" {
		return "(boost of " + p.ReblogURL() + ")"
	}
	text := strings.ReplaceAll(p.Text(), "\n", " ")
	runes := []rune(text)
	if len(runes) > 80 {
		return string(runes[:80]) + "…"
	}
	return text
}

func (s *Server) handleGetPost(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if args.ID == "" {
		return toolError("id is required"), nil
	}

	p := s.arch.PostByLocalID(args.ID)
	if p == nil {
		return toolError("no post with id %s", args.ID), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("id: %s\n", p.LocalID()))
	sb.WriteString(fmt.Sprintf("visibility: %s\n", p.Visibility()))
	sb.WriteString(fmt.Sprintf("sensitive: %v  bookmarked: %v  pinned: %v\n",
		p.Sensitive(), p.Bookmarked(), p.Pinned()))
	if p.SpoilerText() != "" {
		sb.WriteString(fmt.Sprintf("spoiler: %s\n", p.SpoilerText()))
	}
	if p.Language() != "" {
		sb.WriteString(fmt.Sprintf("language: %s\n", p.Language()))
	}
	if p.InReplyTo() != "" {
		sb.WriteString(fmt.Sprintf("in reply to: %s\n", p.InReplyTo()))
	}
	if p.ReblogURL() != "" {
		sb.WriteString(fmt.Sprintf("boost of: %s\n", p.ReblogURL()))
	}
	if rids := p.RemoteIDs(); len(rids) > 0 {
		sb.WriteString(fmt.Sprintf("remote ids: %s\n", strings.Join(rids, ", ")))
	}
	for _, m := range p.Media() {
		sb.WriteString(fmt.Sprintf("media: %s (%s)", m.Filename, m.MimeType))
		if m.AltText != "" {
			sb.WriteString(fmt.Sprintf(" alt=%q", m.AltText))
		}
		sb.WriteString("\n")
	}
	sb.WriteString(fmt.Sprintf("\n%s\n", p.Text()))

	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: sb.String()}},
	}, nil
}

func (s *Server) handlePreviewSegments(ctx context.Context, req *gomcp.CallToolRequest) (*gomcp.CallToolResult, error) {
	var args struct {
		ID    string `json:"id"`
		Limit int    `json:"limit"`
	}
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		return toolError("invalid arguments: %v", err), nil
	}
	if args.ID == "" {
		return toolError("id is required"), nil
	}
	if args.Limit <= 0 {
		args.Limit = mastodon.DefaultMaxCharacters
	}

	p := s.arch.PostByLocalID(args.ID)
	if p == nil {
		return toolError("no post with id %s", args.ID), nil
	}

	segments, err := segment.Split(p.Text(), args.Limit)
	if err != nil {
		return toolError("cannot split: %v", err), nil
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d status(es) at limit %d:\n", len(segments), args.Limit))
	for i, seg := range segments {
		sb.WriteString(fmt.Sprintf("--- %d/%d (%d chars)\n%s\n",
			i+1, len(segments), segment.PostedLength(seg), seg))
	}

	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: sb.String()}},
	}, nil
}

func toolError(format string, args ...interface{}) *gomcp.CallToolResult {
	return &gomcp.CallToolResult{
		Content: []gomcp.Content{&gomcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}
