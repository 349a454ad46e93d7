// ABOUTME: Tests for archive MCP tool handlers.
// ABOUTME: Covers list_posts, get_post, and preview_segments tools.
package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	gomcp "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/fedimove/fedimove/internal/archive"
)

func makeArchiveServer(t *testing.T) (*Server, *archive.Archive) {
	t.Helper()
	arch, err := archive.Create(t.TempDir(), "toots")
	if err != nil {
		t.Fatalf("Create archive error: %v", err)
	}
	server, err := NewServer(arch)
	if err != nil {
		t.Fatalf("NewServer error: %v", err)
	}
	return server, arch
}

func addPost(t *testing.T, arch *archive.Archive, createdAt, text string) *archive.Post {
	t.Helper()
	p, err := arch.AddPost(createdAt, "")
	if err != nil {
		t.Fatalf("AddPost error: %v", err)
	}
	if err := p.SetText(text); err != nil {
		t.Fatalf("SetText error: %v", err)
	}
	return p
}

func callTool(t *testing.T, s *Server, name string, args interface{}) *gomcp.CallToolResult {
	t.Helper()
	argsJSON, err := json.Marshal(args)
	if err != nil {
		t.Fatalf("failed to marshal args: %v", err)
	}

	req := &gomcp.CallToolRequest{
		Params: &gomcp.CallToolParamsRaw{
			Name:      name,
			Arguments: argsJSON,
		},
	}

	// Call the handler methods directly based on tool name
	ctx := context.Background()

	switch name {
	case "list_posts":
		result, err := s.handleListPosts(ctx, req)
		if err != nil {
			t.Fatalf("handler error: %v", err)
		}
		return result
	case "get_post":
		result, err := s.handleGetPost(ctx, req)
		if err != nil {
			t.Fatalf("handler error: %v", err)
		}
		return result
	case "preview_segments":
		result, err := s.handlePreviewSegments(ctx, req)
		if err != nil {
			t.Fatalf("handler error: %v", err)
		}
		return result
	default:
		t.Fatalf("unknown tool: %s", name)
		return nil
	}
}

func getTextContent(result *gomcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return ""
	}
	if tc, ok := result.Content[0].(*gomcp.TextContent); ok {
		return tc.Text
	}
	return ""
}

func TestListPostsOldestFirst(t *testing.T) {
	s, arch := makeArchiveServer(t)
	addPost(t, arch, "2023-02-01T10:00:00Z", "second post")
	addPost(t, arch, "2023-01-01T10:00:00Z", "first post")

	result := callTool(t, s, "list_posts", map[string]interface{}{})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", getTextContent(result))
	}

	text := getTextContent(result)
	if !strings.Contains(text, "first post") || !strings.Contains(text, "second post") {
		t.Errorf("expected both posts in listing, got: %s", text)
	}
	if strings.Index(text, "first post") > strings.Index(text, "second post") {
		t.Errorf("expected oldest post first, got: %s", text)
	}
}

func TestListPostsBookmarkedOnly(t *testing.T) {
	s, arch := makeArchiveServer(t)
	addPost(t, arch, "2023-01-01T10:00:00Z", "plain post")
	p := addPost(t, arch, "2023-02-01T10:00:00Z", "bookmarked post")
	if err := p.SetBookmarked(true); err != nil {
		t.Fatalf("SetBookmarked error: %v", err)
	}

	result := callTool(t, s, "list_posts", map[string]interface{}{
		"bookmarked_only": true,
	})

	text := getTextContent(result)
	if strings.Contains(text, "plain post") {
		t.Errorf("expected plain post filtered out, got: %s", text)
	}
	if !strings.Contains(text, "bookmarked post") {
		t.Errorf("expected bookmarked post in listing, got: %s", text)
	}
}

func TestListPostsEmptyArchive(t *testing.T) {
	s, _ := makeArchiveServer(t)

	result := callTool(t, s, "list_posts", map[string]interface{}{"offset": 5})
	text := getTextContent(result)
	if !strings.Contains(text, "No posts found") {
		t.Errorf("expected 'No posts found', got: %s", text)
	}
}

func TestGetPost(t *testing.T) {
	s, arch := makeArchiveServer(t)
	p := addPost(t, arch, "2023-01-01T10:00:00Z", "the full text of the post")
	if err := p.SetVisibility("unlisted"); err != nil {
		t.Fatalf("SetVisibility error: %v", err)
	}

	result := callTool(t, s, "get_post", map[string]string{"id": p.LocalID()})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", getTextContent(result))
	}

	text := getTextContent(result)
	if !strings.Contains(text, p.LocalID()) {
		t.Errorf("expected post id in response, got: %s", text)
	}
	if !strings.Contains(text, "the full text of the post") {
		t.Errorf("expected post text in response, got: %s", text)
	}
	if !strings.Contains(text, "unlisted") {
		t.Errorf("expected visibility in response, got: %s", text)
	}
}

func TestGetPostUnknownID(t *testing.T) {
	s, _ := makeArchiveServer(t)

	result := callTool(t, s, "get_post", map[string]string{"id": "20990101_000000_000Z"})
	if !result.IsError {
		t.Error("expected error for unknown post id")
	}
}

func TestGetPostRequiresID(t *testing.T) {
	s, _ := makeArchiveServer(t)

	result := callTool(t, s, "get_post", map[string]string{})
	if !result.IsError {
		t.Error("expected error when id is missing")
	}
}

func TestPreviewSegments(t *testing.T) {
	s, arch := makeArchiveServer(t)
	p := addPost(t, arch, "2023-01-01T10:00:00Z", "aaaa bbbb cccc")

	result := callTool(t, s, "preview_segments", map[string]interface{}{
		"id":    p.LocalID(),
		"limit": 9,
	})
	if result.IsError {
		t.Fatalf("expected success, got error: %s", getTextContent(result))
	}

	text := getTextContent(result)
	if !strings.Contains(text, "3 status(es)") {
		t.Errorf("expected a 3-status split, got: %s", text)
	}
	if !strings.Contains(text, "aaaa...") {
		t.Errorf("expected first segment in preview, got: %s", text)
	}
}

func TestPreviewSegmentsTinyLimit(t *testing.T) {
	s, arch := makeArchiveServer(t)
	p := addPost(t, arch, "2023-01-01T10:00:00Z", "some text to split")

	result := callTool(t, s, "preview_segments", map[string]interface{}{
		"id":    p.LocalID(),
		"limit": 4,
	})
	if !result.IsError {
		t.Error("expected error for a limit too small to split")
	}
}
