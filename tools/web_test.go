package tools

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestWebFetchStripsTagsAndCollapsesWhitespace(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html><body><p>hello   world</p></body></html>"))
	}))
	defer srv.Close()

	tool := NewWebFetchTool()
	res, err := tool.Execute(context.Background(), map[string]interface{}{"url": srv.URL})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if !res.Success {
		t.Fatalf("expected success, got: %s", res.Error)
	}
	payload := res.Payload.(map[string]interface{})
	content := payload["content"].(string)
	if strings.Contains(content, "<") {
		t.Errorf("content still contains HTML tags: %q", content)
	}
	if !strings.Contains(content, "hello world") {
		t.Errorf("content = %q, want collapsed whitespace around %q", content, "hello world")
	}
}

func TestWebFetchRejectsNonHTTPURL(t *testing.T) {
	tool := NewWebFetchTool()
	res, err := tool.Execute(context.Background(), map[string]interface{}{"url": "ftp://example.com/file"})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure for non-http(s) URL")
	}
}

func TestWebFetchPropagatesHTTPStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	tool := NewWebFetchTool()
	res, err := tool.Execute(context.Background(), map[string]interface{}{"url": srv.URL})
	if err != nil {
		t.Fatalf("Execute returned error: %v", err)
	}
	if res.Success {
		t.Fatal("expected failure on HTTP 404")
	}
	payload := res.Payload.(map[string]interface{})
	if payload["status_code"] != 404 {
		t.Errorf("status_code = %v, want 404", payload["status_code"])
	}
}

func TestWebSearchRequiresNetwork(t *testing.T) {
	t.Skip("hits the real DuckDuckGo API; exercised manually, not in CI")
}
