package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/agentichat/agentichat/errors"
)

const webFetchMaxChars = 10000

var (
	htmlTagPattern   = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// WebFetchTool retrieves a web page and returns its tag-stripped text.
type WebFetchTool struct {
	client *http.Client
}

func NewWebFetchTool() *WebFetchTool {
	return &WebFetchTool{client: &http.Client{}}
}

func (t *WebFetchTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "web_fetch",
		Description: "Fetches a web page's content from a URL. Returns the page's text with HTML tags stripped and whitespace collapsed.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"url":     map[string]interface{}{"type": "string", "description": "Full URL to fetch (must start with http:// or https://)"},
				"timeout": map[string]interface{}{"type": "integer", "description": "Timeout in seconds (default: 10)", "default": 10},
			},
			"required": []string{"url"},
		},
		Required: []string{"url"},
		Confirm:  ConfirmNever,
	}
}

func (t *WebFetchTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	rawURL, _ := args["url"].(string)
	timeoutSecs, hasTimeout := intArg(args, "timeout")
	if !hasTimeout || timeoutSecs <= 0 {
		timeoutSecs = 10
	}

	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return &Result{Success: false, Error: "URL must start with http:// or https://", ErrorKind: errors.KindCommandFailed}, nil
	}

	reqCtx, cancel := context.WithTimeout(ctx, time.Duration(timeoutSecs)*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindCommandFailed}, nil
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("connection error: %v", err), ErrorKind: errors.KindCommandFailed}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &Result{
			Success:   false,
			Error:     fmt.Sprintf("HTTP error %d", resp.StatusCode),
			ErrorKind: errors.KindCommandFailed,
			Payload:   map[string]interface{}{"status_code": resp.StatusCode},
		}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindCommandFailed}, nil
	}
	content := string(body)

	textContent := htmlTagPattern.ReplaceAllString(content, " ")
	textContent = strings.TrimSpace(whitespacePattern.ReplaceAllString(textContent, " "))
	truncated := false
	if len(textContent) > webFetchMaxChars {
		textContent = textContent[:webFetchMaxChars] + "... [content truncated]"
		truncated = true
	}

	return &Result{Success: true, Truncated: truncated, Payload: map[string]interface{}{
		"url":            rawURL,
		"status_code":    resp.StatusCode,
		"content":        textContent,
		"content_length": len(content),
		"content_type":   resp.Header.Get("Content-Type"),
	}}, nil
}

// WebSearchTool searches the web via the DuckDuckGo instant-answer API.
type WebSearchTool struct {
	client *http.Client
}

func NewWebSearchTool() *WebSearchTool {
	return &WebSearchTool{client: &http.Client{}}
}

func (t *WebSearchTool) Descriptor() Descriptor {
	return Descriptor{
		Name:        "web_search",
		Description: "Searches the web and returns results. Uses DuckDuckGo as the search engine.",
		Parameters: map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query":       map[string]interface{}{"type": "string", "description": "Search query"},
				"max_results": map[string]interface{}{"type": "integer", "description": "Maximum number of results to return (default: 5)", "default": 5},
			},
			"required": []string{"query"},
		},
		Required: []string{"query"},
		Confirm:  ConfirmNever,
	}
}

type searchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	URL     string `json:"url"`
}

type ddgResponse struct {
	AbstractText  string `json:"AbstractText"`
	Heading       string `json:"Heading"`
	AbstractURL   string `json:"AbstractURL"`
	RelatedTopics []struct {
		Text     string `json:"Text"`
		FirstURL string `json:"FirstURL"`
	} `json:"RelatedTopics"`
}

func (t *WebSearchTool) Execute(ctx context.Context, args map[string]interface{}) (*Result, error) {
	query, _ := args["query"].(string)
	maxResults, hasMax := intArg(args, "max_results")
	if !hasMax || maxResults <= 0 {
		maxResults = 5
	}

	reqCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("skip_disambig", "1")

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, "https://api.duckduckgo.com/?"+params.Encode(), nil)
	if err != nil {
		return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindCommandFailed}, nil
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("connection error: %v", err), ErrorKind: errors.KindCommandFailed}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &Result{Success: false, Error: fmt.Sprintf("HTTP error %d", resp.StatusCode), ErrorKind: errors.KindCommandFailed}, nil
	}

	var parsed ddgResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return &Result{Success: false, Error: err.Error(), ErrorKind: errors.KindCommandFailed}, nil
	}

	var results []searchResult
	if parsed.AbstractText != "" {
		heading := parsed.Heading
		if heading == "" {
			heading = "Main result"
		}
		results = append(results, searchResult{Title: heading, Snippet: parsed.AbstractText, URL: parsed.AbstractURL})
	}
	for _, topic := range parsed.RelatedTopics {
		if topic.Text == "" {
			continue
		}
		title := topic.Text
		if len(title) > 100 {
			title = title[:100]
		}
		results = append(results, searchResult{Title: title, Snippet: topic.Text, URL: topic.FirstURL})
		if len(results) >= maxResults {
			break
		}
	}
	if len(results) > maxResults {
		results = results[:maxResults]
	}

	payload := map[string]interface{}{"query": query, "results": results, "count": len(results)}
	if len(results) == 0 {
		payload["message"] = "No results found"
	}
	return &Result{Success: true, Payload: payload}, nil
}
