package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
)

const webfetchDescription = `Fetches content from a specified URL and returns it in the requested format.

Usage notes:
  - The URL must be a fully-formed valid URL starting with http:// or https://
  - This tool is read-only with respect to the workspace but reaches out over
    the network, so it is gated the same way a mutating tool is
  - Results may be truncated if the content is very large (>5MB limit)
  - Use format "markdown" for readable content, "text" for plain text, "html" for raw HTML`

const (
	maxResponseSize = 5 * 1024 * 1024 // 5MB
	defaultTimeout  = 30 * time.Second
	maxTimeout      = 120 * time.Second
)

var webfetchSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"url": {"type": "string", "description": "The URL to fetch content from"},
		"format": {"type": "string", "enum": ["text", "markdown", "html"], "description": "The format to return the content in"},
		"timeout": {"type": "integer", "description": "Optional timeout in seconds (max 120)"}
	},
	"required": ["url", "format"]
}`)

type webFetchInput struct {
	URL     string `json:"url"`
	Format  string `json:"format"`
	Timeout int    `json:"timeout,omitempty"`
}

// NewWebFetchTool fetches a URL and renders it as text/markdown/html.
// Network egress is an externally-visible side effect, so
// it is approval-gated like the mutating tools rather than bypassing
// approval the way view/ls/glob/grep do.
func NewWebFetchTool() *BaseTool {
	client := &http.Client{Timeout: defaultTimeout}
	return NewBaseTool("webfetch", webfetchDescription, webfetchSchema, true, func(ctx context.Context, input json.RawMessage, toolCtx *Context) (*Result, error) {
		if err := ValidateParams("webfetch", webfetchSchema, input); err != nil {
			return nil, err
		}
		var params webFetchInput
		if err := json.Unmarshal(input, &params); err != nil {
			return nil, fmt.Errorf("invalid input: %w", err)
		}

		if !strings.HasPrefix(params.URL, "http://") && !strings.HasPrefix(params.URL, "https://") {
			return nil, fmt.Errorf("url must start with http:// or https://, got %q", params.URL)
		}

		timeout := defaultTimeout
		if params.Timeout > 0 {
			timeout = time.Duration(params.Timeout) * time.Second
			if timeout > maxTimeout {
				timeout = maxTimeout
			}
		}

		reqCtx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, params.URL, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; agentrt/1.0)")
		req.Header.Set("Accept-Language", "en-US,en;q=0.9")
		switch params.Format {
		case "markdown":
			req.Header.Set("Accept", "text/markdown;q=1.0, text/x-markdown;q=0.9, text/plain;q=0.8, text/html;q=0.7, */*;q=0.1")
		case "text":
			req.Header.Set("Accept", "text/plain;q=1.0, text/markdown;q=0.9, text/html;q=0.8, */*;q=0.1")
		case "html":
			req.Header.Set("Accept", "text/html;q=1.0, application/xhtml+xml;q=0.9, text/plain;q=0.8, text/markdown;q=0.7, */*;q=0.1")
		}

		resp, err := client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, fmt.Errorf("request failed with status code: %d", resp.StatusCode)
		}
		if resp.ContentLength > maxResponseSize {
			return nil, fmt.Errorf("response too large (exceeds 5MB limit)")
		}

		limitedReader := io.LimitReader(resp.Body, maxResponseSize+1)
		body, err := io.ReadAll(limitedReader)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}
		if len(body) > maxResponseSize {
			return nil, fmt.Errorf("response too large (exceeds 5MB limit)")
		}

		content := string(body)
		contentType := resp.Header.Get("Content-Type")
		title := fmt.Sprintf("%s (%s)", params.URL, contentType)

		var output string
		switch params.Format {
		case "markdown":
			if strings.Contains(contentType, "text/html") {
				if output, err = convertHTMLToMarkdown(content); err != nil {
					return nil, fmt.Errorf("failed to convert HTML to markdown: %w", err)
				}
			} else {
				output = content
			}
		case "text":
			if strings.Contains(contentType, "text/html") {
				if output, err = extractTextFromHTML(content); err != nil {
					return nil, fmt.Errorf("failed to extract text from HTML: %w", err)
				}
			} else {
				output = content
			}
		default:
			output = content
		}

		return &Result{
			Title:  title,
			Output: output,
			Metadata: map[string]any{
				"url":          params.URL,
				"content_type": contentType,
			},
		}, nil
	})
}

// extractTextFromHTML extracts plain text from HTML, removing scripts, styles, and other non-content elements.
func extractTextFromHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", err
	}
	doc.Find("script, style, noscript, iframe, object, embed").Remove()
	return strings.TrimSpace(doc.Text()), nil
}

// convertHTMLToMarkdown converts HTML content to Markdown format.
func convertHTMLToMarkdown(html string) (string, error) {
	converter := md.NewConverter("", true, &md.Options{
		HeadingStyle:     "atx",
		HorizontalRule:   "---",
		BulletListMarker: "-",
		CodeBlockStyle:   "fenced",
		EmDelimiter:      "*",
	})
	converter.Remove("script", "style", "meta", "link")
	return converter.ConvertString(html)
}
