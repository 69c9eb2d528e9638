package tool

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebFetchTool_RejectsNonHTTPURL(t *testing.T) {
	tool := NewWebFetchTool()
	assert.True(t, tool.RequiresApproval())

	input := json.RawMessage(`{"url": "ftp://example.com", "format": "text"}`)
	_, err := tool.Execute(context.Background(), input, testContext())
	assert.Error(t, err)
}

func TestWebFetchTool_FetchesPlainText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("hello from server"))
	}))
	defer srv.Close()

	tool := NewWebFetchTool()
	input := json.RawMessage(`{"url": "` + srv.URL + `", "format": "text"}`)
	result, err := tool.Execute(context.Background(), input, testContext())
	require.NoError(t, err)
	assert.Contains(t, result.Output, "hello from server")
}

func TestWebFetchTool_ConvertsHTMLToMarkdown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<h1>Title</h1><p>body text</p>"))
	}))
	defer srv.Close()

	tool := NewWebFetchTool()
	input := json.RawMessage(`{"url": "` + srv.URL + `", "format": "markdown"}`)
	result, err := tool.Execute(context.Background(), input, testContext())
	require.NoError(t, err)
	assert.Contains(t, result.Output, "Title")
	assert.Contains(t, result.Output, "body text")
}

func TestWebFetchTool_NonOKStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	tool := NewWebFetchTool()
	input := json.RawMessage(`{"url": "` + srv.URL + `", "format": "text"}`)
	_, err := tool.Execute(context.Background(), input, testContext())
	assert.Error(t, err)
}
