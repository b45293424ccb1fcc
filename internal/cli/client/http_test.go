package client

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *APIClient {
	return &APIClient{
		baseURL:    baseURL,
		token:      "test-token",
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

func TestParseResponse_Success(t *testing.T) {
	resp, err := parseResponse(http.StatusOK, []byte(`{"success":true,"data":{"answer":"yes"}}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"answer":"yes"}`, string(resp.Data))
}

func TestParseResponse_APIError(t *testing.T) {
	_, err := parseResponse(http.StatusNotFound, []byte(`{"success":false,"error":"document not found"}`))
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, "document not found", apiErr.Message)
}

func TestParseResponse_NonJSONError(t *testing.T) {
	_, err := parseResponse(http.StatusBadGateway, []byte("upstream down"))
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "upstream down", apiErr.Message)
}

func TestPost_SendsBearerToken(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		fmt.Fprint(w, `{"success":true,"data":{}}`)
	}))
	defer server.Close()

	api := newTestClient(server.URL)
	_, err := api.Post("/query", map[string]string{"question": "hi"})
	require.NoError(t, err)
	assert.Equal(t, "Bearer test-token", gotAuth)
}

func TestPostFile_MultipartUpload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "syllabus.txt")
	require.NoError(t, os.WriteFile(path, []byte("course outline"), 0o644))

	var gotFilename, gotContent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()

		gotFilename = header.Filename
		buf := make([]byte, header.Size)
		n, _ := file.Read(buf)
		gotContent = string(buf[:n])

		w.WriteHeader(http.StatusAccepted)
		fmt.Fprint(w, `{"success":true,"data":{"document_id":"doc-1","name":"syllabus.txt","status":"pending"}}`)
	}))
	defer server.Close()

	api := newTestClient(server.URL)
	resp, err := api.PostFile("/documents", path)
	require.NoError(t, err)

	assert.Equal(t, "syllabus.txt", gotFilename)
	assert.Equal(t, "course outline", gotContent)

	var uploadResp UploadResponse
	require.NoError(t, json.Unmarshal(resp.Data, &uploadResp))
	assert.Equal(t, "doc-1", uploadResp.DocumentID)
}

func TestPostStream_DeliversEvents(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: sources\ndata: []\n\n")
		fmt.Fprint(w, "event: chunk\ndata: {\"text\":\"Hello \"}\n\n")
		fmt.Fprint(w, "event: chunk\ndata: {\"text\":\"world \"}\n\n")
		fmt.Fprint(w, "event: done\ndata: {\"confidence\":\"high\"}\n\n")
	}))
	defer server.Close()

	api := newTestClient(server.URL)

	var types []string
	var text string
	err := api.PostStream("/query", map[string]any{"question": "hi", "stream": true}, func(event SSEEvent) error {
		types = append(types, event.Type)
		if event.Type == "chunk" {
			var payload struct {
				Text string `json:"text"`
			}
			require.NoError(t, json.Unmarshal(event.Data, &payload))
			text += payload.Text
		}
		return nil
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"sources", "chunk", "chunk", "done"}, types)
	assert.Equal(t, "Hello world ", text)
}

func TestPostStream_HandlerErrorStopsStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		fmt.Fprint(w, "event: error\ndata: {\"error\":\"query failed\"}\n\n")
		fmt.Fprint(w, "event: done\ndata: {}\n\n")
	}))
	defer server.Close()

	api := newTestClient(server.URL)

	var seen []string
	err := api.PostStream("/query", map[string]any{"question": "hi"}, func(event SSEEvent) error {
		seen = append(seen, event.Type)
		if event.Type == "error" {
			return fmt.Errorf("stream aborted")
		}
		return nil
	})
	require.Error(t, err)
	assert.Equal(t, []string{"error"}, seen)
}

func TestPostStream_HTTPErrorBeforeStream(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		fmt.Fprint(w, `{"success":false,"error":"invalid identity token"}`)
	}))
	defer server.Close()

	api := newTestClient(server.URL)

	err := api.PostStream("/query", map[string]any{"question": "hi"}, func(event SSEEvent) error {
		t.Fatal("handler should not be called")
		return nil
	})
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}
