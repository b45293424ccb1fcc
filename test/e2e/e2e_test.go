//go:build e2e

package e2e

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type uploadData struct {
	DocumentID string `json:"document_id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
}

type documentItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	URL        string `json:"url"`
	Uploader   string `json:"uploader"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
}

type documentList struct {
	Items   []documentItem `json:"items"`
	Cursor  string         `json:"cursor"`
	HasMore bool           `json:"has_more"`
}

func TestE2E_DocumentUploadFlow(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	content := []byte("Add/drop deadline: September 12.\nLate withdrawal requires dean approval.\n")

	resp, status, err := env.PostFile("/documents", "calendar.txt", content, facultyToken)
	require.NoError(t, err)
	require.Equal(t, 202, status)

	var upload uploadData
	require.NoError(t, json.Unmarshal(resp.Data, &upload))
	assert.NotEmpty(t, upload.DocumentID)
	assert.Equal(t, "calendar.txt", upload.Name)
	assert.Equal(t, "pending", upload.Status)

	// Listing shows the document with a working download URL.
	listResp, err := env.Get("/documents", studentToken)
	require.NoError(t, err)

	var list documentList
	require.NoError(t, json.Unmarshal(listResp.Data, &list))
	require.Len(t, list.Items, 1)
	assert.Equal(t, upload.DocumentID, list.Items[0].ID)
	assert.Equal(t, "prof.smith", list.Items[0].Uploader)
	assert.Equal(t, "pending", list.Items[0].Status)
	assert.False(t, list.HasMore)

	downloaded, err := env.DownloadFile(list.Items[0].URL)
	require.NoError(t, err)
	assert.Equal(t, SHA256Sum(content), SHA256Sum(downloaded))

	// An ingest job was queued for the worker.
	var jobCount int
	require.NoError(t, env.Pool.QueryRow(env.Ctx,
		"SELECT COUNT(*) FROM ingest_jobs WHERE document_id = $1 AND status = 'pending'",
		upload.DocumentID).Scan(&jobCount))
	assert.Equal(t, 1, jobCount)
}

func TestE2E_UploadAuthorization(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	content := []byte("content")

	_, status, err := env.PostFile("/documents", "notes.txt", content, studentToken)
	require.NoError(t, err)
	assert.Equal(t, 403, status)

	_, status, err = env.PostFile("/documents", "notes.txt", content, "")
	require.NoError(t, err)
	assert.Equal(t, 401, status)

	_, status, err = env.PostFile("/documents", "data.csv", content, facultyToken)
	require.NoError(t, err)
	assert.Equal(t, 415, status)
}

func TestE2E_QueryAndHistory(t *testing.T) {
	env := SetupE2EEnv(t)
	defer env.Cleanup()

	convID := "e2e-conversation-1"

	resp, err := env.Post("/query", map[string]string{
		"question":        "When is the add/drop deadline?",
		"conversation_id": convID,
	}, studentToken)
	require.NoError(t, err)

	var answer struct {
		Answer     string `json:"answer"`
		Confidence string `json:"confidence"`
		Citations  []struct {
			DocumentID string `json:"document_id"`
		} `json:"citations"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &answer))
	assert.Equal(t, "The add/drop deadline is September 12.", answer.Answer)
	assert.Equal(t, "high", answer.Confidence)
	require.Len(t, answer.Citations, 1)

	// The turn is readable back through the history endpoint.
	histResp, err := env.Get("/history/"+convID, studentToken)
	require.NoError(t, err)

	var history struct {
		ConversationID string `json:"conversation_id"`
		Turns          []struct {
			Asker    string `json:"asker"`
			Question string `json:"question"`
			Answer   string `json:"answer"`
		} `json:"turns"`
	}
	require.NoError(t, json.Unmarshal(histResp.Data, &history))
	assert.Equal(t, convID, history.ConversationID)
	require.Len(t, history.Turns, 1)
	assert.Equal(t, "student-1", history.Turns[0].Asker)
	assert.Equal(t, "When is the add/drop deadline?", history.Turns[0].Question)
	assert.Equal(t, "The add/drop deadline is September 12.", history.Turns[0].Answer)

	// A different user cannot read the conversation even with its id.
	otherResp, err := env.Get("/history/"+convID, facultyToken)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(otherResp.Data, &history))
	assert.Empty(t, history.Turns)
}

func TestE2E_CLIWorkflow(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping CLI workflow in short mode")
	}

	env := SetupE2EEnv(t)
	defer env.Cleanup()
	env.BuildBinaries()

	workDir := t.TempDir()
	docPath := filepath.Join(workDir, "handbook.txt")
	require.NoError(t, os.WriteFile(docPath, []byte("Office hours: Tuesdays 2-4pm.\n"), 0o644))

	out, err := env.RunDocqa(workDir, "upload", docPath)
	require.NoError(t, err, "upload output: %s", out)
	assert.Contains(t, out, "handbook.txt")
	assert.Contains(t, out, "pending")

	out, err = env.RunDocqa(workDir, "docs")
	require.NoError(t, err, "docs output: %s", out)
	assert.Contains(t, out, "handbook.txt")

	out, err = env.RunDocqa(workDir, "ask", "When are office hours?")
	require.NoError(t, err, "ask output: %s", out)
	assert.Contains(t, out, "The add/drop deadline is September 12.")

	out, err = env.RunDocqa(workDir, "ask", "--stream", "When are office hours?")
	require.NoError(t, err, "streamed ask output: %s", out)
	assert.True(t, strings.Contains(out, "September 12"), "streamed output: %s", out)
}
