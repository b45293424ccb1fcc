package client

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/spf13/cobra"
)

// DocumentItem is one document in the listing response.
type DocumentItem struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	URL        string `json:"url,omitempty"`
	Uploader   string `json:"uploader"`
	Status     string `json:"status"`
	ChunkCount int    `json:"chunk_count"`
	CreatedAt  string `json:"created_at"`
}

// DocumentListResponse is the document listing API response payload.
type DocumentListResponse struct {
	Items   []DocumentItem `json:"items"`
	Cursor  string         `json:"cursor,omitempty"`
	HasMore bool           `json:"has_more"`
}

// DocsCmd creates the docs command.
func DocsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "docs",
		Short: "List uploaded documents",
		Long:  "Lists uploaded documents with their ingestion status and chunk counts.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			cursor, _ := cmd.Flags().GetString("cursor")
			limit, _ := cmd.Flags().GetInt("limit")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runDocs(api, outputJSON, cursor, limit)
		},
	}

	cmd.Flags().String("cursor", "", "Pagination cursor from a previous listing")
	cmd.Flags().Int("limit", 20, "Maximum number of documents to return")

	return cmd
}

func runDocs(api *APIClient, outputJSON bool, cursor string, limit int) error {
	params := url.Values{}
	if cursor != "" {
		params.Set("cursor", cursor)
	}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	path := "/documents"
	if len(params) > 0 {
		path += "?" + params.Encode()
	}

	resp, err := api.Get(path)
	if err != nil {
		return fmt.Errorf("listing failed: %w", err)
	}

	var listResp DocumentListResponse
	if err := json.Unmarshal(resp.Data, &listResp); err != nil {
		return fmt.Errorf("failed to parse document list: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(listResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(listResp.Items) == 0 {
		fmt.Println("No documents uploaded.")
		return nil
	}

	for _, doc := range listResp.Items {
		fmt.Printf("%s  %-10s %3d chunks  %s (by %s)\n", doc.ID, doc.Status, doc.ChunkCount, doc.Name, doc.Uploader)
	}
	if listResp.HasMore {
		fmt.Printf("\nMore documents available. Continue with: docqa docs --cursor %s\n", listResp.Cursor)
	}
	return nil
}
