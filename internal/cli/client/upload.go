package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// UploadResponse is the document upload API response payload.
type UploadResponse struct {
	DocumentID string `json:"document_id"`
	Name       string `json:"name"`
	Status     string `json:"status"`
}

// UploadCmd creates the upload command.
func UploadCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "upload <file>",
		Short: "Upload a document for ingestion",
		Long:  "Uploads a PDF, DOCX, PPTX, or TXT document. Ingestion runs in the background; the document becomes searchable once indexed.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runUpload(api, args[0], outputJSON)
		},
	}

	return cmd
}

func runUpload(api *APIClient, filePath string, outputJSON bool) error {
	resp, err := api.PostFile("/documents", filePath)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}

	var uploadResp UploadResponse
	if err := json.Unmarshal(resp.Data, &uploadResp); err != nil {
		return fmt.Errorf("failed to parse upload response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(uploadResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	fmt.Printf("Accepted %s (document %s, status: %s)\n", uploadResp.Name, uploadResp.DocumentID, uploadResp.Status)
	return nil
}
