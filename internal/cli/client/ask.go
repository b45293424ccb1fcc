package client

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// AskRequest is the query API request body.
type AskRequest struct {
	Question       string `json:"question"`
	ConversationID string `json:"conversation_id,omitempty"`
	Stream         bool   `json:"stream,omitempty"`
}

// AskCitation is one citation in a query response.
type AskCitation struct {
	DocumentName string `json:"document_name"`
	DocumentID   string `json:"document_id"`
	ChunkIndex   int    `json:"chunk_index"`
	DocumentURL  string `json:"document_url,omitempty"`
	UploadedBy   string `json:"uploaded_by,omitempty"`
}

// AskDiagram is the optional diagram payload in a query response.
type AskDiagram struct {
	Success     bool   `json:"success"`
	Explanation string `json:"explanation,omitempty"`
	Diagram     string `json:"diagram,omitempty"`
	Error       string `json:"error,omitempty"`
}

// AskResponse is the query API response payload.
type AskResponse struct {
	Question   string        `json:"question"`
	Answer     string        `json:"answer"`
	Citations  []AskCitation `json:"citations"`
	Confidence string        `json:"confidence"`
	Diagram    *AskDiagram   `json:"diagram,omitempty"`
	Error      string        `json:"error,omitempty"`
}

// AskCmd creates the ask command.
func AskCmd() *cobra.Command {
	var (
		conversationID string
		stream         bool
	)

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a question about indexed documents",
		Long:  "Sends a question to the QA service and prints the grounded answer with its citations.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			if stream {
				return runAskStream(api, args[0], conversationID)
			}
			return runAsk(api, args[0], conversationID, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&conversationID, "conversation", "c", "", "Conversation ID for follow-up questions")
	cmd.Flags().BoolVar(&stream, "stream", false, "Stream the answer as it is delivered")

	return cmd
}

func runAsk(api *APIClient, question, conversationID string, outputJSON bool) error {
	resp, err := api.Post("/query", AskRequest{
		Question:       question,
		ConversationID: conversationID,
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	var askResp AskResponse
	if err := json.Unmarshal(resp.Data, &askResp); err != nil {
		return fmt.Errorf("failed to parse query response: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(askResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if askResp.Error != "" {
		fmt.Fprintf(os.Stderr, "Error: %s\n", askResp.Error)
		return nil
	}

	fmt.Println(askResp.Answer)
	printCitations(askResp.Citations)
	if askResp.Confidence != "" {
		fmt.Printf("\nConfidence: %s\n", askResp.Confidence)
	}
	if askResp.Diagram != nil && askResp.Diagram.Success {
		fmt.Printf("\n%s\n\n%s\n", askResp.Diagram.Explanation, askResp.Diagram.Diagram)
	}
	return nil
}

func runAskStream(api *APIClient, question, conversationID string) error {
	err := api.PostStream("/query", AskRequest{
		Question:       question,
		ConversationID: conversationID,
		Stream:         true,
	}, func(event SSEEvent) error {
		switch event.Type {
		case "chunk":
			var payload struct {
				Text string `json:"text"`
			}
			if err := json.Unmarshal(event.Data, &payload); err == nil {
				fmt.Print(payload.Text)
			}
		case "citations":
			var citations []AskCitation
			if err := json.Unmarshal(event.Data, &citations); err == nil {
				fmt.Println()
				printCitations(citations)
			}
		case "diagram":
			var diagram AskDiagram
			if err := json.Unmarshal(event.Data, &diagram); err == nil && diagram.Success {
				fmt.Printf("\n%s\n\n%s\n", diagram.Explanation, diagram.Diagram)
			}
		case "error":
			var payload struct {
				Error string `json:"error"`
			}
			if err := json.Unmarshal(event.Data, &payload); err == nil {
				return fmt.Errorf("query failed: %s", payload.Error)
			}
			return fmt.Errorf("query failed")
		case "done":
			fmt.Println()
		}
		return nil
	})
	if err != nil {
		return err
	}
	return nil
}

func printCitations(citations []AskCitation) {
	if len(citations) == 0 {
		return
	}
	fmt.Println("\nSources:")
	for i, c := range citations {
		fmt.Printf("%d. %s (chunk %d)\n", i+1, c.DocumentName, c.ChunkIndex)
		if c.DocumentURL != "" {
			fmt.Printf("   %s\n", c.DocumentURL)
		}
	}
}
