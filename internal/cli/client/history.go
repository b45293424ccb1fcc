package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// HistoryTurn is one conversation turn in the history response.
type HistoryTurn struct {
	ID         string        `json:"id"`
	Asker      string        `json:"asker"`
	Question   string        `json:"question"`
	Answer     string        `json:"answer"`
	Citations  []AskCitation `json:"citations"`
	Confidence string        `json:"confidence"`
	CreatedAt  string        `json:"created_at"`
}

// HistoryResponse is the history API response payload.
type HistoryResponse struct {
	ConversationID string        `json:"conversation_id"`
	Turns          []HistoryTurn `json:"turns"`
}

// HistoryCmd creates the history command.
func HistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <conversation-id>",
		Short: "Show a conversation's question/answer history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runHistory(api, args[0], outputJSON)
		},
	}

	return cmd
}

func runHistory(api *APIClient, conversationID string, outputJSON bool) error {
	resp, err := api.Get("/history/" + conversationID)
	if err != nil {
		return fmt.Errorf("history lookup failed: %w", err)
	}

	var historyResp HistoryResponse
	if err := json.Unmarshal(resp.Data, &historyResp); err != nil {
		return fmt.Errorf("failed to parse history: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(historyResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(historyResp.Turns) == 0 {
		fmt.Println("No turns in this conversation.")
		return nil
	}

	for i, turn := range historyResp.Turns {
		fmt.Printf("Q: %s\n", turn.Question)
		fmt.Printf("A: %s\n", turn.Answer)
		if turn.Confidence != "" {
			fmt.Printf("   (%s, %s)\n", turn.Confidence, turn.CreatedAt)
		}
		if i < len(historyResp.Turns)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}
	return nil
}
