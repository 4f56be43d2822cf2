package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// ContextRequest represents the context build API request.
type ContextRequest struct {
	UserID   string `json:"user_id"`
	CoachID  string `json:"coach_id"`
	Message  string `json:"message"`
	Lite     bool   `json:"lite,omitempty"`
	SkipRAG  bool   `json:"skip_rag,omitempty"`
	TokenCap int    `json:"token_cap,omitempty"`
}

// ContextCmd creates the context command.
func ContextCmd() *cobra.Command {
	var (
		userID   string
		coachID  string
		lite     bool
		skipRAG  bool
		tokenCap int
	)

	cmd := &cobra.Command{
		Use:   "context <message>",
		Short: "Assemble a context bundle for a chat turn",
		Long:  "Builds the persona, memory, daily metrics, conversation, and knowledge context that would back one chat turn.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			req := ContextRequest{
				UserID:   userID,
				CoachID:  coachID,
				Message:  args[0],
				Lite:     lite,
				SkipRAG:  skipRAG,
				TokenCap: tokenCap,
			}

			resp, err := api.Post("/context", req)
			if err != nil {
				return fmt.Errorf("context build failed: %w", err)
			}

			var pretty json.RawMessage = resp.Data
			output, _ := json.MarshalIndent(pretty, "", "  ")
			fmt.Println(string(output))
			return nil
		},
	}

	cmd.Flags().StringVarP(&userID, "user", "u", "", "User the context is assembled for (required)")
	cmd.Flags().StringVarP(&coachID, "coach", "c", "", "Coach persona to load (required)")
	cmd.Flags().BoolVar(&lite, "lite", false, "Skip memory, conversation, and daily loaders")
	cmd.Flags().BoolVar(&skipRAG, "skip-rag", false, "Skip knowledge retrieval")
	cmd.Flags().IntVar(&tokenCap, "token-cap", 0, "Override the context token cap")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("coach")

	return cmd
}
