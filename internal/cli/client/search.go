package client

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// SearchRequest represents the search API request.
type SearchRequest struct {
	Query      string `json:"query"`
	CoachID    string `json:"coach_id"`
	Method     string `json:"method,omitempty"`
	MaxResults int    `json:"max_results,omitempty"`
}

// SearchHit represents a single search result.
type SearchHit struct {
	KnowledgeID   string  `json:"knowledge_id"`
	ChunkIndex    int     `json:"chunk_index"`
	Title         string  `json:"title"`
	Content       string  `json:"content"`
	CoachID       string  `json:"coach_id"`
	ExpertiseArea string  `json:"expertise_area"`
	Score         float64 `json:"score"`
}

// SearchResponse represents the search API response.
type SearchResponse struct {
	Results []SearchHit `json:"results"`
	Count   int         `json:"count"`
}

// SearchCmd creates the search command.
func SearchCmd() *cobra.Command {
	var (
		coachID string
		method  string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the knowledge base",
		Long:  "Searches knowledge chunks using semantic, keyword, or hybrid retrieval.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}
			return runSearch(api, args[0], coachID, method, limit, outputJSON)
		},
	}

	cmd.Flags().StringVarP(&coachID, "coach", "c", "", "Coach identity performing the search (required)")
	cmd.Flags().StringVarP(&method, "method", "m", "", "Search method: semantic, keyword, or hybrid")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum number of results")
	_ = cmd.MarkFlagRequired("coach")

	return cmd
}

func runSearch(api *APIClient, query, coachID, method string, limit int, outputJSON bool) error {
	req := SearchRequest{
		Query:      query,
		CoachID:    coachID,
		Method:     method,
		MaxResults: limit,
	}

	resp, err := api.Post("/search", req)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	var searchResp SearchResponse
	if err := json.Unmarshal(resp.Data, &searchResp); err != nil {
		return fmt.Errorf("failed to parse search results: %w", err)
	}

	if outputJSON {
		output, _ := json.MarshalIndent(searchResp, "", "  ")
		fmt.Println(string(output))
		return nil
	}

	if len(searchResp.Results) == 0 {
		fmt.Println("No results found.")
		return nil
	}

	fmt.Printf("Found %d results:\n\n", searchResp.Count)
	for i, result := range searchResp.Results {
		fmt.Printf("%d. %s (%.2f)\n", i+1, result.Title, result.Score)
		content := result.Content
		if len(content) > 100 {
			content = content[:97] + "..."
		}
		fmt.Printf("   %s\n", content)
		fmt.Printf("   ID: %s chunk %d [%s]\n", result.KnowledgeID, result.ChunkIndex, result.ExpertiseArea)
		if i < len(searchResp.Results)-1 {
			fmt.Println(strings.Repeat("-", 40))
		}
	}

	return nil
}
