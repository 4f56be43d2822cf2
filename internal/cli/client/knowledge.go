package client

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

// KnowledgeEntry represents a knowledge entry from the API.
type KnowledgeEntry struct {
	ID            string   `json:"id"`
	CoachID       string   `json:"coach_id"`
	Title         string   `json:"title"`
	Content       string   `json:"content"`
	ExpertiseArea string   `json:"expertise_area"`
	Priority      string   `json:"priority"`
	Tags          []string `json:"tags,omitempty"`
	SourceURL     string   `json:"source_url,omitempty"`
	CreatedAt     string   `json:"created_at"`
	UpdatedAt     string   `json:"updated_at"`
}

// KnowledgeList represents a paginated listing from the API.
type KnowledgeList struct {
	Items   []KnowledgeEntry `json:"items"`
	Cursor  string           `json:"cursor,omitempty"`
	HasMore bool             `json:"has_more"`
}

// AddCmd creates the add command.
func AddCmd() *cobra.Command {
	var (
		coachID   string
		title     string
		area      string
		priority  string
		tags      []string
		sourceURL string
		file      string
	)

	cmd := &cobra.Command{
		Use:   "add [content]",
		Short: "Add or update a knowledge entry",
		Long:  "Adds a knowledge entry from the argument or a file. Re-adding with the same ID replaces the entry.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			content := ""
			if len(args) == 1 {
				content = args[0]
			}
			if file != "" {
				raw, err := os.ReadFile(file)
				if err != nil {
					return fmt.Errorf("failed to read %s: %w", file, err)
				}
				content = strings.TrimSpace(string(raw))
			}
			if content == "" {
				return fmt.Errorf("content is required (argument or --file)")
			}

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Post("/knowledge", map[string]interface{}{
				"coach_id":       coachID,
				"title":          title,
				"content":        content,
				"expertise_area": area,
				"priority":       priority,
				"tags":           tags,
				"source_url":     sourceURL,
			})
			if err != nil {
				return fmt.Errorf("failed to add knowledge: %w", err)
			}

			var entry KnowledgeEntry
			if err := json.Unmarshal(resp.Data, &entry); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if outputJSON {
				output, _ := json.MarshalIndent(entry, "", "  ")
				fmt.Println(string(output))
			} else {
				fmt.Printf("Added %s (%s)\n", entry.Title, entry.ID)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&coachID, "coach", "c", "", "Coach partition the entry belongs to (required)")
	cmd.Flags().StringVarP(&title, "title", "t", "", "Entry title (required)")
	cmd.Flags().StringVarP(&area, "area", "a", "", "Expertise area (nutrition, training, ...)")
	cmd.Flags().StringVarP(&priority, "priority", "p", "", "Priority: low, medium, or high")
	cmd.Flags().StringSliceVar(&tags, "tag", nil, "Tag (repeatable)")
	cmd.Flags().StringVar(&sourceURL, "source-url", "", "Source URL")
	cmd.Flags().StringVarP(&file, "file", "f", "", "Read content from file")
	_ = cmd.MarkFlagRequired("coach")
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

// GetCmd creates the get command.
func GetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "get <entry_id>",
		Short:   "Get a knowledge entry by ID",
		Aliases: []string{"view"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get(fmt.Sprintf("/knowledge/%s", args[0]))
			if err != nil {
				return fmt.Errorf("failed to get knowledge: %w", err)
			}

			var entry KnowledgeEntry
			if err := json.Unmarshal(resp.Data, &entry); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if outputJSON {
				output, _ := json.MarshalIndent(entry, "", "  ")
				fmt.Println(string(output))
			} else {
				fmt.Printf("Title: %s\n", entry.Title)
				fmt.Printf("Coach: %s\n", entry.CoachID)
				fmt.Printf("Area: %s\n", entry.ExpertiseArea)
				fmt.Printf("Priority: %s\n", entry.Priority)
				if len(entry.Tags) > 0 {
					fmt.Printf("Tags: %s\n", strings.Join(entry.Tags, ", "))
				}
				fmt.Printf("Updated: %s\n", entry.UpdatedAt)
				fmt.Println()
				fmt.Println("--- Content ---")
				fmt.Println(entry.Content)
			}
			return nil
		},
	}

	return cmd
}

// ListCmd creates the list command.
func ListCmd() *cobra.Command {
	var (
		coachID string
		cursor  string
		limit   int
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List knowledge entries for a coach",
		RunE: func(cmd *cobra.Command, args []string) error {
			outputJSON, _ := cmd.Flags().GetBool("output")

			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			path := fmt.Sprintf("/knowledge?coach_id=%s&limit=%d", coachID, limit)
			if cursor != "" {
				path += "&cursor=" + cursor
			}

			resp, err := api.Get(path)
			if err != nil {
				return fmt.Errorf("failed to list knowledge: %w", err)
			}

			var list KnowledgeList
			if err := json.Unmarshal(resp.Data, &list); err != nil {
				return fmt.Errorf("failed to parse response: %w", err)
			}

			if outputJSON {
				output, _ := json.MarshalIndent(list, "", "  ")
				fmt.Println(string(output))
				return nil
			}

			if len(list.Items) == 0 {
				fmt.Println("No entries found.")
				return nil
			}
			for _, entry := range list.Items {
				fmt.Printf("%s  %-12s %s\n", entry.ID, entry.ExpertiseArea, entry.Title)
			}
			if list.HasMore && list.Cursor != "" {
				fmt.Printf("\nMore entries available. Use --cursor %s\n", list.Cursor)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&coachID, "coach", "c", "", "Coach partition to list (required)")
	cmd.Flags().StringVar(&cursor, "cursor", "", "Pagination cursor from previous response")
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of entries")
	_ = cmd.MarkFlagRequired("coach")

	return cmd
}

// DeleteCmd creates the delete command.
func DeleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "delete <entry_id>",
		Short:   "Delete a knowledge entry",
		Aliases: []string{"rm"},
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			if _, err := api.Delete(fmt.Sprintf("/knowledge/%s", args[0])); err != nil {
				return fmt.Errorf("failed to delete knowledge: %w", err)
			}

			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	}

	return cmd
}
