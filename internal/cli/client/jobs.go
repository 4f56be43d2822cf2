package client

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// Job represents an embedding job from the API.
type Job struct {
	JobID            string `json:"job_id"`
	Status           string `json:"status"`
	CurrentBatch     int    `json:"current_batch"`
	TotalEntries     int    `json:"total_entries"`
	ProcessedEntries int    `json:"processed_entries"`
	FailedEntries    int    `json:"failed_entries"`
	Completed        bool   `json:"completed"`
}

// JobsCmd creates the jobs command group.
func JobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Manage embedding backfill jobs",
	}

	cmd.AddCommand(jobsStartCmd())
	cmd.AddCommand(jobsStatusCmd())
	cmd.AddCommand(jobsProcessCmd())

	return cmd
}

func jobsStartCmd() *cobra.Command {
	var batchSize int

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start an embedding backfill over entries missing embeddings",
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Post("/jobs", map[string]int{"batch_size": batchSize})
			if err != nil {
				return fmt.Errorf("failed to start job: %w", err)
			}

			return printJob(cmd, resp.Data)
		},
	}

	cmd.Flags().IntVarP(&batchSize, "batch-size", "b", 0, "Entries per batch (0 uses the server default)")

	return cmd
}

func jobsStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <job_id>",
		Short: "Show an embedding job's progress",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Get(fmt.Sprintf("/jobs/%s", args[0]))
			if err != nil {
				return fmt.Errorf("failed to get job: %w", err)
			}

			return printJob(cmd, resp.Data)
		},
	}

	return cmd
}

func jobsProcessCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "process <job_id>",
		Short: "Advance an embedding job by one batch",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api, err := NewAPIClientWithCmd(cmd)
			if err != nil {
				return err
			}

			resp, err := api.Post(fmt.Sprintf("/jobs/%s/process", args[0]), nil)
			if err != nil {
				return fmt.Errorf("failed to process batch: %w", err)
			}

			return printJob(cmd, resp.Data)
		},
	}

	return cmd
}

func printJob(cmd *cobra.Command, data json.RawMessage) error {
	outputJSON, _ := cmd.Flags().GetBool("output")
	if outputJSON {
		output, _ := json.MarshalIndent(json.RawMessage(data), "", "  ")
		fmt.Println(string(output))
		return nil
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		return fmt.Errorf("failed to parse job: %w", err)
	}

	if job.JobID == "" {
		fmt.Println(string(data))
		return nil
	}

	fmt.Printf("Job %s [%s]\n", job.JobID, job.Status)
	fmt.Printf("  batch %d, %d/%d processed, %d failed\n",
		job.CurrentBatch, job.ProcessedEntries, job.TotalEntries, job.FailedEntries)
	if job.Completed {
		fmt.Println("  completed")
	}
	return nil
}
