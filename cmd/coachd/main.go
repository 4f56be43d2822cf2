package main

import (
	"fmt"
	"os"

	"github.com/fitstack/coachd/internal/cli"
	"github.com/fitstack/coachd/internal/cli/admin"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "coachd",
		Short: "Coachd daemon",
		Long:  "Coachd daemon for running the coaching-context API server and its background workers",
	}

	cli.AddHelpJSONFlag(rootCmd)
	rootCmd.AddCommand(admin.ServeCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
