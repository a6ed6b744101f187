package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lumenlabs/handoff/internal/cli/admin"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "handoffd",
		Short: "Handoff daemon and CLI",
		Long:  "Handoff daemon for running the API server and managing organization namespaces",
	}

	rootCmd.AddCommand(admin.ServeCmd())
	rootCmd.AddCommand(admin.OrgCmd())
	rootCmd.AddCommand(admin.IngestCmd())

	if len(os.Args) == 1 {
		os.Args = append(os.Args, "serve")
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
