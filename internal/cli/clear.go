package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every record from the search index",
	Args:  cobra.NoArgs,
	RunE:  runClear,
}

func init() {
	rootCmd.AddCommand(clearCmd)
}

func runClear(cmd *cobra.Command, _ []string) error {
	svc, err := buildService()
	if err != nil {
		return err
	}
	if err := svc.Clear(context.Background()); err != nil {
		return fmt.Errorf("clear failed: %w", err)
	}
	cmd.Println("Index cleared.")
	return nil
}
