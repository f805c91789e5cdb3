package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"docubot/internal/service"
)

var ingestDir string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Rebuild the index from the docs directory",
	Long: `Clears the search index, then extracts, chunks, embeds and uploads
every PDF found in the docs directory.`,
	Args: cobra.NoArgs,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestDir, "dir", "", "directory to ingest (default: configured docs dir)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, _ []string) error {
	svc, err := buildService()
	if err != nil {
		return err
	}

	dir := ingestDir
	if dir == "" {
		dir = cfg.Server.DocsDir
	}
	docs, err := service.DiscoverPDFs(dir)
	if err != nil {
		return fmt.Errorf("discover documents: %w", err)
	}
	if len(docs) == 0 {
		cmd.Printf("No PDF files found in %s.\n", dir)
	}

	n, err := svc.Reindex(context.Background(), docs)
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}
	cmd.Printf("Indexed %d records from %d document(s).\n", n, len(docs))
	return nil
}
