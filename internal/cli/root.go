// Package cli implements the docubot command-line interface.
package cli

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"docubot/internal/chunker"
	"docubot/internal/config"
	"docubot/internal/domain"
	embazure "docubot/internal/embedding/azure"
	"docubot/internal/extract"
	llmazure "docubot/internal/llm/azure"
	"docubot/internal/logger"
	idxazure "docubot/internal/searchindex/azure"
	idxmemory "docubot/internal/searchindex/memory"
	"docubot/internal/service"
)

var version = "dev"

var (
	cfgPath string
	verbose bool

	cfg *config.AppConfig
)

var rootCmd = &cobra.Command{
	Use:   "docubot",
	Short: "Question answering over your PDF documents",
	Long: `Docubot indexes the PDF files in a docs directory into a hosted
search index and answers questions about them using retrieved
passages and a chat model.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		_ = godotenv.Load()
		logger.SetVerbose(verbose)

		var err error
		if cfgPath != "" {
			cfg, err = config.Load(cfgPath)
		} else {
			var path string
			cfg, path, err = config.LoadDefault()
			if err == nil {
				logger.Debug("using config at %s", path)
			}
		}
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// buildIndex assembles the search index named by the config.
func buildIndex() (domain.SearchIndex, error) {
	switch cfg.Search.Kind {
	case "azure", "":
		return idxazure.NewIndex(idxazure.Config{
			Endpoint:   cfg.Search.Endpoint,
			APIKey:     cfg.SearchAPIKey(),
			Index:      cfg.Search.Index,
			APIVersion: cfg.Search.APIVersion,
			Dimensions: cfg.OpenAI.Dimensions,
		})
	case "memory":
		return idxmemory.NewIndex(cfg.OpenAI.Dimensions)
	default:
		return nil, fmt.Errorf("unknown search index kind: %s", cfg.Search.Kind)
	}
}

// buildService assembles the full pipeline from the loaded config.
func buildService() (*service.Service, error) {
	index, err := buildIndex()
	if err != nil {
		return nil, err
	}

	embedder, err := embazure.NewEmbeddingService(embazure.Config{
		Endpoint:       cfg.OpenAI.Endpoint,
		APIKey:         cfg.OpenAIAPIKey(),
		Deployment:     cfg.OpenAI.EmbeddingDeployment,
		APIVersion:     cfg.OpenAI.APIVersion,
		Dimensions:     cfg.OpenAI.Dimensions,
		Timeout:        time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
		RequestsPerSec: cfg.OpenAI.RequestsPerSec,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding service init: %w", err)
	}

	completer, err := llmazure.NewCompletionService(llmazure.Config{
		Endpoint:   cfg.OpenAI.Endpoint,
		APIKey:     cfg.OpenAIAPIKey(),
		Deployment: cfg.OpenAI.ChatDeployment,
		APIVersion: cfg.OpenAI.APIVersion,
		Timeout:    time.Duration(cfg.OpenAI.TimeoutSecs) * time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("completion service init: %w", err)
	}

	ch, err := chunker.New(cfg.Chunking.Size, cfg.Chunking.Overlap)
	if err != nil {
		return nil, fmt.Errorf("chunker init: %w", err)
	}

	return service.New(extract.NewPDFExtractor(), embedder, index, completer, ch, service.Options{
		TopK:     cfg.Retrieval.TopK,
		PageSize: cfg.Search.PageSize,
	}), nil
}
