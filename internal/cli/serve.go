package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"docubot/internal/logger"
	"docubot/internal/service"
	"docubot/internal/watcher"
	"docubot/internal/web"
)

var serveWatch bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web UI and HTTP API",
	Long: `Starts the HTTP server with the upload and ask pages. With --watch,
the docs directory is monitored and the index is rebuilt whenever its
PDF contents change.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveWatch, "watch", false, "reindex automatically when the docs directory changes")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	svc, err := buildService()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if serveWatch {
		if err := watchDocs(ctx, svc); err != nil {
			return err
		}
	}

	srv := web.NewServer(svc, cfg.Server.DocsDir, cfg.Server.Addr)
	logger.Info("serving on %s (docs: %s)", cfg.Server.Addr, cfg.Server.DocsDir)
	return srv.Start(ctx)
}

func watchDocs(ctx context.Context, svc *service.Service) error {
	w, err := watcher.New(0)
	if err != nil {
		return err
	}
	changes, err := w.Watch(ctx, cfg.Server.DocsDir)
	if err != nil {
		w.Stop()
		return err
	}
	logger.Info("watching %s for changes", cfg.Server.DocsDir)

	go func() {
		defer w.Stop()
		for range changes {
			docs, err := service.DiscoverPDFs(cfg.Server.DocsDir)
			if err != nil {
				logger.Error("watch reindex: %v", err)
				continue
			}
			n, err := svc.Reindex(ctx, docs)
			if err != nil {
				logger.Error("watch reindex: %v", err)
				continue
			}
			logger.Info("reindexed %d records after docs change", n)
		}
	}()
	return nil
}
