package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/goliatone/go-publishing/internal/di"
	"github.com/goliatone/go-publishing/internal/logging"
	"github.com/goliatone/go-publishing/internal/runtimeconfig"
)

var (
	version = "dev"
	commit  = "none"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// NewRootCommand builds the publishing-api command tree. Configuration is
// read from PUBLISHING_* environment variables.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "publishing-api",
		Short:         "Content lifecycle service for publishing applications",
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newMigrateCommand())
	root.AddCommand(newPublishCommand())
	root.AddCommand(newUnpublishCommand())
	root.AddCommand(newDiscardDraftCommand())
	root.AddCommand(newRedraftCommand())
	return root
}

var loadConfig = runtimeconfig.Load

func buildContainer(ctx context.Context, opts ...di.Option) (*di.Container, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return di.NewContainer(ctx, cfg, opts...)
}

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			container, err := buildContainer(ctx)
			if err != nil {
				return err
			}
			defer container.Close()

			if err := container.Migrate(ctx); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "schema up to date")
			return nil
		},
	}
}

func newServeCommand() *cobra.Command {
	var (
		addr    string
		migrate bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the HTTP API and drain downstream jobs",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			container, err := buildContainer(ctx)
			if err != nil {
				return err
			}
			defer container.Close()

			if migrate {
				if err := container.Migrate(ctx); err != nil {
					return fmt.Errorf("migrate: %w", err)
				}
			}
			container.RegisterCommands()

			if addr == "" {
				addr = container.Config.HTTP.Addr
			}
			server := &http.Server{
				Addr:              addr,
				Handler:           container.API().Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}
			logger := logging.ModuleLogger(container.LoggerProvider(), "publishing.server")

			workerDone := make(chan error, 1)
			go func() {
				workerDone <- container.Worker().Run(ctx, container.Config.Downstream.PollInterval)
			}()

			serveErr := make(chan error, 1)
			go func() {
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serveErr <- err
				}
				close(serveErr)
			}()
			logger.Info("server.listening", "addr", addr)

			select {
			case <-ctx.Done():
			case err := <-serveErr:
				if err != nil {
					stop()
					<-workerDone
					return err
				}
			}

			shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()
			logger.Info("server.shutdown")
			if err := server.Shutdown(shutdownCtx); err != nil {
				return fmt.Errorf("shutdown: %w", err)
			}
			if err := <-workerDone; err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (defaults to PUBLISHING_HTTP_ADDR)")
	cmd.Flags().BoolVar(&migrate, "migrate", true, "create the schema before serving")
	return cmd
}
