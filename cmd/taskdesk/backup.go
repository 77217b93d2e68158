package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"taskdesk/internal/storage/sqlite"
	"taskdesk/internal/tasks"
)

// withStore opens the configured database for a one-shot command.
func withStore(fn func(ctx context.Context, store *tasks.Store, logger *slog.Logger) error) error {
	cfg, logger, err := loadConfig()
	if err != nil {
		return err
	}
	kv, err := sqlite.Open(cfg.DBPath, logger)
	if err != nil {
		return err
	}
	defer kv.Close()

	ctx := context.Background()
	return fn(ctx, tasks.Open(ctx, kv, logger), logger)
}

func exportCmd() *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write all tasks as a JSON backup",
		Long: `Write all tasks as a JSON backup.

Without --output the backup goes to stdout. Pass "-o ." to write
tasks-backup-YYYY-MM-DD.json in the current directory.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withStore(func(_ context.Context, store *tasks.Store, logger *slog.Logger) error {
				if output == "" {
					return store.Export(cmd.OutOrStdout())
				}
				if output == "." {
					output = tasks.BackupFilename(time.Now())
				}
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("create backup: %w", err)
				}
				if err := store.Export(f); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return fmt.Errorf("close backup: %w", err)
				}
				logger.Info("backup written", slog.String("path", output), slog.Int("tasks", len(store.All())))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "backup file to write")
	return cmd
}

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import [file]",
		Short: "Replace all tasks with a JSON backup (use - for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("open backup: %w", err)
				}
				defer f.Close()
				r = f
			}
			return withStore(func(ctx context.Context, store *tasks.Store, _ *slog.Logger) error {
				n, err := store.Import(ctx, r)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "imported %d tasks\n", n)
				return nil
			})
		},
	}
}
