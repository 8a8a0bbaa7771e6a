package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/rowjay/db-table-backup/internal/app"
	"github.com/rowjay/db-table-backup/internal/config"
	"github.com/rowjay/db-table-backup/internal/db"
	"github.com/rowjay/db-table-backup/internal/logging"
	"github.com/rowjay/db-table-backup/internal/notify"
	"github.com/rowjay/db-table-backup/internal/progress"
	"github.com/rowjay/db-table-backup/internal/storage"
	"github.com/rowjay/db-table-backup/internal/version"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &rootFlags{}
	overrides := &overrideFlags{}

	rootCmd := &cobra.Command{
		Use:          "tbu",
		Short:        "Per-table database backup utility",
		SilenceUsage: true,
	}
	bindFlags(rootCmd, root, overrides)

	rootCmd.AddCommand(newBackupCmd(root, overrides))
	rootCmd.AddCommand(newTablesCmd(root, overrides))
	rootCmd.AddCommand(newListCmd(root, overrides))
	rootCmd.AddCommand(newValidateCmd(root, overrides))
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func newBackupCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "backup",
		Short: "Dump every table of the configured databases",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, root, overrides)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger, closer := logging.Configure(cfg.Global.LogLevel, cfg.Global.LogFormat, cfg.Global.LogFile)
			defer closer.Close()

			ctx, cancel := runContext(cfg)
			defer cancel()

			svc, err := buildApp(ctx, cfg, logger, cfg.Upload.Enabled)
			if err != nil {
				return err
			}
			svc.Progress = progress.New(len(cfg.Databases), cfg.Global.Progress, os.Stderr)

			report, err := svc.Backup(ctx)
			if report != nil {
				printSummary(cmd.OutOrStdout(), report, err)
			}
			return err
		},
	}
}

func newTablesCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tables <database>",
		Short: "List the tables a backup would dump",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, root, overrides)
			if err != nil {
				return err
			}
			cfg.Databases = []string{args[0]}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger, closer := logging.Configure(cfg.Global.LogLevel, cfg.Global.LogFormat, cfg.Global.LogFile)
			defer closer.Close()

			ctx, cancel := runContext(cfg)
			defer cancel()

			svc, err := buildApp(ctx, cfg, logger, false)
			if err != nil {
				return err
			}
			tables, err := svc.Tables(ctx, args[0])
			if err != nil {
				return err
			}
			for _, table := range tables {
				fmt.Fprintln(cmd.OutOrStdout(), table)
			}
			return nil
		},
	}
}

func newListCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list [run]",
		Short: "List uploaded backups, optionally for one run directory",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, root, overrides)
			if err != nil {
				return err
			}
			if err := cfg.ValidateUpload(); err != nil {
				return err
			}
			logger, closer := logging.Configure(cfg.Global.LogLevel, cfg.Global.LogFormat, cfg.Global.LogFile)
			defer closer.Close()

			ctx, cancel := runContext(cfg)
			defer cancel()

			svc, err := buildApp(ctx, cfg, logger, true)
			if err != nil {
				return err
			}
			run := ""
			if len(args) == 1 {
				run = args[0]
			}
			items, err := svc.List(ctx, run)
			if err != nil {
				return err
			}
			for _, item := range items {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%d\t%s\n", item.Key, item.Size, item.Modified.Format(time.RFC3339))
			}
			logger.Debug().Int("objects", len(items)).Msg("list completed")
			return nil
		},
	}
}

func newValidateCmd(root *rootFlags, overrides *overrideFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and collaborator binaries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, root, overrides)
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			logger, closer := logging.Configure(cfg.Global.LogLevel, cfg.Global.LogFormat, cfg.Global.LogFile)
			defer closer.Close()

			ctx, cancel := runContext(cfg)
			defer cancel()

			svc, err := buildApp(ctx, cfg, logger, cfg.Upload.Enabled)
			if err != nil {
				return err
			}
			if err := svc.Validate(ctx); err != nil {
				return err
			}
			logger.Info().Msg("validation succeeded")
			return nil
		},
	}
}

func newConfigCmd() *cobra.Command {
	var input string
	var output string
	var key string

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Config utilities",
	}

	encrypt := &cobra.Command{
		Use:   "encrypt",
		Short: "Encrypt a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			if input == "" || output == "" || key == "" {
				return fmt.Errorf("--input, --output, and --key are required")
			}
			return config.EncryptConfigFile(input, output, key)
		},
	}
	encrypt.Flags().StringVar(&input, "input", "", "Input config file")
	encrypt.Flags().StringVar(&output, "output", "", "Output encrypted config file (.enc)")
	encrypt.Flags().StringVar(&key, "key", "", "Encryption key (base64 or hex)")

	cmd.AddCommand(encrypt)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "tbu %s\n", version.String())
		},
	}
}

// runContext is cancelled by SIGINT/SIGTERM and, when configured, by the
// whole-run deadline.
func runContext(cfg *config.Config) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	if cfg.Global.OperationTimeout <= 0 {
		return ctx, stop
	}
	ctx, cancel := context.WithTimeout(ctx, cfg.Global.OperationTimeout)
	return ctx, func() {
		cancel()
		stop()
	}
}

func buildApp(ctx context.Context, cfg *config.Config, logger zerolog.Logger, withStorage bool) (*app.App, error) {
	adapter, err := db.NewAdapter(cfg.Database)
	if err != nil {
		return nil, err
	}
	var store storage.Storage
	if withStorage {
		store, err = storage.New(ctx, cfg.Upload)
		if err != nil {
			return nil, fmt.Errorf("storage backend: %w", err)
		}
	}
	return app.New(cfg, adapter, store, logger, notify.FromConfig(cfg.Notifications))
}

func printSummary(w io.Writer, report *app.Report, runErr error) {
	if errors.Is(runErr, context.Canceled) || errors.Is(runErr, context.DeadlineExceeded) {
		fmt.Fprintf(w, "Backup interrupted; partial backup in %s\n", report.RunRoot)
	} else {
		for _, line := range report.Summary() {
			fmt.Fprintln(w, line)
		}
	}
	if n := report.Failures(); n > 0 {
		fmt.Fprintf(w, "%d table(s) or upload(s) failed; see the log for details\n", n)
	}
}
