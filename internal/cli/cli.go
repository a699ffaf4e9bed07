package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"s3sweep/internal/config"
	"s3sweep/internal/state"
	"s3sweep/internal/storage"

	"github.com/spf13/cobra"
)

type storeFactory func(ctx context.Context, cfg *config.Config) (storage.VersionStore, error)

type app struct {
	stdout   io.Writer
	stderr   io.Writer
	global   globalOptions
	newStore storeFactory
}

// Run executes the s3sweep command line with args (without the program name).
func Run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	a := &app{
		stdout:   stdout,
		stderr:   stderr,
		newStore: newS3Store,
	}
	return a.execute(ctx, args)
}

func (a *app) execute(ctx context.Context, args []string) error {
	root, err := a.rootCommand()
	if err != nil {
		return err
	}
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func (a *app) rootCommand() (*cobra.Command, error) {
	configPath, err := state.ConfigPath()
	if err != nil {
		return nil, err
	}

	root := &cobra.Command{
		Use:           "s3sweep",
		Short:         "Download and delete object versions older than a cutoff",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return usageError()
		},
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.global.ConfigPath, "config", configPath, "path to config file")
	flags.StringVar(&a.global.Bucket, "bucket", "", "bucket name (overrides s3.bucket)")
	flags.StringVar(&a.global.Prefix, "prefix", "", "key prefix to scan (overrides s3.prefix)")
	flags.StringVar(&a.global.Cutoff, "cutoff", "", "only versions modified before this date (YYYY-MM-DD or RFC3339)")
	flags.StringVar(&a.global.LogLevel, "log-level", "", "log level (trace, debug, info, warn, error, disabled)")

	root.AddCommand(a.planCommand())
	root.AddCommand(a.downloadCommand())
	root.AddCommand(a.deleteCommand())
	root.AddCommand(a.runCommand())
	return root, nil
}

func usageError() error {
	return errors.New("usage: s3sweep [--config path] plan|download|delete|run [flags]")
}

func (a *app) planCommand() *cobra.Command {
	var opts sweepOptions
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "List versions older than the cutoff and report what would be downloaded and deleted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.sweep(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.ExportDir, "export", "", "write eligible records to <dir>/s3objects.csv")
	cmd.Flags().BoolVar(&opts.Show, "show", false, "print every key and version in both sets")
	return cmd
}

func (a *app) downloadCommand() *cobra.Command {
	opts := sweepOptions{Download: true}
	cmd := &cobra.Command{
		Use:   "download",
		Short: "Download the latest version of every object older than the cutoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.sweep(cmd, opts)
		},
	}
	cmd.Flags().StringVar(&opts.DownloadDir, "to", "", "local root directory (overrides download_dir)")
	cmd.Flags().StringVar(&opts.ExportDir, "export", "", "write eligible records to <dir>/s3objects.csv")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "list what would be downloaded without fetching")
	return cmd
}

func (a *app) deleteCommand() *cobra.Command {
	opts := sweepOptions{Delete: true}
	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete every version and delete marker older than the cutoff",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.sweep(cmd, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "show delete batches without deleting")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", 0, "keys per delete request, 1-1000 (overrides delete.batch_size)")
	cmd.Flags().StringVar(&opts.ExportDir, "export", "", "write eligible records to <dir>/s3objects.csv")
	return cmd
}

func (a *app) runCommand() *cobra.Command {
	var opts sweepOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "List, then optionally download and delete, in that order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.sweep(cmd, opts)
		},
	}
	cmd.Flags().BoolVar(&opts.Download, "download", false, "download latest versions before deleting")
	cmd.Flags().BoolVar(&opts.Delete, "delete", false, "delete all eligible versions")
	cmd.Flags().StringVar(&opts.DownloadDir, "to", "", "local root directory (overrides download_dir)")
	cmd.Flags().StringVar(&opts.ExportDir, "export", "", "write eligible records to <dir>/s3objects.csv")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "report downloads and delete batches without touching anything")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", 0, "keys per delete request, 1-1000 (overrides delete.batch_size)")
	cmd.Flags().BoolVar(&opts.Show, "show", false, "print every key and version in both sets")
	return cmd
}

func (a *app) printf(format string, args ...any) {
	fmt.Fprintf(a.stdout, format, args...)
}
