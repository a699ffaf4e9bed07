package cli

import (
	"errors"
	"fmt"
	"strings"

	"s3sweep/internal/export"
	"s3sweep/internal/storage"
	"s3sweep/internal/sweep"

	"github.com/spf13/cobra"
)

func (a *app) sweep(cmd *cobra.Command, opts sweepOptions) error {
	explicitBatch := cmd.Flags().Changed("batch-size")
	if opts.BatchSize < 0 || opts.BatchSize > storage.MaxDeleteBatch || (explicitBatch && opts.BatchSize == 0) {
		return fmt.Errorf("batch-size must be between 1 and %d", storage.MaxDeleteBatch)
	}

	cfg, err := a.loadConfig(cmd)
	if err != nil {
		return err
	}
	cutoff, err := cfg.CutoffTime()
	if err != nil {
		return err
	}
	if cfg.S3.Bucket == "" {
		return errors.New("no s3.bucket configured")
	}

	ctx := cmd.Context()
	logger := newLogger(a.stderr, cfg.LogLevel).With().Str("bucket", cfg.S3.Bucket).Logger()

	store, err := a.newStore(ctx, cfg)
	if err != nil {
		return err
	}

	exportDir := strings.TrimSpace(opts.ExportDir)
	if exportDir == "" {
		exportDir = cfg.ExportDir
	}
	var sink *export.CSVSink
	var exportPath string
	if exportDir != "" {
		sink, exportPath, err = export.CreateCSVSink(exportDir)
		if err != nil {
			return err
		}
	}

	collect := sweep.CollectOptions{
		Store:  store,
		Prefix: cfg.S3.Prefix,
		Cutoff: cutoff,
		Logger: logger,
	}
	if sink != nil {
		collect.Sink = sink
	}
	plan, err := sweep.Collect(ctx, collect)
	if sink != nil {
		if closeErr := sink.Close(); err == nil && closeErr != nil {
			err = fmt.Errorf("close export: %w", closeErr)
		}
	}
	if err != nil {
		return err
	}

	a.printf("plan: pages=%d scanned=%d eligible=%d download=%d delete=%d\n",
		plan.Pages, plan.Scanned, plan.Eligible, len(plan.Download), len(plan.Delete))
	if sink != nil {
		a.printf("export: rows=%d path=%s\n", sink.Rows(), exportPath)
	}
	if opts.Show {
		for _, ref := range plan.Download {
			a.printf("download %s %s\n", ref.Key, ref.VersionID)
		}
		for _, ref := range plan.Delete {
			a.printf("delete %s %s\n", ref.Key, ref.VersionID)
		}
	}

	if opts.Download {
		root := strings.TrimSpace(opts.DownloadDir)
		if root == "" {
			root = cfg.DownloadDir
		}
		if opts.DryRun {
			a.printf("download dry-run: would_download=%d root=%s\n", len(plan.Download), root)
		} else {
			result, err := sweep.Download(ctx, plan.Download, sweep.DownloadOptions{
				Store:     store,
				LocalRoot: root,
				Logger:    logger,
			})
			if err != nil {
				return err
			}
			a.printf("download complete: downloaded=%d directories=%d root=%s\n", result.Downloaded, result.Directories, root)
		}
	}

	if opts.Delete {
		batchSize := opts.BatchSize
		if batchSize == 0 {
			batchSize = cfg.Delete.BatchSize
		}
		report, err := sweep.Delete(ctx, plan.Delete, sweep.DeleteOptions{
			Store:     store,
			BatchSize: batchSize,
			DryRun:    opts.DryRun,
			Logger:    logger,
		})
		if report.DryRun {
			a.printf("delete dry-run: would_delete=%d batches=%d batch_size=%d\n", report.Requested, report.Batches, batchSize)
			return err
		}

		var partial *sweep.PartialDeleteError
		if errors.As(err, &partial) {
			for _, f := range partial.Failures {
				a.printf("delete error: key=%s version=%s code=%s message=%s\n", f.Key, f.VersionID, f.Code, f.Message)
			}
		}
		a.printf("delete complete: requested=%d batches=%d deleted=%d errors=%d\n",
			report.Requested, report.Issued, report.Deleted, len(report.Failures))
		if err != nil {
			return err
		}
	}

	return nil
}
