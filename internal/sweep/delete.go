package sweep

import (
	"context"
	"errors"
	"fmt"

	"s3sweep/internal/storage"

	"github.com/rs/zerolog"
)

type DeleteOptions struct {
	Store     storage.VersionStore
	BatchSize int
	DryRun    bool
	Logger    zerolog.Logger
}

type DeleteReport struct {
	Requested int
	Batches   int
	Issued    int
	Deleted   int
	Failures  []storage.DeleteFailure
	Responses []storage.DeleteResult
	DryRun    bool
}

// PartialDeleteError reports keys the backend refused to delete even though
// their batch request succeeded.
type PartialDeleteError struct {
	Requested int
	Failures  []storage.DeleteFailure
}

func (e *PartialDeleteError) Error() string {
	if len(e.Failures) == 0 {
		return "delete reported no failures"
	}
	first := e.Failures[0]
	return fmt.Sprintf(
		"delete failed for %d of %d versions (first: %s@%s: %s: %s)",
		len(e.Failures), e.Requested, first.Key, first.VersionID, first.Code, first.Message,
	)
}

// Chunk splits refs into contiguous slices of at most size entries. Sizes
// outside 1..MaxDeleteBatch fall back to MaxDeleteBatch.
func Chunk(refs []storage.KeyVersion, size int) [][]storage.KeyVersion {
	if size <= 0 || size > storage.MaxDeleteBatch {
		size = storage.MaxDeleteBatch
	}
	if len(refs) == 0 {
		return nil
	}

	chunks := make([][]storage.KeyVersion, 0, (len(refs)+size-1)/size)
	for start := 0; start < len(refs); start += size {
		end := min(start+size, len(refs))
		chunks = append(chunks, refs[start:end:end])
	}
	return chunks
}

// Delete sends refs to the store in order, one batch request per chunk. A
// failed request stops the run. Per-object failures are gathered across all
// batches and returned as a *PartialDeleteError.
func Delete(ctx context.Context, refs []storage.KeyVersion, opts DeleteOptions) (DeleteReport, error) {
	if opts.Store == nil && !opts.DryRun {
		return DeleteReport{}, errors.New("version store is required")
	}

	batches := Chunk(refs, opts.BatchSize)
	report := DeleteReport{
		Requested: len(refs),
		Batches:   len(batches),
		DryRun:    opts.DryRun,
	}

	for i, batch := range batches {
		if opts.DryRun {
			opts.Logger.Info().
				Int("batch", i+1).
				Int("of", len(batches)).
				Int("size", len(batch)).
				Msg("would delete batch")
			continue
		}

		res, err := opts.Store.DeleteVersions(ctx, batch)
		if err != nil {
			return report, fmt.Errorf("delete batch %d/%d: %w", i+1, len(batches), err)
		}
		report.Issued++
		report.Deleted += len(res.Deleted)
		report.Failures = append(report.Failures, res.Errors...)
		report.Responses = append(report.Responses, res)

		event := opts.Logger.Info()
		if len(res.Errors) > 0 {
			event = opts.Logger.Warn()
		}
		event.
			Int("batch", i+1).
			Int("of", len(batches)).
			Int("size", len(batch)).
			Int("deleted", len(res.Deleted)).
			Int("errors", len(res.Errors)).
			Msg("deleted batch")
	}

	if len(report.Failures) > 0 {
		return report, &PartialDeleteError{Requested: report.Requested, Failures: report.Failures}
	}
	return report, nil
}
