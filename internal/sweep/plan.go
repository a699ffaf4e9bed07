// Package sweep selects object versions older than a cutoff, downloads the
// latest ones and deletes them all in batches.
package sweep

import (
	"context"
	"errors"
	"fmt"
	"time"

	"s3sweep/internal/storage"

	"github.com/rs/zerolog"
)

// RecordSink receives every eligible record seen while collecting.
type RecordSink interface {
	Record(v storage.ObjectVersion) error
}

type RecordSinkFunc func(v storage.ObjectVersion) error

func (f RecordSinkFunc) Record(v storage.ObjectVersion) error {
	return f(v)
}

// Plan holds the work produced by one listing. Every entry of Download also
// appears in Delete.
type Plan struct {
	Download []storage.KeyVersion
	Delete   []storage.KeyVersion
	Pages    int
	Scanned  int
	Eligible int
}

type CollectOptions struct {
	Store  storage.VersionStore
	Prefix string
	Cutoff time.Time
	Sink   RecordSink
	Logger zerolog.Logger
}

func Eligible(v storage.ObjectVersion, cutoff time.Time) bool {
	return v.LastModified.UTC().Before(cutoff.UTC())
}

// Classify adds the eligible records of page to plan, versions before
// delete markers.
func Classify(page storage.VersionPage, cutoff time.Time, plan *Plan, sink RecordSink) error {
	if plan == nil {
		return errors.New("plan is required")
	}
	plan.Pages++

	for _, v := range page.Versions {
		plan.Scanned++
		if !Eligible(v, cutoff) {
			continue
		}
		if err := record(sink, v); err != nil {
			return err
		}
		plan.Eligible++
		if v.IsLatest {
			plan.Download = append(plan.Download, v.Ref())
		}
		plan.Delete = append(plan.Delete, v.Ref())
	}

	for _, m := range page.DeleteMarkers {
		plan.Scanned++
		if !Eligible(m, cutoff) {
			continue
		}
		if err := record(sink, m); err != nil {
			return err
		}
		plan.Eligible++
		plan.Delete = append(plan.Delete, m.Ref())
	}
	return nil
}

func record(sink RecordSink, v storage.ObjectVersion) error {
	if sink == nil {
		return nil
	}
	if err := sink.Record(v); err != nil {
		return fmt.Errorf("export record %s@%s: %w", v.Key, v.VersionID, err)
	}
	return nil
}

// Collect lists every version under opts.Prefix and classifies it against
// opts.Cutoff. Listing stops at the first error.
func Collect(ctx context.Context, opts CollectOptions) (Plan, error) {
	if opts.Store == nil {
		return Plan{}, errors.New("version store is required")
	}
	if opts.Cutoff.IsZero() {
		return Plan{}, errors.New("cutoff is required")
	}

	var plan Plan
	err := opts.Store.ListVersions(ctx, opts.Prefix, func(page storage.VersionPage) error {
		if err := Classify(page, opts.Cutoff, &plan, opts.Sink); err != nil {
			return err
		}
		opts.Logger.Debug().
			Int("page", plan.Pages).
			Int("versions", len(page.Versions)).
			Int("delete_markers", len(page.DeleteMarkers)).
			Int("eligible_total", plan.Eligible).
			Msg("listed page")
		return nil
	})
	if err != nil {
		return Plan{}, fmt.Errorf("collect versions: %w", err)
	}

	opts.Logger.Info().
		Str("prefix", opts.Prefix).
		Time("cutoff", opts.Cutoff).
		Int("pages", plan.Pages).
		Int("scanned", plan.Scanned).
		Int("download", len(plan.Download)).
		Int("delete", len(plan.Delete)).
		Msg("collected versions")
	return plan, nil
}
