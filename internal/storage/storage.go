package storage

import (
	"context"
	"errors"
	"io"
	"time"
)

// MaxDeleteBatch is the most keys a single DeleteObjects request may carry.
const MaxDeleteBatch = 1000

var ErrBatchTooLarge = errors.New("delete batch exceeds 1000 keys")

// ObjectVersion is one stored version or delete marker as listed by the backend.
type ObjectVersion struct {
	Key            string
	VersionID      string
	LastModified   time.Time
	IsLatest       bool
	IsDeleteMarker bool
	Size           int64
	ETag           string
	StorageClass   string
}

func (v ObjectVersion) Ref() KeyVersion {
	return KeyVersion{Key: v.Key, VersionID: v.VersionID}
}

type KeyVersion struct {
	Key       string
	VersionID string
}

// VersionPage is a single page of a version listing. Versions and delete
// markers keep the order the backend returned them in.
type VersionPage struct {
	Versions      []ObjectVersion
	DeleteMarkers []ObjectVersion
}

type DeleteFailure struct {
	Key       string
	VersionID string
	Code      string
	Message   string
}

type DeleteResult struct {
	Deleted []KeyVersion
	Errors  []DeleteFailure
}

type VersionStore interface {
	ListVersions(ctx context.Context, prefix string, visit func(VersionPage) error) error
	DownloadVersion(ctx context.Context, ref KeyVersion, dst io.WriterAt) error
	DeleteVersions(ctx context.Context, refs []KeyVersion) (DeleteResult, error)
}
