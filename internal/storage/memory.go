package storage

import (
	"context"
	"fmt"
	"io"
	"strings"
)

// MemoryStore is an in-process VersionStore. Versions are listed in the
// order they were added, split into pages of pageSize records.
type MemoryStore struct {
	pageSize int
	versions []ObjectVersion
	bodies   map[KeyVersion][]byte
	failures map[KeyVersion]DeleteFailure
	batches  [][]KeyVersion
}

func NewMemoryStore(pageSize int) *MemoryStore {
	if pageSize <= 0 {
		pageSize = 1000
	}
	return &MemoryStore{
		pageSize: pageSize,
		bodies:   make(map[KeyVersion][]byte),
		failures: make(map[KeyVersion]DeleteFailure),
	}
}

func (m *MemoryStore) Put(v ObjectVersion, body []byte) {
	m.versions = append(m.versions, v)
	if !v.IsDeleteMarker {
		m.bodies[v.Ref()] = append([]byte(nil), body...)
	}
}

// FailDelete makes the next delete of ref report a per-object error.
func (m *MemoryStore) FailDelete(ref KeyVersion, code, message string) {
	m.failures[ref] = DeleteFailure{Key: ref.Key, VersionID: ref.VersionID, Code: code, Message: message}
}

func (m *MemoryStore) Versions() []ObjectVersion {
	return append([]ObjectVersion(nil), m.versions...)
}

func (m *MemoryStore) DeleteBatches() [][]KeyVersion {
	out := make([][]KeyVersion, len(m.batches))
	for i, b := range m.batches {
		out[i] = append([]KeyVersion(nil), b...)
	}
	return out
}

func (m *MemoryStore) ListVersions(ctx context.Context, prefix string, visit func(VersionPage) error) error {
	matched := make([]ObjectVersion, 0, len(m.versions))
	for _, v := range m.versions {
		if strings.HasPrefix(v.Key, prefix) {
			matched = append(matched, v)
		}
	}

	for start := 0; start < len(matched); start += m.pageSize {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("list object versions: %w", err)
		}
		end := min(start+m.pageSize, len(matched))

		var page VersionPage
		for _, v := range matched[start:end] {
			if v.IsDeleteMarker {
				page.DeleteMarkers = append(page.DeleteMarkers, v)
			} else {
				page.Versions = append(page.Versions, v)
			}
		}
		if err := visit(page); err != nil {
			return err
		}
	}
	return nil
}

func (m *MemoryStore) DownloadVersion(ctx context.Context, ref KeyVersion, dst io.WriterAt) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, ok := m.bodies[ref]
	if !ok {
		return fmt.Errorf("download object %s@%s: no such version", ref.Key, ref.VersionID)
	}
	if _, err := dst.WriteAt(body, 0); err != nil {
		return fmt.Errorf("download object %s@%s: %w", ref.Key, ref.VersionID, err)
	}
	return nil
}

func (m *MemoryStore) DeleteVersions(ctx context.Context, refs []KeyVersion) (DeleteResult, error) {
	if err := ctx.Err(); err != nil {
		return DeleteResult{}, err
	}
	if len(refs) > MaxDeleteBatch {
		return DeleteResult{}, fmt.Errorf("%w: got %d", ErrBatchTooLarge, len(refs))
	}
	m.batches = append(m.batches, append([]KeyVersion(nil), refs...))

	var result DeleteResult
	remove := make(map[KeyVersion]struct{}, len(refs))
	for _, ref := range refs {
		if failure, ok := m.failures[ref]; ok {
			result.Errors = append(result.Errors, failure)
			delete(m.failures, ref)
			continue
		}
		remove[ref] = struct{}{}
		result.Deleted = append(result.Deleted, ref)
	}

	kept := m.versions[:0]
	for _, v := range m.versions {
		if _, ok := remove[v.Ref()]; ok {
			delete(m.bodies, v.Ref())
			continue
		}
		kept = append(kept, v)
	}
	m.versions = kept
	return result, nil
}
