package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"s3sweep/internal/storage"
)

const FileName = "s3objects.csv"

var header = []string{"", "Key", "VersionId", "IsLatest", "IsDeleteMarker", "LastModified", "Size", "ETag", "StorageClass"}

// CSVSink writes one row per recorded version, prefixed by a running index.
type CSVSink struct {
	w      *csv.Writer
	closer io.Closer
	rows   int
}

func NewCSVSink(w io.Writer) (*CSVSink, error) {
	s := &CSVSink{w: csv.NewWriter(w)}
	if c, ok := w.(io.Closer); ok {
		s.closer = c
	}
	if err := s.w.Write(header); err != nil {
		return nil, fmt.Errorf("write csv header: %w", err)
	}
	return s, nil
}

// CreateCSVSink creates dir if needed and opens dir/s3objects.csv.
func CreateCSVSink(dir string) (*CSVSink, string, error) {
	if dir == "" {
		return nil, "", errors.New("export directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("create export dir: %w", err)
	}
	path := filepath.Join(dir, FileName)
	f, err := os.Create(path)
	if err != nil {
		return nil, "", fmt.Errorf("create export file: %w", err)
	}
	sink, err := NewCSVSink(f)
	if err != nil {
		_ = f.Close()
		return nil, "", err
	}
	return sink, path, nil
}

func (s *CSVSink) Record(v storage.ObjectVersion) error {
	row := []string{
		strconv.Itoa(s.rows),
		v.Key,
		v.VersionID,
		strconv.FormatBool(v.IsLatest),
		strconv.FormatBool(v.IsDeleteMarker),
		v.LastModified.UTC().Format(time.RFC3339),
		strconv.FormatInt(v.Size, 10),
		v.ETag,
		v.StorageClass,
	}
	if err := s.w.Write(row); err != nil {
		return err
	}
	s.rows++
	return nil
}

func (s *CSVSink) Rows() int {
	return s.rows
}

func (s *CSVSink) Close() error {
	s.w.Flush()
	err := s.w.Error()
	if s.closer != nil {
		if closeErr := s.closer.Close(); err == nil {
			err = closeErr
		}
	}
	return err
}
