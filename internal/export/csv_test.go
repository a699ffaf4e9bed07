package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"s3sweep/internal/storage"
)

func TestCSVSinkWritesIndexedRows(t *testing.T) {
	var buf bytes.Buffer
	sink, err := NewCSVSink(&buf)
	if err != nil {
		t.Fatalf("new sink: %v", err)
	}

	ts := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	records := []storage.ObjectVersion{
		{Key: "News/a.json", VersionID: "v2", LastModified: ts, IsLatest: true, Size: 12, ETag: `"abc"`, StorageClass: "STANDARD"},
		{Key: "News/b,c.json", VersionID: "m1", LastModified: ts, IsDeleteMarker: true},
	}
	for _, r := range records {
		if err := sink.Record(r); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	rows, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	want := [][]string{
		{"", "Key", "VersionId", "IsLatest", "IsDeleteMarker", "LastModified", "Size", "ETag", "StorageClass"},
		{"0", "News/a.json", "v2", "true", "false", "2024-01-01T12:00:00Z", "12", `"abc"`, "STANDARD"},
		{"1", "News/b,c.json", "m1", "false", "true", "2024-01-01T12:00:00Z", "0", "", ""},
	}
	if !reflect.DeepEqual(rows, want) {
		t.Fatalf("rows mismatch:\n got %v\nwant %v", rows, want)
	}
	if sink.Rows() != 2 {
		t.Fatalf("expected 2 rows, got %d", sink.Rows())
	}
}

func TestCreateCSVSinkWritesFileInDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "export")
	sink, path, err := CreateCSVSink(dir)
	if err != nil {
		t.Fatalf("create sink: %v", err)
	}
	if path != filepath.Join(dir, FileName) {
		t.Fatalf("unexpected path: %s", path)
	}
	if err := sink.Record(storage.ObjectVersion{Key: "a", VersionID: "1"}); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := sink.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	if !bytes.Contains(data, []byte("0,a,1,false,false,")) {
		t.Fatalf("unexpected export content: %q", string(data))
	}

	if _, _, err := CreateCSVSink(""); err == nil {
		t.Fatal("expected error for empty dir")
	}
}
