package cli

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"s3sweep/internal/config"
	"s3sweep/internal/storage"
)

type testApp struct {
	*app
	out *bytes.Buffer
	cfg *config.Config
}

func newTestApp(t *testing.T, store storage.VersionStore) *testApp {
	t.Helper()
	ta := &testApp{out: new(bytes.Buffer)}
	ta.app = &app{
		stdout: ta.out,
		stderr: io.Discard,
		newStore: func(_ context.Context, cfg *config.Config) (storage.VersionStore, error) {
			ta.cfg = cfg
			return store, nil
		},
	}
	return ta
}

func (ta *testApp) run(t *testing.T, args ...string) error {
	t.Helper()
	ta.out.Reset()
	return ta.execute(context.Background(), args)
}

func writeTestConfig(t *testing.T, lines ...string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// seedBucket stores one key with an old latest version, an older version and
// a recent one, plus an old delete marker.
func seedBucket() *storage.MemoryStore {
	store := storage.NewMemoryStore(2)
	store.Put(storage.ObjectVersion{Key: "News/a.json", VersionID: "a-new", LastModified: date(2024, 7, 1), IsLatest: true}, []byte("a recent"))
	store.Put(storage.ObjectVersion{Key: "News/a.json", VersionID: "a-old", LastModified: date(2023, 1, 1)}, []byte("a old"))
	store.Put(storage.ObjectVersion{Key: "News/sub/b.json", VersionID: "b-1", LastModified: date(2024, 1, 1), IsLatest: true}, []byte("b latest"))
	store.Put(storage.ObjectVersion{Key: "News/sub/b.json", VersionID: "b-0", LastModified: date(2023, 6, 1)}, []byte("b older"))
	store.Put(storage.ObjectVersion{Key: "News/c.json", VersionID: "c-m", LastModified: date(2022, 1, 1), IsLatest: true, IsDeleteMarker: true}, nil)
	store.Put(storage.ObjectVersion{Key: "Other/d.json", VersionID: "d-1", LastModified: date(2020, 1, 1), IsLatest: true}, []byte("d"))
	return store
}
