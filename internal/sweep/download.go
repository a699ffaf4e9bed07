package sweep

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"s3sweep/internal/storage"

	"github.com/rs/zerolog"
)

type DownloadOptions struct {
	Store     storage.VersionStore
	LocalRoot string
	Logger    zerolog.Logger
}

type DownloadResult struct {
	Downloaded  int
	Directories int
}

// Download fetches each ref to LocalRoot/<key>, one at a time. The first
// failure ends the run.
func Download(ctx context.Context, refs []storage.KeyVersion, opts DownloadOptions) (DownloadResult, error) {
	if opts.Store == nil {
		return DownloadResult{}, errors.New("version store is required")
	}
	if strings.TrimSpace(opts.LocalRoot) == "" {
		return DownloadResult{}, errors.New("local root is required")
	}

	var result DownloadResult
	for i, ref := range refs {
		target, err := LocalPath(opts.LocalRoot, ref.Key)
		if err != nil {
			return result, fmt.Errorf("download %s: %w", ref.Key, err)
		}

		if strings.HasSuffix(ref.Key, "/") {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return result, fmt.Errorf("create directory %s: %w", target, err)
			}
			result.Directories++
			continue
		}

		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return result, fmt.Errorf("create directory %s: %w", filepath.Dir(target), err)
		}
		if err := downloadTo(ctx, opts.Store, ref, target); err != nil {
			return result, fmt.Errorf("download %s: %w", ref.Key, err)
		}
		result.Downloaded++

		opts.Logger.Debug().
			Int("n", i+1).
			Int("of", len(refs)).
			Str("key", ref.Key).
			Str("version", ref.VersionID).
			Str("path", target).
			Msg("downloaded version")
	}

	opts.Logger.Info().
		Int("downloaded", result.Downloaded).
		Int("directories", result.Directories).
		Str("root", opts.LocalRoot).
		Msg("download complete")
	return result, nil
}

func downloadTo(ctx context.Context, store storage.VersionStore, ref storage.KeyVersion, target string) error {
	tmp, err := os.CreateTemp(filepath.Dir(target), "."+filepath.Base(target)+".*.part")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpPath)
		}
	}()

	if err := store.DownloadVersion(ctx, ref, tmp); err != nil {
		return err
	}
	if err := tmp.Chmod(0o644); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmpPath, target); err != nil {
		return err
	}
	committed = true
	return nil
}

// LocalPath maps an object key onto root, keeping its path segments as
// directories. Keys that would land outside root are rejected.
func LocalPath(root, key string) (string, error) {
	cleanRoot := filepath.Clean(root)
	rel := filepath.Clean(filepath.FromSlash(strings.TrimLeft(key, "/")))
	if rel == "." || rel == "" {
		return "", errors.New("invalid object key")
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) || filepath.IsAbs(rel) {
		return "", errors.New("object key escapes local root")
	}

	target := filepath.Join(cleanRoot, rel)
	relToRoot, err := filepath.Rel(cleanRoot, target)
	if err != nil {
		return "", err
	}
	if relToRoot == ".." || strings.HasPrefix(relToRoot, ".."+string(filepath.Separator)) {
		return "", errors.New("object key escapes local root")
	}
	return target, nil
}
