package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joseph-ayodele/expense-scanner/constants"
)

// File is one receipt found on disk.
type File struct {
	Path        string
	Ext         string
	ContentType string
	Size        int64
	HashHex     string
	// DuplicateOf names an earlier file with identical bytes.
	DuplicateOf string
	Err         string
}

// DirStats summarizes a directory walk.
type DirStats struct {
	Scanned      uint32
	Matched      uint32
	Succeeded    uint32
	Deduplicated uint32
	Failed       uint32
}

// Options narrows a walk. Empty Exts means constants.AllowedExtensions.
type Options struct {
	Exts       []string
	SkipHidden bool
}

// Walk lists receipt files under root in lexical order, hashing each so
// byte-identical copies are reported once.
func Walk(ctx context.Context, root string, opts Options) ([]File, DirStats, error) {
	if strings.TrimSpace(root) == "" {
		return nil, DirStats{}, errors.New("root path is required")
	}
	exts := extSet(opts.Exts)

	var (
		results []File
		stats   DirStats
		seen    = map[string]string{}
	)
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Scanned++
		if walkErr != nil {
			results = append(results, File{Path: path, Err: walkErr.Error()})
			stats.Failed++
			return nil
		}
		if opts.SkipHidden && path != root && IsHidden(path) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}
		ext := constants.NormalizeExt(filepath.Ext(path))
		if _, ok := exts[ext]; !ok {
			return nil
		}
		stats.Matched++

		f, err := describe(path, ext)
		if err != nil {
			results = append(results, File{Path: path, Ext: ext, Err: err.Error()})
			stats.Failed++
			return nil
		}
		if first, dup := seen[f.HashHex]; dup {
			f.DuplicateOf = first
			stats.Deduplicated++
		} else {
			seen[f.HashHex] = path
		}
		results = append(results, f)
		stats.Succeeded++
		return nil
	})
	if err != nil {
		return results, stats, fmt.Errorf("walk: %w", err)
	}
	return results, stats, nil
}

// Allowed reports whether path has one of the accepted receipt extensions.
func Allowed(path string, exts map[string]struct{}) bool {
	if exts == nil {
		exts = constants.AllowedExtensions
	}
	_, ok := exts[constants.NormalizeExt(filepath.Ext(path))]
	return ok
}

// IsHidden checks if a file or directory is hidden (starts with '.').
func IsHidden(path string) bool {
	return strings.HasPrefix(filepath.Base(path), ".")
}

func describe(path, ext string) (File, error) {
	fh, err := os.Open(path)
	if err != nil {
		return File{}, err
	}
	defer func() { _ = fh.Close() }()

	h := sha256.New()
	n, err := io.Copy(h, fh)
	if err != nil {
		return File{}, fmt.Errorf("hash: %w", err)
	}
	return File{
		Path:        path,
		Ext:         ext,
		ContentType: constants.ContentTypeForExt(ext),
		Size:        n,
		HashHex:     hex.EncodeToString(h.Sum(nil)),
	}, nil
}

func extSet(in []string) map[string]struct{} {
	if len(in) == 0 {
		return constants.AllowedExtensions
	}
	out := make(map[string]struct{}, len(in))
	for _, e := range in {
		if e = constants.NormalizeExt(strings.TrimSpace(e)); e != "" {
			out[e] = struct{}{}
		}
	}
	return out
}
