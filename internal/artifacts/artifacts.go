// Package artifacts bundles a run's report files into one compressed
// archive suitable for CI artifact upload. Bundles are named by run ID
// plus a content digest, so re-bundling identical reports reuses the
// same name.
package artifacts

import (
	"archive/tar"
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/klauspost/compress/zstd"
)

const bundleSuffix = ".tar.zst"

// Bundler writes report bundles into one directory.
type Bundler struct {
	dir string
}

// NewBundler creates a bundler rooted at dir.
func NewBundler(dir string) *Bundler {
	return &Bundler{dir: dir}
}

// Bundle archives the named files into <runID>-<digest>.tar.zst and
// returns the bundle path. Entries are stored flat under their base
// names in sorted order, so identical inputs produce identical bytes.
func (b *Bundler) Bundle(runID string, files []string) (string, error) {
	if len(files) == 0 {
		return "", fmt.Errorf("bundling artifacts: no files given")
	}

	sorted := make([]string, len(files))
	copy(sorted, files)
	sort.Slice(sorted, func(i, j int) bool {
		return filepath.Base(sorted[i]) < filepath.Base(sorted[j])
	})

	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return "", fmt.Errorf("creating zstd writer: %w", err)
	}
	tw := tar.NewWriter(enc)

	for _, path := range sorted {
		if err := addFile(tw, path); err != nil {
			return "", err
		}
	}
	if err := tw.Close(); err != nil {
		return "", fmt.Errorf("finalizing archive: %w", err)
	}
	if err := enc.Close(); err != nil {
		return "", fmt.Errorf("finalizing compression: %w", err)
	}

	digest := sha256.Sum256(buf.Bytes())
	name := fmt.Sprintf("%s-%s%s", runID, hex.EncodeToString(digest[:])[:12], bundleSuffix)

	if err := os.MkdirAll(b.dir, 0755); err != nil {
		return "", fmt.Errorf("creating artifact directory: %w", err)
	}
	bundlePath := filepath.Join(b.dir, name)
	if err := os.WriteFile(bundlePath, buf.Bytes(), 0644); err != nil {
		return "", fmt.Errorf("writing bundle: %w", err)
	}
	return bundlePath, nil
}

func addFile(tw *tar.Writer, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading artifact %s: %w", path, err)
	}
	hdr := &tar.Header{
		Name: filepath.Base(path),
		Mode: 0644,
		Size: int64(len(content)),
		// Fixed mtime keeps the digest stable across re-bundles.
		ModTime: time.Unix(0, 0).UTC(),
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("writing header for %s: %w", path, err)
	}
	if _, err := tw.Write(content); err != nil {
		return fmt.Errorf("writing content for %s: %w", path, err)
	}
	return nil
}

// Unbundle extracts a bundle into destDir and returns the extracted
// file paths. Entry names are flattened to their base names, so a
// hostile archive cannot write outside destDir.
func Unbundle(bundlePath, destDir string) ([]string, error) {
	f, err := os.Open(bundlePath)
	if err != nil {
		return nil, fmt.Errorf("opening bundle: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("creating zstd reader: %w", err)
	}
	defer dec.Close()

	if err := os.MkdirAll(destDir, 0755); err != nil {
		return nil, fmt.Errorf("creating destination directory: %w", err)
	}

	var extracted []string
	tr := tar.NewReader(dec)
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("reading archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name := filepath.Base(hdr.Name)
		if name == "." || name == string(filepath.Separator) || strings.Contains(name, "..") {
			continue
		}
		outPath := filepath.Join(destDir, name)
		content, err := io.ReadAll(tr)
		if err != nil {
			return nil, fmt.Errorf("reading entry %s: %w", hdr.Name, err)
		}
		if err := os.WriteFile(outPath, content, 0644); err != nil {
			return nil, fmt.Errorf("writing entry %s: %w", name, err)
		}
		extracted = append(extracted, outPath)
	}
	return extracted, nil
}
