// Package archive expands a BATCH_ARCHIVE upload (spec §4.B.4) into the
// individual files it contains, using the standard library's archive/zip:
// no third-party archive library in the pack offers anything zip doesn't
// already cover for this single format.
package archive

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"path"
	"strings"
)

// ExpandedFile is one member extracted from a batch archive, ready for
// re-submission to the classifier.
type ExpandedFile struct {
	Name    string
	Content []byte
}

// DefaultMaxUncompressedBytes bounds the total size an archive may expand
// to, guarding against zip-bomb style uploads.
const DefaultMaxUncompressedBytes = 512 * 1024 * 1024

// Expand reads content as a zip archive and returns its regular file
// members. Entries are rejected if their name escapes the archive root
// (path traversal) or if decompressing them would exceed maxUncompressedBytes.
// Directory entries, hidden files (leading '.') and macOS metadata
// (__MACOSX/) are skipped silently.
func Expand(content []byte, maxUncompressedBytes int64) ([]ExpandedFile, error) {
	if maxUncompressedBytes <= 0 {
		maxUncompressedBytes = DefaultMaxUncompressedBytes
	}

	r, err := zip.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return nil, fmt.Errorf("archive: opening zip: %w", err)
	}

	var out []ExpandedFile
	var total int64

	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := f.Name
		if strings.Contains(name, "__MACOSX/") {
			continue
		}
		base := path.Base(name)
		if strings.HasPrefix(base, ".") {
			continue
		}
		if !safeName(name) {
			return nil, fmt.Errorf("archive: unsafe entry name %q", name)
		}

		total += int64(f.UncompressedSize64)
		if total > maxUncompressedBytes {
			return nil, fmt.Errorf("archive: expanded size exceeds %d bytes", maxUncompressedBytes)
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("archive: opening %q: %w", name, err)
		}
		data, err := io.ReadAll(io.LimitReader(rc, maxUncompressedBytes+1))
		closeErr := rc.Close()
		if err != nil {
			return nil, fmt.Errorf("archive: reading %q: %w", name, err)
		}
		if closeErr != nil {
			return nil, fmt.Errorf("archive: closing %q: %w", name, closeErr)
		}
		if int64(len(data)) > maxUncompressedBytes {
			return nil, fmt.Errorf("archive: expanded size exceeds %d bytes", maxUncompressedBytes)
		}

		out = append(out, ExpandedFile{Name: name, Content: data})
	}
	return out, nil
}

// safeName rejects absolute paths and any component that escapes the
// archive root via "..".
func safeName(name string) bool {
	if name == "" || path.IsAbs(name) {
		return false
	}
	cleaned := path.Clean(name)
	if cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return false
	}
	for _, part := range strings.Split(cleaned, "/") {
		if part == ".." {
			return false
		}
	}
	return true
}
