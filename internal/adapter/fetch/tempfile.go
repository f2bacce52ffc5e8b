package fetch

import (
	"fmt"
	"io"
	"log"
	"os"
	"path"
	"strings"
)

// TempFile is a downloaded object on local disk. It is owned by the caller
// that received it and must be released once decoded.
type TempFile struct {
	Path string
	Size int64
}

// Release removes the file. It is safe to call more than once and on nil.
func (f *TempFile) Release() error {
	if f == nil || f.Path == "" {
		return nil
	}
	p := f.Path
	f.Path = ""
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove temp file %s: %w", p, err)
	}
	return nil
}

// releaseQuietly releases f and logs instead of returning an error, for use in defers.
func releaseQuietly(f *TempFile) {
	if err := f.Release(); err != nil {
		log.Printf("fetch: %v", err)
	}
}

// writeTemp copies body into a new temporary file under dir. The file is
// removed again if the copy fails.
func writeTemp(dir, objectURL string, body io.Reader) (*TempFile, error) {
	tmp, err := os.CreateTemp(dir, "grid-*"+extension(objectURL))
	if err != nil {
		return nil, fmt.Errorf("failed to create temp file: %w", err)
	}
	f := &TempFile{Path: tmp.Name()}

	n, copyErr := io.Copy(tmp, body)
	closeErr := tmp.Close()
	if copyErr != nil {
		releaseQuietly(f)
		return nil, copyErr
	}
	if closeErr != nil {
		releaseQuietly(f)
		return nil, fmt.Errorf("failed to close temp file: %w", closeErr)
	}
	f.Size = n
	return f, nil
}

func extension(objectURL string) string {
	ext := path.Ext(objectURL)
	if i := strings.IndexAny(ext, "?#"); i >= 0 {
		ext = ext[:i]
	}
	if len(ext) > 8 {
		return ""
	}
	return ext
}
