package fetch

import (
	"fmt"

	"go.ngs.io/pm25-assess/internal/domain"
)

// DownloadError describes a failed transfer. It matches domain.ErrDownloadFailure.
type DownloadError struct {
	Op         string // "manifest", "range" or "object".
	URL        string
	StatusCode int // HTTP status when the server answered, else 0.
	Err        error
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download failure during %s of %s: HTTP %d: %v", e.Op, e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("download failure during %s of %s: %v", e.Op, e.URL, e.Err)
}

func (e *DownloadError) Unwrap() error {
	return e.Err
}

// Is makes every DownloadError match domain.ErrDownloadFailure.
func (e *DownloadError) Is(target error) bool {
	return target == domain.ErrDownloadFailure
}

// Permanent reports whether retrying cannot help: the server rejected the
// request itself (4xx other than 408 and 429).
func (e *DownloadError) Permanent() bool {
	if e.StatusCode < 400 || e.StatusCode >= 500 {
		return false
	}
	return e.StatusCode != 408 && e.StatusCode != 429
}
