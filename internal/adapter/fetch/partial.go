package fetch

import (
	"context"
	"fmt"
)

// FetchVariable downloads only the GRIB message holding variable. The
// message is located through the manifest published next to the object.
func FetchVariable(ctx context.Context, f Fetcher, objectURL, manifestURL, variable string) (*TempFile, error) {
	entries, err := f.FetchManifest(ctx, manifestURL)
	if err != nil {
		return nil, err
	}
	r, err := FindRange(entries, variable)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", manifestURL, err)
	}
	return f.FetchRange(ctx, objectURL, r)
}
