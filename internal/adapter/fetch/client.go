package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

// DefaultTimeout bounds a single HTTP transfer.
const DefaultTimeout = 5 * time.Minute

// Fetcher retrieves manifests and grid objects.
type Fetcher interface {
	// FetchManifest downloads and parses a GRIB index file.
	FetchManifest(ctx context.Context, manifestURL string) ([]ManifestEntry, error)
	// FetchRange downloads one byte range of an object into a temp file.
	FetchRange(ctx context.Context, objectURL string, r ByteRange) (*TempFile, error)
	// FetchObject downloads a whole object into a temp file.
	FetchObject(ctx context.Context, objectURL string) (*TempFile, error)
}

// Client fetches over HTTP(S), from Google Cloud Storage (gs:// URLs) and
// from local archive mirrors (file:// URLs).
type Client struct {
	httpClient *http.Client
	gcs        *storage.Client
	ownsGCS    bool
	tempDir    string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithStorageClient sets the client used for gs:// URLs. The caller keeps ownership.
func WithStorageClient(gcs *storage.Client) Option {
	return func(c *Client) { c.gcs = gcs }
}

// WithTempDir sets the directory for downloaded files (default os.TempDir()).
func WithTempDir(dir string) Option {
	return func(c *Client) { c.tempDir = dir }
}

// NewClient creates a fetch client.
func NewClient(opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases the storage client if this Client created it.
func (c *Client) Close() error {
	if c.ownsGCS && c.gcs != nil {
		return c.gcs.Close()
	}
	return nil
}

// FetchManifest implements Fetcher.
func (c *Client) FetchManifest(ctx context.Context, manifestURL string) ([]ManifestEntry, error) {
	body, err := c.open(ctx, "manifest", manifestURL, nil)
	if err != nil {
		return nil, err
	}
	defer closeBody(body)

	entries, err := ParseManifest(body)
	if err != nil {
		return nil, &DownloadError{Op: "manifest", URL: manifestURL, Err: err}
	}
	return entries, nil
}

// FetchRange implements Fetcher.
func (c *Client) FetchRange(ctx context.Context, objectURL string, r ByteRange) (*TempFile, error) {
	log.Printf("fetch: %s range %s", objectURL, r)
	return c.download(ctx, "range", objectURL, &r)
}

// FetchObject implements Fetcher.
func (c *Client) FetchObject(ctx context.Context, objectURL string) (*TempFile, error) {
	log.Printf("fetch: %s (whole object)", objectURL)
	return c.download(ctx, "object", objectURL, nil)
}

func (c *Client) download(ctx context.Context, op, objectURL string, r *ByteRange) (*TempFile, error) {
	body, err := c.open(ctx, op, objectURL, r)
	if err != nil {
		return nil, err
	}
	defer closeBody(body)

	f, err := writeTemp(c.tempDir, objectURL, body)
	if err != nil {
		return nil, &DownloadError{Op: op, URL: objectURL, Err: err}
	}
	if r != nil && r.Bounded && f.Size != r.Length() {
		releaseQuietly(f)
		return nil, &DownloadError{Op: op, URL: objectURL,
			Err: fmt.Errorf("short read: got %d bytes, expected %d", f.Size, r.Length())}
	}
	return f, nil
}

// open returns a reader for the object, or for r when r is non-nil.
func (c *Client) open(ctx context.Context, op, rawURL string, r *ByteRange) (io.ReadCloser, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &DownloadError{Op: op, URL: rawURL, Err: err}
	}

	switch strings.ToLower(u.Scheme) {
	case "http", "https":
		return c.openHTTP(ctx, op, rawURL, r)
	case "gs":
		return c.openGCS(ctx, op, u, r)
	case "file":
		return openFile(op, u, r)
	default:
		return nil, &DownloadError{Op: op, URL: rawURL, Err: fmt.Errorf("unsupported scheme %q", u.Scheme)}
	}
}

func (c *Client) openHTTP(ctx context.Context, op, rawURL string, r *ByteRange) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, http.NoBody)
	if err != nil {
		return nil, &DownloadError{Op: op, URL: rawURL, Err: err}
	}
	if r != nil {
		req.Header.Set("Range", r.Header())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &DownloadError{Op: op, URL: rawURL, Err: err}
	}

	want := http.StatusOK
	if r != nil {
		want = http.StatusPartialContent
	}
	if resp.StatusCode != want {
		defer closeBody(resp.Body)
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		if r != nil && resp.StatusCode == http.StatusOK {
			return nil, &DownloadError{Op: op, URL: rawURL,
				Err: errors.New("server ignored Range header and returned the whole object")}
		}
		return nil, &DownloadError{Op: op, URL: rawURL, StatusCode: resp.StatusCode,
			Err: fmt.Errorf("unexpected status: %s", strings.TrimSpace(string(msg)))}
	}
	return resp.Body, nil
}

func (c *Client) openGCS(ctx context.Context, op string, u *url.URL, r *ByteRange) (io.ReadCloser, error) {
	rawURL := u.String()
	bucket, object := u.Host, strings.TrimPrefix(u.Path, "/")
	if bucket == "" || object == "" {
		return nil, &DownloadError{Op: op, URL: rawURL, Err: errors.New("gs URL must name a bucket and an object")}
	}

	if c.gcs == nil {
		gcs, err := storage.NewClient(ctx)
		if err != nil {
			return nil, &DownloadError{Op: op, URL: rawURL, Err: fmt.Errorf("failed to init GCS client: %w", err)}
		}
		c.gcs = gcs
		c.ownsGCS = true
	}

	obj := c.gcs.Bucket(bucket).Object(object)
	var (
		reader *storage.Reader
		err    error
	)
	if r != nil {
		reader, err = obj.NewRangeReader(ctx, r.Start, r.Length())
	} else {
		reader, err = obj.NewReader(ctx)
	}
	if err != nil {
		status := 0
		if errors.Is(err, storage.ErrObjectNotExist) {
			status = http.StatusNotFound
		}
		return nil, &DownloadError{Op: op, URL: rawURL, StatusCode: status, Err: err}
	}
	return reader, nil
}

func openFile(op string, u *url.URL, r *ByteRange) (io.ReadCloser, error) {
	rawURL := u.String()
	//nolint:gosec // G304: Local mirror path comes from configuration.
	f, err := os.Open(filepath.FromSlash(u.Path))
	if err != nil {
		status := 0
		if errors.Is(err, os.ErrNotExist) {
			status = http.StatusNotFound
		}
		return nil, &DownloadError{Op: op, URL: rawURL, StatusCode: status, Err: err}
	}
	if r == nil {
		return f, nil
	}

	if _, err := f.Seek(r.Start, io.SeekStart); err != nil {
		closeBody(f)
		return nil, &DownloadError{Op: op, URL: rawURL, Err: err}
	}
	if !r.Bounded {
		return f, nil
	}
	return struct {
		io.Reader
		io.Closer
	}{io.LimitReader(f, r.Length()), f}, nil
}

func closeBody(body io.Closer) {
	if err := body.Close(); err != nil {
		log.Printf("fetch: failed to close response body: %v", err)
	}
}
