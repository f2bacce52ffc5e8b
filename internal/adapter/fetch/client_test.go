package fetch

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.ngs.io/pm25-assess/internal/domain"
)

// objectServer serves a fixed object with Range support and a manifest next to it.
func objectServer(t *testing.T, object []byte, manifest string) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/data/file.grib2", func(w http.ResponseWriter, r *http.Request) {
		http.ServeContent(w, r, "file.grib2", time.Time{}, bytes.NewReader(object))
	})
	mux.HandleFunc("/data/file.grib2.idx", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(manifest))
	})
	mux.HandleFunc("/norange/file.grib2", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write(object)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func readTemp(t *testing.T, f *TempFile) []byte {
	t.Helper()
	b, err := os.ReadFile(f.Path)
	if err != nil {
		t.Fatalf("read temp file: %v", err)
	}
	return b
}

func TestClient_FetchVariableBounded(t *testing.T) {
	object := []byte("AAAABBBBBBCCC")
	manifest := "1:0:d=1:REFC:x:1 hour fcst:\n2:4:d=1:MASSDEN:x:1 hour fcst:\n3:10:d=1:TMP:x:1 hour fcst:\n"
	srv := objectServer(t, object, manifest)
	c := NewClient(WithTempDir(t.TempDir()))

	url := srv.URL + "/data/file.grib2"
	f, err := FetchVariable(context.Background(), c, url, url+".idx", "MASSDEN")
	if err != nil {
		t.Fatalf("FetchVariable: %v", err)
	}
	defer func() { _ = f.Release() }()

	if got := string(readTemp(t, f)); got != "BBBBBB" {
		t.Errorf("expected slice BBBBBB, got %q", got)
	}
	if !strings.HasSuffix(f.Path, ".grib2") {
		t.Errorf("expected .grib2 suffix on temp file, got %s", f.Path)
	}
}

func TestClient_FetchVariableUnbounded(t *testing.T) {
	object := []byte("AAAABBBBBBCCC")
	manifest := "1:0:d=1:REFC:x:1 hour fcst:\n2:10:d=1:MASSDEN:x:1 hour fcst:\n"
	srv := objectServer(t, object, manifest)
	c := NewClient(WithTempDir(t.TempDir()))

	url := srv.URL + "/data/file.grib2"
	f, err := FetchVariable(context.Background(), c, url, url+".idx", "MASSDEN")
	if err != nil {
		t.Fatalf("FetchVariable: %v", err)
	}
	defer func() { _ = f.Release() }()

	if got := string(readTemp(t, f)); got != "CCC" {
		t.Errorf("expected tail CCC, got %q", got)
	}
}

func TestClient_FetchVariableMissingEntry(t *testing.T) {
	srv := objectServer(t, []byte("AAAA"), "1:0:d=1:REFC:x:1 hour fcst:\n")
	c := NewClient(WithTempDir(t.TempDir()))

	url := srv.URL + "/data/file.grib2"
	_, err := FetchVariable(context.Background(), c, url, url+".idx", "MASSDEN")
	if !errors.Is(err, domain.ErrDownloadFailure) {
		t.Fatalf("expected ErrDownloadFailure, got %v", err)
	}
}

func TestClient_FetchObject(t *testing.T) {
	object := []byte("whole object contents")
	srv := objectServer(t, object, "")
	c := NewClient(WithTempDir(t.TempDir()))

	f, err := c.FetchObject(context.Background(), srv.URL+"/data/file.grib2")
	if err != nil {
		t.Fatalf("FetchObject: %v", err)
	}
	if !bytes.Equal(readTemp(t, f), object) {
		t.Errorf("object contents differ")
	}
	if f.Size != int64(len(object)) {
		t.Errorf("expected size %d, got %d", len(object), f.Size)
	}

	path := f.Path
	if err := f.Release(); err != nil {
		t.Fatalf("Release: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Errorf("expected temp file to be removed, stat err = %v", err)
	}
	if err := f.Release(); err != nil {
		t.Errorf("second Release should be a no-op, got %v", err)
	}
}

func TestClient_RangeIgnoredByServer(t *testing.T) {
	srv := objectServer(t, []byte("AAAABBBB"), "")
	c := NewClient(WithTempDir(t.TempDir()))

	_, err := c.FetchRange(context.Background(), srv.URL+"/norange/file.grib2", ByteRange{Start: 4, End: 8, Bounded: true})
	if !errors.Is(err, domain.ErrDownloadFailure) {
		t.Fatalf("expected ErrDownloadFailure, got %v", err)
	}
}

func TestClient_NotFound(t *testing.T) {
	srv := objectServer(t, nil, "")
	c := NewClient(WithTempDir(t.TempDir()))

	_, err := c.FetchObject(context.Background(), srv.URL+"/missing.grib2")
	if !errors.Is(err, domain.ErrDownloadFailure) {
		t.Fatalf("expected ErrDownloadFailure, got %v", err)
	}
	var dlErr *DownloadError
	if !errors.As(err, &dlErr) {
		t.Fatalf("expected *DownloadError, got %T", err)
	}
	if dlErr.StatusCode != http.StatusNotFound || !dlErr.Permanent() {
		t.Errorf("expected permanent 404, got status %d", dlErr.StatusCode)
	}
}

func TestClient_UnsupportedScheme(t *testing.T) {
	c := NewClient()
	_, err := c.FetchObject(context.Background(), "ftp://example.com/file.grib2")
	if !errors.Is(err, domain.ErrDownloadFailure) {
		t.Fatalf("expected ErrDownloadFailure, got %v", err)
	}
}

func TestClient_GCSURLWithoutObject(t *testing.T) {
	c := NewClient()
	_, err := c.FetchObject(context.Background(), "gs://bucket-only")
	if !errors.Is(err, domain.ErrDownloadFailure) {
		t.Fatalf("expected ErrDownloadFailure, got %v", err)
	}
}

func TestWithRetry_RecoversFromServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := WithRetry(NewClient(WithTempDir(t.TempDir())), RetryConfig{MaxRetries: 5, InitialInterval: time.Millisecond, MaxInterval: 5 * time.Millisecond})
	tmp, err := f.FetchObject(context.Background(), srv.URL+"/x.grib2")
	if err != nil {
		t.Fatalf("FetchObject: %v", err)
	}
	defer func() { _ = tmp.Release() }()
	if calls.Load() != 3 {
		t.Errorf("expected 3 attempts, got %d", calls.Load())
	}
}

func TestWithRetry_DoesNotRetryPermanentErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := WithRetry(NewClient(WithTempDir(t.TempDir())), RetryConfig{MaxRetries: 5, InitialInterval: time.Millisecond})
	_, err := f.FetchObject(context.Background(), srv.URL+"/x.grib2")
	if !errors.Is(err, domain.ErrDownloadFailure) {
		t.Fatalf("expected ErrDownloadFailure, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("expected a single attempt, got %d", calls.Load())
	}
}

func TestClient_FileScheme(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/mirror/file.grib2"
	if err := os.MkdirAll(dir+"/mirror", 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("AAAABBBBBBCCC"), 0o644); err != nil {
		t.Fatal(err)
	}
	c := NewClient(WithTempDir(t.TempDir()))
	url := "file://" + path

	f, err := c.FetchRange(context.Background(), url, ByteRange{Start: 4, End: 10, Bounded: true})
	if err != nil {
		t.Fatalf("FetchRange: %v", err)
	}
	if got := string(readTemp(t, f)); got != "BBBBBB" {
		t.Errorf("expected BBBBBB, got %q", got)
	}
	_ = f.Release()

	f, err = c.FetchRange(context.Background(), url, ByteRange{Start: 10})
	if err != nil {
		t.Fatalf("FetchRange unbounded: %v", err)
	}
	if got := string(readTemp(t, f)); got != "CCC" {
		t.Errorf("expected CCC, got %q", got)
	}
	_ = f.Release()

	_, err = c.FetchObject(context.Background(), "file://"+dir+"/mirror/missing.grib2")
	var dlErr *DownloadError
	if !errors.As(err, &dlErr) || dlErr.StatusCode != http.StatusNotFound {
		t.Errorf("expected a 404 DownloadError, got %v", err)
	}
}
