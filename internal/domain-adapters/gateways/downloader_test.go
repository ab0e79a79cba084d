package gateways

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gofrs/flock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ochairo/prefetch/internal/domain/entities"
)

// recordingProgress keeps every notification it receives
type recordingProgress struct {
	started  []int64
	percents []int
	finished []int64
	failed   []string
}

func (r *recordingProgress) Started(_ string, total int64) { r.started = append(r.started, total) }
func (r *recordingProgress) Advanced(_ string, _, _ int64, percent int) {
	r.percents = append(r.percents, percent)
}
func (r *recordingProgress) Finished(_ string, received int64) {
	r.finished = append(r.finished, received)
}
func (r *recordingProgress) Failed(name string, _ error) { r.failed = append(r.failed, name) }

func assertNoFile(t *testing.T, path string) {
	t.Helper()
	_, err := os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist), "expected %s to be absent, stat err = %v", path, err)
}

func TestDownloader_Download_Success(t *testing.T) {
	payload := strings.Repeat("x", 4096)
	var userAgent string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Length", strconv.Itoa(len(payload)))
		_, _ = fmt.Fprint(w, payload)
	}))
	defer srv.Close()

	progress := &recordingProgress{}
	d := NewDownloader(DownloaderOptions{Progress: progress}, nil)
	dest := filepath.Join(t.TempDir(), "amd64", "prod", "bin", "openjdk-17-linux-amd64.tar.gz")

	result, err := d.Download(context.Background(), srv.URL+"/v17/openjdk-17-linux-amd64.tar.gz", dest)
	require.NoError(t, err)

	assert.Equal(t, dest, result.Path)
	assert.False(t, result.Cached)
	assert.Equal(t, int64(len(payload)), result.Bytes)
	assert.Equal(t, "prefetch/1.0", userAgent)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, payload, string(data))
	assertNoFile(t, dest+".tmp")

	assert.Equal(t, []int64{int64(len(payload))}, progress.started)
	assert.Equal(t, 100, progress.percents[len(progress.percents)-1])
	assert.Equal(t, []int64{int64(len(payload))}, progress.finished)
}

func TestDownloader_Download_Idempotent(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		_, _ = fmt.Fprint(w, "artifact")
	}))
	defer srv.Close()

	d := NewDownloader(DownloaderOptions{}, nil)
	dest := filepath.Join(t.TempDir(), "redis-7-linux-amd64.tar.gz")

	first, err := d.Download(context.Background(), srv.URL+"/a", dest)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := d.Download(context.Background(), srv.URL+"/a", dest)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, dest, second.Path)

	assert.Equal(t, int32(1), hits.Load())
}

func TestDownloader_Download_ExistingFileSkipsNetwork(t *testing.T) {
	dest := filepath.Join(t.TempDir(), "postgresql-16-linux-amd64.tar.gz")
	require.NoError(t, os.WriteFile(dest, []byte("already here"), 0600))

	d := NewDownloader(DownloaderOptions{}, nil)
	// Unroutable URL: any network access would fail the test
	result, err := d.Download(context.Background(), "http://127.0.0.1:1/unreachable", dest)
	require.NoError(t, err)
	assert.True(t, result.Cached)
}

func TestDownloader_Download_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer srv.Close()

	d := NewDownloader(DownloaderOptions{}, nil)
	dest := filepath.Join(t.TempDir(), "bin", "openjdk-99-linux-amd64.tar.gz")

	_, err := d.Download(context.Background(), srv.URL+"/missing", dest)
	require.Error(t, err)

	var statusErr *entities.HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.StatusCode)

	assertNoFile(t, dest)
	assertNoFile(t, dest+".tmp")
}

func TestDownloader_Download_FollowsRedirects(t *testing.T) {
	storage := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/objects/jdk.tar.gz" {
			http.NotFound(w, r)
			return
		}
		_, _ = fmt.Fprint(w, "jdk bytes")
	}))
	defer storage.Close()

	releases := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v17/openjdk-17-linux-amd64.tar.gz":
			// relative location
			w.Header().Set("Location", "/latest/openjdk.tar.gz")
			w.WriteHeader(http.StatusFound)
		case "/latest/openjdk.tar.gz":
			w.Header().Set("Location", storage.URL+"/objects/jdk.tar.gz")
			w.WriteHeader(http.StatusMovedPermanently)
		default:
			http.NotFound(w, r)
		}
	}))
	defer releases.Close()

	d := NewDownloader(DownloaderOptions{}, nil)
	dest := filepath.Join(t.TempDir(), "openjdk-17-linux-amd64.tar.gz")

	_, err := d.Download(context.Background(), releases.URL+"/v17/openjdk-17-linux-amd64.tar.gz", dest)
	require.NoError(t, err)

	data, err := os.ReadFile(dest)
	require.NoError(t, err)
	assert.Equal(t, "jdk bytes", string(data))
}

func TestDownloader_Download_TooManyRedirects(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Redirect(w, r, r.URL.Path+"x", http.StatusFound)
	}))
	defer srv.Close()

	d := NewDownloader(DownloaderOptions{MaxRedirects: 3}, nil)
	dest := filepath.Join(t.TempDir(), "loop.tar.gz")

	_, err := d.Download(context.Background(), srv.URL+"/loop", dest)

	var redirectErr *entities.TooManyRedirectsError
	require.ErrorAs(t, err, &redirectErr)
	assert.Equal(t, 3, redirectErr.Limit)
	assert.Equal(t, int32(4), hits.Load())
	assertNoFile(t, dest)
	assertNoFile(t, dest+".tmp")
}

func TestDownloader_Download_RedirectWithoutLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusFound)
	}))
	defer srv.Close()

	d := NewDownloader(DownloaderOptions{}, nil)
	_, err := d.Download(context.Background(), srv.URL, filepath.Join(t.TempDir(), "f"))

	var statusErr *entities.HTTPStatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusFound, statusErr.StatusCode)
}

func TestDownloader_Download_NetworkErrorMidStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Length", "100000")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(strings.Repeat("y", 1000)))
		w.(http.Flusher).Flush()

		conn, _, err := w.(http.Hijacker).Hijack()
		if err != nil {
			return
		}
		_ = conn.Close()
	}))
	defer srv.Close()

	progress := &recordingProgress{}
	d := NewDownloader(DownloaderOptions{Progress: progress}, nil)
	dest := filepath.Join(t.TempDir(), "redis-7-linux-amd64.tar.gz")

	_, err := d.Download(context.Background(), srv.URL, dest)
	require.Error(t, err)

	var netErr *entities.NetworkError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, []int64{100000}, progress.started)
	assert.Equal(t, []string{"redis-7-linux-amd64.tar.gz"}, progress.failed)
	assert.Empty(t, progress.finished)

	assertNoFile(t, dest)
	assertNoFile(t, dest+".tmp")
}

func TestDownloader_Download_ConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	d := NewDownloader(DownloaderOptions{}, nil)
	dest := filepath.Join(t.TempDir(), "f.tar.gz")

	_, err := d.Download(context.Background(), url, dest)

	var netErr *entities.NetworkError
	require.ErrorAs(t, err, &netErr)
	assertNoFile(t, dest+".tmp")
}

func TestDownloader_Download_RenameFailureRemovesTemp(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, "payload")
	}))
	defer srv.Close()

	d := NewDownloader(DownloaderOptions{}, nil)
	d.rename = func(_, _ string) error { return os.ErrPermission }
	dest := filepath.Join(t.TempDir(), "openjdk-17-windows-x64.zip")

	_, err := d.Download(context.Background(), srv.URL, dest)

	var renameErr *entities.RenameError
	require.ErrorAs(t, err, &renameErr)
	assert.ErrorIs(t, err, os.ErrPermission)
	assertNoFile(t, dest)
	assertNoFile(t, dest+".tmp")
}

func TestDownloader_Download_LocksOutsideArtifactDir(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = fmt.Fprint(w, "payload")
	}))
	defer srv.Close()

	root := t.TempDir()
	lockDir := filepath.Join(root, ".locks")
	d := NewDownloader(DownloaderOptions{LockDir: lockDir}, nil)
	dest := filepath.Join(root, "amd64", "prod", "bin", "redis-7-linux-amd64.tar.gz")

	_, err := d.Download(context.Background(), srv.URL, dest)
	require.NoError(t, err)

	entries, err := os.ReadDir(filepath.Dir(dest))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "redis-7-linux-amd64.tar.gz", entries[0].Name())

	_, err = os.Stat(d.lockPath(dest))
	assert.NoError(t, err)
}

func TestDownloader_Download_LockHeldElsewhere(t *testing.T) {
	root := t.TempDir()
	d := NewDownloader(DownloaderOptions{
		LockDir:     filepath.Join(root, ".locks"),
		LockTimeout: 300 * time.Millisecond,
	}, nil)
	dest := filepath.Join(root, "amd64", "prod", "bin", "f.tar.gz")

	require.NoError(t, os.MkdirAll(filepath.Join(root, ".locks"), 0750))
	other := flock.New(d.lockPath(dest))
	locked, err := other.TryLock()
	require.NoError(t, err)
	require.True(t, locked)
	defer func() { _ = other.Unlock() }()

	_, err = d.Download(context.Background(), "http://127.0.0.1:1/never", dest)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to lock")
	assertNoFile(t, dest+".tmp")
}

func TestProgressTracker_Steps(t *testing.T) {
	tests := []struct {
		name  string
		total int64
		chunk int64
		want  []int
	}{
		{
			name:  "exact five percent chunks",
			total: 1000,
			chunk: 50,
			want:  []int{5, 10, 15, 20, 25, 30, 35, 40, 45, 50, 55, 60, 65, 70, 75, 80, 85, 90, 95, 100},
		},
		{
			name:  "small chunks accumulate",
			total: 1000,
			chunk: 20,
			want:  []int{5, 10, 15, 20, 25, 30, 35, 40, 45, 50, 55, 60, 65, 70, 75, 80, 85, 90, 95, 100},
		},
		{
			name:  "uneven chunks still end at 100",
			total: 1000,
			chunk: 70,
			want:  []int{7, 14, 21, 28, 35, 42, 49, 56, 63, 70, 77, 84, 91, 98, 100},
		},
		{
			name:  "single chunk",
			total: 10,
			chunk: 10,
			want:  []int{100},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := &recordingProgress{}
			tracker := newProgressTracker("f", tt.total, 5, rec)
			for sent := int64(0); sent < tt.total; sent += tt.chunk {
				n := tt.chunk
				if sent+n > tt.total {
					n = tt.total - sent
				}
				tracker.add(n)
			}
			tracker.complete()

			assert.Equal(t, tt.want, rec.percents)
		})
	}
}

func TestProgressTracker_UnknownTotal(t *testing.T) {
	rec := &recordingProgress{}
	tracker := newProgressTracker("f", -1, 5, rec)

	for i := 0; i < 25; i++ {
		tracker.add(1 << 20)
	}
	tracker.complete()

	assert.Equal(t, []int{-1, -1}, rec.percents)
}

func TestFormatBytes(t *testing.T) {
	tests := []struct {
		in   int64
		want string
	}{
		{0, "0 Bytes"},
		{1, "1 Bytes"},
		{1023, "1023 Bytes"},
		{1024, "1 KB"},
		{1536, "1.5 KB"},
		{1 << 20, "1 MB"},
		{1234567, "1.18 MB"},
		{5 << 29, "2.5 GB"},
		{1 << 40, "1 TB"},
		{1 << 50, "1024 TB"},
	}

	for _, tt := range tests {
		if got := FormatBytes(tt.in); got != tt.want {
			t.Errorf("FormatBytes(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
