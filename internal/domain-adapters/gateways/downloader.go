package gateways

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"

	"github.com/ochairo/prefetch/internal/domain/entities"
	"github.com/ochairo/prefetch/internal/domain/interfaces"
	"github.com/ochairo/prefetch/internal/domain/interfaces/gateways"
)

const (
	defaultMaxRedirects = 5
	defaultStepPercent  = 5
	defaultUserAgent    = "prefetch/1.0"
	defaultLockTimeout  = 10 * time.Minute
	lockRetryDelay      = 250 * time.Millisecond

	// tempSuffix is appended to the destination while the body is streamed
	tempSuffix = ".tmp"
)

// DownloaderOptions configures the downloader
type DownloaderOptions struct {
	// Timeout for a whole request including the body. Zero means no timeout.
	Timeout time.Duration

	// MaxRedirects bounds how many redirects are followed.
	// Default: 5
	MaxRedirects int

	// UserAgent sent with every request.
	// Default: prefetch/1.0
	UserAgent string

	// StepPercent is the progress advance that triggers a notification.
	// Default: 5
	StepPercent int

	// LockDir holds advisory lock files. Empty disables locking.
	LockDir string

	// LockTimeout bounds how long to wait for another process holding the lock.
	// Default: 10m
	LockTimeout time.Duration

	// Progress receives notifications. Nil discards them.
	Progress gateways.ProgressObserver
}

// Downloader fetches artifacts into the local cache. It never retries and
// never downloads anything whose destination already exists.
type Downloader struct {
	httpClient   *http.Client
	logger       interfaces.Logger
	progress     gateways.ProgressObserver
	maxRedirects int
	stepPercent  int
	userAgent    string
	lockDir      string
	lockTimeout  time.Duration

	// rename moves the finished temp file into place
	rename func(oldPath, newPath string) error
}

// NewDownloader creates a new downloader
func NewDownloader(opts DownloaderOptions, logger interfaces.Logger) *Downloader {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}
	if opts.MaxRedirects <= 0 {
		opts.MaxRedirects = defaultMaxRedirects
	}
	if opts.StepPercent <= 0 {
		opts.StepPercent = defaultStepPercent
	}
	if opts.UserAgent == "" {
		opts.UserAgent = defaultUserAgent
	}
	if opts.LockTimeout <= 0 {
		opts.LockTimeout = defaultLockTimeout
	}
	progress := opts.Progress
	if progress == nil {
		progress = discardProgress{}
	}

	return &Downloader{
		httpClient: &http.Client{
			Timeout: opts.Timeout,
			// Redirects are followed by get, bounded by maxRedirects
			CheckRedirect: func(_ *http.Request, _ []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger:       logger,
		progress:     progress,
		maxRedirects: opts.MaxRedirects,
		stepPercent:  opts.StepPercent,
		userAgent:    opts.UserAgent,
		lockDir:      opts.LockDir,
		lockTimeout:  opts.LockTimeout,
		rename:       os.Rename,
	}
}

// Download fetches url into destination unless destination already exists.
// The body is streamed into destination+".tmp" and renamed on completion;
// the temp file is removed on every failure path.
func (d *Downloader) Download(ctx context.Context, url, destination string) (*entities.DownloadResult, error) {
	cached, err := fileExists(destination)
	if err != nil {
		return nil, err
	}
	if cached {
		d.logger.Debug("Artifact already cached", interfaces.F("path", destination))
		return &entities.DownloadResult{Path: destination, Cached: true}, nil
	}

	if err := os.MkdirAll(filepath.Dir(destination), 0750); err != nil {
		return nil, fmt.Errorf("failed to create destination directory: %w", err)
	}

	unlock, err := d.lock(ctx, destination)
	if err != nil {
		return nil, err
	}
	defer unlock()

	// Another process may have completed the file while we waited for the lock
	if cached, err = fileExists(destination); err != nil {
		return nil, err
	} else if cached {
		d.logger.Debug("Artifact cached by a concurrent run", interfaces.F("path", destination))
		return &entities.DownloadResult{Path: destination, Cached: true}, nil
	}

	name := filepath.Base(destination)
	tmpPath := destination + tempSuffix
	received, err := d.downloadToFile(ctx, url, tmpPath, name)
	if err != nil {
		d.removeTemp(tmpPath)
		d.progress.Failed(name, err)
		return nil, err
	}

	if err := d.rename(tmpPath, destination); err != nil {
		d.removeTemp(tmpPath)
		renameErr := &entities.RenameError{From: tmpPath, To: destination, Err: err}
		d.progress.Failed(name, renameErr)
		return nil, renameErr
	}

	d.progress.Finished(name, received)
	d.logger.Info("Downloaded artifact",
		interfaces.F("path", destination),
		interfaces.F("size", FormatBytes(received)),
	)

	return &entities.DownloadResult{Path: destination, Bytes: received}, nil
}

// downloadToFile streams url into path and returns the number of bytes written
func (d *Downloader) downloadToFile(ctx context.Context, url, path, name string) (int64, error) {
	//nolint:gosec // G304: path is derived from the cache root and a resolved filename
	out, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return 0, fmt.Errorf("failed to create temp file: %w", err)
	}

	resp, err := d.get(ctx, url)
	if err != nil {
		_ = out.Close()
		return 0, err
	}
	//nolint:errcheck // Defer close on HTTP response body
	defer resp.Body.Close()

	total := resp.ContentLength
	d.progress.Started(name, total)

	body := &trackingReader{
		r:       resp.Body,
		tracker: newProgressTracker(name, total, d.stepPercent, d.progress),
	}
	written, err := io.Copy(out, body)
	if err != nil {
		_ = out.Close()
		if body.err != nil {
			return written, &entities.NetworkError{URL: url, Err: body.err}
		}
		return written, fmt.Errorf("failed to write file: %w", err)
	}
	body.tracker.complete()

	if err := out.Close(); err != nil {
		return written, fmt.Errorf("failed to close file: %w", err)
	}

	return written, nil
}

// get issues a GET and follows redirects up to the configured limit
func (d *Downloader) get(ctx context.Context, url string) (*http.Response, error) {
	current := url
	for hops := 0; ; hops++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, current, nil)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("User-Agent", d.userAgent)

		d.logger.Debug("Requesting artifact", interfaces.F("url", current))
		resp, err := d.httpClient.Do(req)
		if err != nil {
			return nil, &entities.NetworkError{URL: current, Err: err}
		}

		if isRedirect(resp.StatusCode) {
			location := resp.Header.Get("Location")
			_ = resp.Body.Close()

			if location == "" {
				return nil, &entities.HTTPStatusError{URL: current, StatusCode: resp.StatusCode}
			}
			if hops >= d.maxRedirects {
				return nil, &entities.TooManyRedirectsError{URL: url, Limit: d.maxRedirects}
			}

			next, err := resp.Request.URL.Parse(location)
			if err != nil {
				return nil, fmt.Errorf("invalid redirect location %q: %w", location, err)
			}
			d.logger.Debug("Following redirect",
				interfaces.F("status", resp.StatusCode),
				interfaces.F("location", next.String()),
			)
			current = next.String()
			continue
		}

		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, &entities.HTTPStatusError{URL: current, StatusCode: resp.StatusCode}
		}

		return resp, nil
	}
}

// lock takes the advisory lock guarding destination, if locking is enabled
func (d *Downloader) lock(ctx context.Context, destination string) (func(), error) {
	if d.lockDir == "" {
		return func() {}, nil
	}

	if err := os.MkdirAll(d.lockDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create lock directory: %w", err)
	}

	fileLock := flock.New(d.lockPath(destination))

	lockCtx, cancel := context.WithTimeout(ctx, d.lockTimeout)
	defer cancel()

	locked, err := fileLock.TryLockContext(lockCtx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("failed to lock %s: %w", destination, err)
	}
	if !locked {
		return nil, fmt.Errorf("failed to lock %s: lock held by another process", destination)
	}

	return func() {
		if err := fileLock.Unlock(); err != nil {
			d.logger.Debug("Failed to release lock", interfaces.F("path", fileLock.Path()), interfaces.F("error", err))
		}
	}, nil
}

// lockPath names the lock file of a destination after a hash of its absolute path
func (d *Downloader) lockPath(destination string) string {
	abs, err := filepath.Abs(destination)
	if err != nil {
		abs = destination
	}
	sum := sha256.Sum256([]byte(abs))
	return filepath.Join(d.lockDir, hex.EncodeToString(sum[:8])+".lock")
}

// removeTemp deletes a temp file; failures are only worth a debug line
func (d *Downloader) removeTemp(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		d.logger.Debug("Failed to remove temp file", interfaces.F("path", path), interfaces.F("error", err))
	}
}

func fileExists(path string) (bool, error) {
	_, err := os.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("failed to stat %s: %w", path, err)
}

func isRedirect(code int) bool {
	switch code {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		return true
	}
	return false
}

// trackingReader feeds a progress tracker and remembers read failures,
// which tells network errors apart from disk errors after io.Copy
type trackingReader struct {
	r       io.Reader
	tracker *progressTracker
	err     error
}

func (t *trackingReader) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if n > 0 {
		t.tracker.add(int64(n))
	}
	if err != nil && err != io.EOF {
		t.err = err
	}
	return n, err
}
