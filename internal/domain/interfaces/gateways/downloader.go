// Package gateways defines interfaces for external service adapters.
package gateways

import (
	"context"

	"github.com/ochairo/prefetch/internal/domain/entities"
)

// ArtifactDownloader fetches a URL into a destination path on the local cache
type ArtifactDownloader interface {
	// Download is idempotent: an existing destination is returned without network access
	Download(ctx context.Context, url, destination string) (*entities.DownloadResult, error)
}

// ProgressObserver receives download progress notifications
type ProgressObserver interface {
	// Started is called once the response headers arrived. total is -1 when unknown.
	Started(name string, total int64)

	// Advanced is called whenever progress moved by at least one step
	Advanced(name string, received, total int64, percent int)

	// Finished is called after the artifact was moved into place
	Finished(name string, received int64)

	// Failed is called instead of Finished when the download did not complete
	Failed(name string, err error)
}
