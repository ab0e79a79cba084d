// Package repositories defines interfaces for data access layers.
package repositories

import (
	"context"

	"github.com/ochairo/prefetch/internal/domain/entities"
)

// ConfigRepository loads component version declarations
type ConfigRepository interface {
	// LoadConfig reads and parses the declarations
	LoadConfig(ctx context.Context) (*entities.Config, error)
}
