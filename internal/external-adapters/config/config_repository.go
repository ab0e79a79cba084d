package config

import (
	"context"

	"github.com/ochairo/prefetch/internal/domain/entities"
)

// ConfigRepository implements repositories.ConfigRepository over a single config file
type ConfigRepository struct {
	path   string
	reader *ConfigReader
}

// NewConfigRepository creates a repository reading the config file at path
func NewConfigRepository(path string) *ConfigRepository {
	return &ConfigRepository{
		path:   path,
		reader: NewConfigReader(),
	}
}

// LoadConfig reads the config file. It is re-read on every call.
func (r *ConfigRepository) LoadConfig(_ context.Context) (*entities.Config, error) {
	return r.reader.ReadConfig(r.path)
}
