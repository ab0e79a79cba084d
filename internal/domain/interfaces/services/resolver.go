// Package services defines interfaces for domain service contracts.
package services

import "github.com/ochairo/prefetch/internal/domain/entities"

// LinkResolver maps a software release to its download location
type LinkResolver interface {
	// Resolve returns the URL and filename for software at version built for platform/arch
	Resolve(software entities.Software, version string, platform entities.Platform, arch string) (*entities.Link, error)
}
