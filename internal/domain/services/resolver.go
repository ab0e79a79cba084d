// Package services implements domain business logic and use cases.
package services

import (
	"fmt"
	"strings"

	"github.com/ochairo/prefetch/internal/domain/entities"
	"github.com/ochairo/prefetch/internal/domain/interfaces"
	"github.com/ochairo/prefetch/internal/domain/interfaces/services"
)

// redisWindowsVersion is the only redis release published for windows
const redisWindowsVersion = "5"

// archiveNames holds the filename stem of each software with a dedicated rule
var archiveNames = map[entities.Software]string{
	entities.SoftwareJDK:        "openjdk",
	entities.SoftwareRedis:      "redis",
	entities.SoftwarePostgreSQL: "postgresql",
}

// linkResolver implements LinkResolver over an immutable prefix table
type linkResolver struct {
	prefixes map[entities.Software]string
	logger   interfaces.Logger
}

// NewLinkResolver creates a resolver. The prefix table is copied; later
// changes to the caller's map have no effect.
func NewLinkResolver(prefixes map[entities.Software]string, logger interfaces.Logger) services.LinkResolver {
	if logger == nil {
		logger = &interfaces.NoOpLogger{}
	}

	table := make(map[entities.Software]string, len(prefixes))
	for software, prefix := range prefixes {
		table[software] = strings.TrimRight(prefix, "/")
	}

	return &linkResolver{prefixes: table, logger: logger}
}

// Resolve computes the download URL of a release artifact
func (r *linkResolver) Resolve(software entities.Software, version string, platform entities.Platform, arch string) (*entities.Link, error) {
	prefix, ok := r.prefixes[software]
	if !ok || prefix == "" {
		return nil, &entities.UnsupportedSoftwareError{Software: string(software)}
	}

	if software == entities.SoftwareRedis && platform == entities.PlatformWindows && version != redisWindowsVersion {
		r.logger.Warn("redis on windows only exists as version "+redisWindowsVersion+", overriding requested version",
			interfaces.F("requested", version),
			interfaces.F("version", redisWindowsVersion),
		)
		version = redisWindowsVersion
	}

	filename, err := ArtifactFilename(software, version, platform, arch)
	if err != nil {
		return nil, err
	}

	return &entities.Link{
		URL:      fmt.Sprintf("%s/v%s/%s", prefix, version, filename),
		Filename: filename,
		Version:  version,
	}, nil
}

// ArtifactFilename returns the archive name of a release.
// Software without a dedicated rule gets the generic tarball name and no platform check.
func ArtifactFilename(software entities.Software, version string, platform entities.Platform, arch string) (string, error) {
	stem, ok := archiveNames[software]
	if !ok {
		return fmt.Sprintf("%s-%s-%s-%s.tar.gz", software, version, platform, arch), nil
	}

	switch platform {
	case entities.PlatformWindows:
		return fmt.Sprintf("%s-%s-windows-%s.zip", stem, version, arch), nil
	case entities.PlatformLinux:
		return fmt.Sprintf("%s-%s-linux-%s.tar.gz", stem, version, arch), nil
	default:
		return "", &entities.UnsupportedPlatformError{Software: string(software), Platform: string(platform)}
	}
}
