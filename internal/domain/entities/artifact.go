// Package entities defines core domain models and data structures.
package entities

import "strings"

// Software identifies a third-party distribution that can be prefetched
type Software string

// Known software with dedicated filename rules
const (
	SoftwareJDK        Software = "jdk"
	SoftwareRedis      Software = "redis"
	SoftwarePostgreSQL Software = "postgresql"
)

// KnownSoftware lists the software that ships with a default download prefix
var KnownSoftware = []Software{SoftwareJDK, SoftwareRedis, SoftwarePostgreSQL}

// Platform is the operating system an artifact is built for
type Platform string

// Supported platforms
const (
	PlatformLinux   Platform = "linux"
	PlatformWindows Platform = "windows"
)

// ParsePlatform validates a platform name
func ParsePlatform(s string) (Platform, error) {
	switch p := Platform(strings.ToLower(strings.TrimSpace(s))); p {
	case PlatformLinux, PlatformWindows:
		return p, nil
	default:
		return "", &UnsupportedPlatformError{Platform: s}
	}
}

// Target is one platform/architecture pair a fetch pass runs for
type Target struct {
	Platform Platform
	Arch     string
}

func (t Target) String() string {
	return string(t.Platform) + "/" + t.Arch
}

// ParseTarget parses "platform/arch" (e.g. linux/amd64)
func ParseTarget(s string) (Target, error) {
	platform, arch, ok := strings.Cut(s, "/")
	if !ok || arch == "" {
		return Target{}, &InvalidTargetError{Value: s}
	}
	p, err := ParsePlatform(platform)
	if err != nil {
		return Target{}, err
	}
	return Target{Platform: p, Arch: arch}, nil
}

// DefaultTargets returns the platform/arch passes run when nothing else is configured
func DefaultTargets() []Target {
	return []Target{
		{Platform: PlatformLinux, Arch: "amd64"},
		{Platform: PlatformLinux, Arch: "arm64"},
		{Platform: PlatformWindows, Arch: "x64"},
	}
}

// Link is a resolved download location
type Link struct {
	URL      string
	Filename string
	// Version actually used in the URL, which may differ from the requested one
	Version string
}

// DownloadJob describes a single artifact to fetch. Jobs are never persisted.
type DownloadJob struct {
	Environment string
	Component   string
	Software    Software
	// Version is the version used in the URL
	Version string
	// RequestedVersion is the version declared in the config
	RequestedVersion string
	Platform         Platform
	Arch             string
	URL              string
	Destination      string
}

// DownloadResult is the outcome of a successful download call
type DownloadResult struct {
	Path   string
	Cached bool  // true when the file was already present and no request was made
	Bytes  int64 // bytes received over the network
}
