package entities

import "time"

// DefaultDownloadPrefixes are the release hosting locations per software
var DefaultDownloadPrefixes = map[Software]string{
	SoftwareJDK:        "https://github.com/prefetch-mirror/java-release/releases/download",
	SoftwareRedis:      "https://github.com/prefetch-mirror/redis-release/releases/download",
	SoftwarePostgreSQL: "https://github.com/prefetch-mirror/postgresql-release/releases/download",
}

// Settings holds the startup configuration of a prefetch run
type Settings struct {
	// Root is the cache directory artifacts are written under
	Root             string
	DownloadPrefixes map[Software]string
	Targets          []Target
	HTTP             HTTPSettings
	Progress         ProgressSettings
	LockTimeout      time.Duration
}

// HTTPSettings tunes the downloader's HTTP client
type HTTPSettings struct {
	Timeout      time.Duration
	MaxRedirects int
	UserAgent    string
}

// ProgressSettings tunes progress reporting
type ProgressSettings struct {
	StepPercent int
}

// DefaultSettings returns the settings used when no settings file is given
func DefaultSettings(root string) *Settings {
	prefixes := make(map[Software]string, len(DefaultDownloadPrefixes))
	for k, v := range DefaultDownloadPrefixes {
		prefixes[k] = v
	}

	return &Settings{
		Root:             root,
		DownloadPrefixes: prefixes,
		Targets:          DefaultTargets(),
		HTTP: HTTPSettings{
			Timeout:      30 * time.Minute,
			MaxRedirects: 5,
			UserAgent:    "prefetch/1.0",
		},
		Progress: ProgressSettings{
			StepPercent: 5,
		},
		LockTimeout: 10 * time.Minute,
	}
}
