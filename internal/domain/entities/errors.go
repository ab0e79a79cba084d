package entities

import (
	"errors"
	"fmt"
)

// Sentinel errors for resolution failures
var (
	ErrUnsupportedSoftware = errors.New("unsupported software")
	ErrUnsupportedPlatform = errors.New("unsupported platform")
)

// UnsupportedSoftwareError reports a software name with no download prefix
type UnsupportedSoftwareError struct {
	Software string
}

func (e *UnsupportedSoftwareError) Error() string {
	return fmt.Sprintf("unsupported software: %q", e.Software)
}

// Is matches ErrUnsupportedSoftware
func (e *UnsupportedSoftwareError) Is(target error) bool {
	return target == ErrUnsupportedSoftware
}

// UnsupportedPlatformError reports a platform with no filename rule
type UnsupportedPlatformError struct {
	Software string
	Platform string
}

func (e *UnsupportedPlatformError) Error() string {
	if e.Software == "" {
		return fmt.Sprintf("unsupported platform: %q", e.Platform)
	}
	return fmt.Sprintf("unsupported platform %q for %s", e.Platform, e.Software)
}

// Is matches ErrUnsupportedPlatform
func (e *UnsupportedPlatformError) Is(target error) bool {
	return target == ErrUnsupportedPlatform
}

// InvalidTargetError reports a malformed platform/arch pair
type InvalidTargetError struct {
	Value string
}

func (e *InvalidTargetError) Error() string {
	return fmt.Sprintf("invalid target %q, expected <platform>/<arch>", e.Value)
}

// PathEscapeError reports a destination that would land outside the cache root
type PathEscapeError struct {
	Path string
	Root string
}

func (e *PathEscapeError) Error() string {
	return fmt.Sprintf("destination %s is outside the cache root %s", e.Path, e.Root)
}

// ConfigReadError is returned when a config or settings file cannot be read
type ConfigReadError struct {
	Path string
	Err  error
}

func (e *ConfigReadError) Error() string {
	return fmt.Sprintf("failed to read config %s: %v", e.Path, e.Err)
}

func (e *ConfigReadError) Unwrap() error { return e.Err }

// ConfigParseError is returned when a config or settings file is malformed
type ConfigParseError struct {
	Path string
	Err  error
}

func (e *ConfigParseError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("failed to parse config: %v", e.Err)
	}
	return fmt.Sprintf("failed to parse config %s: %v", e.Path, e.Err)
}

func (e *ConfigParseError) Unwrap() error { return e.Err }

// HTTPStatusError is returned when a download responds with a status other than 200 or a redirect
type HTTPStatusError struct {
	URL        string
	StatusCode int
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
}

// TooManyRedirectsError is returned when a download exceeds the redirect limit
type TooManyRedirectsError struct {
	URL   string
	Limit int
}

func (e *TooManyRedirectsError) Error() string {
	return fmt.Sprintf("stopped after %d redirects fetching %s", e.Limit, e.URL)
}

// NetworkError wraps transport failures and failures while streaming the body
type NetworkError struct {
	URL string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("network error fetching %s: %v", e.URL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// RenameError is returned when the completed temp file cannot be moved into place
type RenameError struct {
	From string
	To   string
	Err  error
}

func (e *RenameError) Error() string {
	return fmt.Sprintf("failed to rename %s to %s: %v", e.From, e.To, e.Err)
}

func (e *RenameError) Unwrap() error { return e.Err }
