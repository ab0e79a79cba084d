package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/ochairo/prefetch/internal/domain/entities"
)

// yamlSettings represents the raw YAML structure
type yamlSettings struct {
	Root               string            `yaml:"root"`
	DownloadPrefixes   map[string]string `yaml:"download_prefixes"`
	Targets            []yamlTarget      `yaml:"targets"`
	HTTP               yamlHTTP          `yaml:"http"`
	Progress           yamlProgress      `yaml:"progress"`
	LockTimeoutMinutes int               `yaml:"lock_timeout_minutes"`
}

type yamlTarget struct {
	Platform string `yaml:"platform"`
	Arch     string `yaml:"arch"`
}

type yamlHTTP struct {
	TimeoutMinutes int    `yaml:"timeout_minutes"`
	MaxRedirects   int    `yaml:"max_redirects"`
	UserAgent      string `yaml:"user_agent"`
}

type yamlProgress struct {
	StepPercent int `yaml:"step_percent"`
}

// SettingsParser parses YAML settings files on top of a base
type SettingsParser struct{}

// NewSettingsParser creates a new YAML settings parser
func NewSettingsParser() *SettingsParser {
	return &SettingsParser{}
}

// ParseFile parses a settings file. A relative root is taken relative to the file.
func (p *SettingsParser) ParseFile(filePath string, base *entities.Settings) (*entities.Settings, error) {
	//nolint:gosec // G304: filePath is the user-selected settings file
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, &entities.ConfigReadError{Path: filePath, Err: err}
	}

	settings, err := p.Parse(data, base)
	if err != nil {
		var parseErr *entities.ConfigParseError
		if errors.As(err, &parseErr) {
			parseErr.Path = filePath
		}
		return nil, err
	}

	if settings.Root != "" && !filepath.IsAbs(settings.Root) && settings.Root != base.Root {
		settings.Root = filepath.Join(filepath.Dir(filePath), settings.Root)
	}

	return settings, nil
}

// Parse overlays YAML settings onto a copy of base. Unknown keys are rejected.
func (p *SettingsParser) Parse(data []byte, base *entities.Settings) (*entities.Settings, error) {
	var raw yamlSettings
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, &entities.ConfigParseError{Err: fmt.Errorf("failed to parse YAML: %w", err)}
	}

	settings, err := merge(raw, base)
	if err != nil {
		return nil, &entities.ConfigParseError{Err: err}
	}
	return settings, nil
}

func merge(raw yamlSettings, base *entities.Settings) (*entities.Settings, error) {
	s := copySettings(base)

	if raw.Root != "" {
		s.Root = raw.Root
	}

	// An empty prefix removes a software from the table
	for name, prefix := range raw.DownloadPrefixes {
		if name == "" {
			return nil, fmt.Errorf("download_prefixes: empty software name")
		}
		if prefix == "" {
			delete(s.DownloadPrefixes, entities.Software(name))
			continue
		}
		s.DownloadPrefixes[entities.Software(name)] = prefix
	}

	if len(raw.Targets) > 0 {
		s.Targets = make([]entities.Target, 0, len(raw.Targets))
		for i, t := range raw.Targets {
			platform, err := entities.ParsePlatform(t.Platform)
			if err != nil {
				return nil, fmt.Errorf("targets[%d]: %w", i, err)
			}
			if t.Arch == "" {
				return nil, fmt.Errorf("targets[%d]: arch is required", i)
			}
			s.Targets = append(s.Targets, entities.Target{Platform: platform, Arch: t.Arch})
		}
	}

	if raw.HTTP.TimeoutMinutes < 0 || raw.HTTP.MaxRedirects < 0 || raw.LockTimeoutMinutes < 0 {
		return nil, fmt.Errorf("timeouts and max_redirects must not be negative")
	}
	if raw.HTTP.TimeoutMinutes > 0 {
		s.HTTP.Timeout = time.Duration(raw.HTTP.TimeoutMinutes) * time.Minute
	}
	if raw.HTTP.MaxRedirects > 0 {
		s.HTTP.MaxRedirects = raw.HTTP.MaxRedirects
	}
	if raw.HTTP.UserAgent != "" {
		s.HTTP.UserAgent = raw.HTTP.UserAgent
	}
	if raw.LockTimeoutMinutes > 0 {
		s.LockTimeout = time.Duration(raw.LockTimeoutMinutes) * time.Minute
	}

	if step := raw.Progress.StepPercent; step != 0 {
		if step < 1 || step > 100 {
			return nil, fmt.Errorf("progress.step_percent must be between 1 and 100, got %d", step)
		}
		s.Progress.StepPercent = step
	}

	return s, nil
}

func copySettings(base *entities.Settings) *entities.Settings {
	s := *base
	s.DownloadPrefixes = make(map[entities.Software]string, len(base.DownloadPrefixes))
	for k, v := range base.DownloadPrefixes {
		s.DownloadPrefixes[k] = v
	}
	s.Targets = append([]entities.Target(nil), base.Targets...)
	return &s
}
