// Package config provides file-based config and settings loading.
package config

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ochairo/prefetch/internal/domain/entities"
)

// ConfigReader parses component version declarations.
// JSON is the native format; .yml and .yaml files are read as YAML with the same shape.
type ConfigReader struct{}

// NewConfigReader creates a new config reader
func NewConfigReader() *ConfigReader {
	return &ConfigReader{}
}

// ReadConfig reads and parses the config file at path
func (r *ConfigReader) ReadConfig(path string) (*entities.Config, error) {
	//nolint:gosec // G304: path is the user-selected config file
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &entities.ConfigReadError{Path: path, Err: err}
	}

	var cfg *entities.Config
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yml", ".yaml":
		cfg, err = r.ParseYAML(data)
	default:
		cfg, err = r.ParseJSON(data)
	}
	if err != nil {
		var parseErr *entities.ConfigParseError
		if errors.As(err, &parseErr) {
			parseErr.Path = path
		}
		return nil, err
	}

	return cfg, nil
}

// ParseJSON parses a JSON object of objects, keeping declaration order.
// Number values keep their literal text.
func (r *ConfigReader) ParseJSON(data []byte) (*entities.Config, error) {
	cfg, err := parseJSON(data)
	if err != nil {
		return nil, &entities.ConfigParseError{Err: err}
	}
	return cfg, nil
}

func parseJSON(data []byte) (*entities.Config, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if err := expectDelim(dec, '{'); err != nil {
		return nil, fmt.Errorf("top level: %w", err)
	}

	cfg := &entities.Config{}
	for dec.More() {
		name, err := readKey(dec)
		if err != nil {
			return nil, err
		}
		env := cfg.ResetEnvironment(name)

		if err := expectDelim(dec, '{'); err != nil {
			return nil, fmt.Errorf("environment %q: %w", name, err)
		}
		for dec.More() {
			key, err := readKey(dec)
			if err != nil {
				return nil, err
			}

			tok, err := dec.Token()
			if err != nil {
				return nil, err
			}
			switch v := tok.(type) {
			case string:
				env.Set(key, v)
			case json.Number:
				env.Set(key, v.String())
			default:
				return nil, fmt.Errorf("environment %q: component %q: expected a version string", name, key)
			}
		}
		if _, err := dec.Token(); err != nil {
			return nil, err
		}
	}
	if _, err := dec.Token(); err != nil {
		return nil, err
	}

	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("unexpected data after the config object")
	}

	return cfg, nil
}

func expectDelim(dec *json.Decoder, want json.Delim) error {
	tok, err := dec.Token()
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("unexpected end of input")
	}
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != want {
		return fmt.Errorf("expected an object, got %v", tok)
	}
	return nil
}

func readKey(dec *json.Decoder) (string, error) {
	tok, err := dec.Token()
	if err != nil {
		return "", err
	}
	key, ok := tok.(string)
	if !ok {
		return "", fmt.Errorf("expected an object key, got %v", tok)
	}
	return key, nil
}

// ParseYAML parses a YAML mapping of mappings, keeping declaration order
func (r *ConfigReader) ParseYAML(data []byte) (*entities.Config, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &entities.ConfigParseError{Err: err}
	}

	cfg, err := configFromNode(&doc)
	if err != nil {
		return nil, &entities.ConfigParseError{Err: err}
	}
	return cfg, nil
}

func configFromNode(doc *yaml.Node) (*entities.Config, error) {
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("empty document")
	}
	root := doc.Content[0]
	if root.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("line %d: top level must be a mapping", root.Line)
	}

	cfg := &entities.Config{}
	for i := 0; i+1 < len(root.Content); i += 2 {
		name, body := root.Content[i], root.Content[i+1]
		env := cfg.ResetEnvironment(name.Value)

		if body.Kind != yaml.MappingNode {
			return nil, fmt.Errorf("line %d: environment %q must be a mapping", body.Line, name.Value)
		}
		for j := 0; j+1 < len(body.Content); j += 2 {
			key, value := body.Content[j], body.Content[j+1]
			if !isVersionScalar(value) {
				return nil, fmt.Errorf("line %d: environment %q: component %q must be a version string", value.Line, name.Value, key.Value)
			}
			env.Set(key.Value, value.Value)
		}
	}

	return cfg, nil
}

// isVersionScalar accepts strings and numbers, matching the JSON reader
func isVersionScalar(n *yaml.Node) bool {
	if n.Kind != yaml.ScalarNode {
		return false
	}
	switch n.ShortTag() {
	case "!!str", "!!int", "!!float":
		return true
	}
	return false
}
