package config

import (
	"testing"

	"github.com/ochairo/prefetch/internal/domain/entities"
)

// FuzzConfigReader feeds random input to both config formats.
// A parse either fails with an error or yields a well-formed config.
//
// Run with: go test -fuzz=FuzzConfigReader -fuzztime=30s
func FuzzConfigReader(f *testing.F) {
	f.Add([]byte(`{"prod": {"jdk-version": "17", "redis-version": "7.2"}}`))
	f.Add([]byte(`{"dev": {"postgresql-version": 16.2}, "prod": {}}`))
	f.Add([]byte(`{"a": {"x": "1"}, "a": {"y": "2"}}`))
	f.Add([]byte(`{"prod": {"jdk-version": {"nested": true}}}`))
	f.Add([]byte(`{"prod": `))
	f.Add([]byte(`[]`))
	f.Add([]byte("prod:\n  jdk-version: \"17\"\n  redis-version: 7.2\n"))
	f.Add([]byte("prod: [1, 2]\n"))
	f.Add([]byte(""))

	reader := NewConfigReader()
	f.Fuzz(func(t *testing.T, data []byte) {
		cfg, err := reader.ParseJSON(data)
		checkConfig(t, cfg, err)

		cfg, err = reader.ParseYAML(data)
		checkConfig(t, cfg, err)
	})
}

func checkConfig(t *testing.T, cfg *entities.Config, err error) {
	t.Helper()
	if err != nil {
		return
	}
	if cfg == nil {
		t.Fatal("nil config without error")
	}

	envs := make(map[string]bool)
	for _, env := range cfg.Environments {
		if envs[env.Name] {
			t.Fatalf("environment %q declared twice", env.Name)
		}
		envs[env.Name] = true

		keys := make(map[string]bool)
		for _, c := range env.Components {
			if keys[c.Key] {
				t.Fatalf("component %q declared twice in %q", c.Key, env.Name)
			}
			keys[c.Key] = true
		}
	}
}
