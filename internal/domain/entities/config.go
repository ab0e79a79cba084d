package entities

import "strings"

// VersionKeySuffix is the conventional suffix of component keys ("jdk-version")
const VersionKeySuffix = "-version"

// Config maps environment names to component version declarations.
// Environments and components keep the order they were declared in.
type Config struct {
	Environments []Environment
}

// Environment is a named group of component declarations (e.g. "prod")
type Environment struct {
	Name       string
	Components []Component
}

// Component is one key/version declaration inside an environment
type Component struct {
	Key     string
	Version string
}

// Software derives the software name from the component key
func (c Component) Software() Software {
	return Software(strings.TrimSuffix(c.Key, VersionKeySuffix))
}

// ResetEnvironment returns an empty environment named name. A repeated name
// keeps its original position and drops the earlier declarations.
func (c *Config) ResetEnvironment(name string) *Environment {
	if env, ok := c.Environment(name); ok {
		env.Components = nil
		return env
	}
	c.Environments = append(c.Environments, Environment{Name: name})
	return &c.Environments[len(c.Environments)-1]
}

// Set declares key at version, replacing an earlier declaration of the same key in place
func (e *Environment) Set(key, version string) {
	for i := range e.Components {
		if e.Components[i].Key == key {
			e.Components[i].Version = version
			return
		}
	}
	e.Components = append(e.Components, Component{Key: key, Version: version})
}

// Environment returns the named environment, if declared
func (c *Config) Environment(name string) (*Environment, bool) {
	for i := range c.Environments {
		if c.Environments[i].Name == name {
			return &c.Environments[i], true
		}
	}
	return nil, false
}

// Version returns the declared version for a component key
func (e *Environment) Version(key string) (string, bool) {
	for _, c := range e.Components {
		if c.Key == key {
			return c.Version, true
		}
	}
	return "", false
}

// ComponentCount returns the number of declarations across all environments
func (c *Config) ComponentCount() int {
	n := 0
	for _, env := range c.Environments {
		n += len(env.Components)
	}
	return n
}
