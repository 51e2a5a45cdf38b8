package loader

import (
	"fmt"

	"github.com/caarlos0/env/v11"
)

// DefaultEnvPrefix is the prefix for mapforge environment variables.
const DefaultEnvPrefix = "MAPFORGE_"

// EnvLoader overlays environment variables onto a struct.
type EnvLoader struct {
	prefix      string
	environment map[string]string // nil means the process environment
}

// NewEnvLoader creates a new environment variable loader.
// The prefix should include the trailing underscore (e.g., "MAPFORGE_").
func NewEnvLoader(prefix string) *EnvLoader {
	return &EnvLoader{prefix: prefix}
}

// NewEnvLoaderWithEnvironment creates a loader reading from a fixed set of
// variables instead of the process environment.
func NewEnvLoaderWithEnvironment(prefix string, environment map[string]string) *EnvLoader {
	return &EnvLoader{prefix: prefix, environment: environment}
}

// LoadInto sets the fields of v that have a matching environment
// variable. Fields without a variable keep their current values.
func (l *EnvLoader) LoadInto(v any) error {
	opts := env.Options{
		Prefix:      l.prefix,
		Environment: l.environment,
	}
	if err := env.ParseWithOptions(v, opts); err != nil {
		return fmt.Errorf("loading environment: %w", err)
	}
	return nil
}
