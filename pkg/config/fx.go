package config

import (
	"fmt"
	"os"

	"github.com/pseudomuto/changekeeper/pkg/consts"
	"go.uber.org/fx"
)

// EnvConfigFile overrides the location of the config file.
const EnvConfigFile = "CHANGEKEEPER_CONFIG"

// LoadError reports a config file that exists but cannot be loaded.
type LoadError struct {
	Path string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("invalid config file %s: %v", e.Path, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// Startup is provided alongside the config. Err holds a *LoadError when the
// config file could not be loaded; it is handed to the CLI rather than failing
// the fx graph, so the failure is reported like any other command error.
type Startup struct {
	Err error
}

var Module = fx.Module("config", fx.Provide(load))

// load attempts to read changekeeper.yaml (or the file named by
// CHANGEKEEPER_CONFIG) if it exists. A missing file yields a nil config so
// commands can fall back to defaults and flags.
func load() (*Config, Startup) {
	path := Path()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, Startup{}
	}

	cfg, err := LoadConfigFile(path)
	if err != nil {
		return nil, Startup{Err: &LoadError{Path: path, Err: err}}
	}

	return cfg, Startup{}
}

// Path returns the config file location from the environment, or the default.
func Path() string {
	if path := os.Getenv(EnvConfigFile); path != "" {
		return path
	}
	return consts.DefaultConfigFile
}
