package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log"
	"path/filepath"

	"github.com/spf13/afero"
	"sigs.k8s.io/yaml"
)

// Load loads the configuration from the directory.
func Load(path string) (*Configuration, error) {
	// If given the path to a config.yaml file, move back up a level.
	if filepath.Base(path) == ConfigurationName {
		path = filepath.Dir(path)
	}
	path, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}

	configFs := afero.NewBasePathFs(afero.NewOsFs(), path)
	configContents, err := afero.ReadFile(configFs, ConfigurationName)
	if err != nil {
		return nil, err
	}
	// Fields missing from the file keep their default values.
	out := DefaultConfig()
	if err := yaml.UnmarshalStrict(configContents, out); err != nil {
		return nil, fmt.Errorf("%s: %w", filepath.Join(path, ConfigurationName), err)
	}
	out.configDir = path
	return out, nil
}

// LoadOrDefault behaves like Load but falls back to the built-in
// configuration if the directory has no config file.
func LoadOrDefault(path string, logger *log.Logger) (*Configuration, error) {
	cfg, err := Load(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Printf("no %s in %q, using defaults", ConfigurationName, path)
		return DefaultConfig(), nil
	case err != nil:
		return nil, err
	default:
		return cfg, nil
	}
}

// Initialize writes the default configuration into dir unless one already
// exists, then loads it.
func Initialize(dir string, logger *log.Logger) (*Configuration, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}

	osFs := afero.NewOsFs()
	if err := osFs.MkdirAll(dir, 0700); err != nil {
		return nil, err
	}

	configFs := afero.NewBasePathFs(osFs, dir)
	switch exists, err := afero.Exists(configFs, ConfigurationName); {
	case err != nil:
		return nil, err
	case exists:
		logger.Printf("%s already exists, skipping", filepath.Join(dir, ConfigurationName))
	default:
		logger.Printf("writing %s", filepath.Join(dir, ConfigurationName))
		if err := afero.WriteFile(configFs, ConfigurationName, defaultConfigData, 0600); err != nil {
			return nil, err
		}
	}

	return Load(dir)
}
