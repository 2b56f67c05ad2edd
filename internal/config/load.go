package config

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/tidwall/jsonc"
	"gopkg.in/yaml.v3"
)

// ErrNotFound is returned by Find when no configuration file exists in a
// directory or any of its parents.
var ErrNotFound = eris.New("no configuration file found")

// FileNames are the configuration files Find looks for, in order of
// preference.
var FileNames = []string{"unilib.yaml", "unilib.yml", "unilib.jsonc", "unilib.json", "unilib.star"}

// Find walks up from dir and returns the first configuration file found.
func Find(dir string) (string, error) {
	path, err := filepath.Abs(dir)
	if err != nil {
		return "", err
	}
	for {
		for _, name := range FileNames {
			candidate := filepath.Join(path, name)
			_, err := os.Stat(candidate)
			if err == nil {
				return candidate, nil
			}
			if !errors.Is(err, os.ErrNotExist) {
				return "", eris.Wrapf(err, "failed to check %s", candidate)
			}
		}

		parent := filepath.Dir(path)
		if parent == path {
			return "", eris.Wrapf(ErrNotFound, "searched from %s", dir)
		}
		path = parent
	}
}

// Discover loads the configuration of a run. An explicit path wins;
// otherwise the nearest configuration file above wd is used, and the
// built-in table when there is none. A non-empty root overrides the project
// root.
func Discover(ctx context.Context, path, wd, root string) (*Config, error) {
	var cfg *Config
	var err error
	switch {
	case path != "":
		cfg, err = Load(ctx, path)
	default:
		path, err = Find(wd)
		switch {
		case err == nil:
			cfg, err = Load(ctx, path)
		case eris.Is(err, ErrNotFound):
			cfg, err = Default()
			if err == nil {
				cfg.Root, err = filepath.Abs(wd)
			}
		}
	}
	if err != nil {
		return nil, err
	}
	if root != "" {
		if cfg.Root, err = filepath.Abs(root); err != nil {
			return nil, err
		}
	}
	return cfg, nil
}

// Default returns the built-in build table.
func Default() (*Config, error) {
	cfg, err := parseYAML(defaultTable)
	if err != nil {
		return nil, eris.Wrap(err, "built-in table")
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Load reads the configuration file at path. Its directory becomes the
// project root.
func Load(ctx context.Context, path string) (*Config, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, eris.Wrapf(err, "failed to read %s", path)
	}
	cfg, err := Parse(ctx, abs, data)
	if err != nil {
		return nil, err
	}
	cfg.Path = abs
	cfg.Root = filepath.Dir(abs)
	return cfg, nil
}

// Parse decodes data in the format given by the extension of name, fills in
// defaults and validates the result.
func Parse(ctx context.Context, name string, data []byte) (*Config, error) {
	var cfg *Config
	var err error
	switch ext := strings.ToLower(filepath.Ext(name)); ext {
	case ".yaml", ".yml":
		cfg, err = parseYAML(data)
	case ".json", ".jsonc":
		cfg, err = parseJSON(data)
	case ".star":
		cfg, err = parseStarlark(ctx, name, data)
	default:
		return nil, eris.Errorf("%s: unsupported configuration format %q", name, ext)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "failed to parse %s", name)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, eris.Wrapf(err, "%s", name)
	}
	return cfg, nil
}

func parseYAML(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		if err == io.EOF {
			return nil, eris.New("empty document")
		}
		return nil, err
	}
	return &cfg, nil
}

func parseJSON(data []byte) (*Config, error) {
	dec := json.NewDecoder(bytes.NewReader(jsonc.ToJSON(data)))
	dec.DisallowUnknownFields()
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		if err == io.EOF {
			return nil, eris.New("empty document")
		}
		return nil, err
	}
	return &cfg, nil
}
