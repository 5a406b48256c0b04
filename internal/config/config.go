package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	KeyDataLoc     = "data_loc"
	KeyParams      = "params"
	KeySimDir      = "sim_dir"
	KeyDescription = "description"
)

// Config is the caller-supplied run configuration. data_loc and params are
// required; sim_dir, description and any simulation-specific keys are optional.
type Config map[string]any

// Params maps parameter names to values.
type Params map[string]any

func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := Config{}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate checks the required keys, and the type of the optional string
// keys when present, without touching the filesystem.
func (c Config) Validate() error {
	if _, err := c.DataLoc(); err != nil {
		return err
	}
	if _, err := c.RawParams(); err != nil {
		return err
	}
	for _, key := range []string{KeySimDir, KeyDescription} {
		v, ok := c[key]
		if !ok || v == nil {
			continue
		}
		if _, isString := v.(string); !isString {
			return &ConfigError{Key: key, Err: ErrWrongType, Reason: fmt.Sprintf("want string, got %T", v)}
		}
	}
	return nil
}

func (c Config) DataLoc() (string, error) {
	v, ok := c[KeyDataLoc]
	if !ok {
		return "", &ConfigError{Key: KeyDataLoc, Err: ErrMissingKey}
	}
	s, ok := v.(string)
	if !ok {
		return "", &ConfigError{Key: KeyDataLoc, Err: ErrWrongType, Reason: fmt.Sprintf("want string, got %T", v)}
	}
	if s == "" {
		return "", &ConfigError{Key: KeyDataLoc, Err: ErrWrongType, Reason: "empty path"}
	}
	return s, nil
}

// RawParams returns the params override mapping. An explicit empty mapping
// (or a YAML null) is valid; a missing key is not.
func (c Config) RawParams() (Params, error) {
	v, ok := c[KeyParams]
	if !ok {
		return nil, &ConfigError{Key: KeyParams, Err: ErrMissingKey}
	}
	switch p := v.(type) {
	case nil:
		return Params{}, nil
	case Params:
		return p, nil
	case map[string]any:
		return Params(p), nil
	default:
		return nil, &ConfigError{Key: KeyParams, Err: ErrWrongType, Reason: fmt.Sprintf("want mapping, got %T", v)}
	}
}

func (c Config) SimDir() (string, bool) {
	return c.String(KeySimDir)
}

// Description reports whether a description was supplied. An empty string
// counts as supplied.
func (c Config) Description() (string, bool) {
	s, ok := c[KeyDescription].(string)
	return s, ok
}

// String returns a non-empty string value for key.
func (c Config) String(key string) (string, bool) {
	s, ok := c[key].(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

func (c Config) Float(key string) (float64, bool) {
	f, err := toFloat(c[key])
	if err != nil {
		return 0, false
	}
	return f, true
}

// Clone returns a shallow copy.
func (c Config) Clone() Config {
	out := make(Config, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}
