package config

import "errors"

var (
	// ErrMissingKey indicates a required configuration key is absent.
	ErrMissingKey = errors.New("config: required key missing")

	// ErrWrongType indicates a configuration or parameter value has the wrong shape.
	ErrWrongType = errors.New("config: value has wrong type")
)

// ConfigError identifies the offending key.
type ConfigError struct {
	Key    string
	Reason string
	Err    error
}

func (e *ConfigError) Error() string {
	msg := e.Err.Error() + ": " + e.Key
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}
