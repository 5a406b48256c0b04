package config

import (
	"fmt"
	"sort"
)

// Merge overlays the params entry of cfg on defaults. The merge is shallow:
// nested values from cfg replace the default wholesale. Keys that appear only
// in cfg are kept. Neither input is modified.
func Merge(defaults Params, cfg Config) (Params, error) {
	overrides, err := cfg.RawParams()
	if err != nil {
		return nil, err
	}
	out := make(Params, len(defaults)+len(overrides))
	for k, v := range defaults {
		out[k] = v
	}
	for k, v := range overrides {
		out[k] = v
	}
	return out, nil
}

// Keys returns the parameter names in sorted order.
func (p Params) Keys() []string {
	keys := make([]string, 0, len(p))
	for k := range p {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (p Params) Float(key string) (float64, error) {
	v, ok := p[key]
	if !ok {
		return 0, &ConfigError{Key: key, Err: ErrMissingKey}
	}
	f, err := toFloat(v)
	if err != nil {
		return 0, &ConfigError{Key: key, Err: ErrWrongType, Reason: err.Error()}
	}
	return f, nil
}

func (p Params) Int(key string) (int, error) {
	v, ok := p[key]
	if !ok {
		return 0, &ConfigError{Key: key, Err: ErrMissingKey}
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n != float64(int(n)) {
			return 0, &ConfigError{Key: key, Err: ErrWrongType, Reason: fmt.Sprintf("%v is not an integer", n)}
		}
		return int(n), nil
	default:
		return 0, &ConfigError{Key: key, Err: ErrWrongType, Reason: fmt.Sprintf("want integer, got %T", v)}
	}
}

func (p Params) String(key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", &ConfigError{Key: key, Err: ErrMissingKey}
	}
	s, ok := v.(string)
	if !ok {
		return "", &ConfigError{Key: key, Err: ErrWrongType, Reason: fmt.Sprintf("want string, got %T", v)}
	}
	return s, nil
}

func (p Params) Bool(key string) (bool, error) {
	v, ok := p[key]
	if !ok {
		return false, &ConfigError{Key: key, Err: ErrMissingKey}
	}
	b, ok := v.(bool)
	if !ok {
		return false, &ConfigError{Key: key, Err: ErrWrongType, Reason: fmt.Sprintf("want bool, got %T", v)}
	}
	return b, nil
}

// Floats reads a numeric list. YAML decodes lists as []any, Go callers
// usually pass []float64; both are accepted.
func (p Params) Floats(key string) ([]float64, error) {
	v, ok := p[key]
	if !ok {
		return nil, &ConfigError{Key: key, Err: ErrMissingKey}
	}
	switch xs := v.(type) {
	case []float64:
		out := make([]float64, len(xs))
		copy(out, xs)
		return out, nil
	case []any:
		out := make([]float64, len(xs))
		for i, x := range xs {
			f, err := toFloat(x)
			if err != nil {
				return nil, &ConfigError{Key: key, Err: ErrWrongType, Reason: fmt.Sprintf("element %d: %v", i, err)}
			}
			out[i] = f
		}
		return out, nil
	default:
		return nil, &ConfigError{Key: key, Err: ErrWrongType, Reason: fmt.Sprintf("want list of numbers, got %T", v)}
	}
}

func toFloat(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int64:
		return float64(n), nil
	default:
		return 0, fmt.Errorf("want number, got %T", v)
	}
}
