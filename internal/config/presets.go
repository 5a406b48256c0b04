package config

import "sort"

// Presets holds named params overrides per simulation.
var Presets = map[string]map[string]Params{
	"fhn": {
		"excitable": {"I": 0.0, "tend": 200},
		"oscillate": {"I": 0.5, "tend": 200},
		"slow":      {"tau": 25.0, "tend": 400},
	},
	"pendulum": {
		"small":    {"theta0": 0.2, "duration": 20.0},
		"large":    {"theta0": 2.5, "duration": 20.0},
		"spinning": {"theta0": 0.1, "omega0": 8.0, "duration": 30.0},
	},
}

// GetPreset returns a copy of the preset so callers can mutate it.
func GetPreset(sim, name string) Params {
	simPresets, ok := Presets[sim]
	if !ok {
		return nil
	}
	p, ok := simPresets[name]
	if !ok {
		return nil
	}
	out := make(Params, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

func ListPresets(sim string) []string {
	simPresets, ok := Presets[sim]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(simPresets))
	for name := range simPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ApplyPreset layers the preset under the params already in cfg, so explicit
// config entries keep precedence.
func ApplyPreset(cfg Config, preset Params) (Config, error) {
	own, err := cfg.RawParams()
	if err != nil {
		return nil, err
	}
	merged := make(Params, len(preset)+len(own))
	for k, v := range preset {
		merged[k] = v
	}
	for k, v := range own {
		merged[k] = v
	}
	out := cfg.Clone()
	out[KeyParams] = merged
	return out, nil
}
