package experiment

import (
	"fmt"
	"sort"

	"github.com/san-kum/simrun/internal/lifecycle"
	"github.com/san-kum/simrun/internal/models"
)

type Registry struct {
	sims map[string]func() lifecycle.Simulation
}

func NewRegistry() *Registry {
	r := &Registry{
		sims: make(map[string]func() lifecycle.Simulation),
	}

	r.Register("fhn", func() lifecycle.Simulation { return models.NewFHN() })
	r.Register("pendulum", func() lifecycle.Simulation { return models.NewPendulum() })

	return r
}

func (r *Registry) Register(name string, fn func() lifecycle.Simulation) {
	r.sims[name] = fn
}

func (r *Registry) Get(name string) (lifecycle.Simulation, error) {
	fn, ok := r.sims[name]
	if !ok {
		return nil, fmt.Errorf("unknown simulation: %s (available: %v)", name, r.List())
	}
	return fn(), nil
}

func (r *Registry) List() []string {
	names := make([]string, 0, len(r.sims))
	for name := range r.sims {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
