// Package metrics accumulates scalar summaries while a trajectory is
// integrated.
package metrics

import "github.com/san-kum/simrun/internal/dynamo"

type Metric interface {
	Name() string
	Observe(step int, t float64, x dynamo.State)
	Value() float64
	Reset()
}

// Observer adapts metrics for dynamo.Integrate.
func Observer(ms ...Metric) dynamo.Observer {
	return func(step int, t float64, x dynamo.State) {
		for _, m := range ms {
			m.Observe(step, t, x)
		}
	}
}

// Values collects the current value of each metric by name.
func Values(ms ...Metric) map[string]float64 {
	out := make(map[string]float64, len(ms))
	for _, m := range ms {
		out[m.Name()] = m.Value()
	}
	return out
}
