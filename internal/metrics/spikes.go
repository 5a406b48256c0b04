package metrics

import "github.com/san-kum/simrun/internal/dynamo"

// Spikes counts upward crossings of Threshold by one state component.
type Spikes struct {
	Index     int
	Threshold float64
	count     int
	above     bool
	seen      bool
}

func NewSpikes(index int, threshold float64) *Spikes {
	return &Spikes{Index: index, Threshold: threshold}
}

func (s *Spikes) Name() string { return "spikes" }

func (s *Spikes) Observe(step int, t float64, x dynamo.State) {
	if s.Index >= len(x) {
		return
	}
	above := x[s.Index] > s.Threshold
	if s.seen && above && !s.above {
		s.count++
	}
	s.above = above
	s.seen = true
}

func (s *Spikes) Value() float64 { return float64(s.count) }

func (s *Spikes) Reset() {
	s.count = 0
	s.above = false
	s.seen = false
}
