package solver

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/standardgalactic/neural-mesh/features"
	"github.com/standardgalactic/neural-mesh/render"
)

type sampling int

const (
	sampleNearest sampling = iota
	sampleBilinear
)

// scorer correlates one feature map against the bank. buf is scratch space for bilinear
// samples, so a scorer must not be shared between goroutines.
type scorer struct {
	fm      *features.Map
	bank    *features.Bank
	cfg     Config
	mode    sampling
	buf     []float64
	clutter bool
}

func newScorer(fm *features.Map, bank *features.Bank, cfg Config, mode sampling) *scorer {
	return &scorer{
		fm:      fm,
		bank:    bank,
		cfg:     cfg,
		mode:    mode,
		buf:     make([]float64, fm.Channels()),
		clutter: cfg.ClutterWeight != 0,
	}
}

// score returns the aggregated similarity of the visible vertices of proj. Invisible
// vertices contribute nothing. A projection with no visible vertex scores −Inf.
func (s *scorer) score(proj *render.Projection) float64 {
	var sum float64
	visible := 0
	for i, vis := range proj.Visible {
		if !vis {
			continue
		}
		visible++
		c := proj.Coords[i]
		var f []float64
		if s.mode == sampleBilinear {
			f = s.fm.Bilinear(c.Row, c.Col, s.buf)
		} else {
			f = s.fm.Nearest(c.Row, c.Col)
		}
		v := floats.Dot(f, s.bank.Vertex(i))
		if s.clutter {
			v -= s.cfg.ClutterWeight * floats.Dot(f, s.bank.Clutter())
		}
		sum += proj.Weights[i] * v
	}
	if visible == 0 {
		return math.Inf(-1)
	}
	if s.cfg.Aggregation == AggregateMean {
		return sum / float64(visible)
	}
	return sum
}
