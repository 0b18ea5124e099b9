package solver

import (
	"fmt"
	"math"

	"github.com/standardgalactic/neural-mesh/camera"
)

// Prediction is the solved pose for one feature map. Pose is nil, Score −Inf and
// CandidateIndex −1 when no candidate had a visible vertex.
type Prediction struct {
	Pose *camera.Pose
	// Score is the bilinear refinement objective at Pose. Without a refiner it is the
	// coarse score.
	Score float64
	// CoarseScore is the nearest pixel score of the winning candidate.
	CoarseScore    float64
	CandidateIndex int
	Iterations     int
}

func noPrediction() *Prediction {
	return &Prediction{Score: math.Inf(-1), CoarseScore: math.Inf(-1), CandidateIndex: -1}
}

// Found reports whether a pose was predicted.
func (p *Prediction) Found() bool {
	return p.Pose != nil
}

func (p *Prediction) String() string {
	if p.Pose == nil {
		return "no prediction"
	}
	return fmt.Sprintf("candidate %d %v score %.4f (coarse %.4f)", p.CandidateIndex, *p.Pose, p.Score, p.CoarseScore)
}
