package solver

import (
	"context"
	"math"

	"github.com/standardgalactic/neural-mesh/features"
	"github.com/standardgalactic/neural-mesh/utils"
)

// Coarse scores every candidate of the library against fm and returns the scores in
// candidate order with the index of the best one. Invalid candidates score −Inf. Ties go to
// the lowest index. best is −1 when no candidate has a finite score.
func (s *Solver) Coarse(ctx context.Context, fm *features.Map) ([]float64, int, error) {
	if err := s.checkMap(fm); err != nil {
		return nil, -1, err
	}
	scores := make([]float64, s.library.Len())
	err := utils.GroupWorkParallel(
		ctx,
		len(scores),
		nil,
		func(groupNum, groupSize, from, to int) (utils.MemberWorkFunc, utils.GroupWorkDoneFunc) {
			sc := newScorer(fm, s.bank, s.cfg, sampleNearest)
			return func(memberNum, workNum int) {
				cand := s.library.At(workNum)
				if !cand.Valid() {
					scores[workNum] = math.Inf(-1)
					return
				}
				scores[workNum] = sc.score(cand.Projection)
			}, nil
		},
	)
	if err != nil {
		return nil, -1, err
	}

	best := -1
	bestScore := math.Inf(-1)
	for i, v := range scores {
		if v > bestScore {
			best, bestScore = i, v
		}
	}
	return scores, best, nil
}
