package scoring

import (
	"math"
	"testing"

	"veil/internal/domain"

	"github.com/stretchr/testify/suite"
)

type SelectorSuite struct {
	suite.Suite
}

func TestSelectorSuite(t *testing.T) {
	suite.Run(t, new(SelectorSuite))
}

func (s *SelectorSuite) TestBandBoundaries() {
	cases := []struct {
		name  string
		score float64
		want  domain.MaskingLevel
	}{
		{"top of range reveals", 1.0, domain.LevelReveal},
		{"reveal threshold is inclusive", 0.85, domain.LevelReveal},
		{"just under reveal encodes", 0.8499999, domain.LevelEncode},
		{"encode threshold is inclusive", 0.65, domain.LevelEncode},
		{"just under encode buckets", 0.6499999, domain.LevelBucket},
		{"bucket threshold is inclusive", 0.45, domain.LevelBucket},
		{"just under bucket perturbs", 0.4499999, domain.LevelPerturb},
		{"perturb threshold is inclusive", 0.25, domain.LevelPerturb},
		{"just under perturb suppresses", 0.2499999, domain.LevelSuppress},
		{"bottom of range suppresses", 0.0, domain.LevelSuppress},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			level, err := SelectLevel(tc.score)
			s.Require().NoError(err)
			s.Equal(tc.want, level)
		})
	}
}

func (s *SelectorSuite) TestTotality() {
	// Every in-range score maps to exactly one level; sweep a fine grid.
	for i := 0; i <= 10000; i++ {
		score := float64(i) / 10000
		level, err := SelectLevel(score)
		s.Require().NoError(err)
		s.GreaterOrEqual(level, domain.LevelReveal)
		s.LessOrEqual(level, domain.LevelSuppress)
	}
}

func (s *SelectorSuite) TestOutOfRange() {
	for _, score := range []float64{-0.0001, 1.0001, math.NaN(), math.Inf(1), math.Inf(-1)} {
		level, err := SelectLevel(score)

		var outOfRange *domain.ScoreOutOfRangeError
		s.Require().ErrorAs(err, &outOfRange)
		s.Equal(domain.LevelSuppress, level)
	}
}
