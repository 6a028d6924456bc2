package masking

import (
	"crypto/rand"
	mathrand "math/rand/v2"
	"testing"

	"veil/internal/domain"
	"veil/internal/masking/paillier"
	"veil/internal/policy"

	"github.com/stretchr/testify/suite"
)

type MaskingSuite struct {
	suite.Suite
	key      *paillier.PrivateKey
	registry *Registry
}

func (s *MaskingSuite) SetupSuite() {
	key, err := paillier.NewTestKey(rand.Reader, 512)
	s.Require().NoError(err)
	s.key = key
}

func (s *MaskingSuite) SetupTest() {
	cfg := policy.Default()
	s.registry = NewRegistry(
		NewEncoder(&s.key.PublicKey),
		NewGeneralizer(DefaultGeneralizeRules()),
		NewPerturber(DefaultPerturbConfig(cfg.EpsilonFor), mathrand.NewPCG(1, 2)),
	)
}

func TestMaskingSuite(t *testing.T) {
	suite.Run(t, new(MaskingSuite))
}

func (s *MaskingSuite) TestForLevelCoversEveryLevel() {
	s.Equal(StrategyReveal, ForLevel(domain.LevelReveal))
	s.Equal(StrategyEncode, ForLevel(domain.LevelEncode))
	s.Equal(StrategyGeneralize, ForLevel(domain.LevelBucket))
	s.Equal(StrategyPerturb, ForLevel(domain.LevelPerturb))
	s.Equal(StrategySuppress, ForLevel(domain.LevelSuppress))
}

func (s *MaskingSuite) TestReveal() {
	attr := domain.TextAttribute(domain.EntityEmail, domain.SensitivityLow, "dana@example.org")

	masked, err := s.registry.Apply(StrategyReveal, attr)

	s.Require().NoError(err)
	s.Equal("dana@example.org", masked.Text)
	s.Equal("dana@example.org", attr.Text)
}

func (s *MaskingSuite) TestEncode() {
	s.Run("round-trips through the decrypter", func() {
		attr := domain.NumericAttribute(domain.EntitySalary, domain.SensitivityHigh, 52340.75)

		masked, err := s.registry.Apply(StrategyEncode, attr)
		s.Require().NoError(err)
		s.NotEmpty(masked.Ciphertext)
		s.Equal(s.key.Fingerprint(), masked.KeyID)

		value, err := NewDecrypter(s.key).Decrypt(masked.Ciphertext)
		s.Require().NoError(err)
		s.InDelta(52340.75, value, 0.01)
	})

	s.Run("handles negative values", func() {
		attr := domain.NumericAttribute(domain.EntitySalary, domain.SensitivityHigh, -120.5)

		masked, err := s.registry.Apply(StrategyEncode, attr)
		s.Require().NoError(err)

		value, err := NewDecrypter(s.key).Decrypt(masked.Ciphertext)
		s.Require().NoError(err)
		s.InDelta(-120.5, value, 0.01)
	})

	s.Run("ciphertext sums decrypt to plaintext sums", func() {
		encoder := NewEncoder(&s.key.PublicKey)

		first, err := encoder.Apply(domain.NumericAttribute(domain.EntitySalary, domain.SensitivityHigh, 100))
		s.Require().NoError(err)
		second, err := encoder.Apply(domain.NumericAttribute(domain.EntitySalary, domain.SensitivityHigh, 250.25))
		s.Require().NoError(err)

		sum, err := encoder.AddCiphertexts(first.Ciphertext, second.Ciphertext)
		s.Require().NoError(err)

		value, err := NewDecrypter(s.key).Decrypt(sum)
		s.Require().NoError(err)
		s.InDelta(350.25, value, 0.01)
	})

	s.Run("rejects textual attributes", func() {
		attr := domain.TextAttribute(domain.EntityName, domain.SensitivityHigh, "Dana")

		_, err := s.registry.Apply(StrategyEncode, attr)

		var mismatch *domain.TypeMismatchError
		s.Require().ErrorAs(err, &mismatch)
		s.Equal("encode", mismatch.Strategy)
	})
}

func (s *MaskingSuite) TestGeneralize() {
	cases := []struct {
		name string
		attr domain.Attribute
		want string
	}{
		{"age into its decade", domain.NumericAttribute(domain.EntityAge, domain.SensitivityMedium, 37), "30-39"},
		{"age on a band edge", domain.NumericAttribute(domain.EntityAge, domain.SensitivityMedium, 40), "40-49"},
		{"salary into its band", domain.NumericAttribute(domain.EntitySalary, domain.SensitivityHigh, 52340), "50000-54999"},
		{"phone keeps its prefix", domain.TextAttribute(domain.EntityPhone, domain.SensitivityMedium, "0612345678"), "0612******"},
		{"name keeps one character", domain.TextAttribute(domain.EntityName, domain.SensitivityMedium, "Dana"), "D***"},
		{"email keeps its domain", domain.TextAttribute(domain.EntityEmail, domain.SensitivityMedium, "dana@example.org"), "da**@example.org"},
		{"too-short value is fully masked", domain.TextAttribute(domain.EntityName, domain.SensitivityMedium, "D"), "*"},
	}

	for _, tc := range cases {
		s.Run(tc.name, func() {
			masked, err := s.registry.Apply(StrategyGeneralize, tc.attr)
			s.Require().NoError(err)
			s.Equal(tc.want, masked.Text)
		})
	}
}

func (s *MaskingSuite) TestPerturb() {
	s.Run("noise is zero-centered over many draws", func() {
		cfg := DefaultPerturbConfig(policy.Default().EpsilonFor)
		perturber := NewPerturber(cfg, mathrand.NewPCG(7, 11))

		const trueAge = 64.0
		var sum float64
		const samples = 10000
		for range samples {
			masked, err := perturber.Apply(domain.NumericAttribute(domain.EntityAge, domain.SensitivityMedium, trueAge))
			s.Require().NoError(err)
			sum += masked.Number
		}

		// Laplace scale for age is 1/0.5 = 2; the sample mean of 10k draws
		// stays well within a few standard errors of the true value.
		s.InDelta(trueAge, sum/samples, 0.2)
	})

	s.Run("clamps to natural bounds and flags it", func() {
		cfg := DefaultPerturbConfig(policy.Default().EpsilonFor)
		perturber := NewPerturber(cfg, mathrand.NewPCG(3, 5))

		sawClamp := false
		for range 1000 {
			masked, err := perturber.Apply(domain.NumericAttribute(domain.EntityAge, domain.SensitivityMedium, 0.5))
			s.Require().NoError(err)
			s.GreaterOrEqual(masked.Number, 0.0)
			if masked.Clamped {
				sawClamp = true
			}
		}
		s.True(sawClamp)
	})

	s.Run("rejects textual attributes", func() {
		_, err := s.registry.Apply(StrategyPerturb, domain.TextAttribute(domain.EntityName, domain.SensitivityMedium, "Dana"))

		var mismatch *domain.TypeMismatchError
		s.ErrorAs(err, &mismatch)
	})
}

func (s *MaskingSuite) TestSuppress() {
	attr := domain.TextAttribute(domain.EntityIdentityNumber, domain.SensitivityCritical, "199012233456")

	masked, err := s.registry.Apply(StrategySuppress, attr)
	s.Require().NoError(err)
	s.Equal("[IDENTITY_NUMBER]", masked.Text)

	// Idempotent: suppressing the sentinel yields the sentinel again.
	again := Suppress(domain.TextAttribute(domain.EntityIdentityNumber, domain.SensitivityCritical, masked.Text))
	s.Equal(masked.Text, again.Text)
}
