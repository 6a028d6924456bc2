package scoring

import "math"

// Evaluate combines the factors under the given weights and squashes the
// result through a sigmoid. The output always lies in the open interval
// (0,1). Pure and deterministic: no hidden state, no randomness.
func Evaluate(f Factors, w Weights) float64 {
	linear := w.Role*f.Role +
		w.Purpose*f.Purpose +
		w.Sensitivity*f.Sensitivity +
		w.Compliance*f.Compliance +
		w.Frequency*f.Frequency +
		w.Violation*f.Violation +
		w.Bias
	return sigmoid(w.Gain * linear)
}

func sigmoid(x float64) float64 {
	return 1.0 / (1.0 + math.Exp(-x))
}

// Score evaluates the model's current weight snapshot against the factors.
func (m *Model) Score(f Factors) float64 {
	return Evaluate(f, m.Snapshot())
}

// Explanation breaks a score down into per-factor contributions so operators
// can see why a level was chosen without touching the underlying value.
type Explanation struct {
	Factors       Factors
	Contributions Factors
	Linear        float64
	Score         float64
}

// Explain returns the weighted contribution of each factor to the score.
func (m *Model) Explain(f Factors) Explanation {
	w := m.Snapshot()
	contributions := Factors{
		Role:        w.Role * f.Role,
		Purpose:     w.Purpose * f.Purpose,
		Sensitivity: w.Sensitivity * f.Sensitivity,
		Compliance:  w.Compliance * f.Compliance,
		Frequency:   w.Frequency * f.Frequency,
		Violation:   w.Violation * f.Violation,
	}
	linear := contributions.Role + contributions.Purpose + contributions.Sensitivity +
		contributions.Compliance + contributions.Frequency + contributions.Violation + w.Bias
	return Explanation{
		Factors:       f,
		Contributions: contributions,
		Linear:        linear,
		Score:         sigmoid(w.Gain * linear),
	}
}
