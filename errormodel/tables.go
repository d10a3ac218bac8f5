package errormodel

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// MaxQuality is the highest Phred quality the tables are indexed for. SAM
// qualities above this are clamped in Lookup.
const MaxQuality = 93

// LLCorrect[q] is ln(P(observed base is correct)) for Phred quality q.
var LLCorrect [MaxQuality + 1]float64

// LLWrong[q] is ln(P(observed base is a particular one of the three
// alternatives)) for Phred quality q, under a uniform error spread.
var LLWrong [MaxQuality + 1]float64

// LLN is ln(P(base)) when the observation itself is N: all four bases are
// equally supported.
var LLN = -math.Log(4)

var ln3 = math.Log(3)

func init() {
	for q := 1; q <= MaxQuality; q++ {
		errProb := math.Pow(10, -float64(q)/10)
		LLCorrect[q] = math.Log(1 - errProb)
		LLWrong[q] = -(float64(q)*math.Ln10)/10 - ln3
	}
}

// Lookup clamps q into [1, MaxQuality] and returns the (correct, wrong)
// log-likelihood pair for that quality. A quality of 0 is treated as 1,
// since the tables carry no entry for q=0 (a base with zero confidence
// contributes no information either way in the original model).
func Lookup(q int) (correct, wrong float64) {
	if q < 1 {
		q = 1
	} else if q > MaxQuality {
		q = MaxQuality
	}
	return LLCorrect[q], LLWrong[q]
}

// Posterior takes the four per-base accumulated log-likelihoods for one
// column (in A, T, C, G order) and returns the index of the maximum, the
// log-normalizer (log-sum-exp of the four components), and the posterior
// probability of the maximum, exp(max-normalizer).
func Posterior(s [4]float64) (argmax int, logNormalizer, posteriorMax float64) {
	argmax = 0
	m := s[0]
	for c := 1; c < 4; c++ {
		if s[c] > m {
			m = s[c]
			argmax = c
		}
	}
	logNormalizer = floats.LogSumExp(s[:])
	posteriorMax = math.Exp(m - logNormalizer)
	return argmax, logNormalizer, posteriorMax
}
