package analytics

import "math"

// WilsonInterval returns the Wilson score interval for conversions per
// entry. A variant can convert more often than it is entered (contact
// forms are reachable without a hero click), so successes are capped at
// trials.
func WilsonInterval(successes, trials int, confidence float64) (lower, upper float64) {
	if trials <= 0 {
		return 0, 0
	}
	if successes > trials {
		successes = trials
	}

	z := ZScore(confidence)
	p := float64(successes) / float64(trials)
	n := float64(trials)

	denominator := 1 + z*z/n
	center := (p + z*z/(2*n)) / denominator
	spread := (z / denominator) * math.Sqrt(p*(1-p)/n+z*z/(4*n*n))

	return math.Max(0, center-spread), math.Min(1, center+spread)
}

// ZScore returns the two-sided z value for the common confidence levels.
func ZScore(confidence float64) float64 {
	switch {
	case confidence >= 0.99:
		return 2.576
	case confidence >= 0.95:
		return 1.96
	case confidence >= 0.90:
		return 1.645
	case confidence >= 0.80:
		return 1.28
	default:
		return 1.0
	}
}

// SignificanceTest is a two-proportion z-test. It returns the confidence
// (0-1) that arm A converts better than arm B, or 0.5 when either arm has no
// entries.
func SignificanceTest(aConv, aEntries, bConv, bEntries int) float64 {
	if aEntries <= 0 || bEntries <= 0 {
		return 0.5
	}
	aConv = min(aConv, aEntries)
	bConv = min(bConv, bEntries)

	pA := float64(aConv) / float64(aEntries)
	pB := float64(bConv) / float64(bEntries)
	pooled := float64(aConv+bConv) / float64(aEntries+bEntries)

	se := math.Sqrt(pooled * (1 - pooled) * (1/float64(aEntries) + 1/float64(bEntries)))
	if se == 0 {
		switch {
		case pA > pB:
			return 1
		case pA < pB:
			return 0
		}
		return 0.5
	}

	return normalCDF((pA - pB) / se)
}

func normalCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}
