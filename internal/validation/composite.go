package validation

// DefaultWeight applies to requirements configured without a weight.
const DefaultWeight = 1.0

// Score is the weighted fraction of applicable requirements that passed.
// Skipped verdicts are left out; errors count as failures. With nothing
// applicable the score is 1.
func Score(verdicts []Verdict) float64 {
	var total, passed float64
	for _, v := range verdicts {
		if v.Status == StatusSkipped {
			continue
		}
		w := v.Weight
		if w == 0 {
			w = DefaultWeight
		}
		total += w
		if v.Status == StatusPass {
			passed += w
		}
	}
	if total == 0 {
		return 1
	}
	return passed / total
}
