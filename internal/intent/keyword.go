package intent

import "strings"

const (
	maxKeywordConfidence = 0.8
	perHitConfidence     = 0.3
	noMatchConfidence    = 0.1
)

// KeywordClassifier is the cheap deterministic first stage. Classification is
// a pure function of the message text.
type KeywordClassifier struct{}

// Classify scores the case-folded message by keyword hits per intent. The
// intent with the most hits wins; ties go to the first-declared intent.
// Confidence is min(0.8, hits*0.3) with a 0.1 floor for no hits.
func (KeywordClassifier) Classify(message string) (Intent, float64) {
	folded := strings.ToLower(strings.TrimSpace(message))
	if folded == "" {
		return Other, noMatchConfidence
	}

	best := Other
	bestHits := 0
	for _, candidate := range declarationOrder {
		hits := 0
		for _, kw := range keywords[candidate] {
			if strings.Contains(folded, kw) {
				hits++
			}
		}
		if hits > bestHits {
			best = candidate
			bestHits = hits
		}
	}

	if bestHits == 0 {
		return Other, noMatchConfidence
	}

	confidence := float64(bestHits) * perHitConfidence
	if confidence > maxKeywordConfidence {
		confidence = maxKeywordConfidence
	}
	return best, confidence
}
