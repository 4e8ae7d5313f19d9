package sentiment

import "strings"

// Small finance lexicon. Scoring is intentionally crude: it counts hits and
// normalizes, which is enough for a directional tilt.
var bullishWords = map[string]struct{}{
	"beat": {}, "beats": {}, "bullish": {}, "buy": {}, "buyback": {},
	"gain": {}, "gains": {}, "growth": {}, "outperform": {}, "profit": {},
	"rally": {}, "record": {}, "soar": {}, "soars": {}, "strong": {},
	"surge": {}, "surges": {}, "upgrade": {}, "upgraded": {}, "upside": {},
}

var bearishWords = map[string]struct{}{
	"bankruptcy": {}, "bearish": {}, "crash": {}, "cut": {}, "decline": {},
	"downgrade": {}, "downgraded": {}, "drop": {}, "drops": {}, "fall": {},
	"falls": {}, "fraud": {}, "lawsuit": {}, "loss": {}, "losses": {},
	"miss": {}, "misses": {}, "plunge": {}, "plunges": {}, "recall": {},
	"sell": {}, "selloff": {}, "weak": {}, "warning": {},
}

// scoreText returns a score in [-1, 1] and whether any lexicon word matched.
func scoreText(text string) (float64, bool) {
	var pos, neg int
	for _, tok := range strings.Fields(strings.ToLower(text)) {
		tok = strings.Trim(tok, ".,!?;:()[]\"'")
		if _, ok := bullishWords[tok]; ok {
			pos++
			continue
		}
		if _, ok := bearishWords[tok]; ok {
			neg++
		}
	}
	total := pos + neg
	if total == 0 {
		return 0, false
	}
	return float64(pos-neg) / float64(total), true
}
