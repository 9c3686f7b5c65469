package intel

import (
	"strings"

	"marketfeed/internal/domain"
)

// Sentiment terms are matched by substring against the lowercased text,
// each term counting at most once. Emoji count like any other term.
var bullishTerms = []string{
	"bull", "moon", "pump", "breakout", "breaking", "surge", "rally",
	"ath", "accumulate", "uptrend", "recover", "undervalued", "buying",
	"🚀", "📈", "💎",
}

var bearishTerms = []string{
	"bear", "dump", "crash", "rug", "scam", "selling", "sell-off",
	"hack", "lawsuit", "ban", "decline", "downtrend", "liquidation",
	"capitulat", "overvalued", "📉",
}

// classifySentiment scores text by net count of matched lexicon terms.
// Ties and zero matches resolve to neutral; price data never feeds in.
func classifySentiment(text string) domain.Sentiment {
	lower := strings.ToLower(text)
	net := countMatches(lower, bullishTerms) - countMatches(lower, bearishTerms)
	switch {
	case net > 0:
		return domain.SentimentBullish
	case net < 0:
		return domain.SentimentBearish
	default:
		return domain.SentimentNeutral
	}
}

func countMatches(text string, terms []string) int {
	count := 0
	for _, term := range terms {
		if strings.Contains(text, term) {
			count++
		}
	}
	return count
}
