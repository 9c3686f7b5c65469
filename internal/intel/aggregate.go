package intel

import (
	"sort"

	"marketfeed/internal/domain"
)

const defaultTopN = 5

// Aggregator reduces an extracted batch into summary statistics. It is a
// pure function of its inputs: no clock, no randomness, no shared state.
type Aggregator struct {
	topN int
}

func NewAggregator(topN int) *Aggregator {
	if topN <= 0 {
		topN = defaultTopN
	}
	return &Aggregator{topN: topN}
}

func (a *Aggregator) Summarize(transactions []domain.NFTTransaction, posts []domain.CommunityPost, highValueThreshold float64) domain.IntelSummary {
	summary := domain.IntelSummary{TxCount: len(transactions)}

	for _, tx := range transactions {
		if tx.Price == nil {
			continue
		}
		summary.TotalVolume += *tx.Price
		if *tx.Price >= highValueThreshold {
			summary.HighValueTx = append(summary.HighValueTx, tx)
		}
	}

	tokenCounts := make(map[string]int)
	keywordCounts := make(map[string]int)
	for _, post := range posts {
		switch post.Sentiment {
		case domain.SentimentBullish:
			summary.SentimentCounts.Bullish++
		case domain.SentimentBearish:
			summary.SentimentCounts.Bearish++
		default:
			summary.SentimentCounts.Neutral++
		}
		for _, token := range post.TokensMentioned {
			tokenCounts[token]++
		}
		for _, keyword := range post.Keywords {
			keywordCounts[keyword]++
		}
	}

	for _, tc := range rankCounts(tokenCounts, a.topN) {
		summary.TopTokens = append(summary.TopTokens, domain.TokenCount(tc))
	}
	for _, kc := range rankCounts(keywordCounts, a.topN) {
		summary.TrendingKeywords = append(summary.TrendingKeywords, domain.KeywordCount{Word: kc.Symbol, Count: kc.Count})
	}

	return summary
}

type rankedCount struct {
	Symbol string
	Count  int
}

// rankCounts orders by descending count with an alphabetical tiebreak so
// equal inputs always produce equal output.
func rankCounts(counts map[string]int, topN int) []rankedCount {
	ranked := make([]rankedCount, 0, len(counts))
	for k, v := range counts {
		ranked = append(ranked, rankedCount{Symbol: k, Count: v})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].Symbol < ranked[j].Symbol
	})
	if len(ranked) > topN {
		ranked = ranked[:topN]
	}
	return ranked
}
