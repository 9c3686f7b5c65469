package intel

import (
	"reflect"
	"testing"

	"marketfeed/internal/domain"
)

func fprice(v float64) *float64 { return &v }

func sampleBatch() ([]domain.NFTTransaction, []domain.CommunityPost) {
	txs := []domain.NFTTransaction{
		{Type: domain.TxSale, Collection: "Apes", Price: fprice(12.5), Currency: "ETH"},
		{Type: domain.TxTransfer, Collection: "Cats"},
		{Type: domain.TxSale, Collection: "Punks", Price: fprice(80), Currency: "ETH"},
		{Type: domain.TxMint, Collection: "Birds", Price: fprice(0.25), Currency: "ETH"},
	}
	posts := []domain.CommunityPost{
		{Sentiment: domain.SentimentBullish, TokensMentioned: []string{"BTC", "ETH"}, Keywords: []string{"defi"}},
		{Sentiment: domain.SentimentBullish, TokensMentioned: []string{"BTC"}, Keywords: []string{"defi", "nft"}},
		{Sentiment: domain.SentimentBearish, TokensMentioned: []string{"SOL"}},
		{Sentiment: domain.SentimentNeutral},
	}
	return txs, posts
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	txs, posts := sampleBatch()
	summary := NewAggregator(5).Summarize(txs, posts, 10)

	if summary.TxCount != 4 {
		t.Fatalf("expected txCount 4, got %d", summary.TxCount)
	}
	if summary.TotalVolume != 92.75 {
		t.Fatalf("expected totalVolume 92.75, got %v", summary.TotalVolume)
	}
	want := domain.SentimentCounts{Bullish: 2, Bearish: 1, Neutral: 1}
	if summary.SentimentCounts != want {
		t.Fatalf("unexpected sentiment counts: %+v", summary.SentimentCounts)
	}

	// High-value transactions keep the input order.
	if len(summary.HighValueTx) != 2 {
		t.Fatalf("expected 2 high-value txs, got %d", len(summary.HighValueTx))
	}
	if summary.HighValueTx[0].Collection != "Apes" || summary.HighValueTx[1].Collection != "Punks" {
		t.Fatalf("high-value order broken: %s, %s",
			summary.HighValueTx[0].Collection, summary.HighValueTx[1].Collection)
	}

	wantTokens := []domain.TokenCount{{Symbol: "BTC", Count: 2}, {Symbol: "ETH", Count: 1}, {Symbol: "SOL", Count: 1}}
	if !reflect.DeepEqual(summary.TopTokens, wantTokens) {
		t.Fatalf("unexpected top tokens: %+v", summary.TopTokens)
	}
	wantKeywords := []domain.KeywordCount{{Word: "defi", Count: 2}, {Word: "nft", Count: 1}}
	if !reflect.DeepEqual(summary.TrendingKeywords, wantKeywords) {
		t.Fatalf("unexpected keywords: %+v", summary.TrendingKeywords)
	}
}

func TestSummarizeDeterministic(t *testing.T) {
	t.Parallel()

	txs, posts := sampleBatch()
	agg := NewAggregator(5)
	first := agg.Summarize(txs, posts, 10)
	for i := 0; i < 20; i++ {
		if got := agg.Summarize(txs, posts, 10); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d diverged: %+v vs %+v", i, got, first)
		}
	}
}

func TestSummarizeTopN(t *testing.T) {
	t.Parallel()

	posts := []domain.CommunityPost{
		{TokensMentioned: []string{"AAA", "AAA", "BBB", "CCC", "DDD"}},
	}
	summary := NewAggregator(2).Summarize(nil, posts, 10)

	wantTokens := []domain.TokenCount{{Symbol: "AAA", Count: 2}, {Symbol: "BBB", Count: 1}}
	if !reflect.DeepEqual(summary.TopTokens, wantTokens) {
		t.Fatalf("unexpected top tokens: %+v", summary.TopTokens)
	}
}

func TestSummarizeEmpty(t *testing.T) {
	t.Parallel()

	summary := NewAggregator(0).Summarize(nil, nil, 10)
	if summary.TxCount != 0 || summary.TotalVolume != 0 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
	if summary.TopTokens != nil || summary.HighValueTx != nil {
		t.Fatalf("expected empty rankings: %+v", summary)
	}
}
