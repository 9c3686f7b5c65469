package bot

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	tele "gopkg.in/telebot.v3"

	"marketfeed/internal/domain"
	"marketfeed/internal/quota"
)

// TickResolver is the resolver slice the bot commands need.
type TickResolver interface {
	Resolve(ctx context.Context, instruments []string, venueOrder []domain.VenueName) domain.ResolutionResult
}

// MarketClient is the market data slice the bot commands need.
type MarketClient interface {
	Trending(ctx context.Context) (*quota.TrendingResult, error)
	GlobalMetrics(ctx context.Context) (*quota.GlobalMetrics, error)
}

// IntelRunner produces a chat intelligence report on demand.
type IntelRunner interface {
	Run(ctx context.Context) (*domain.IntelReport, error)
}

// StartTelegramBot launches the command bot when TELEGRAM_BOT_TOKEN is
// set; without the token the service runs without a bot.
func StartTelegramBot(resolver TickResolver, market MarketClient, intel IntelRunner) {
	token := os.Getenv("TELEGRAM_BOT_TOKEN")
	if token == "" {
		log.Println("TELEGRAM_BOT_TOKEN not set, skipping Telegram bot startup")
		return
	}
	pref := tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	}
	b, err := tele.NewBot(pref)
	if err != nil {
		log.Fatalf("failed to create Telegram bot: %v", err)
	}

	b.Handle("/ping", func(c tele.Context) error {
		return c.Send("pong")
	})

	b.Handle("/price", func(c tele.Context) error {
		args := c.Args()
		if len(args) == 0 {
			return c.Send("Usage: /price BTC-USD")
		}
		instrument := strings.ToUpper(args[0])
		return c.Send(formatTick(resolver.Resolve(context.Background(), []string{instrument}, nil)))
	})

	b.Handle("/trending", func(c tele.Context) error {
		result, err := market.Trending(context.Background())
		if result == nil && err != nil {
			return c.Send(fmt.Sprintf("Error fetching trending: %v", err))
		}
		return c.Send(formatTrending(result, err))
	})

	b.Handle("/global", func(c tele.Context) error {
		metrics, err := market.GlobalMetrics(context.Background())
		if metrics == nil && err != nil {
			return c.Send(fmt.Sprintf("Error fetching global metrics: %v", err))
		}
		return c.Send(formatGlobal(metrics, err))
	})

	b.Handle("/intel", func(c tele.Context) error {
		report, err := intel.Run(context.Background())
		if err != nil {
			return c.Send(fmt.Sprintf("Error running intel report: %v", err))
		}
		return c.Send(formatIntel(report))
	})

	log.Println("Telegram bot started")
	go b.Start()
}

func formatTick(result domain.ResolutionResult) string {
	if len(result.Ticks) == 0 {
		lines := []string{"No venue could resolve that instrument:"}
		for i := range result.Errors {
			lines = append(lines, "• "+result.Errors[i].Error())
		}
		return strings.Join(lines, "\n")
	}

	tick := result.Ticks[0]
	msg := fmt.Sprintf("%s\nPrice: $%.2f\nSource: %s", tick.Instrument, tick.Price, tick.Source)
	if tick.DayChangePct != nil {
		msg += fmt.Sprintf("\n24h Change: %.2f%%", *tick.DayChangePct)
	}
	if tick.Volume24h != nil {
		msg += fmt.Sprintf("\n24h Volume: $%.0f", *tick.Volume24h)
	}
	return msg
}

func formatTrending(result *quota.TrendingResult, err error) string {
	var b strings.Builder
	if err != nil {
		b.WriteString("(stale — daily credit cap reached)\n")
	}
	b.WriteString("Top gainers:")
	for _, m := range result.Gainers {
		fmt.Fprintf(&b, "\n• %s %+.2f%%", m.Symbol, m.Change24hPct)
	}
	b.WriteString("\nTop losers:")
	for _, m := range result.Losers {
		fmt.Fprintf(&b, "\n• %s %+.2f%%", m.Symbol, m.Change24hPct)
	}
	return b.String()
}

func formatIntel(report *domain.IntelReport) string {
	s := report.Summary
	var b strings.Builder
	fmt.Fprintf(&b, "NFT transactions: %d (volume %.2f)\n", s.TxCount, s.TotalVolume)
	fmt.Fprintf(&b, "Sentiment: %d bullish / %d bearish / %d neutral",
		s.SentimentCounts.Bullish, s.SentimentCounts.Bearish, s.SentimentCounts.Neutral)
	if len(s.TopTokens) > 0 {
		b.WriteString("\nTop tokens:")
		for _, tc := range s.TopTokens {
			fmt.Fprintf(&b, "\n• $%s (%d)", tc.Symbol, tc.Count)
		}
	}
	if len(report.Errors) > 0 {
		fmt.Fprintf(&b, "\n%d channel(s) failed", len(report.Errors))
	}
	return b.String()
}

func formatGlobal(metrics *quota.GlobalMetrics, err error) string {
	msg := fmt.Sprintf(
		"Market cap: $%.0f\n24h Volume: $%.0f\nBTC dominance: %.1f%%",
		metrics.TotalMarketCapUSD, metrics.TotalVolume24hUSD, metrics.BTCDominance,
	)
	if err != nil {
		msg = "(stale — daily credit cap reached)\n" + msg
	}
	return msg
}
