package config

import (
	"log"
	"os"
	"strconv"
	"strings"
)

type Config struct {
	TelegramBotToken string
	DatabaseURL      string
	RedisURL         string
	APIKey           string

	OrderlyBaseURL      string
	DexScreenerBaseURL  string
	CoinDeskBaseURL     string
	ResolverConcurrency int
	VenueTimeoutSecs    int
	Instruments         []string

	CMCBaseURL        string
	CMCAPIKey         string
	CMCDailyCreditCap int

	ChatBotToken      string
	NFTChannels       []string
	CommunityChannels []string

	TickRefreshSecs    int
	MarketRefreshSecs  int
	HighValueThreshold float64
	IntelTopN          int
}

func Load() *Config {
	cfg := &Config{
		TelegramBotToken: os.Getenv("TELEGRAM_BOT_TOKEN"),
		DatabaseURL:      os.Getenv("DATABASE_URL"),
		RedisURL:         os.Getenv("REDIS_URL"),
		APIKey:           os.Getenv("API_KEY"),
		CMCAPIKey:        os.Getenv("CMC_API_KEY"),
		ChatBotToken:     os.Getenv("CHAT_BOT_TOKEN"),
	}

	if cfg.TelegramBotToken == "" {
		log.Println("Warning: TELEGRAM_BOT_TOKEN not set")
	}
	if cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_URL not set")
	}
	if cfg.RedisURL == "" {
		log.Println("Warning: REDIS_URL not set, defaulting to localhost:6379")
		cfg.RedisURL = "localhost:6379"
	}
	if cfg.CMCAPIKey == "" {
		log.Println("Warning: CMC_API_KEY not set, market data calls will be rejected upstream")
	}
	if cfg.ChatBotToken == "" {
		log.Println("Warning: CHAT_BOT_TOKEN not set, chat intelligence will be disabled")
	}

	cfg.OrderlyBaseURL = strings.TrimSpace(os.Getenv("ORDERLY_BASE_URL"))
	if cfg.OrderlyBaseURL == "" {
		cfg.OrderlyBaseURL = "https://api.orderly.org"
	}

	cfg.DexScreenerBaseURL = strings.TrimSpace(os.Getenv("DEXSCREENER_BASE_URL"))
	if cfg.DexScreenerBaseURL == "" {
		cfg.DexScreenerBaseURL = "https://api.dexscreener.com"
	}

	cfg.CoinDeskBaseURL = strings.TrimSpace(os.Getenv("COINDESK_BASE_URL"))
	if cfg.CoinDeskBaseURL == "" {
		cfg.CoinDeskBaseURL = "https://data-api.coindesk.com"
	}

	cfg.CMCBaseURL = strings.TrimSpace(os.Getenv("CMC_BASE_URL"))
	if cfg.CMCBaseURL == "" {
		cfg.CMCBaseURL = "https://pro-api.coinmarketcap.com"
	}

	cfg.ResolverConcurrency = 6
	if v := strings.TrimSpace(os.Getenv("RESOLVER_CONCURRENCY")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 4 && n <= 8 {
			cfg.ResolverConcurrency = n
		} else {
			log.Printf("Warning: RESOLVER_CONCURRENCY=%q out of range [4,8], using 6", v)
		}
	}

	cfg.VenueTimeoutSecs = 8
	if v := strings.TrimSpace(os.Getenv("VENUE_TIMEOUT_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 5 && n <= 10 {
			cfg.VenueTimeoutSecs = n
		} else {
			log.Printf("Warning: VENUE_TIMEOUT_SECS=%q out of range [5,10], using 8", v)
		}
	}

	cfg.Instruments = splitList(os.Getenv("INSTRUMENTS"))
	if len(cfg.Instruments) == 0 {
		cfg.Instruments = []string{"BTC-USD", "ETH-USD", "SOL-USD"}
	}

	cfg.CMCDailyCreditCap = 333
	if v := strings.TrimSpace(os.Getenv("CMC_DAILY_CREDIT_CAP")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.CMCDailyCreditCap = n
		}
	}

	cfg.NFTChannels = splitList(os.Getenv("NFT_CHANNELS"))
	cfg.CommunityChannels = splitList(os.Getenv("COMMUNITY_CHANNELS"))

	cfg.TickRefreshSecs = 60
	if v := strings.TrimSpace(os.Getenv("TICK_REFRESH_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.TickRefreshSecs = n
		}
	}

	cfg.MarketRefreshSecs = 900
	if v := strings.TrimSpace(os.Getenv("MARKET_REFRESH_SECS")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.MarketRefreshSecs = n
		}
	}

	cfg.HighValueThreshold = 10
	if v := strings.TrimSpace(os.Getenv("HIGH_VALUE_THRESHOLD")); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil && n > 0 {
			cfg.HighValueThreshold = n
		}
	}

	cfg.IntelTopN = 5
	if v := strings.TrimSpace(os.Getenv("INTEL_TOP_N")); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.IntelTopN = n
		}
	}

	return cfg
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
