package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"marketfeed/internal/bot"
	"marketfeed/internal/cache"
	"marketfeed/internal/chat"
	"marketfeed/internal/config"
	"marketfeed/internal/db"
	"marketfeed/internal/domain"
	"marketfeed/internal/handler"
	"marketfeed/internal/intel"
	"marketfeed/internal/job"
	"marketfeed/internal/quota"
	"marketfeed/internal/repository"
	"marketfeed/internal/resolver"
	"marketfeed/internal/service"
	"marketfeed/internal/venue"
	"marketfeed/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/trace"

	_ "marketfeed/docs"
)

var (
	loadEnvFunc      = godotenv.Load
	loadConfigFunc   = config.Load
	initPostgresFunc = db.InitPostgres
	initRedisFunc    = cache.InitRedis
	initTracerFunc   = tracing.InitTracer
	newAdaptersFunc  = func(tracer trace.Tracer, cfg *config.Config) []resolver.VenueAdapter {
		return []resolver.VenueAdapter{
			venue.NewOrderlyAdapter(tracer, cfg.OrderlyBaseURL),
			venue.NewDexScreenerAdapter(tracer, cfg.DexScreenerBaseURL),
			venue.NewCoinDeskAdapter(tracer, cfg.CoinDeskBaseURL),
		}
	}
	newResolverFunc     = resolver.New
	newQuotaClientFunc  = quota.NewClient
	newIntelServiceFunc = func(tracer trace.Tracer, cfg *config.Config) *service.IntelService {
		channels := make([]service.Channel, 0, len(cfg.NFTChannels)+len(cfg.CommunityChannels))
		for _, id := range cfg.NFTChannels {
			channels = append(channels, service.Channel{ID: id, Kind: domain.ChannelKindNFT})
		}
		for _, id := range cfg.CommunityChannels {
			channels = append(channels, service.Channel{ID: id, Kind: domain.ChannelKindCommunity})
		}
		return service.NewIntelService(
			tracer,
			chat.NewClient(tracer, cfg.ChatBotToken),
			intel.NewExtractor(tracer),
			intel.NewAggregator(cfg.IntelTopN),
			channels,
			cfg.HighValueThreshold,
		)
	}
	newRefreshJobFunc      = job.NewRefreshJob
	startJobFunc           = func(j *job.RefreshJob, ctx context.Context) { go j.Start(ctx) }
	startTelegramBot       = bot.StartTelegramBot
	newHandlerFunc         = handler.New
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           Marketfeed API
// @version         1.0
// @description     Multi-venue market data and chat intelligence service.

// @host      localhost:8080
// @BasePath  /
func main() {
	loadEnvFunc()

	cfg := loadConfigFunc()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	initPostgresFunc(ctx, cfg.DatabaseURL)
	initRedisFunc(ctx, cfg.RedisURL)

	tp, tracer, err := initTracerFunc(ctx)
	if err != nil {
		log.Fatalf("failed to initialize tracer: %v", err)
	}
	defer func() {
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("error shutting down tracer provider: %v", err)
		}
	}()

	var store cache.Store
	if cache.Client != nil {
		store = cache.NewRedisStore(cache.Client)
	} else {
		store = cache.NewMemoryStore()
	}

	var ledger quota.Ledger
	var creditRepo *repository.CreditLedgerRepository
	if db.Pool != nil {
		creditRepo = repository.NewCreditLedgerRepository(db.Pool, tracer)
		if err := creditRepo.RunMigrations(ctx); err != nil {
			log.Fatalf("failed to run migrations: %v", err)
		}
		ledger = creditRepo
	}

	tickResolver := newResolverFunc(tracer, newAdaptersFunc(tracer, cfg), store, resolver.Config{
		Concurrency:  cfg.ResolverConcurrency,
		VenueTimeout: time.Duration(cfg.VenueTimeoutSecs) * time.Second,
	})

	marketClient := newQuotaClientFunc(tracer, store, ledger, cfg.CMCBaseURL, cfg.CMCAPIKey, cfg.CMCDailyCreditCap)

	intelService := newIntelServiceFunc(tracer, cfg)

	refresher := newRefreshJobFunc(tracer, tickResolver, marketClient, cfg.Instruments, cfg.TickRefreshSecs, cfg.MarketRefreshSecs)
	startJobFunc(refresher, ctx)

	os.Setenv("TELEGRAM_BOT_TOKEN", cfg.TelegramBotToken)
	startTelegramBot(tickResolver, marketClient, intelService)

	var credits handler.CreditReader
	if creditRepo != nil {
		credits = creditRepo
	}
	h := newHandlerFunc(tracer, tickResolver, marketClient, intelService, credits)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("marketfeed"))
	r.Use(handler.APIKeyAuth(cfg.APIKey))

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:    ":8080",
		Handler: r,
	}

	go func() {
		if err := startHTTPServerFunc(srv); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	log.Println("Shutting down server...")

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exiting")
}
