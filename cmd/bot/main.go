package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Freeeeeet/studio_booking/internal/api"
	"github.com/Freeeeeet/studio_booking/internal/app"
	"github.com/Freeeeeet/studio_booking/internal/config"
	"github.com/Freeeeeet/studio_booking/internal/controller"
	"github.com/Freeeeeet/studio_booking/internal/controller/handlers"
	"github.com/Freeeeeet/studio_booking/internal/dialog"
	"github.com/Freeeeeet/studio_booking/internal/metrics"
	"github.com/Freeeeeet/studio_booking/internal/notify"
	"github.com/Freeeeeet/studio_booking/internal/repository"
	"github.com/Freeeeeet/studio_booking/internal/repository/base"
	"github.com/Freeeeeet/studio_booking/internal/repository/memstore"
	"github.com/Freeeeeet/studio_booking/internal/service"
	"github.com/go-telegram/bot"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger := app.NewLogger(cfg.Environment)
	defer logger.Sync()

	logger.Sugar().Infow("Starting studio booking",
		"environment", cfg.Environment,
		"storage", cfg.StorageDriver,
		"admins", len(cfg.AdminChatIDs),
		"token_length", len(cfg.TelegramToken))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("Service stopped with error", zap.Error(err))
	}
	logger.Info("Service stopped")
}

// stores хранилища, общие для сервисов
type stores struct {
	clients  service.ClientStore
	bookings service.BookingStore
	tx       service.TxManager
	close    func()
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*stores, error) {
	if cfg.StorageDriver == config.StorageDriverMemory {
		logger.Warn("Using in-memory storage, data is lost on restart")
		db := memstore.New()
		return &stores{
			clients:  db.Clients(),
			bookings: db.Bookings(),
			tx:       db,
			close:    func() {},
		}, nil
	}

	pool, err := app.NewPool(ctx, cfg.GetDBDSN())
	if err != nil {
		return nil, err
	}

	migrator, err := app.NewMigrator(pool, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	defer migrator.Close()

	if err := migrator.Run(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return &stores{
		clients:  repository.NewClientRepository(pool),
		bookings: repository.NewBookingRepository(pool),
		tx:       base.NewTxManager(pool),
		close:    pool.Close,
	}, nil
}

func newLimiter(ctx context.Context, cfg *config.Config, logger *zap.Logger) (api.Limiter, func()) {
	if cfg.RedisAddr == "" {
		return api.NewLocalLimiter(cfg.RateLimitPerMinute), func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		logger.Warn("Redis is not reachable, rate limiting falls back to local", zap.Error(err))
	}

	return api.NewRedisLimiter(rdb, cfg.RateLimitPerMinute, logger), func() { _ = rdb.Close() }
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("open storage: %w", err)
	}
	defer st.close()

	var m *metrics.Metrics
	if cfg.MetricsEnabled {
		m = metrics.New()
	}

	dispatcher := notify.NewDispatcher(logger.Named("notify"))
	if cfg.AMQPURL != "" {
		amqpSink := notify.NewAMQPSink(cfg.AMQPURL, cfg.AMQPQueue, logger.Named("amqp"))
		defer amqpSink.Close()
		dispatcher.AddSink(amqpSink)
	}

	schedule := service.Schedule{
		StartHour: cfg.WorkStart,
		EndHour:   cfg.WorkEnd,
		Location:  cfg.Location,
		Now:       time.Now,
	}
	tariff := service.Tariff{
		BaseFee:             cfg.Prices.Base,
		PerExtraPerson:      cfg.Prices.PerExtraPerson,
		ZoneBothSurcharge:   cfg.Prices.ZoneBoth,
		PerExtraAnimal:      cfg.Prices.PerExtraAnimal,
		BackgroundSurcharge: cfg.Prices.BackgroundExtra,
	}

	ledger := service.NewLedgerService(st.clients, st.bookings, st.tx, schedule, logger)
	lifecycle := service.NewLifecycleService(ledger, st.bookings, tariff, dispatcher, logger)
	engine := dialog.NewEngine(lifecycle, dialog.NewStore(), cfg.ConversationTTL, logger)

	if m != nil {
		ledger.WithRecorder(m)
		lifecycle.WithRecorder(m)
		engine.WithRecorder(m)
		dispatcher.WithRecorder(m)
	}

	limiter, closeLimiter := newLimiter(ctx, cfg, logger)
	defer closeLimiter()

	server := api.NewServer(api.Config{
		Addr:        cfg.HTTPAddr,
		BotUsername: cfg.BotUsername,
		Auth: api.AuthConfig{
			JWTSecret:    cfg.JWTSecret,
			PasswordHash: cfg.AdminPasswordHash,
		},
		Limiter: limiter,
		Metrics: m,
	}, ledger, lifecycle, logger.Named("api"))

	if !cfg.AdminAuthEnabled() {
		logger.Warn("JWT_SECRET or ADMIN_PASSWORD_HASH not set, admin API is disabled")
	}

	var botController *controller.BotController
	if cfg.TelegramToken != "" {
		renderer := handlers.NewRenderer(cfg.StudioRules, cfg.PaymentDetails, tariff)
		h := handlers.NewHandlers(engine, renderer, cfg.AdminChatIDs, logger.Named("bot"))

		b, err := bot.New(cfg.TelegramToken, bot.WithDefaultHandler(h.HandleTextMessage))
		if err != nil {
			return fmt.Errorf("create bot: %w", err)
		}

		dispatcher.AddSink(controller.NewTelegramSink(b, cfg.AdminChatIDs, logger.Named("telegram")))

		botController = controller.NewBotController(b, h, logger.Named("bot"))
		if err := botController.RegisterHandlers(ctx); err != nil {
			logger.Warn("Bot commands menu not set", zap.Error(err))
		}
	} else {
		logger.Warn("TELEGRAM_TOKEN not set, running without the bot")
	}

	scheduler := app.NewScheduler(engine, sweepInterval(cfg.ConversationTTL), logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return dispatcher.Run(gctx) })
	g.Go(func() error { return scheduler.Run(gctx) })
	g.Go(func() error { return server.Run(gctx) })
	if botController != nil {
		g.Go(func() error { return botController.Start(gctx) })
	}

	return g.Wait()
}

// sweepInterval как часто проверять брошенные диалоги
func sweepInterval(ttl time.Duration) time.Duration {
	interval := ttl / 4
	if interval > time.Minute {
		interval = time.Minute
	}
	if interval < time.Second {
		interval = time.Second
	}
	return interval
}
