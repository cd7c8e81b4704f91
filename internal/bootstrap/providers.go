package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"bunkerprices-service/internal/application"
	"bunkerprices-service/internal/config"
	"bunkerprices-service/internal/domain"
	"bunkerprices-service/internal/infrastructure/folio"
	httpserver "bunkerprices-service/internal/infrastructure/http"
	"bunkerprices-service/internal/infrastructure/logx"
	"bunkerprices-service/internal/infrastructure/memory"
	"bunkerprices-service/internal/infrastructure/pg"
	redisstore "bunkerprices-service/internal/infrastructure/redis"
	"bunkerprices-service/internal/infrastructure/worker"
	"bunkerprices-service/internal/infrastructure/ws"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

var ErrMissingDBURL = errors.New("DATABASE_URL is required for STORAGE=pg or TOKEN_STORE=pg")

// Backends groups the storage chosen by STORAGE and TOKEN_STORE.
type Backends struct {
	History application.HistoryStore
	Tokens  application.TokenStore
	Idem    application.IdempotencyStore
	Ping    func(ctx context.Context) error
}

// APIApp is everything cmd/api runs. Worker is nil unless the scheduler is
// embedded in the API process.
type APIApp struct {
	Config config.Config
	Server *httpserver.Server
	Hub    *ws.Hub
	Worker application.Worker
}

func ProvideLogger() *zap.Logger { return logx.L() }

func ProvideConfig() (config.Config, error) {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func ProvideInstruments(cfg config.Config) ([]domain.Instrument, error) {
	return cfg.Instruments()
}

func ProvideClock() application.Clock { return application.SystemClock() }

// ProvideBackends opens only the connections the configuration asks for.
func ProvideBackends(ctx context.Context, cfg config.Config, clock application.Clock, log *zap.Logger) (Backends, func(), error) {
	var (
		b        = Backends{Idem: application.NoopIdempotency{}}
		cleanups []func()
		db       *pg.DB
		rdb      *redis.Client
	)
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	fail := func(err error) (Backends, func(), error) {
		cleanup()
		return Backends{}, func() {}, err
	}

	openPG := func() error {
		if db != nil {
			return nil
		}
		if cfg.DatabaseURL == "" {
			return ErrMissingDBURL
		}
		var err error
		db, err = pg.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("connect pg: %w", err)
		}
		cleanups = append(cleanups, func() {
			log.Info("closing pg")
			db.Close()
		})
		if err := pg.RunMigrations(ctx, db); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
		return nil
	}
	openRedis := func() {
		if rdb != nil {
			return
		}
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		cleanups = append(cleanups, func() {
			log.Info("closing redis")
			_ = rdb.Close()
		})
	}

	switch cfg.Storage {
	case "memory", "":
		b.History = memory.NewHistoryStore(cfg.HistoryRetention, cfg.HistoryMaxEntries, clock, log.Named("memory"))
	case "redis":
		openRedis()
		hs := redisstore.NewHistoryStore(rdb, cfg.HistoryRetention, cfg.HistoryMaxEntries, clock, log.Named("redis"))
		b.History, b.Ping = hs, hs.Ping
	case "pg":
		if err := openPG(); err != nil {
			return fail(err)
		}
		b.History = pg.NewHistoryStore(db, &pg.UnitOfWork{Pool: db.Pool}, cfg.HistoryRetention, cfg.HistoryMaxEntries, clock)
		b.Ping = db.Ping
	default:
		return fail(fmt.Errorf("unsupported STORAGE=%q", cfg.Storage))
	}

	switch cfg.TokenStore {
	case "memory", "":
	case "redis":
		openRedis()
		b.Tokens = redisstore.NewTokenStore(rdb)
	case "pg":
		if err := openPG(); err != nil {
			return fail(err)
		}
		b.Tokens = pg.NewTokenStore(db)
	default:
		return fail(fmt.Errorf("unsupported TOKEN_STORE=%q", cfg.TokenStore))
	}

	// Poll idempotency keys live wherever redis is already in use.
	if rdb != nil {
		b.Idem = redisstore.NewIdempotencyStore(rdb, cfg.RedisTTL)
	}

	log.Info("backends_ready",
		zap.String("storage", cfg.Storage),
		zap.String("token_store", cfg.TokenStore),
		zap.Duration("retention", cfg.HistoryRetention),
		zap.Int("max_entries", cfg.HistoryMaxEntries),
	)
	return b, cleanup, nil
}

func ProvideTokenCache(cfg config.Config, b Backends, clock application.Clock, log *zap.Logger) *application.TokenCache {
	fetcher := &folio.TokenClient{
		URL:          cfg.TokenURL,
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Audience:     cfg.Audience,
		HTTP:         &http.Client{Timeout: cfg.UpstreamTimeout},
	}
	opts := []application.TokenOption{
		application.WithTokenClock(clock),
		application.WithSafetyMargin(cfg.TokenSafetyMargin),
		application.WithDefaultTTL(cfg.TokenDefaultTTL),
		application.WithFetchTimeout(cfg.UpstreamTimeout),
		application.WithTokenLogger(log.Named("token")),
	}
	if b.Tokens != nil {
		opts = append(opts, application.WithTokenStore(b.Tokens))
	}
	return application.NewTokenCache(fetcher, opts...)
}

func ProvidePoller(cfg config.Config, tokens *application.TokenCache, b Backends, instruments []domain.Instrument, clock application.Clock, log *zap.Logger) *application.PricePoller {
	prices := &folio.PricesClient{
		URL:  cfg.PricesURL,
		HTTP: &http.Client{Timeout: cfg.UpstreamTimeout},
	}
	return application.NewPricePoller(tokens, prices, b.History, domain.IDs(instruments), clock, log.Named("poller"))
}

func ProvideHub(cfg config.Config, log *zap.Logger) *ws.Hub {
	return ws.NewHub(cfg.CORSAllowedOrigins, log.Named("ws"))
}

func newService(cfg config.Config, poller *application.PricePoller, b Backends, tokens *application.TokenCache, instruments []domain.Instrument, clock application.Clock, log *zap.Logger, n application.Notifier) *application.PricesService {
	return application.NewPricesService(poller, b.History, tokens, instruments,
		application.WithClock(clock),
		application.WithRetention(cfg.HistoryRetention),
		application.WithIdempotency(b.Idem),
		application.WithNotifier(n),
		application.WithLogger(log),
	)
}

// ProvideStreamingService notifies websocket subscribers after every poll.
func ProvideStreamingService(cfg config.Config, poller *application.PricePoller, b Backends, tokens *application.TokenCache, instruments []domain.Instrument, clock application.Clock, log *zap.Logger, hub *ws.Hub) *application.PricesService {
	return newService(cfg, poller, b, tokens, instruments, clock, log, hub)
}

func ProvidePricesService(cfg config.Config, poller *application.PricePoller, b Backends, tokens *application.TokenCache, instruments []domain.Instrument, clock application.Clock, log *zap.Logger) *application.PricesService {
	return newService(cfg, poller, b, tokens, instruments, clock, log, application.NoopNotifier{})
}

func ProvideServer(cfg config.Config, svc *application.PricesService, b Backends, hub *ws.Hub) *httpserver.Server {
	return httpserver.NewServer(svc,
		httpserver.WithPing(b.Ping),
		httpserver.WithStream(hub),
		httpserver.WithCORS(cfg.CORSAllowedOrigins),
	)
}

func ProvideScheduler(cfg config.Config, svc *application.PricesService, log *zap.Logger) *worker.Scheduler {
	return &worker.Scheduler{
		Poller:       svc,
		PollEvery:    cfg.PollInterval,
		RetryMax:     cfg.PollRetryMax,
		CycleTimeout: cfg.UpstreamTimeout * 2,
		RunAtStart:   true,
		Log:          log.Named("scheduler"),
	}
}

func ProvideWorker(s *worker.Scheduler) application.Worker { return s }

func ProvideAPIApp(cfg config.Config, srv *httpserver.Server, hub *ws.Hub, s *worker.Scheduler) *APIApp {
	app := &APIApp{Config: cfg, Server: srv, Hub: hub}
	if cfg.EmbeddedWorker {
		app.Worker = s
	}
	return app
}
