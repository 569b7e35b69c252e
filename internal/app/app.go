// Package app wires configuration, storage and the dispatcher into a runnable bot.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/m3rciful/pdfbot/core/bootstrap"
	coredatabase "github.com/m3rciful/pdfbot/core/database"
	"github.com/m3rciful/pdfbot/core/logger"
	tg "github.com/m3rciful/pdfbot/core/telegram"
	"github.com/m3rciful/pdfbot/core/telegram/router"
	"github.com/m3rciful/pdfbot/core/telegram/sender"
	"github.com/m3rciful/pdfbot/core/telegram/state"
	"github.com/m3rciful/pdfbot/internal/config"
	"github.com/m3rciful/pdfbot/internal/flow"
	"github.com/m3rciful/pdfbot/internal/metrics"
	"github.com/m3rciful/pdfbot/internal/ops"
	"github.com/m3rciful/pdfbot/internal/staging"
	"github.com/m3rciful/pdfbot/internal/subscribers"
	"github.com/m3rciful/pdfbot/internal/texts"
	"github.com/m3rciful/pdfbot/internal/transport"
)

// App holds everything the bot needs at runtime.
type App struct {
	cfg *config.AppConfig

	db    *sqlx.DB
	redis redis.UniversalClient

	store   state.Manager
	stager  *staging.Stager
	pool    *ops.Pool
	flow    *flow.Dispatcher
	bot     *transport.Bot
	texts   *texts.Catalog
	metrics *metrics.Metrics

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// Bootstrap initializes logging, storage and the dispatcher.
func Bootstrap(cfg *config.AppConfig) (*App, error) {
	opts := bootstrap.Options{Config: cfg.CoreConfig()}
	if cfg.UsesDatabase() {
		opts.Database = &cfg.Database
		opts.Connect = connectWhenReady
	}
	res, err := bootstrap.Run(opts)
	if err != nil {
		return nil, err
	}

	a := &App{cfg: cfg, db: res.DB, metrics: metrics.New()}
	if err := a.build(); err != nil {
		a.close()
		return nil, err
	}
	return a, nil
}

func connectWhenReady(cfg coredatabase.Config) (*sqlx.DB, error) {
	if err := coredatabase.WaitForPostgres(cfg.KeyValueDSN(), 30*time.Second); err != nil {
		return nil, err
	}
	return coredatabase.Connect(cfg)
}

func (a *App) build() error {
	ctx := logger.Background()
	cfg := a.cfg

	catalog, err := texts.Load(cfg.I18n.DefaultLanguage)
	if err != nil {
		return fmt.Errorf("app: texts: %w", err)
	}
	a.texts = catalog

	a.stager, err = staging.New(staging.Options{
		Dir:      cfg.Files.Dir,
		MaxSize:  cfg.Files.MaxSizeBytes(),
		OnChange: a.metrics.StagedDelta,
	})
	if err != nil {
		return err
	}

	if cfg.UsesRedis() {
		if err := a.connectRedis(ctx); err != nil {
			return err
		}
	}

	var locks state.Locker
	switch cfg.Session.Backend {
	case config.BackendRedis:
		a.store = state.NewRedisManager(a.redis, state.RedisOptions{
			Prefix:          cfg.Redis.Prefix,
			TTL:             cfg.Session.TTL,
			DefaultLanguage: cfg.I18n.DefaultLanguage,
		})
		locks = state.NewRedisLocker(a.redis, cfg.Redis.Prefix, cfg.Session.LockTTL)
	default:
		a.store = state.NewMemoryManager(state.MemoryOptions{
			TTL:             cfg.Session.TTL,
			DefaultLanguage: cfg.I18n.DefaultLanguage,
			OnExpire: func(_ int64, s state.Session) {
				a.stager.Discard(logger.Background(), s.Paths(flow.ParamTarget)...)
			},
		})
		locks = state.NewKeyedLocker()
	}

	var subs flow.Subscribers
	switch cfg.Subscribers.Backend {
	case config.BackendPostgres:
		if a.db == nil {
			return errors.New("app: postgres subscribers without a database")
		}
		subs = subscribers.NewPostgres(a.db)
	case config.BackendRedis:
		subs = subscribers.NewRedis(a.redis, cfg.Redis.Prefix)
	default:
		subs = subscribers.NewMemory()
	}

	a.pool = ops.NewPool(ops.PoolOptions{
		Workers:   cfg.Ops.Workers,
		QueueSize: cfg.Ops.QueueSize,
		Timeout:   cfg.Ops.Timeout,
	})
	registry := ops.Defaults(ops.Options{
		GhostscriptBin: cfg.Ops.GhostscriptBin,
		LibreOfficeBin: cfg.Ops.LibreOfficeBin,
		DPI:            cfg.Ops.DPI,
		JPEGQuality:    cfg.Ops.JPEGQuality,
		MaxRenderPages: cfg.Ops.MaxRenderPages,
	})

	a.flow, err = flow.New(flow.Options{
		Store:       a.store,
		Locks:       locks,
		Stager:      a.stager,
		Runner:      registry,
		Executor:    a.pool,
		Catalog:     catalog,
		Subscribers: subs,
		Observer:    a.metrics,
		Limits: flow.Limits{
			MaxMergeFiles: cfg.Files.MaxMergeFiles,
			MaxImages:     cfg.Files.MaxImages,
		},
	})
	if err != nil {
		return err
	}
	a.bot = transport.New(a.flow, catalog)

	a.metrics.Gauge("active_sessions", "Users with a flow in progress.", func() float64 {
		return float64(a.store.Active())
	})
	a.metrics.Gauge("pool_busy_workers", "Operation workers currently running a job.", func() float64 {
		return float64(a.pool.Busy())
	})

	logger.Info(ctx, "app", "build",
		slog.String("session_backend", cfg.Session.Backend),
		slog.String("subscribers_backend", cfg.Subscribers.Backend),
		slog.String("staging_dir", a.stager.Dir()),
		slog.Int("workers", cfg.Ops.Workers),
		slog.Any("ops", registry.Ops()),
	)
	return nil
}

func (a *App) connectRedis(ctx context.Context) error {
	r := a.cfg.Redis
	client := redis.NewClient(&redis.Options{Addr: r.Addr, Password: r.Password, DB: r.DB})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	start := time.Now()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		logger.Error(ctx, "app", "redis.connect",
			slog.String("status", "fail"),
			slog.String("addr", r.Addr),
			slog.String("err", err.Error()),
		)
		return fmt.Errorf("app: redis ping %s: %w", r.Addr, err)
	}
	logger.Info(ctx, "app", "redis.connect",
		slog.String("status", "ok"),
		slog.String("addr", r.Addr),
		slog.Duration("duration", logger.Took(start)),
	)
	a.redis = client
	return nil
}

// TelegramRunOptions registers handlers and lifecycle hooks.
func (a *App) TelegramRunOptions() (tg.RunOptions, error) {
	core := a.cfg.CoreConfig()
	reg := tg.NewRegistry()
	if err := a.bot.Register(reg); err != nil {
		return tg.RunOptions{}, fmt.Errorf("app: register handlers: %w", err)
	}

	mws := tg.DefaultMiddlewares(core, nil)
	mws = append(mws,
		tg.Middleware{Name: "updates", Use: a.metrics.Middleware()},
		tg.Middleware{Name: "state", Use: state.WithState(a.store)},
	)

	routes := router.CommandRoutes(reg, router.CommandRouteOptions{AdminID: core.Telegram.AdminID})
	routes = append(routes, router.CallbackRoute(reg, router.CallbackOptions{}))
	routes = append(routes, router.InputRoutes(a.bot, reg)...)

	return tg.RunOptions{
		Config:            core,
		Registry:          reg,
		HTTPClient:        tg.HTTPClientOptions{Timeout: 3 * time.Minute},
		DispatcherOptions: sender.Options{Workers: 4, QueueSize: 128},
		Middlewares:       mws,
		Routes:            routes,
		OnStart:           a.start,
		OnStop:            a.stop,
	}, nil
}

func (a *App) start(ctx context.Context, _ tg.Runtime) error {
	ctx, a.cancel = context.WithCancel(ctx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		a.sweepLoop(ctx)
	}()

	if addr := a.cfg.Metrics.Listen; addr != "" {
		a.wg.Add(1)
		go func() {
			defer a.wg.Done()
			if err := metrics.Serve(ctx, addr, a.metrics.Handler(a.ready)); err != nil {
				logger.Error(ctx, "metrics", "server.error",
					slog.String("status", "fail"),
					slog.String("err", err.Error()),
				)
			}
		}()
	}
	return nil
}

func (a *App) stop(context.Context, tg.Runtime) error {
	if a.cancel != nil {
		a.cancel()
	}
	a.wg.Wait()
	a.close()
	return nil
}

func (a *App) close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

// ready backs /healthz.
func (a *App) ready(ctx context.Context) error {
	if a.redis != nil {
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis: %w", err)
		}
	}
	if a.db != nil {
		if err := a.db.PingContext(ctx); err != nil {
			return fmt.Errorf("database: %w", err)
		}
	}
	return nil
}

func (a *App) sweepLoop(ctx context.Context) {
	if a.cfg.Files.SweepInterval <= 0 {
		sweep(ctx, a.stager, a.cfg.Files.SweepAge)
		return
	}
	ticker := time.NewTicker(a.cfg.Files.SweepInterval)
	defer ticker.Stop()
	for {
		sweep(ctx, a.stager, a.cfg.Files.SweepAge)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func sweep(ctx context.Context, s *staging.Stager, age time.Duration) (int, error) {
	start := time.Now()
	n, err := s.Sweep(ctx, age)
	if err != nil {
		logger.Warn(ctx, "staging", "sweep",
			slog.String("status", "fail"),
			slog.Int("removed", n),
			slog.String("err", err.Error()),
		)
		return n, err
	}
	logger.Info(ctx, "staging", "sweep",
		slog.String("status", "ok"),
		slog.Int("removed", n),
		slog.Duration("duration", logger.Took(start)),
	)
	return n, nil
}

// Sweep runs one pass over the staging directory without starting the bot.
func Sweep(ctx context.Context, cfg *config.AppConfig) (int, error) {
	s, err := staging.New(staging.Options{Dir: cfg.Files.Dir})
	if err != nil {
		return 0, err
	}
	return sweep(ctx, s, cfg.Files.SweepAge)
}

// Migrate applies database migrations and exits.
func Migrate(cfg *config.AppConfig) error {
	if !cfg.UsesDatabase() {
		return errors.New("app: no database configured")
	}
	res, err := bootstrap.Run(bootstrap.Options{
		Config:   cfg.CoreConfig(),
		Database: &cfg.Database,
		Connect:  connectWhenReady,
	})
	if err != nil {
		return err
	}
	return res.DB.Close()
}
