// stackgen 后端服务入口。
//
// 装配顺序：配置 → 日志 → 指标 → 连接器 → 缓存 → 存储 → 领域组件 → HTTP。
// Redis 与 NATS 均为可选依赖：未配置 Redis 时使用进程内缓存，
// 未配置 NATS 时任务队列退化为进程内队列，服务照常启动。
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/SeanMkhabela/stackgen-backend/archive"
	"github.com/SeanMkhabela/stackgen-backend/auth"
	"github.com/SeanMkhabela/stackgen-backend/breaker"
	"github.com/SeanMkhabela/stackgen-backend/cache"
	"github.com/SeanMkhabela/stackgen-backend/clog"
	"github.com/SeanMkhabela/stackgen-backend/config"
	"github.com/SeanMkhabela/stackgen-backend/connector"
	"github.com/SeanMkhabela/stackgen-backend/jobs"
	"github.com/SeanMkhabela/stackgen-backend/metrics"
	"github.com/SeanMkhabela/stackgen-backend/ratelimit"
	"github.com/SeanMkhabela/stackgen-backend/server"
	"github.com/SeanMkhabela/stackgen-backend/stacks"
	"github.com/SeanMkhabela/stackgen-backend/store"
	"github.com/SeanMkhabela/stackgen-backend/xerrors"
)

// appConfig 映射 config.yaml 的顶层结构
type appConfig struct {
	App struct {
		Name    string `mapstructure:"name"`
		Version string `mapstructure:"version"`
	} `mapstructure:"app"`

	Log     clog.Config    `mapstructure:"log"`
	Metrics metrics.Config `mapstructure:"metrics"`
	Server  server.Config  `mapstructure:"server"`
	Auth    auth.Config    `mapstructure:"auth"`
	Jobs    jobs.Config    `mapstructure:"jobs"`
	Cache   cache.Config   `mapstructure:"cache"`

	Stacks struct {
		// TemplateRoot 模板目录，其下每个框架一个子目录
		TemplateRoot string `mapstructure:"template_root"`
	} `mapstructure:"stacks"`

	SQLite connector.SQLiteConfig `mapstructure:"sqlite"`
	// Redis / NATS 为 nil 表示未配置，相应能力走进程内降级路径
	Redis *connector.RedisConfig `mapstructure:"redis"`
	NATS  *connector.NATSConfig  `mapstructure:"nats"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "stackgen:", err)
		os.Exit(1)
	}
}

func run() error {
	loader := config.MustLoad()

	var cfg appConfig
	if err := loader.Unmarshal(&cfg); err != nil {
		return xerrors.Wrap(err, "unmarshal config")
	}

	logger, err := clog.New(&cfg.Log)
	if err != nil {
		return xerrors.Wrap(err, "init logger")
	}
	logger.Info("starting stackgen backend",
		clog.String("name", cfg.App.Name),
		clog.String("version", cfg.App.Version))

	meter, err := metrics.New(&cfg.Metrics)
	if err != nil {
		return xerrors.Wrap(err, "init metrics")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	breakers := breaker.NewRegistry(breaker.WithLogger(logger), breaker.WithMeter(meter))

	// SQLite 是硬依赖，连不上直接退出
	sqliteConn, err := connector.NewSQLite(&cfg.SQLite, connector.WithLogger(logger))
	if err != nil {
		return xerrors.Wrap(err, "create sqlite connector")
	}
	if err := sqliteConn.Connect(ctx); err != nil {
		return xerrors.Wrap(err, "connect sqlite")
	}
	defer sqliteConn.Close()

	// 缓存是软依赖，连接失败只降级不中断启动
	c, redisConn, err := buildCache(&cfg, logger, meter, breakers)
	if err != nil {
		return err
	}
	if err := c.Connect(ctx); err != nil {
		logger.Warn("cache unavailable, running degraded", clog.Error(err))
	}
	defer c.Close()
	if redisConn != nil {
		defer redisConn.Close()
	}

	st, err := store.New(store.NewGormRepository(sqliteConn, logger),
		store.WithLogger(logger),
		store.WithMeter(meter),
		store.WithBreakers(breakers))
	if err != nil {
		return xerrors.Wrap(err, "init store")
	}
	if err := st.Migrate(ctx, &store.User{}, &store.APIKey{}); err != nil {
		return xerrors.Wrap(err, "migrate schema")
	}

	templateRoot := cfg.Stacks.TemplateRoot
	if templateRoot == "" {
		templateRoot = "./templates"
	}
	catalog := stacks.NewCatalog(templateRoot)

	builder, err := archive.New(catalog,
		archive.WithCache(c),
		archive.WithLogger(logger),
		archive.WithMeter(meter))
	if err != nil {
		return xerrors.Wrap(err, "init archive builder")
	}

	authn, err := auth.New(&cfg.Auth, auth.WithLogger(logger), auth.WithMeter(meter))
	if err != nil {
		return xerrors.Wrap(err, "init authenticator")
	}
	accounts, err := auth.NewAccounts(st, auth.WithLogger(logger))
	if err != nil {
		return xerrors.Wrap(err, "init accounts")
	}
	keys, err := auth.NewAPIKeys(st, auth.WithLogger(logger), auth.WithMeter(meter))
	if err != nil {
		return xerrors.Wrap(err, "init api keys")
	}

	jobSvc, natsConn, err := buildJobs(ctx, &cfg, c, logger, meter)
	if err != nil {
		return err
	}
	if natsConn != nil {
		defer natsConn.Close()
	}
	stopWorker, err := jobSvc.StartWorker()
	if err != nil {
		return xerrors.Wrap(err, "start job worker")
	}
	defer func() { _ = stopWorker() }()

	limiter, err := ratelimit.New(c, nil, ratelimit.WithLogger(logger), ratelimit.WithMeter(meter))
	if err != nil {
		return xerrors.Wrap(err, "init rate limiter")
	}

	srv, err := server.New(&cfg.Server, server.Deps{
		Authenticator: authn,
		Accounts:      accounts,
		Keys:          keys,
		Catalog:       catalog,
		Archive:       builder,
		Jobs:          jobSvc,
		Breakers:      breakers,
		Meter:         meter,
		Limiter:       limiter,
	}, server.WithLogger(logger))
	if err != nil {
		return xerrors.Wrap(err, "init server")
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Run() }()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			return err
		}
		return nil
	}

	shutdownTimeout := cfg.Server.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown failed", clog.Error(err))
	}
	if err := meter.Shutdown(shutdownCtx); err != nil {
		logger.Warn("metrics shutdown failed", clog.Error(err))
	}
	logger.Info("stackgen backend stopped")
	return nil
}

// buildCache 根据配置选择缓存模式
// 返回的连接器可能为 nil（standalone 模式），由调用方负责关闭
func buildCache(cfg *appConfig, logger clog.Logger, meter metrics.Meter, breakers breaker.Registry) (cache.Cache, connector.RedisConnector, error) {
	opts := []cache.Option{
		cache.WithLogger(logger),
		cache.WithMeter(meter),
		cache.WithBreakers(breakers),
	}

	if cfg.Redis == nil || cfg.Cache.Mode == "standalone" {
		logger.Info("redis not configured, using in-process cache")
		c, err := cache.NewStandalone(cfg.Cache.Standalone, opts...)
		if err != nil {
			return nil, nil, xerrors.Wrap(err, "init standalone cache")
		}
		return c, nil, nil
	}

	redisConn, err := connector.NewRedis(cfg.Redis, connector.WithLogger(logger))
	if err != nil {
		return nil, nil, xerrors.Wrap(err, "create redis connector")
	}
	c, err := cache.New(&cfg.Cache, append(opts, cache.WithRedisConnector(redisConn))...)
	if err != nil {
		return nil, nil, xerrors.Wrap(err, "init distributed cache")
	}
	return c, redisConn, nil
}

// buildJobs 根据配置选择任务队列传输
// 返回的连接器可能为 nil（进程内队列），由调用方负责关闭
func buildJobs(ctx context.Context, cfg *appConfig, c cache.Cache, logger clog.Logger, meter metrics.Meter) (*jobs.Service, connector.NATSConnector, error) {
	opts := []jobs.Option{jobs.WithLogger(logger), jobs.WithMeter(meter)}

	if cfg.NATS == nil {
		logger.Info("nats not configured, using in-process job queue")
		svc, err := jobs.NewInProcess(&cfg.Jobs, c, opts...)
		if err != nil {
			return nil, nil, xerrors.Wrap(err, "init in-process jobs")
		}
		return svc, nil, nil
	}

	natsConn, err := connector.NewNATS(cfg.NATS, connector.WithLogger(logger))
	if err != nil {
		return nil, nil, xerrors.Wrap(err, "create nats connector")
	}
	if err := natsConn.Connect(ctx); err != nil {
		return nil, nil, xerrors.Wrap(err, "connect nats")
	}
	svc, err := jobs.NewService(&cfg.Jobs, natsConn, c, opts...)
	if err != nil {
		_ = natsConn.Close()
		return nil, nil, xerrors.Wrap(err, "init jobs service")
	}
	return svc, natsConn, nil
}
