// Command gateway runs the multi-tenant edge gateway: it terminates
// HTTP(S), resolves host headers to deployments, serves static assets
// from object storage, forwards dynamic routes to the function runtime,
// and manages ACME certificates for attached custom domains.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/origan-dev/gateway/internal/assets"
	"github.com/origan-dev/gateway/internal/certmanager"
	"github.com/origan-dev/gateway/internal/challenge"
	"github.com/origan-dev/gateway/internal/config"
	"github.com/origan-dev/gateway/internal/domain"
	"github.com/origan-dev/gateway/internal/gateway"
	"github.com/origan-dev/gateway/internal/logger"
	"github.com/origan-dev/gateway/internal/metadata"
	"github.com/origan-dev/gateway/internal/proxy"
	"github.com/origan-dev/gateway/internal/resolver"
	"github.com/origan-dev/gateway/internal/server"
	"github.com/origan-dev/gateway/internal/storage"
)

type appConfig struct {
	Logger   logger.Config
	Server   server.Config
	Storage  storage.Config
	Metadata metadata.Config
	Resolver resolver.Config
	Proxy    proxy.Config
	Cert     certmanager.Config
	Gateway  gateway.Config

	// DatabaseURL is the Postgres connection string for the domain table.
	DatabaseURL string `env:"DATABASE_URL,required"`

	// ChallengeStore selects the ACME challenge backend: object (shared
	// object storage), redis, or memory (single instance only).
	ChallengeStore string `env:"CHALLENGE_STORE" envDefault:"object"`

	// RedisURL is required when ChallengeStore is redis.
	RedisURL string `env:"REDIS_URL"`
}

func main() {
	if err := run(); err != nil {
		slog.Error("gateway exited", logger.Error(err))
		os.Exit(1)
	}
}

func run() error {
	var cfg appConfig
	config.MustLoad(&cfg)

	log := logger.New(cfg.Logger)
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := storage.NewS3(ctx, cfg.Storage)
	if err != nil {
		return fmt.Errorf("init object store: %w", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	repo := domain.NewPostgresRepository(pool)

	challenges, err := newChallengeStore(cfg, store)
	if err != nil {
		return err
	}

	metaClient, err := metadata.New(cfg.Metadata)
	if err != nil {
		return fmt.Errorf("init metadata client: %w", err)
	}
	res := resolver.New(metaClient, cfg.Resolver, resolver.WithLogger(log))

	assetServer := assets.New(store, assets.WithLogger(log))

	fnProxy, err := proxy.New(cfg.Proxy, proxy.WithLogger(log))
	if err != nil {
		return fmt.Errorf("init runtime proxy: %w", err)
	}

	certs, err := certmanager.New(cfg.Cert, repo, store, challenges, certmanager.WithLogger(log))
	if err != nil {
		return fmt.Errorf("init certificate manager: %w", err)
	}

	gw := gateway.New(cfg.Gateway, res, assetServer, fnProxy, challenges,
		gateway.WithLogger(log),
		gateway.WithDomainManager(certs),
		gateway.WithReadyChecks(domain.Healthcheck(pool)),
	)
	handler := gateway.AccessLog(log, gw)

	httpSrv, err := server.NewFromConfig(cfg.Server, server.WithLogger(log))
	if err != nil {
		return fmt.Errorf("init http server: %w", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return certs.Run(ctx)
	})
	g.Go(func() error {
		defer stop()
		if err := httpSrv.Start(ctx, handler); err != nil && err != context.Canceled {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	if cfg.Server.TLSAddr != "" {
		tlsConfig := server.IntermediateTLSConfig()
		tlsConfig.GetCertificate = certs.GetCertificate

		tlsSrv := server.New(cfg.Server.TLSAddr,
			server.WithLogger(log),
			server.WithTLS(tlsConfig),
			server.WithReadTimeout(cfg.Server.ReadTimeout),
			server.WithWriteTimeout(cfg.Server.WriteTimeout),
			server.WithIdleTimeout(cfg.Server.IdleTimeout),
			server.WithShutdownTimeout(cfg.Server.ShutdownTimeout),
		)
		g.Go(func() error {
			defer stop()
			if err := tlsSrv.Start(ctx, handler); err != nil && err != context.Canceled {
				return fmt.Errorf("https server: %w", err)
			}
			return nil
		})
		defer func() { _ = tlsSrv.Stop() }()
	}

	<-ctx.Done()
	log.Info("shutting down", logger.Component("main"))
	_ = httpSrv.Stop()

	return g.Wait()
}

func newChallengeStore(cfg appConfig, store storage.ObjectStore) (challenge.Store, error) {
	switch cfg.ChallengeStore {
	case "object":
		return challenge.NewObjectStore(store), nil
	case "redis":
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("CHALLENGE_STORE=redis requires REDIS_URL")
		}
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return challenge.NewRedisStore(redis.NewClient(opts)), nil
	case "memory":
		return challenge.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown challenge store %q", cfg.ChallengeStore)
	}
}
