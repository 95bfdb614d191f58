// Package app assembles the detection service from configuration. Both the
// HTTP server and the chainscan CLI build on it.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"chainlead/internal/chain/events"
	chainmetrics "chainlead/internal/chain/metrics"
	"chainlead/internal/chain/providers"
	"chainlead/internal/chain/providers/deeds"
	"chainlead/internal/chain/providers/ownership"
	"chainlead/internal/chain/service"
	"chainlead/internal/chain/store/chains"
	"chainlead/internal/chain/store/deedcache"
	"chainlead/internal/chain/store/listings"
	"chainlead/internal/platform/config"
	"chainlead/internal/platform/postgres"
	platformredis "chainlead/internal/platform/redis"
)

const healthTimeout = 2 * time.Second

// App owns the detection service and the connections it was built on.
type App struct {
	Service  *service.Service
	Metrics  *chainmetrics.Metrics
	Listings *listings.PostgresStore
	Chains   *chains.PostgresStore

	db     *sqlx.DB
	redis  *platformredis.Client
	kafka  *events.KafkaPublisher
	logger *slog.Logger
}

// Build connects to Postgres and the optional Redis and Kafka backends and
// wires the detection pipeline. Call Close when done.
func Build(ctx context.Context, cfg config.Config, logger *slog.Logger, reg prometheus.Registerer) (*App, error) {
	if cfg.Database.Migrate {
		if err := postgres.Migrate(cfg.Database.URL, logger); err != nil {
			return nil, err
		}
	}
	db, err := postgres.Open(ctx, cfg.Database)
	if err != nil {
		return nil, err
	}
	a := &App{
		db:       db,
		logger:   logger,
		Metrics:  chainmetrics.New(reg),
		Listings: listings.NewPostgres(db),
		Chains:   chains.NewPostgres(db),
	}

	redisClient, err := platformredis.New(ctx, cfg.Redis)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.redis = redisClient

	var publisher service.EventPublisher = events.Noop{}
	if len(cfg.Kafka.Brokers) > 0 {
		kp, err := events.NewKafkaPublisher(cfg.Kafka)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.kafka = kp
		if err := kp.EnsureTopic(ctx, 1, 1); err != nil {
			logger.WarnContext(ctx, "could not ensure chains topic", "topic", cfg.Kafka.ChainsTopic, "error", err)
		}
		publisher = kp
	}

	limiter := providers.NewLimiter(cfg.Outbound)
	records := a.providerClient(providers.PropertyRecords, cfg.PropertyRecords, cfg.Outbound, limiter)
	people := a.providerClient(providers.PersonSearch, cfg.PersonSearch, cfg.Outbound, limiter)

	resolverOpts := []deeds.Option{deeds.WithMetrics(a.Metrics)}
	if cache := a.deedCache(cfg.Chains.DeedCacheTTL); cache != nil {
		resolverOpts = append(resolverOpts, deeds.WithCache(cache))
	}

	a.Service = service.New(
		a.Listings,
		a.Chains,
		deeds.New(records, logger, resolverOpts...),
		ownership.New(people, logger),
		service.WithLogger(logger),
		service.WithPublisher(publisher),
		service.WithMetrics(a.Metrics),
	)

	logger.InfoContext(ctx, "detection pipeline ready",
		"redis", a.redis != nil,
		"kafka", a.kafka != nil,
		"deed_cache_ttl", cfg.Chains.DeedCacheTTL.String(),
	)
	return a, nil
}

func (a *App) providerClient(id string, cfg config.ProviderConfig, outbound config.OutboundConfig, limiter *rate.Limiter) *providers.Client {
	opts := []providers.Option{providers.WithLimiter(limiter), providers.WithMetrics(a.Metrics)}
	if b := providers.NewBreaker(id, outbound); b != nil {
		opts = append(opts, providers.WithBreaker(b))
	}
	return providers.NewClient(id, cfg, opts...)
}

// deedCache prefers Redis so replicas share lookups, and falls back to an
// in-process cache. A zero TTL disables caching.
func (a *App) deedCache(ttl time.Duration) deeds.Cache {
	switch {
	case ttl <= 0:
		return nil
	case a.redis != nil:
		return deedcache.NewRedisCache(a.redis.Client, ttl)
	default:
		return deedcache.NewInMemoryCache(ttl)
	}
}

// Health pings every configured backend concurrently.
func (a *App) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, healthTimeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := a.db.PingContext(ctx); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		return nil
	})
	if a.redis != nil {
		g.Go(func() error {
			if err := a.redis.Health(ctx); err != nil {
				return fmt.Errorf("redis: %w", err)
			}
			return nil
		})
	}
	if a.kafka != nil {
		g.Go(func() error {
			if err := a.kafka.Ping(ctx); err != nil {
				return fmt.Errorf("kafka: %w", err)
			}
			return nil
		})
	}
	return g.Wait()
}

// Close releases every connection Build opened.
func (a *App) Close() {
	if a.kafka != nil {
		a.kafka.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("failed to close redis", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close database", "error", err)
		}
	}
}
