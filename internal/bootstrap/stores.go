// Package bootstrap opens the configured backends for the server and the CLI.
package bootstrap

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/servicedesk/internal/config"
	"github.com/spec-kit/servicedesk/internal/events"
	"github.com/spec-kit/servicedesk/internal/persistence"
	"github.com/spec-kit/servicedesk/internal/repository"
	"github.com/spec-kit/servicedesk/internal/roster"
)

// Stores holds the opened backends. Close releases them in reverse order.
type Stores struct {
	Tickets  repository.TicketRepository
	Counters repository.CounterRepository
	Roster   roster.Directory
	Redis    *persistence.Redis
	// Pingers lists the backends readiness depends on.
	Pingers map[string]persistence.Pinger

	closers []func()
}

// Open connects the ticket store selected by cfg.Store.Backend and, when
// enabled, Redis.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Stores, error) {
	s := &Stores{Pingers: map[string]persistence.Pinger{}}

	switch cfg.Store.Backend {
	case config.StoreMemory:
		s.Tickets = repository.NewMemoryTicketRepository()
		s.Counters = repository.NewMemoryCounterRepository()
		logger.Warn("using in-memory ticket store; data is lost on restart")

	case config.StorePostgres:
		pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		s.closers = append(s.closers, pg.Close)
		if cfg.Postgres.RunMigrations {
			if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				s.Close()
				return nil, fmt.Errorf("run migrations: %w", err)
			}
		}
		s.Tickets = repository.NewPostgresTicketRepository(pg.PoolHandle())
		s.Counters = repository.NewPostgresCounterRepository(pg.PoolHandle())
		s.Pingers["postgres"] = pg

	case config.StoreMongo:
		mg, err := persistence.NewMongo(ctx, cfg.Mongo, logger)
		if err != nil {
			return nil, fmt.Errorf("connect mongo: %w", err)
		}
		s.closers = append(s.closers, func() { mg.Close(context.Background()) })
		if err := repository.EnsureTicketIndexes(ctx, mg.DB); err != nil {
			s.Close()
			return nil, fmt.Errorf("ensure mongo indexes: %w", err)
		}
		s.Tickets = repository.NewMongoTicketRepository(mg.DB)
		s.Counters = repository.NewMongoCounterRepository(mg.DB)
		s.Pingers["mongo"] = mg

	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}

	s.Redis = persistence.NewRedis(cfg.Redis, logger)
	s.closers = append(s.closers, s.Redis.Close)
	if s.Redis.Enabled() {
		s.Roster = roster.NewRedisDirectory(s.Redis.Client, cfg.Redis.RosterKey)
		s.Pingers["redis"] = s.Redis
	} else {
		s.Roster = roster.NewMemoryDirectory()
	}
	return s, nil
}

// Dispatcher returns the Redis pub/sub dispatcher when Redis is enabled, so
// every replica sees every ticket change. The second result must then be run.
func (s *Stores) Dispatcher(cfg *config.Config, logger *zap.Logger) (events.Dispatcher, *events.RedisDispatcher) {
	if s.Redis.Enabled() {
		d := events.NewRedisDispatcher(s.Redis.Client, cfg.Redis.EventsChannel, logger)
		return d, d
	}
	return events.NewInMemoryDispatcher(logger), nil
}

// Close releases every backend.
func (s *Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
	s.closers = nil
}
