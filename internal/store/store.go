// Package store opens the member and session backends selected by configuration.
package store

import (
	"context"
	"fmt"

	"github.com/ArowuTest/bmd-member-registry/internal/config"
	"github.com/ArowuTest/bmd-member-registry/internal/repositories"
	"github.com/ArowuTest/bmd-member-registry/internal/repositories/memory"
	mongorepo "github.com/ArowuTest/bmd-member-registry/internal/repositories/mongodb"
	redisrepo "github.com/ArowuTest/bmd-member-registry/internal/repositories/redis"
	"github.com/ArowuTest/bmd-member-registry/pkg/cache"
	"github.com/ArowuTest/bmd-member-registry/pkg/mongodb"
	"github.com/rs/zerolog"
)

// Open returns the configured MemberRepository and a func that releases it.
func Open(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (repositories.MemberRepository, func(context.Context), error) {
	switch cfg.Store.Driver {
	case config.DriverMemory:
		logger.Warn().Msg("using in-memory member store, data is lost on exit")
		return memory.NewMemberRepository(), func(context.Context) {}, nil
	case config.DriverMongoDB:
		client, err := mongodb.NewClient(ctx, cfg.MongoDB.URI, cfg.MongoDB.ConnectTimeout)
		if err != nil {
			return nil, nil, err
		}
		db := client.Database(cfg.MongoDB.Database)
		logger.Info().Str("database", cfg.MongoDB.Database).Str("collection", cfg.MongoDB.Collection).Msg("connected to MongoDB")
		closeFn := func(ctx context.Context) {
			if err := client.Disconnect(ctx); err != nil {
				logger.Error().Err(err).Msg("error disconnecting from MongoDB")
			}
		}
		return mongorepo.NewMemberRepository(db, cfg.MongoDB.Collection), closeFn, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// OpenSessions returns the configured SessionRepository and a func that releases it.
func OpenSessions(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (repositories.SessionRepository, func(), error) {
	switch cfg.Session.Driver {
	case config.DriverMemory:
		return memory.NewSessionRepository(), func() {}, nil
	case config.DriverRedis:
		c, err := cache.New(ctx, cfg.Redis.URI, logger)
		if err != nil {
			return nil, nil, err
		}
		logger.Info().Msg("connected to Redis session store")
		closeFn := func() {
			if err := c.Close(); err != nil {
				logger.Error().Err(err).Msg("error closing Redis connection")
			}
		}
		return redisrepo.NewSessionRepository(c), closeFn, nil
	default:
		return nil, nil, fmt.Errorf("unknown session driver %q", cfg.Session.Driver)
	}
}
