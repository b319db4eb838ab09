package store

import (
	"context"
	"fmt"

	"github.com/sweetpotato0/termchat/config"
	errs "github.com/sweetpotato0/termchat/errors"
	"github.com/sweetpotato0/termchat/history"
)

// FromConfig opens the history backend selected by cfg. It returns a nil
// store for the "none" backend.
func FromConfig(ctx context.Context, cfg config.HistoryConfig) (history.Store, error) {
	switch cfg.Backend {
	case config.HistoryNone:
		return nil, nil
	case config.HistoryMemory, "":
		return NewInMemoryStore(cfg.Limit), nil
	case config.HistoryRedis:
		s := NewRedisStore(&RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			Key:      cfg.Redis.Key,
			Limit:    cfg.Limit,
		})
		if err := s.Ping(ctx); err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to ping Redis: %w", err)
		}
		return s, nil
	case config.HistoryPostgres:
		return NewPostgresStore(ctx, &PostgresConfig{
			DSN:   cfg.Postgres.DSN,
			Table: cfg.Postgres.Table,
			Limit: cfg.Limit,
		})
	case config.HistoryMongo:
		return NewMongoStore(ctx, &MongoConfig{
			URI:        cfg.Mongo.URI,
			Database:   cfg.Mongo.Database,
			Collection: cfg.Mongo.Collection,
			Limit:      cfg.Limit,
		})
	default:
		return nil, fmt.Errorf("unknown history backend %q: %w", cfg.Backend, errs.ErrInvalidInput)
	}
}
