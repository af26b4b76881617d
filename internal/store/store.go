package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/Checker-Finance/marketeye/internal/stats"
	"github.com/Checker-Finance/marketeye/pkg/model"
)

const (
	productKeyPrefix = "catalog:product:"
	productIndexKey  = "catalog:products"
	statsKey         = "catalog:stats"
)

// Store defines the contract for persisting the consolidated catalog.
type Store interface {
	SaveCatalog(ctx context.Context, products []model.Product) error
	GetProduct(ctx context.Context, productID string) (*model.Product, error)
	ListProductIDs(ctx context.Context) ([]string, error)
	SaveStats(ctx context.Context, st stats.Statistics) error
	GetStats(ctx context.Context) (*stats.Statistics, error)
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string, dest any) error
	HealthCheck(ctx context.Context) error
	Close() error
}

// HybridStore keeps one JSON document per product in Redis and, when a
// Postgres pool is configured, mirrors the catalog into relational tables.
type HybridStore struct {
	redis  *redis.Client
	PG     *pgxpool.Pool
	logger *zap.Logger
}

type PGPoolConfig struct {
	MaxConns          int32
	MinConns          int32
	MaxConnLifetime   time.Duration
	MaxConnIdleTime   time.Duration
	HealthCheckPeriod time.Duration
}

// NewHybrid creates a Redis-first store with an optional Postgres mirror.
// An empty pgURL disables the relational side.
func NewHybrid(redisAddr, redisPass string, redisDB int, pgURL string, pgPoolConfig PGPoolConfig, logger *zap.Logger) (*HybridStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: redisPass,
		DB:       redisDB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	var pgPool *pgxpool.Pool
	if pgURL != "" {
		cfg, err := pgxpool.ParseConfig(pgURL)
		if err != nil {
			return nil, fmt.Errorf("invalid pg config: %w", err)
		}
		if pgPoolConfig.MaxConns > 0 {
			cfg.MaxConns = pgPoolConfig.MaxConns
		}
		if pgPoolConfig.MinConns > 0 {
			cfg.MinConns = pgPoolConfig.MinConns
		}
		if pgPoolConfig.MaxConnLifetime > 0 {
			cfg.MaxConnLifetime = pgPoolConfig.MaxConnLifetime
		}
		if pgPoolConfig.MaxConnIdleTime > 0 {
			cfg.MaxConnIdleTime = pgPoolConfig.MaxConnIdleTime
		}
		if pgPoolConfig.HealthCheckPeriod > 0 {
			cfg.HealthCheckPeriod = pgPoolConfig.HealthCheckPeriod
		}
		pgPool, err = pgxpool.NewWithConfig(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
	}

	s := &HybridStore{redis: rdb, PG: pgPool, logger: logger}
	if err := s.EnsureSchema(ctx); err != nil {
		_ = s.Close()
		return nil, err
	}
	return s, nil
}

func productKey(id string) string { return productKeyPrefix + id }

// SaveCatalog replaces the stored catalog with products. Documents of
// products absent from the new catalog are removed.
func (s *HybridStore) SaveCatalog(ctx context.Context, products []model.Product) error {
	previous, err := s.redis.SMembers(ctx, productIndexKey).Result()
	if err != nil {
		return fmt.Errorf("read product index: %w", err)
	}

	current := make(map[string]struct{}, len(products))
	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		ids := make([]any, 0, len(products))
		for _, p := range products {
			data, err := json.Marshal(p)
			if err != nil {
				return fmt.Errorf("marshal product %s: %w", p.ProductID, err)
			}
			pipe.Set(ctx, productKey(p.ProductID), data, 0)
			current[p.ProductID] = struct{}{}
			ids = append(ids, p.ProductID)
		}
		for _, id := range previous {
			if _, ok := current[id]; !ok {
				pipe.Del(ctx, productKey(id))
			}
		}
		pipe.Del(ctx, productIndexKey)
		if len(ids) > 0 {
			pipe.SAdd(ctx, productIndexKey, ids...)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("store.redis.save_catalog_failed", zap.Error(err))
		return fmt.Errorf("save catalog: %w", err)
	}

	if err := s.saveRelational(ctx, products); err != nil {
		s.logger.Error("store.pg.save_failed", zap.Error(err))
		return err
	}

	s.logger.Info("store.catalog_saved",
		zap.Int("products", len(products)),
		zap.Bool("postgres", s.PG != nil))
	return nil
}

// GetProduct looks a product up in Redis, then in Postgres. A product found
// in neither is (nil, nil).
func (s *HybridStore) GetProduct(ctx context.Context, productID string) (*model.Product, error) {
	data, err := s.redis.Get(ctx, productKey(productID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return s.loadRelational(ctx, productID)
	} else if err != nil {
		return nil, err
	}

	var p model.Product
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProductIDs returns the ids of the stored catalog in no particular order.
func (s *HybridStore) ListProductIDs(ctx context.Context) ([]string, error) {
	return s.redis.SMembers(ctx, productIndexKey).Result()
}

func (s *HybridStore) SaveStats(ctx context.Context, st stats.Statistics) error {
	return s.SetJSON(ctx, statsKey, st, 0)
}

// GetStats returns the latest saved statistics, or nil if none were saved.
func (s *HybridStore) GetStats(ctx context.Context) (*stats.Statistics, error) {
	var st stats.Statistics
	if err := s.GetJSON(ctx, statsKey, &st); err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return &st, nil
}

func (s *HybridStore) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return s.redis.Set(ctx, key, data, ttl).Err()
}

func (s *HybridStore) GetJSON(ctx context.Context, key string, dest any) error {
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

func (s *HybridStore) HealthCheck(ctx context.Context) error {
	if s.redis == nil {
		return fmt.Errorf("redis not initialized")
	}
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	if s.PG != nil {
		if err := s.PG.Ping(ctx); err != nil {
			return fmt.Errorf("postgres ping failed: %w", err)
		}
	}
	return nil
}

func (s *HybridStore) Close() error {
	if s.PG != nil {
		s.PG.Close()
	}
	if s.redis != nil {
		return s.redis.Close()
	}
	return nil
}
