package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrNotFound is returned when no observation exists for an oracle id.
var ErrNotFound = errors.New("oracle: observation not found")

// Reader resolves the freshest observation for an oracle account.
// Staleness and confidence judgements belong to the caller; the reader
// only reports what the feed last said.
type Reader interface {
	Read(ctx context.Context, oracleID string) (Observation, error)
}

// Writer ingests feed observations.
type Writer interface {
	Publish(ctx context.Context, obs Observation) error
}

const cacheTTL = 5 * time.Second

// Store is a gorm-backed Reader/Writer with a redis read-through cache.
// The cache TTL is deliberately short: a cached price can never outlive
// the tightest staleness bound a fund configures.
type Store struct {
	db    *gorm.DB
	cache *redis.Client
}

func NewStore(db *gorm.DB, cache *redis.Client) *Store {
	return &Store{db: db, cache: cache}
}

func cacheKey(oracleID string) string {
	return fmt.Sprintf("oracle:price:%s", oracleID)
}

func (s *Store) Read(ctx context.Context, oracleID string) (Observation, error) {
	if s.cache != nil {
		raw, err := s.cache.Get(ctx, cacheKey(oracleID)).Bytes()
		if err == nil {
			var obs Observation
			if err := json.Unmarshal(raw, &obs); err == nil {
				return obs, nil
			}
			zap.L().Warn("discarding malformed cached observation", zap.String("oracle_id", oracleID))
		}
	}

	var rec PriceRecord
	if err := s.db.WithContext(ctx).
		Where("oracle_id = ?", oracleID).
		First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Observation{}, ErrNotFound
		}
		return Observation{}, err
	}

	obs := rec.Observation()
	s.fillCache(ctx, obs)

	return obs, nil
}

func (s *Store) Publish(ctx context.Context, obs Observation) error {
	rec := PriceRecord{
		OracleID:   obs.OracleID,
		OracleType: string(obs.OracleType),
		Price:      obs.Price,
		Confidence: obs.Confidence,
		ObservedAt: obs.ObservedAt,
		UpdatedAt:  time.Now(),
	}

	if err := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "oracle_id"}},
			UpdateAll: true,
		}).
		Create(&rec).Error; err != nil {
		return err
	}

	s.fillCache(ctx, obs)

	return nil
}

func (s *Store) fillCache(ctx context.Context, obs Observation) {
	if s.cache == nil {
		return
	}

	raw, err := json.Marshal(obs)
	if err != nil {
		return
	}

	if err := s.cache.Set(ctx, cacheKey(obs.OracleID), raw, cacheTTL).Err(); err != nil {
		zap.L().Warn("failed to cache observation", zap.String("oracle_id", obs.OracleID), zap.Error(err))
	}
}
