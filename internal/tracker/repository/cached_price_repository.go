package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang-microcap-tracker/internal/entity"
	"golang-microcap-tracker/pkg/common"
	"golang-microcap-tracker/pkg/logger"
	"golang-microcap-tracker/pkg/utils"

	gocache "github.com/patrickmn/go-cache"
	goredis "github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
)

// cachedPriceRepository memoises closes in process and, when a Redis client is
// given, across processes. Only non-zero closes are cached so that an unknown
// price is asked again on the next run.
type cachedPriceRepository struct {
	next   PriceRepository
	local  *gocache.Cache
	redis  goredis.Cmdable
	ttl    time.Duration
	logger *logger.Logger
}

// NewCachedPriceRepository wraps next. rdb may be nil.
func NewCachedPriceRepository(next PriceRepository, rdb goredis.Cmdable, ttl time.Duration, log *logger.Logger) PriceRepository {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &cachedPriceRepository{
		next:   next,
		local:  gocache.New(ttl, 2*ttl),
		redis:  rdb,
		ttl:    ttl,
		logger: log,
	}
}

func cacheKey(symbol string, asOf time.Time) string {
	return fmt.Sprintf(common.RedisKeyLastClose, entity.NormalizeSymbol(symbol), utils.FormatDate(asOf))
}

func (r *cachedPriceRepository) LastClose(ctx context.Context, symbol string, asOf time.Time) (decimal.Decimal, error) {
	key := cacheKey(symbol, asOf)

	if v, ok := r.local.Get(key); ok {
		return v.(decimal.Decimal), nil
	}

	if r.redis != nil {
		raw, err := r.redis.Get(ctx, key).Result()
		switch {
		case err == nil:
			if d, perr := decimal.NewFromString(raw); perr == nil {
				r.local.SetDefault(key, d)
				return d, nil
			}
			r.logger.Warn("Ignoring malformed cached close", logger.StringField("key", key), logger.StringField("value", raw))
		case errors.Is(err, goredis.Nil):
		default:
			r.logger.Warn("Failed to read close from redis", logger.ErrorField(err), logger.StringField("key", key))
		}
	}

	price, err := r.next.LastClose(ctx, symbol, asOf)
	if err != nil {
		return decimal.Zero, err
	}
	if !price.IsPositive() {
		return price, nil
	}

	r.local.SetDefault(key, price)
	if r.redis != nil {
		if err := r.redis.Set(ctx, key, price.String(), r.ttl).Err(); err != nil {
			r.logger.Warn("Failed to write close to redis", logger.ErrorField(err), logger.StringField("key", key))
		}
	}
	return price, nil
}
