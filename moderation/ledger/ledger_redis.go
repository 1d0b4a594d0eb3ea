package ledger

import (
	"context"
	"strconv"

	"github.com/redis/go-redis/v9"
)

var redisLedgerPrefix string = "offenses/"

const (
	fieldWarnings     = "warnings"
	fieldSuspensions  = "suspensions"
	fieldFalseReports = "false-reports"
)

// Ledger backed by a redis hash per user. Increments are atomic, so
// concurrent moderation actions against the same user cannot lose counts.
type RedisLedger struct {
	Client *redis.Client
}

func NewRedisLedger(redisURL string) (*RedisLedger, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	rdb := redis.NewClient(opt)
	// check redis connection
	_, err = rdb.Ping(context.TODO()).Result()
	if err != nil {
		return nil, err
	}
	rl := RedisLedger{
		Client: rdb,
	}
	return &rl, nil
}

func (l *RedisLedger) increment(ctx context.Context, userID, field string) (int, error) {
	v, err := l.Client.HIncrBy(ctx, redisLedgerPrefix+userID, field, 1).Result()
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

func (l *RedisLedger) RecordWarning(ctx context.Context, userID string) (int, error) {
	return l.increment(ctx, userID, fieldWarnings)
}

func (l *RedisLedger) RecordSuspension(ctx context.Context, userID string) (int, error) {
	return l.increment(ctx, userID, fieldSuspensions)
}

func (l *RedisLedger) RecordFalseReport(ctx context.Context, userID string) (int, error) {
	return l.increment(ctx, userID, fieldFalseReports)
}

func (l *RedisLedger) GetCounts(ctx context.Context, userID string) (Counts, error) {
	vals, err := l.Client.HGetAll(ctx, redisLedgerPrefix+userID).Result()
	if err == redis.Nil {
		return Counts{}, nil
	} else if err != nil {
		return Counts{}, err
	}
	var out Counts
	for field, raw := range vals {
		n, err := strconv.Atoi(raw)
		if err != nil {
			continue
		}
		switch field {
		case fieldWarnings:
			out.Warnings = n
		case fieldSuspensions:
			out.Suspensions = n
		case fieldFalseReports:
			out.FalseReports = n
		}
	}
	return out, nil
}
