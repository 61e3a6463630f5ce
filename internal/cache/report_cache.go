package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"survey-insights/internal/domain/stats"
	"survey-insights/internal/metrics"
)

const defaultTTL = time.Hour

// ReportCache keeps finished statistics reports in Redis. Every survey has a
// version counter folded into its report keys; bumping it orphans all cached
// variants at once and lets them expire by TTL.
type ReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

var _ stats.Cache = (*ReportCache)(nil)

func NewReportCache(client *redis.Client, ttl time.Duration) *ReportCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &ReportCache{client: client, ttl: ttl}
}

// Version returns the survey's current cache generation.
func (c *ReportCache) Version(ctx context.Context, surveyID int64) (int64, error) {
	v, err := c.client.Get(ctx, versionKey(surveyID)).Int64()
	if err == redis.Nil {
		return 0, nil
	}
	if err != nil {
		metrics.IncReportCache("error")
	}
	return v, err
}

func (c *ReportCache) GetReport(ctx context.Context, surveyID, version int64, key string) (*stats.Report, bool, error) {
	v, err := c.client.Get(ctx, reportKey(surveyID, version, key)).Result()
	if err == redis.Nil {
		metrics.IncReportCache("miss")
		return nil, false, nil
	}
	if err != nil {
		metrics.IncReportCache("error")
		return nil, false, err
	}

	var r stats.Report
	if err := json.Unmarshal([]byte(v), &r); err != nil {
		metrics.IncReportCache("error")
		return nil, false, err
	}
	metrics.IncReportCache("hit")
	return &r, true, nil
}

// SetReport stores r under the generation it was computed for. A write for a
// generation that has since been invalidated lands in an orphaned namespace.
func (c *ReportCache) SetReport(ctx context.Context, surveyID, version int64, key string, r *stats.Report) error {
	b, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return c.client.Set(ctx, reportKey(surveyID, version, key), b, c.ttl).Err()
}

// Invalidate drops every cached report variant of a survey.
func (c *ReportCache) Invalidate(ctx context.Context, surveyID int64) error {
	return c.client.Incr(ctx, versionKey(surveyID)).Err()
}

func versionKey(surveyID int64) string {
	return fmt.Sprintf("stats:survey:%d:v", surveyID)
}

func reportKey(surveyID, version int64, key string) string {
	return fmt.Sprintf("stats:survey:%d:%d:%s", surveyID, version, key)
}

// NewRedis connects to Redis and verifies the connection with a ping.
func NewRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return client, nil
}
