package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/vietddude/docket/internal/core/domain"
)

// FailedCaseRepo implements storage.FailedCaseRepository using Redis.
// Each county keeps a sorted set of ids scored by failure time, plus one
// JSON document per id that expires after the configured TTL.
type FailedCaseRepo struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewFailedCaseRepo creates a new Redis-backed failure ledger.
func NewFailedCaseRepo(client *Client, ttl time.Duration) *FailedCaseRepo {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &FailedCaseRepo{rdb: client.rdb, ttl: ttl}
}

// Key helpers
func queueKey(county string) string {
	return fmt.Sprintf("failed_cases:%s", county)
}

func entryKey(county string, id domain.CaseID) string {
	return fmt.Sprintf("failed_case:%s:%s", county, id)
}

// Add records failed identifiers, replacing earlier entries for the same id.
func (r *FailedCaseRepo) Add(ctx context.Context, failed []domain.FailedCase) error {
	if len(failed) == 0 {
		return nil
	}

	pipe := r.rdb.TxPipeline()
	for _, fc := range failed {
		data, err := json.Marshal(fc)
		if err != nil {
			return fmt.Errorf("failed to marshal failed case: %w", err)
		}
		pipe.Set(ctx, entryKey(fc.County, fc.CaseID), data, r.ttl)
		pipe.ZAdd(ctx, queueKey(fc.County), redis.Z{
			Score:  float64(fc.RecordedAt.Unix()),
			Member: string(fc.CaseID),
		})
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to add failed cases: %w", err)
	}
	return nil
}

// List returns the ledger of county, oldest failure first.
func (r *FailedCaseRepo) List(ctx context.Context, county string) ([]domain.FailedCase, error) {
	ids, err := r.rdb.ZRange(ctx, queueKey(county), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("zrange failed: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = entryKey(county, domain.CaseID(id))
	}

	values, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("mget failed: %w", err)
	}

	var (
		out     []domain.FailedCase
		expired []any
	)
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// Data expired but ID still in queue
			expired = append(expired, ids[i])
			continue
		}
		var fc domain.FailedCase
		if err := json.Unmarshal([]byte(s), &fc); err != nil {
			return nil, fmt.Errorf("failed to unmarshal failed case: %w", err)
		}
		out = append(out, fc)
	}

	if len(expired) > 0 {
		r.rdb.ZRem(ctx, queueKey(county), expired...)
	}
	return out, nil
}

// Resolve removes ids from the ledger of county.
func (r *FailedCaseRepo) Resolve(ctx context.Context, county string, ids []domain.CaseID) error {
	if len(ids) == 0 {
		return nil
	}

	members := make([]any, len(ids))
	keys := make([]string, len(ids))
	for i, id := range ids {
		members[i] = string(id)
		keys[i] = entryKey(county, id)
	}

	pipe := r.rdb.TxPipeline()
	pipe.ZRem(ctx, queueKey(county), members...)
	pipe.Del(ctx, keys...)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to resolve failed cases: %w", err)
	}
	return nil
}

// Clear removes the whole ledger of county.
func (r *FailedCaseRepo) Clear(ctx context.Context, county string) error {
	ids, err := r.rdb.ZRange(ctx, queueKey(county), 0, -1).Result()
	if err != nil {
		return fmt.Errorf("zrange failed: %w", err)
	}

	caseIDs := make([]domain.CaseID, len(ids))
	for i, id := range ids {
		caseIDs[i] = domain.CaseID(id)
	}
	if err := r.Resolve(ctx, county, caseIDs); err != nil {
		return err
	}
	return r.rdb.Del(ctx, queueKey(county)).Err()
}
