// Package cache keeps serialized group histories in Redis so repeated
// HistoryOf calls skip the history table.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"personvault/internal/person/models"
)

const (
	keyPrefix        = "personvault:history:"
	versionKeyPrefix = "personvault:history-version:"
	defaultTTL       = time.Minute
	// versionTTL bounds how long a reader may hold a version between Get and
	// Set. It is refreshed on every Invalidate.
	versionTTL = 24 * time.Hour
)

// setIfVersion writes the entry only while the group's version still equals
// the one the reader observed on its miss.
var setIfVersion = redis.NewScript(`
local current = redis.call('GET', KEYS[1]) or '0'
if current ~= ARGV[1] then
	return 0
end
redis.call('SET', KEYS[2], ARGV[2], 'PX', ARGV[3])
return 1
`)

// HistoryCache stores each group's history as one JSON value with a TTL.
// Every group also carries a version counter that Invalidate advances, so a
// fill computed before a commit can never overwrite the invalidation.
type HistoryCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

// NewHistoryCache wraps client. A non-positive ttl uses the default.
func NewHistoryCache(client redis.Cmdable, ttl time.Duration) *HistoryCache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &HistoryCache{client: client, ttl: ttl}
}

type cachedRecord struct {
	ID          int64             `json:"id"`
	ChangeSetID string            `json:"change_set_id"`
	ValidFrom   time.Time         `json:"valid_from"`
	ValidTo     time.Time         `json:"valid_to"`
	Attributes  models.Attributes `json:"attributes"`
}

// Get returns the cached history. On a miss it returns the group's current
// version, which the caller hands back to Set.
func (c *HistoryCache) Get(ctx context.Context, groupID models.GroupID) ([]*models.HistoryRecord, int64, bool, error) {
	vals, err := c.client.MGet(ctx, key(groupID), versionKey(groupID)).Result()
	if err != nil {
		return nil, 0, false, fmt.Errorf("get history cache: %w", err)
	}
	raw, hit := vals[0].(string)
	if !hit {
		version, err := parseVersion(vals[1])
		if err != nil {
			return nil, 0, false, err
		}
		return nil, version, false, nil
	}

	var entries []cachedRecord
	if err := json.Unmarshal([]byte(raw), &entries); err != nil {
		return nil, 0, false, fmt.Errorf("decode history cache: %w", err)
	}
	out := make([]*models.HistoryRecord, 0, len(entries))
	for _, e := range entries {
		rec := &models.HistoryRecord{
			ID:         e.ID,
			GroupID:    groupID,
			Attributes: e.Attributes,
			ValidFrom:  e.ValidFrom.UTC(),
			ValidTo:    e.ValidTo.UTC(),
		}
		if err := rec.ChangeSetID.UnmarshalText([]byte(e.ChangeSetID)); err != nil {
			return nil, 0, false, fmt.Errorf("decode history cache change set: %w", err)
		}
		if rec.BirthDate != nil {
			bd := rec.BirthDate.UTC()
			rec.BirthDate = &bd
		}
		out = append(out, rec)
	}
	return out, 0, true, nil
}

// Set stores records if the group's version is still version. It reports
// false without error when an Invalidate got there first.
func (c *HistoryCache) Set(ctx context.Context, groupID models.GroupID, version int64, records []*models.HistoryRecord) (bool, error) {
	entries := make([]cachedRecord, 0, len(records))
	for _, r := range records {
		entries = append(entries, cachedRecord{
			ID:          r.ID,
			ChangeSetID: r.ChangeSetID.String(),
			ValidFrom:   r.ValidFrom,
			ValidTo:     r.ValidTo,
			Attributes:  r.Attributes,
		})
	}
	raw, err := json.Marshal(entries)
	if err != nil {
		return false, fmt.Errorf("encode history cache: %w", err)
	}
	keys := []string{versionKey(groupID), key(groupID)}
	stored, err := setIfVersion.Run(ctx, c.client, keys, version, raw, c.ttl.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("set history cache: %w", err)
	}
	return stored == 1, nil
}

// Invalidate advances the group's version and drops its entry atomically.
func (c *HistoryCache) Invalidate(ctx context.Context, groupID models.GroupID) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(groupID))
		pipe.Expire(ctx, versionKey(groupID), versionTTL)
		pipe.Del(ctx, key(groupID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate history cache: %w", err)
	}
	return nil
}

func parseVersion(v any) (int64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, nil
	}
	version, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decode history cache version: %w", err)
	}
	return version, nil
}

func key(groupID models.GroupID) string {
	return keyPrefix + groupID.String()
}

func versionKey(groupID models.GroupID) string {
	return versionKeyPrefix + groupID.String()
}
