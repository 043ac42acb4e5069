package renewals

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/redis/go-redis/v9"
)

const (
	revokeStatusNotFound       int64 = 0
	revokeStatusAlreadyRevoked int64 = 1
	revokeStatusRevoked        int64 = 2
)

const createRecordScript = `
if redis.call("EXISTS", KEYS[1]) == 1 then
  return 0
end
redis.call("HSET", KEYS[1], "user_id", ARGV[1], "hashed_token", ARGV[2], "revoked", "0", "created_at", ARGV[3])
redis.call("SADD", KEYS[2], ARGV[4])
return 1
`

var createRecordLua = redis.NewScript(createRecordScript)

const markRevokedScript = `
if redis.call("EXISTS", KEYS[1]) == 0 then
  return 0
end
if redis.call("HGET", KEYS[1], "revoked") == "1" then
  return 1
end
redis.call("HSET", KEYS[1], "revoked", "1", "revoked_at", ARGV[1])
return 2
`

var markRevokedLua = redis.NewScript(markRevokedScript)

const markAllRevokedScript = `
local ids = redis.call("SMEMBERS", KEYS[1])
local changed = 0
for _, id in ipairs(ids) do
  local key = ARGV[1] .. id
  if redis.call("EXISTS", key) == 1 and redis.call("HGET", key, "revoked") ~= "1" then
    redis.call("HSET", key, "revoked", "1", "revoked_at", ARGV[2])
    changed = changed + 1
  end
end
return changed
`

var markAllRevokedLua = redis.NewScript(markAllRevokedScript)

// RedisRepository keeps one hash per record plus a per-user index set. Every
// mutation runs as a single Lua script, so the revoke compare-and-set holds
// across concurrent server instances.
type RedisRepository struct {
	rdb    redis.UniversalClient
	prefix string
	now    func() time.Time
}

func NewRedisRepository(rdb redis.UniversalClient, prefix string) *RedisRepository {
	if prefix == "" {
		prefix = "renewal"
	}
	return &RedisRepository{rdb: rdb, prefix: prefix, now: time.Now}
}

func (r *RedisRepository) key(id string) string {
	return r.prefix + ":" + id
}

func (r *RedisRepository) userKey(userID string) string {
	return r.prefix + ":user:" + userID
}

func (r *RedisRepository) Create(ctx context.Context, rec *models.RenewalRecord) error {
	created := r.now().UTC()
	res, err := createRecordLua.Run(ctx, r.rdb,
		[]string{r.key(rec.ID), r.userKey(rec.UserID)},
		rec.UserID, rec.TokenHash, strconv.FormatInt(created.UnixNano(), 10), rec.ID,
	).Int64()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	if res == 0 {
		return common.ErrAlreadyExists
	}
	rec.CreatedAt = created
	rec.Revoked = false
	rec.RevokedAt = nil
	return nil
}

func (r *RedisRepository) GetByID(ctx context.Context, id string) (*models.RenewalRecord, error) {
	fields, err := r.rdb.HGetAll(ctx, r.key(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}
	if len(fields) == 0 {
		return nil, common.ErrorNotFound
	}

	rec := &models.RenewalRecord{
		ID:        id,
		UserID:    fields["user_id"],
		TokenHash: fields["hashed_token"],
		Revoked:   fields["revoked"] == "1",
	}
	created, err := parseUnixNano(fields["created_at"])
	if err != nil {
		return nil, fmt.Errorf("corrupt record %s: %w", id, err)
	}
	rec.CreatedAt = created
	if v, ok := fields["revoked_at"]; ok && v != "" {
		revokedAt, err := parseUnixNano(v)
		if err != nil {
			return nil, fmt.Errorf("corrupt record %s: %w", id, err)
		}
		rec.RevokedAt = &revokedAt
	}
	return rec, nil
}

func (r *RedisRepository) MarkRevoked(ctx context.Context, id string) error {
	status, err := markRevokedLua.Run(ctx, r.rdb,
		[]string{r.key(id)},
		strconv.FormatInt(r.now().UTC().UnixNano(), 10),
	).Int64()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}

	switch status {
	case revokeStatusRevoked:
		return nil
	case revokeStatusAlreadyRevoked:
		return common.ErrAlreadyRevoked
	case revokeStatusNotFound:
		return common.ErrorNotFound
	default:
		return fmt.Errorf("redis error: unexpected revoke status %d", status)
	}
}

func (r *RedisRepository) MarkAllRevokedForUser(ctx context.Context, userID string) (int64, error) {
	n, err := markAllRevokedLua.Run(ctx, r.rdb,
		[]string{r.userKey(userID)},
		r.prefix+":", strconv.FormatInt(r.now().UTC().UnixNano(), 10),
	).Int64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, fmt.Errorf("redis error: %w", err)
	}
	return n, nil
}

func parseUnixNano(s string) (time.Time, error) {
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(0, n).UTC(), nil
}
