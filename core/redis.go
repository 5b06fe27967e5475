package core

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis keys for the KV-backed user store.
const (
	redisUserPrefix   = "console:user:"
	redisUserOrderKey = "console:users:order"
	redisUserSeqKey   = "console:users:seq"
)

// NewRedisClient returns a configured go-redis client from URL (e.g., redis://localhost:6379/0).
func NewRedisClient(redisURL string) (*redis.Client, error) {
	if redisURL == "" {
		return nil, errors.New("empty redis url")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	return client, nil
}

// RedisUserStore implements UserStore with one hash per user and a sorted
// set that keeps insertion order. Mutations run as Lua scripts so each one
// is atomic on the server.
type RedisUserStore struct {
	client redis.UniversalClient
}

func NewRedisUserStore(client redis.UniversalClient) *RedisUserStore {
	return &RedisUserStore{client: client}
}

var insertUserScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then
  return 0
end
local id = redis.call('INCR', KEYS[3])
redis.call('HSET', KEYS[1], 'id', id, 'name', ARGV[1], 'password_hash', ARGV[2], 'permissions', ARGV[3])
redis.call('ZADD', KEYS[2], id, ARGV[1])
return id
`)

var deleteUserScript = redis.NewScript(`
if redis.call('DEL', KEYS[1]) == 0 then
  return 0
end
redis.call('ZREM', KEYS[2], ARGV[1])
return 1
`)

func userKey(name string) string {
	return redisUserPrefix + name
}

func (s *RedisUserStore) GetUsers(ctx context.Context) ([]UserRecord, error) {
	names, err := s.client.ZRange(ctx, redisUserOrderKey, 0, -1).Result()
	if err != nil {
		return nil, err
	}
	if len(names) == 0 {
		return nil, nil
	}
	pipe := s.client.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, len(names))
	for i, name := range names {
		cmds[i] = pipe.HGetAll(ctx, userKey(name))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, err
	}
	out := make([]UserRecord, 0, len(names))
	for i, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			// deleted between ZRANGE and HGETALL
			continue
		}
		id, _ := strconv.ParseInt(fields["id"], 10, 64)
		out = append(out, UserRecord{
			ID:           id,
			Name:         names[i],
			PasswordHash: fields["password_hash"],
			Permissions:  fields["permissions"],
		})
	}
	return out, nil
}

func (s *RedisUserStore) InsertUser(ctx context.Context, name, passwordHash, permissions string) error {
	keys := []string{userKey(name), redisUserOrderKey, redisUserSeqKey}
	id, err := insertUserScript.Run(ctx, s.client, keys, name, passwordHash, permissions).Int64()
	if err != nil {
		return err
	}
	if id == 0 {
		return ErrDuplicateUser
	}
	return nil
}

func (s *RedisUserStore) DeleteUser(ctx context.Context, name string) error {
	n, err := deleteUserScript.Run(ctx, s.client, []string{userKey(name), redisUserOrderKey}, name).Int64()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}
