package keys

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/secure-doc/imagey-cloud/internal/common"
	"github.com/secure-doc/imagey-cloud/internal/server/models"
)

const redisPrefix = "imagey"

// RedisStore keeps every scope in one hash, field = kid. HSETNX gives the
// write-once guarantee; namespaces are plain keys created with SETNX.
type RedisStore struct {
	rdb *redis.Client
}

func NewRedisStore(rdb *redis.Client) *RedisStore {
	return &RedisStore{rdb: rdb}
}

// NewRedisClient mirrors the plain client set-up used for other Redis stores.
func NewRedisClient(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr})
}

func (s *RedisStore) CreateNamespace(ctx context.Context, user string) error {
	if err := validateUser(user); err != nil {
		return err
	}
	created, err := s.rdb.SetNX(ctx, namespaceKey(user), time.Now().UTC().Format(time.RFC3339), 0).Result()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	if !created {
		return fmt.Errorf("namespace %s: %w", user, common.ErrConflict)
	}
	return nil
}

func (s *RedisStore) NamespaceExists(ctx context.Context, user string) (bool, error) {
	if err := validateUser(user); err != nil {
		return false, err
	}
	n, err := s.rdb.Exists(ctx, namespaceKey(user)).Result()
	if err != nil {
		return false, fmt.Errorf("redis error: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) StoreOnce(ctx context.Context, scope models.Scope, kid string, payload []byte) error {
	if err := validate(scope, kid); err != nil {
		return err
	}
	created, err := s.rdb.HSetNX(ctx, scopeKey(scope), kid, payload).Result()
	if err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	if !created {
		return fmt.Errorf("%s/%s: %w", scope.Kind, kid, common.ErrConflict)
	}
	return nil
}

func (s *RedisStore) StoreReplacing(ctx context.Context, scope models.Scope, kid string, payload []byte) error {
	if err := validateReplacing(scope, kid); err != nil {
		return err
	}
	if err := s.rdb.HSet(ctx, scopeKey(scope), kid, payload).Err(); err != nil {
		return fmt.Errorf("redis error: %w", err)
	}
	return nil
}

func (s *RedisStore) Load(ctx context.Context, scope models.Scope, kid string) ([]byte, bool, error) {
	if err := validate(scope, kid); err != nil {
		return nil, false, err
	}
	payload, err := s.rdb.HGet(ctx, scopeKey(scope), kid).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis error: %w", err)
	}
	return payload, true, nil
}

func (s *RedisStore) List(ctx context.Context, scope models.Scope) ([]Record, error) {
	if err := validateScope(scope); err != nil {
		return nil, err
	}
	all, err := s.rdb.HGetAll(ctx, scopeKey(scope)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis error: %w", err)
	}

	records := make([]Record, 0, len(all))
	for kid, payload := range all {
		records = append(records, Record{Kid: kid, Payload: []byte(payload)})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Kid < records[j].Kid })
	return records, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func namespaceKey(user string) string {
	return redisPrefix + ":ns:" + user
}

// scopeKey builds "imagey:keys:<kind>:<user>[/<part>...]". Scope parts are
// validated segments and never contain "/".
func scopeKey(scope models.Scope) string {
	parts := []string{scope.User}
	for _, p := range []string{scope.Device, scope.Document, scope.Recipient} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return redisPrefix + ":keys:" + string(scope.Kind) + ":" + strings.Join(parts, "/")
}
