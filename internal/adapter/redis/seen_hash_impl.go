package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const seenHashPrefix = "discovery:seen:"

// SeenHashRepoImpl tracks recently observed content hashes per topic using
// expiring Redis keys.
type SeenHashRepoImpl struct {
	client *redis.Client
}

// NewSeenHashRepo creates a new SeenHashRepoImpl.
func NewSeenHashRepo(client *redis.Client) *SeenHashRepoImpl {
	return &SeenHashRepoImpl{client: client}
}

func (r *SeenHashRepoImpl) key(topic, hash string) string {
	return fmt.Sprintf("%s%s:%s", seenHashPrefix, topic, hash)
}

// MarkIfUnseen records the hash for the topic unless already present. SET NX
// with an expiry is a single atomic operation, so concurrent workers racing
// on the same content agree on exactly one winner.
func (r *SeenHashRepoImpl) MarkIfUnseen(ctx context.Context, topic, hash string, expiry time.Duration) (bool, error) {
	set, err := r.client.SetNX(ctx, r.key(topic, hash), "1", expiry).Result()
	if err != nil {
		return false, err
	}
	return !set, nil
}
