package repository

import (
	"context"
	"time"
)

// SeenHashRepository remembers content hashes recently observed for a topic,
// backing cross-page deduplication.
type SeenHashRepository interface {
	// MarkIfUnseen records the hash for the topic with an expiry unless it
	// was already recorded. Atomic: of N concurrent calls for the same
	// topic and hash, exactly one observes alreadySeen == false.
	MarkIfUnseen(ctx context.Context, topic, hash string, expiry time.Duration) (alreadySeen bool, err error)
}
