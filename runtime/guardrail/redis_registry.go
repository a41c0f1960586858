package guardrail

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisMembership is a process-external binding of "which guardrail ids are
// registered somewhere in the deployment", backed by a Redis set. It never
// transports the predicate itself (Go closures cannot cross a Redis
// connection); each process still registers its own live predicates in a
// local Registry at startup. RedisMembership exists so a blueprint decoder
// running on a different process than the one that registered a guardrail
// can fail fast with a blueprint.ErrUnresolved marked as a cross-process
// miss instead of a silent local-only miss, before falling back to the
// local Registry for the actual predicate.
type RedisMembership struct {
	client *redis.Client
	key    string
}

// NewRedisMembership constructs a RedisMembership using client, storing
// membership under a single Redis set named key.
func NewRedisMembership(client *redis.Client, key string) *RedisMembership {
	if key == "" {
		key = "agentle4j:guardrail:registered"
	}
	return &RedisMembership{client: client, key: key}
}

// Announce records that id has been registered as kind ("input" or
// "output") by this process, visible to every other process sharing the
// same Redis instance.
func (m *RedisMembership) Announce(ctx context.Context, kind, id string) error {
	member := kind + ":" + id
	if err := m.client.SAdd(ctx, m.key, member).Err(); err != nil {
		return fmt.Errorf("guardrail: announce %s: %w", member, err)
	}
	return nil
}

// IsAnnounced reports whether id has been announced anywhere in the
// deployment for the given kind.
func (m *RedisMembership) IsAnnounced(ctx context.Context, kind, id string) (bool, error) {
	member := kind + ":" + id
	ok, err := m.client.SIsMember(ctx, m.key, member).Result()
	if err != nil {
		return false, fmt.Errorf("guardrail: check %s: %w", member, err)
	}
	return ok, nil
}
