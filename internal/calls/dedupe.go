// Package calls holds voice-call plumbing shared by the webhook endpoints.
package calls

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupeKeyPrefix = "voice:toolcall:"

// Deduper remembers recently handled tool_call_ids so a redelivered webhook
// is answered without re-running the transition. Entries expire after TTL;
// past that the merge semantics of the store make a replay harmless anyway.
type Deduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewDeduper creates a Redis-backed tool-call deduper.
func NewDeduper(client *redis.Client, ttl time.Duration) *Deduper {
	if client == nil {
		panic("calls: redis client required")
	}
	if ttl <= 0 {
		ttl = 15 * time.Minute
	}
	return &Deduper{client: client, ttl: ttl}
}

// Seen reports whether the tool call was already handled.
func (d *Deduper) Seen(ctx context.Context, toolCallID string) (bool, error) {
	n, err := d.client.Exists(ctx, dedupeKeyPrefix+toolCallID).Result()
	if err != nil {
		return false, fmt.Errorf("calls: dedupe lookup: %w", err)
	}
	return n > 0, nil
}

// Mark records the tool call as handled for the dedupe window.
func (d *Deduper) Mark(ctx context.Context, toolCallID string) error {
	if err := d.client.Set(ctx, dedupeKeyPrefix+toolCallID, "1", d.ttl).Err(); err != nil {
		return fmt.Errorf("calls: dedupe mark: %w", err)
	}
	return nil
}
