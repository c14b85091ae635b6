package redis

import (
	"context"
	"fmt"
	"time"
)

// FixedWindowAllow counts a hit against scope and reports whether the count
// is still within limit for the current window. The window starts with the
// first hit. A counter left without expiry (the process died between INCR and
// EXPIRE) gets its TTL restored on the next hit.
func (c *Client) FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error) {
	s, err := c.cmd()
	if err != nil {
		return false, 0, err
	}
	k := c.RateLimitKey(scope)

	count, err := s.Incr(ctx, k).Result()
	if err != nil {
		return false, 0, fmt.Errorf("incr %s: %w", k, err)
	}
	if window > 0 {
		needsTTL := count == 1
		if !needsTTL {
			ttl, err := s.TTL(ctx, k).Result()
			needsTTL = err == nil && ttl < 0
		}
		if needsTTL {
			if err := s.Expire(ctx, k, window).Err(); err != nil {
				return false, count, fmt.Errorf("expire %s: %w", k, err)
			}
		}
	}
	return count <= limit, count, nil
}
