package redis

import "context"

// deleteIfEqualsScript removes KEYS[1] only while it still holds ARGV[1], so a
// holder whose lease expired cannot delete its successor's.
const deleteIfEqualsScript = `
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0`

// DeleteIfEquals atomically deletes key when its value is value and reports
// whether it did.
func (c *Client) DeleteIfEquals(ctx context.Context, key, value string) (bool, error) {
	s, err := c.cmd()
	if err != nil {
		return false, err
	}
	n, err := s.Eval(ctx, deleteIfEqualsScript, []string{key}, value).Int64()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}
