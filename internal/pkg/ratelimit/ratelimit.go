package ratelimit

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/SocialPulseApp/SocialPulse/internal/pkg/env"
)

// checkAndIncrScript performs the whole check-and-increment server-side.
// Doing GET + INCR from the caller would let two concurrent requests both
// observe a pre-limit value and over-admit; the script closes that race.
// Returns {count, ttlSeconds, admitted}.
var checkAndIncrScript = redis.NewScript(`
local current = redis.call("GET", KEYS[1])
local limit = tonumber(ARGV[1])
if current and tonumber(current) >= limit then
	local ttl = redis.call("TTL", KEYS[1])
	return {tonumber(current), ttl, 0}
end
local count = redis.call("INCR", KEYS[1])
if count == 1 then
	redis.call("EXPIRE", KEYS[1], tonumber(ARGV[2]))
end
local ttl = redis.call("TTL", KEYS[1])
return {count, ttl, 1}
`)

// Rule is the limit configuration for one (scope, action) pair.
type Rule struct {
	Limit  int
	Window time.Duration
}

// Result reports the outcome of one Allow call.
type Result struct {
	Allowed   bool
	Count     int64
	Limit     int
	Remaining int64
	ResetIn   time.Duration
}

// LimitExceededError is returned by AllowOrErr when the counter is full.
// ResetIn tells the caller when the window reopens.
type LimitExceededError struct {
	Key     string
	ResetIn time.Duration
}

func (e *LimitExceededError) Error() string {
	return fmt.Sprintf("rate limit exceeded for %s, resets in %s", e.Key, e.ResetIn)
}

// Limiter enforces counters in Redis keyed by
// rate_limit:{scope}:{subject}:{action}.
type Limiter struct {
	client   *redis.Client
	rules    map[string]Rule
	fallback Rule
}

// New builds a limiter with the default rule set. Unknown (scope, action)
// pairs fall back to the general default, which can be tuned via
// RATE_LIMIT_DEFAULT_LIMIT / RATE_LIMIT_DEFAULT_WINDOW_SECONDS.
func New(client *redis.Client) *Limiter {
	return NewWithRules(client, DefaultRules(), defaultFallback())
}

// NewWithRules builds a limiter with an explicit rule table.
func NewWithRules(client *redis.Client, rules map[string]Rule, fallback Rule) *Limiter {
	return &Limiter{
		client:   client,
		rules:    rules,
		fallback: fallback,
	}
}

// DefaultRules returns the built-in (scope, action) rule table.
func DefaultRules() map[string]Rule {
	return map[string]Rule{
		ruleKey("platform", "publish_post"):    {Limit: 30, Window: time.Minute},
		ruleKey("platform", "publish_message"): {Limit: 60, Window: time.Minute},
		ruleKey("api", "queue_inspect"):        {Limit: 120, Window: time.Minute},
	}
}

func defaultFallback() Rule {
	limit, err := strconv.Atoi(env.GetEnv("RATE_LIMIT_DEFAULT_LIMIT", "60"))
	if err != nil || limit <= 0 {
		limit = 60
	}
	window, err := strconv.Atoi(env.GetEnv("RATE_LIMIT_DEFAULT_WINDOW_SECONDS", "60"))
	if err != nil || window <= 0 {
		window = 60
	}
	return Rule{Limit: limit, Window: time.Duration(window) * time.Second}
}

func ruleKey(scope, action string) string {
	return scope + ":" + action
}

// RuleFor resolves the rule for a (scope, action) pair, falling back to the
// general default when no specific entry exists.
func (l *Limiter) RuleFor(scope, action string) Rule {
	if r, ok := l.rules[ruleKey(scope, action)]; ok {
		return r
	}
	return l.fallback
}

// Key formats the Redis counter key for a (scope, subject, action) triple.
func Key(scope, subject, action string) string {
	return fmt.Sprintf("rate_limit:%s:%s:%s", scope, subject, action)
}

// Allow atomically checks and increments the counter for the triple. When
// the counter is already at the limit nothing is incremented and the current
// count plus remaining TTL are reported back.
func (l *Limiter) Allow(ctx context.Context, scope, subject, action string) (*Result, error) {
	rule := l.RuleFor(scope, action)
	key := Key(scope, subject, action)

	raw, err := checkAndIncrScript.Run(ctx, l.client, []string{key},
		rule.Limit, int(rule.Window.Seconds())).Result()
	if err != nil {
		return nil, fmt.Errorf("rate limit script failed for %s: %w", key, err)
	}

	vals, ok := raw.([]interface{})
	if !ok || len(vals) != 3 {
		return nil, fmt.Errorf("unexpected rate limit script reply for %s: %v", key, raw)
	}

	count, _ := vals[0].(int64)
	ttl, _ := vals[1].(int64)
	admitted, _ := vals[2].(int64)

	result := &Result{
		Allowed: admitted == 1,
		Count:   count,
		Limit:   rule.Limit,
	}
	if remaining := int64(rule.Limit) - count; remaining > 0 {
		result.Remaining = remaining
	}
	if ttl > 0 {
		result.ResetIn = time.Duration(ttl) * time.Second
	}
	return result, nil
}

// AllowOrErr is the error-shaped variant of Allow for callers that treat a
// full window as a failure condition.
func (l *Limiter) AllowOrErr(ctx context.Context, scope, subject, action string) (*Result, error) {
	res, err := l.Allow(ctx, scope, subject, action)
	if err != nil {
		return nil, err
	}
	if !res.Allowed {
		return res, &LimitExceededError{
			Key:     Key(scope, subject, action),
			ResetIn: res.ResetIn,
		}
	}
	return res, nil
}
