// Package ratelimit enforces per-client request budgets for the HTTP API.
package ratelimit

import (
	"context"
	"errors"
	"time"
)

// Policy names a budget of Limit requests per Window.
type Policy struct {
	Name   string
	Limit  int
	Window time.Duration
}

// Decision reports the outcome of a single Allow call.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether a keyed client may proceed under a policy.
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

var errInvalidPolicy = errors.New("rate limit policy requires a name, a positive limit and a positive window")

func (p Policy) validate() error {
	if p.Name == "" || p.Limit <= 0 || p.Window <= 0 {
		return errInvalidPolicy
	}
	return nil
}
