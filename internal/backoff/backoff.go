// Copyright (c) 2026, R.I. Pienaar and the Choria Project contributors
//
// SPDX-License-Identifier: Apache-2.0

package backoff

import (
	"context"
	"math/rand"
	"time"
)

// Policy is a bounded exponential backoff with a small jitter
type Policy struct {
	Millis []int
}

// Default backs off between 500ms and 10s over 10 steps
var Default = Policy{Millis: steps(500, 10000, 10)}

// Quick backs off between 50ms and 2s over 5 steps, suited to request retries
var Quick = Policy{Millis: steps(50, 2000, 5)}

func steps(min int, max int, count int) []int {
	ms := make([]int, count)
	step := (max - min) / (count - 1)
	for i := range count {
		ms[i] = min + i*step
	}
	return ms
}

// Duration returns how long to sleep before attempt n, n counts from 0
func (p Policy) Duration(n int) time.Duration {
	if n >= len(p.Millis) {
		n = len(p.Millis) - 1
	}

	ms := p.Millis[n]

	// up to 10% jitter to avoid thundering herds
	return time.Duration(ms+rand.Intn(ms/10+1)) * time.Millisecond
}

// For calls fn until it succeeds or ctx is canceled, sleeping the policy
// duration between attempts. try counts from 1.
func (p Policy) For(ctx context.Context, fn func(try int) error) error {
	try := 1

	for {
		err := fn(try)
		if err == nil {
			return nil
		}

		if err := p.Sleep(ctx, p.Duration(try-1)); err != nil {
			return err
		}

		try++
	}
}

// Sleep waits for d or until ctx is canceled
func (p Policy) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// AfterFunc runs fn after the backoff duration for attempt n
func (p Policy) AfterFunc(n int, fn func()) {
	time.AfterFunc(p.Duration(n), fn)
}
