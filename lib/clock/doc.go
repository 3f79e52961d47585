// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

// Package clock provides the injectable time source used across
// staticrel. Code that measures job durations, stamps result records,
// or waits out a GitHub rate-limit window takes a Clock instead of
// calling the time package directly.
//
// Production wiring uses Real(). Tests use Fake(), which stands still
// until Advance is called:
//
//	fake := clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
//	go client.waitForRateLimit(ctx) // registers an After waiter
//	fake.WaitForWaiters(1)
//	fake.Advance(time.Minute)
package clock
