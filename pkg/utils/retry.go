// SPDX-FileCopyrightText: 2024 Deutsche Telekom AG
//
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"time"
)

// RetryConfig defines the configuration for retry operations
type RetryConfig struct {
	// InitialBackoff is the initial backoff duration before the first retry
	InitialBackoff time.Duration
	// MaxBackoff is the maximum backoff duration between retries
	MaxBackoff time.Duration
	// BackoffMultiplier is the factor by which backoff is multiplied after each retry
	BackoffMultiplier float64
}

// DefaultRetryConfig returns a sensible default retry configuration for keep-alive writes
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialBackoff:    time.Second,
		MaxBackoff:        30 * time.Second,
		BackoffMultiplier: 2.0,
	}
}

// Backoff tracks consecutive failures and yields growing delays bounded by MaxBackoff.
// It is not safe for concurrent use.
type Backoff struct {
	config  RetryConfig
	current time.Duration
}

// NewBackoff returns a Backoff for the given configuration.
func NewBackoff(config RetryConfig) *Backoff {
	return &Backoff{config: config}
}

// Next returns the delay before the next attempt and advances the backoff.
func (b *Backoff) Next() time.Duration {
	if b.current == 0 {
		b.current = b.config.InitialBackoff
	} else {
		b.current = time.Duration(float64(b.current) * b.config.BackoffMultiplier)
	}
	if b.config.MaxBackoff > 0 && b.current > b.config.MaxBackoff {
		b.current = b.config.MaxBackoff
	}
	return b.current
}

// Reset starts the sequence over after a success.
func (b *Backoff) Reset() {
	b.current = 0
}
