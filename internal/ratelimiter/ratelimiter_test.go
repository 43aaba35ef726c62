package ratelimiter

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

// No in-memory Redis test double (miniredis, redismock, ...) appears
// anywhere in the example pack, so only the fail-open nil-client path is
// covered here; the sliding-window behavior against a real Redis is
// exercised by hand against a running instance, not by this suite.

func TestAllow_NilClientFailsOpen(t *testing.T) {
	l := New(nil)

	result, err := l.Allow(context.Background(), "key-1", 5)

	assert.NoError(t, err)
	assert.True(t, result.Allowed)
	assert.Equal(t, 5, result.Limit)
	assert.Equal(t, 5, result.Remaining)
}

func TestAllow_NilClientNeverDecrementsRemaining(t *testing.T) {
	l := New(nil)

	for i := 0; i < 10; i++ {
		result, err := l.Allow(context.Background(), "key-1", 3)
		assert.NoError(t, err)
		assert.True(t, result.Allowed)
		assert.Equal(t, 3, result.Remaining)
	}
}
