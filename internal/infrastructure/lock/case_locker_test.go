package lock

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func fastConfig() Config {
	cfg := DefaultConfig()
	cfg.MaxRetry = 3
	cfg.MaxDelay = 1000
	return cfg
}

func TestCaseLocker_ExclusivePerKey(t *testing.T) {
	l := NewCaseLocker(fastConfig())

	assert.True(t, l.TryLock("100"))
	assert.False(t, l.TryLock("100"), "same case must stay locked")
	assert.True(t, l.TryLock("200"), "other cases are independent")

	l.Unlock("100")
	assert.True(t, l.TryLock("100"))

	l.Unlock("100")
	l.Unlock("200")
}
