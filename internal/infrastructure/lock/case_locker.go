package lock

import (
	"github.com/EagleChen/mapmutex"

	"github.com/garyjia/trash-inspection/internal/application/port"
)

// CaseLocker serializes completion handling per SDK case id within one process
type CaseLocker struct {
	mutex *mapmutex.Mutex
}

// Config tunes how long TryLock keeps retrying before giving up
type Config struct {
	MaxRetry  int
	MaxDelay  float64 // nanoseconds
	BaseDelay float64 // nanoseconds
	Factor    float64
	Jitter    float64
}

// DefaultConfig retries for well under a second before reporting the case busy
func DefaultConfig() Config {
	return Config{
		MaxRetry:  200,
		MaxDelay:  100000000, // 0.1 second
		BaseDelay: 10,
		Factor:    1.1,
		Jitter:    0.2,
	}
}

// NewCaseLocker creates a locker with the given retry settings
func NewCaseLocker(cfg Config) *CaseLocker {
	return &CaseLocker{
		mutex: mapmutex.NewCustomizedMapMutex(cfg.MaxRetry, cfg.MaxDelay, cfg.BaseDelay, cfg.Factor, cfg.Jitter),
	}
}

// TryLock acquires the lock for key, returning false if it stays held
func (l *CaseLocker) TryLock(key string) bool {
	return l.mutex.TryLock(key)
}

// Unlock releases the lock for key
func (l *CaseLocker) Unlock(key string) {
	l.mutex.Unlock(key)
}

var _ port.CaseLocker = (*CaseLocker)(nil)
