// Package guard persists rate-limit blocks in memcached so that runs started
// by cron keep away from a source that recently answered 429.
package guard

import (
	"errors"
	"strconv"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
)

type MemcacheGuard struct {
	client *memcache.Client
}

func NewMemcacheGuard(addr string) *MemcacheGuard {
	client := memcache.New(addr)
	client.Timeout = 500 * time.Millisecond
	return &MemcacheGuard{client: client}
}

// Blocked reports whether key is present. A cache miss is not an error.
func (m *MemcacheGuard) Blocked(key string) (bool, error) {
	_, err := m.client.Get(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// Block stores key for ttl. The value is the block length in seconds.
func (m *MemcacheGuard) Block(key string, ttl time.Duration) error {
	secs := int32(ttl.Seconds())
	if secs < 1 {
		secs = 1
	}
	return m.client.Set(&memcache.Item{
		Key:        key,
		Value:      []byte(strconv.Itoa(int(secs))),
		Expiration: secs,
	})
}

// Release clears a block early.
func (m *MemcacheGuard) Release(key string) error {
	err := m.client.Delete(key)
	if errors.Is(err, memcache.ErrCacheMiss) {
		return nil
	}
	return err
}
