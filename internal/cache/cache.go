package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a stable cache key from its parts
func Key(parts ...interface{}) string {
	h := sha256.New()
	for _, p := range parts {
		// separator keeps ("ab","c") and ("a","bc") apart
		fmt.Fprintf(h, "%v\x00", p)
	}
	return "kgframe:v1:" + hex.EncodeToString(h.Sum(nil))
}

// New builds the configured cache: memory only when dir is empty,
// memory in front of disk otherwise
func New(dir string, memoryTTL, diskTTL time.Duration) Cache {
	if dir == "" {
		return NewMemoryCache(memoryTTL, 10*time.Minute)
	}
	return NewLayeredCache(memoryTTL, dir, diskTTL)
}
