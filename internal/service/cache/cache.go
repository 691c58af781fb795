package cache

import "time"

// BytesCache stores raw encoded responses with a TTL. The API handlers use it
// to absorb polling bursts without re-serializing snapshots.
type BytesCache interface {
	GetBytes(key string) (b []byte, ok bool, err error)
	SetBytes(key string, value []byte, ttl time.Duration) error
}
