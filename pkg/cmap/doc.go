// Package cmap provides a concurrent map sharded by key hash.
//
// Each shard has its own RWMutex, so goroutines working on different
// keys rarely contend. Keys are strings (or string types) hashed with
// murmur3.
//
//	m := cmap.New[string, *rate.Limiter]()
//	l := m.GetOrCreate(ip, newLimiter)
//	m.DeleteFunc(func(ip string, l *rate.Limiter) bool { return idle(l) })
package cmap
