// Package store provides the Redis-backed profile cache.
//
// Computed profiles are stored as JSON under "<prefix>:profile:<actor>" with a
// TTL, and a ProfileEvent is published on "<prefix>:profiles" every time a
// profile is computed, so other processes can follow scoring runs.
//
//	cache, err := store.NewRedisCache(store.RedisOptions{URL: "redis://localhost:6379"})
//	if err != nil {
//	    return err
//	}
//	defer cache.Close()
package store
