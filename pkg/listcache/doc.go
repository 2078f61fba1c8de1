// Package listcache stores each user's materialized visible-projects list.
//
// Two backends implement projects.ListCache:
//
//   - MemoryCache: a size-bounded expirable LRU, private to one process.
//   - RedisCache: JSON values under "user-projects:<id>", shared by every
//     replica.
//
// Entries are keyed by user id only. Both backends treat a missing or
// expired entry as a miss and never return partial lists.
package listcache

import "fmt"

// KeyPrefix namespaces list entries in shared stores
const KeyPrefix = "user-projects:"

// Key returns the cache key for a user's visible-projects list
func Key(userID int64) string {
	return fmt.Sprintf("%s%d", KeyPrefix, userID)
}
