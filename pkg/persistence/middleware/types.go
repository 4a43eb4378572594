// Package middleware decorates a ports.CacheStore with at-rest protections for
// snapshots that leave process memory (file and redis caches).
package middleware

import "github.com/aretw0/helix/pkg/ports"

// Middleware allows wrapping a CacheStore to add behavior.
type Middleware func(ports.CacheStore) ports.CacheStore

// Chain applies mws so that the first one sees a snapshot first on Save.
func Chain(store ports.CacheStore, mws ...Middleware) ports.CacheStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
