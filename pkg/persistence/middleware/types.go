package middleware

import "github.com/aretw0/animgate/pkg/ports"

// Middleware allows wrapping a ControllerStore to add behavior.
type Middleware func(ports.ControllerStore) ports.ControllerStore

// Chain wraps store with mws. The first middleware is the outermost.
func Chain(store ports.ControllerStore, mws ...Middleware) ports.ControllerStore {
	for i := len(mws) - 1; i >= 0; i-- {
		store = mws[i](store)
	}
	return store
}
