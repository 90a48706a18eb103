// package server implements the development sync server: an in-memory
// progress backend speaking the same REST surface the HTTP remote client
// consumes, plus a websocket hub that fans realtime events out to connected
// sessions.
//
// It exists so two CLI sessions on one machine can exercise offline-queue
// replay and realtime reconciliation end to end. It is a test double with a
// listener, not a product backend: nothing survives a restart.
package server

import (
	"net/http"
)

// Middleware wraps an http.Handler and returns a new http.Handler with
// additional behavior.
type Middleware func(http.Handler) http.Handler

// Handler is an http.Handler that knows which path patterns it serves, so
// multi-route handlers can encapsulate their own registration.
type Handler interface {
	http.Handler
	Routes() []string
}

// Router defines HTTP routing with middleware support.
type Router interface {
	Use(middleware ...Middleware)
	Handle(method, path string, handler http.Handler)
	Handler(handler Handler)
	ServeHTTP(w http.ResponseWriter, r *http.Request)
}
