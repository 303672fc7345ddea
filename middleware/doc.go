// Package middleware provides the net/http guard over
// [sessiongate.Engine.Authenticate]. It has no router dependency and
// composes with any mux that accepts func(http.Handler) http.Handler.
package middleware
