// Package middleware provides net/http middleware over the sessioncore
// components: Guard authenticates requests for a set of roles and Throttle
// applies a rate limiter with the standard response headers.
package middleware
