// Package sessioncore is the session and rate-limit core of a multi-role
// web platform: a Redis-backed session store with per-role concurrency
// caps, JWT identity tokens bound to those sessions, single-use password
// reset tokens, and a sliding-window rate limiter built on sorted sets.
//
// The package is a library, not a server. A host application constructs a
// [Core] from a [Config] and an injected Redis client, then authenticates
// requests through [Gate] (or the middleware package) and throttles them
// with rate.Limiter instances.
//
// # Architecture boundaries
//
// sessioncore owns session lifecycle, token issuance/validation, and
// request throttling. It deliberately excludes routing, business-level
// authorization, templating, and persistence beyond what Redis TTLs give:
// those belong to the host application.
//
// # Concurrency model
//
// No component holds in-process mutable state; all shared state lives in
// Redis. Cross-request coordination uses single-key TTL operations and
// MULTI/EXEC batches, never in-process locks, so any number of stateless
// process instances can share one Redis.
package sessioncore
