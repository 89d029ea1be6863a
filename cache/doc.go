// Package cache provides the cross-call tier of the template engine's cache:
// an expiring, sharded, concurrency-safe key/value store with an optional
// background janitor.
package cache
