// Package cache stores AI recommendation payloads keyed by a content
// fingerprint of the client and goals they were generated for.
//
// Key features:
//   - Any kvstore.Store as backing storage (memory, file or BadgerDB)
//   - Entries expire after a configurable TTL (default 24h) and are dropped
//     lazily on lookup
//   - A metadata index drives a two-phase cleanup: expired entries first,
//     then oldest-first eviction down to a maximum entry count (default 50)
//   - Entries carry a schema version; foreign versions are never served
//   - Storage failures degrade to "no cache" and are never fatal
//
// Because the fingerprint covers every field the metrics and the
// recommendation request depend on, editing a client or goal changes the
// key and implicitly invalidates the cached payload.
package cache
