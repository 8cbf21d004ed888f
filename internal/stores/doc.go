// Package stores provides the Redis-backed OTP binding store used by email
// verification.
//
// # Design
//
// A binding maps an opaque id to the email it stands in for. Each binding is a
// versioned binary record stored under "<prefix><id>" with a TTL:
//
//	version(1) attempts(2, big-endian) codeHash(32) email(rest)
//
// Ids are claimed with SET NX, so a collision is detected by the server and the
// allocator simply draws another candidate. Consume runs as a single Lua script
// (GET, compare, DEL or SET PX) and re-checks the hash in constant time.
//
// # Architecture boundaries
//
// This package owns persistence and concurrency control for bindings. It does
// NOT generate codes, send mail, or decide what a verified account may do.
//
// # What this package must NOT do
//
//   - Import goAccount or any sibling internal package.
//   - Log or expose plaintext codes.
//   - Use non-constant-time comparisons for secret matching.
package stores
