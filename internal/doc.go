// Package internal contains helpers that are private to goAccount: OTP and opaque
// verification id generation, and the hashing that ties a code to its id.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - rate: Redis-backed fixed-window throttles for login and code re-issuance
//   - stores: Redis-backed OTP bindings and the opaque-id allocator
//
// # What this package must NOT do
//
//   - Export types that appear in the public goAccount API.
//   - Be imported by any package outside the goAccount module.
package internal
