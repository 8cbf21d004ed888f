// Package audit implements async event dispatching for account lifecycle
// operations.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, zerolog line writer, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: structured audit record with timestamp, type, user, IP, metadata.
//
// # Architecture boundaries
//
// This package owns event buffering and sink delivery. It does NOT decide which
// events to emit; the Engine does.
//
// # What this package must NOT do
//
//   - Filter or suppress events based on business logic.
//   - Import goAccount or any sibling internal package.
//   - Record passwords, tokens, or verification codes.
package audit
