// Package rate provides Redis-backed fixed-window counters used to throttle
// login attempts and verification resends.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key prefixes:
//   - al: failed logins per email
//   - ali: failed logins per client IP
//   - avr: verification resends per user
//
// # What this package must NOT do
//
//   - Decide what a rejected caller sees; callers map ErrRateLimited.
//   - Be imported outside the goAccount module.
package rate
