// Package rate implements the Redis-backed login attempt limiter.
//
// # Window semantics
//
// Fixed-window counters: INCR + conditional EXPIRE on first hit. Key
// suffixes under the configured prefix:
//   - :s: failed logins per subject
//   - :i: failed logins per client IP
//
// Only failures are counted. A successful login clears the subject
// counter; the IP counter is left to expire so one good password cannot
// reset a spraying client.
package rate
