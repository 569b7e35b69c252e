// Package state keeps per-user conversation sessions for Telegram bots.
//
// A session holds the active flow tag, the files staged so far, pending scalar
// parameters and the user's language. Managers never fail: a missing session
// reads as idle and writes create it. Backends are in-memory (go-cache with
// idle expiry) and Redis. Locker serializes read-modify-write sequences per user.
package state
