// Package redisdir implements [goPassport.UserDirectory] on Redis.
//
// # Consistency
//
// The active-token lookup, account creation and token replacement each run
// as a single Lua script, so a reader never sees a token that was replaced or
// revoked before the read started. Additions use MULTI/EXEC.
//
// # What this package must NOT do
//
//   - Decode or verify tokens. Tokens are opaque members of a sorted set.
//   - Hash passwords. Callers pass already-hashed values to Create.
package redisdir
