// Package directory groups the [goPassport.UserDirectory] implementations.
//
//   - redisdir stores principals and ordered active-token sets in Redis.
//   - pgdir stores them in PostgreSQL through pgx.
//
// Both implement the read contract the engine relies on and the write helpers
// routers use to issue, extend and revoke tokens. Every write that touches the
// active-token collection is atomic with respect to concurrent lookups.
package directory
