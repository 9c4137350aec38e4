// Package goPassport is the authentication core of an HTTP API: it verifies an
// account/password pair at login and validates the bearer token attached to
// every later request.
//
// The package is designed for concurrent server workloads: [Engine],
// [CredentialVerifier] and [TokenValidator] are safe to call from multiple
// goroutines after initialization through [Builder.Build].
//
// # Outcomes
//
// Both strategies return an [Outcome]: either an authenticated [Principal] or
// exactly one [RejectionKind] from a closed set (unknown account, invalid
// password, expired, invalid token, unknown). Faults never escape as panics.
//
// # Token lifecycle
//
// A bearer token is only honoured while it is a member of its principal's
// active-token collection in the [UserDirectory]; removing it there revokes it
// immediately. Expired tokens are still accepted on the grace-exempt paths
// (by default "/user/extend" and "/user/logout") so a client can renew or
// log out.
//
// # Architecture boundaries
//
// goPassport is the public surface. Flow logic lives in internal/flows and is
// free of I/O; persistence is behind [UserDirectory] (see the directory
// packages), signatures behind [ClaimsDecoder], hashing behind
// [PasswordHasher].
//
// # What this package must NOT do
//
//   - Mutate the directory. Issuing, extending and revoking tokens is the
//     router's job.
//   - Write HTTP responses (see the middleware package).
//   - Import any sub-package that re-imports goPassport (no import cycles).
package goPassport
