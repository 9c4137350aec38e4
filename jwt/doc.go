// Package jwt verifies bearer-token signatures and decodes their claims, and
// signs tokens for routers that issue them.
//
// # Expiry
//
// [Manager.ParseAccess] verifies the signature, algorithm, key ID, issuer and
// audience, and requires "sub" and "exp" to be present, but it deliberately
// does NOT reject expired tokens. Expiry is decided by the token validator so
// grace-exempt paths (token extend, logout) stay reachable.
//
// # What this package must NOT do
//
//   - Consult any user directory or active-token collection.
//   - Import goPassport (the root package adapts [AccessClaims] to its own Claims).
package jwt
