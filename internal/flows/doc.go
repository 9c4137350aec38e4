// Package flows contains pure-function orchestrators for the two authentication
// strategies.
//
// Each flow function ([RunVerifyCredentials], [RunValidateToken]) accepts a typed
// dependency struct and returns a classified result without side-effects beyond
// those dependencies. This keeps the decision logic testable with plain function
// fakes and keeps the root strategy types thin.
//
// # Architecture boundaries
//
// Flow functions coordinate calls to the user directory, password hasher and
// token extractor. They do NOT own any of these resources, and they do NOT map
// failures to user-facing errors; the root package does that.
//
// # What this package must NOT do
//
//   - Hold mutable state between calls.
//   - Cache directory answers across calls.
//   - Import goPassport (to avoid import cycles).
//   - Let a collaborator panic escape; panics are classified as unknown failures.
package flows
