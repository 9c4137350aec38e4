// Package middleware adapts the goPassport strategies to net/http.
//
//   - [RequireToken] guards routes with the token validator and stores the
//     authenticated principal and token in the request context.
//   - [Login] reads an account/password body and runs the credential verifier.
//   - [WriteRejection] renders any rejected outcome as JSON with a localized
//     message (English and Traditional Chinese).
//
// # Architecture boundaries
//
// This package translates HTTP semantics into engine calls. Every
// authentication decision is delegated to the engine.
//
// # What this package must NOT do
//
//   - Parse or create JWTs directly.
//   - Access the user directory.
//   - Turn a rejection into anything other than the engine's RejectionKind.
package middleware
