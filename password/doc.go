// Package password hashes and compares stored password hashes.
//
// # Schemes
//
// [Bcrypt] produces modular-crypt strings ($2a$/$2b$/$2y$) and is the default.
// [Argon2] produces PHC strings:
//
//	$argon2id$v=19$m=<memory>,t=<time>,p=<threads>$<salt>$<hash>
//
// [Auto] accepts either on Compare and hashes new passwords with its primary
// scheme, so [Hasher.NeedsUpgrade] can drive migration on the next login.
//
// # Compare contract
//
// Compare returns (false, nil) for a mismatch. An error means the stored hash
// cannot be interpreted; callers treat that as a fault, not a wrong password.
//
// # What this package must NOT do
//
//   - Store or retrieve passwords. Callers supply plaintext and receive hashes.
//   - Import any other goPassport package.
//   - Log plaintext passwords or hash parameters at runtime.
package password
