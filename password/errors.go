package password

import "errors"

// MaxPasswordBytes bounds the plaintext accepted by Hash. Longer inputs never
// match on Compare.
const MaxPasswordBytes = 1024

var (
	// ErrEmptyPassword is returned by Hash for an empty plaintext.
	ErrEmptyPassword = errors.New("password must not be empty")
	// ErrPasswordTooLong is returned by Hash when the plaintext exceeds the
	// algorithm's limit.
	ErrPasswordTooLong = errors.New("password too long")
	// ErrMalformedHash is returned by Compare when the stored hash cannot be parsed.
	ErrMalformedHash = errors.New("malformed password hash")
	// ErrUnsupportedHash is returned by Auto.Compare for hashes of an unknown scheme.
	ErrUnsupportedHash = errors.New("unsupported password hash scheme")
)
