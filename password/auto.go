package password

import "strings"

// Hasher is the common surface of the hashers in this package.
type Hasher interface {
	Hash(password string) (string, error)
	Compare(password, hash string) (bool, error)
	NeedsUpgrade(hash string) (bool, error)
}

// Auto compares against bcrypt or argon2id hashes by inspecting the stored
// hash's prefix, and hashes new passwords with its primary hasher. Hashes in
// the other scheme report [Auto.NeedsUpgrade] so a router can rehash them
// after a successful login.
type Auto struct {
	primary Hasher
	bcrypt  *Bcrypt
	argon2  *Argon2
}

// NewAuto returns an Auto hasher. primary must be b or a.
func NewAuto(primary Hasher, b *Bcrypt, a *Argon2) *Auto {
	return &Auto{primary: primary, bcrypt: b, argon2: a}
}

// Hash hashes with the primary hasher.
func (h *Auto) Hash(password string) (string, error) {
	return h.primary.Hash(password)
}

// Compare dispatches to the hasher matching hash's scheme.
func (h *Auto) Compare(password, hash string) (bool, error) {
	sub, err := h.pick(hash)
	if err != nil {
		return false, err
	}
	return sub.Compare(password, hash)
}

// NeedsUpgrade is true for any hash not produced by the primary scheme, and
// otherwise defers to the primary hasher.
func (h *Auto) NeedsUpgrade(hash string) (bool, error) {
	sub, err := h.pick(hash)
	if err != nil {
		return false, err
	}
	if sub != h.primary {
		return true, nil
	}
	return sub.NeedsUpgrade(hash)
}

func (h *Auto) pick(hash string) (Hasher, error) {
	switch {
	case isBcryptHash(hash) && h.bcrypt != nil:
		return h.bcrypt, nil
	case strings.HasPrefix(hash, argon2Prefix) && h.argon2 != nil:
		return h.argon2, nil
	default:
		return nil, ErrUnsupportedHash
	}
}
