package auth

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/bcrypt"

	"github.com/mattyz777/matt-conduit/internal/apperr"
)

// bcrypt only looks at the first 72 bytes of its input.
const maxBcryptInput = 72

// prehashMarker starts every folded input and no raw one, so the two never collide.
const prehashMarker = "$prehash-v1$"

var prehashKey = []byte("matt-conduit/bcrypt-prehash")

// BcryptHasher hashes and verifies passwords. It holds no mutable state.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher returns a hasher with the given cost. Out-of-range costs fall back to bcrypt.DefaultCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash returns a salted bcrypt digest of password.
func (h *BcryptHasher) Hash(password string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword(prepare(password), h.cost)
	if err != nil {
		return "", apperr.HashingFailure(err)
	}
	return string(digest), nil
}

// Verify reports whether password matches digest. A mismatch is (false, nil);
// a malformed digest is (false, HashingFailure).
func (h *BcryptHasher) Verify(password, digest string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(digest), prepare(password))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, apperr.HashingFailure(err)
}

// prepare folds passwords longer than bcrypt's input limit into a keyed digest so that
// every byte counts. Inputs that already look folded are folded again; a bare SHA-256
// of the password is never accepted in its place.
func prepare(password string) []byte {
	raw := []byte(password)
	if len(raw) <= maxBcryptInput && !bytes.HasPrefix(raw, []byte(prehashMarker)) {
		return raw
	}
	mac := hmac.New(sha256.New, prehashKey)
	mac.Write(raw)
	return append([]byte(prehashMarker), base64.StdEncoding.EncodeToString(mac.Sum(nil))...)
}
