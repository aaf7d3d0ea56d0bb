// Package hash wraps password hashing behind a small one-way
// hash/verify capability so stores never touch bcrypt directly.
package hash

import "golang.org/x/crypto/bcrypt"

// Password hashes a plaintext password for storage.
func Password(plain string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether plain matches the stored digest.
func Verify(digest, plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plain)) == nil
}
