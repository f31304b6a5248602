// Package password wraps bcrypt hashing for operator credentials.
package password

import "golang.org/x/crypto/bcrypt"

// Hash returns a bcrypt hash of the plaintext password.
func Hash(plain string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// Compare reports whether the plaintext password matches the stored hash.
func Compare(hash, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plain))
}
