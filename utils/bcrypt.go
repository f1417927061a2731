package utils

import "golang.org/x/crypto/bcrypt"

// HashPassword hashes an owner password for storage on the business record.
func HashPassword(password string) ([]byte, error) {
	return bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
}

// ComparePassword reports a non-nil error when the plain password does not
// match the stored hash.
func ComparePassword(hashed string, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}
