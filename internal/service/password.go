package service

import "golang.org/x/crypto/bcrypt"

// hashPassword hashes a raw password with bcrypt at the configured cost.
func hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// comparePassword reports whether the raw password matches the stored hash.
func comparePassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
