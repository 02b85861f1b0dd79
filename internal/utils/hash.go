package utils

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// PasswordCost is the fixed bcrypt cost for every stored password.
const PasswordCost = 10

var hashPrefixes = []string{"$2a$", "$2b$", "$2y$"}

// HashPassword returns a bcrypt hash of the provided password.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	return string(bytes), err
}

// CheckPassword compares a bcrypt hashed password with its possible plaintext equivalent.
func CheckPassword(hashedPassword, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// bcryptHashLen is the length of every encoded bcrypt hash.
const bcryptHashLen = 60

// IsHashed reports whether value is a well-formed bcrypt hash. A bare prefix
// marker is not enough: "$2a$hunter22" is a plaintext password.
func IsHashed(value string) bool {
	if len(value) != bcryptHashLen {
		return false
	}
	prefixed := false
	for _, p := range hashPrefixes {
		if strings.HasPrefix(value, p) {
			prefixed = true
			break
		}
	}
	if !prefixed {
		return false
	}
	_, err := bcrypt.Cost([]byte(value))
	return err == nil
}

// EnsureHashed hashes value unless it is already a bcrypt hash.
func EnsureHashed(value string) (string, error) {
	if value == "" || IsHashed(value) {
		return value, nil
	}
	return HashPassword(value)
}
