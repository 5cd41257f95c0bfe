package utils

import (
	"strings"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

// HashPassword returns the bcrypt hash of the password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}

// CheckPassword compares the bcrypt hashed password with its possible plaintext equivalent.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// ValidatePassword returns human readable problems with a new password, or nil.
func ValidatePassword(password, username string) []string {
	var problems []string
	if len([]rune(password)) < minPasswordLength {
		problems = append(problems, "This password is too short. It must contain at least 8 characters.")
	}
	allDigits := password != ""
	for _, r := range password {
		if !unicode.IsDigit(r) {
			allDigits = false
			break
		}
	}
	if allDigits {
		problems = append(problems, "This password is entirely numeric.")
	}
	if username != "" {
		lp, lu := strings.ToLower(password), strings.ToLower(username)
		if strings.Contains(lp, lu) || strings.Contains(lu, lp) {
			problems = append(problems, "The password is too similar to the username.")
		}
	}
	return problems
}
