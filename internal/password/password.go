// Package password hashes and verifies account credentials.
package password

import (
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/bcrypt"
)

// Cost is the bcrypt work factor used for every stored credential.
const Cost = 10

// Hash generates a bcrypt hash of the password.
func Hash(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), Cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// Verify reports whether password matches the bcrypt digest.
func Verify(password, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(password)) == nil
}

// Default builds the initial password handed to accounts created by an admin:
// the date as MM-DD-YYYY followed by the last and first names, whitespace removed.
func Default(firstName, lastName string, date time.Time) string {
	return date.Format("01-02-2006") + stripSpaces(lastName) + stripSpaces(firstName)
}

func stripSpaces(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
