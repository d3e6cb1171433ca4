// Package auth generates and checks user passwords and issues session tokens.
package auth

import (
	"crypto/rand"
	"crypto/subtle"
	"fmt"
	"math/big"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// DefaultPasswordLength is the length of generated passwords.
const DefaultPasswordLength = 8

const passwordAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GeneratePassword returns a random password of n letters and digits.
func GeneratePassword(n int) (string, error) {
	if n <= 0 {
		n = DefaultPasswordLength
	}
	var b strings.Builder
	b.Grow(n)
	limit := big.NewInt(int64(len(passwordAlphabet)))
	for range n {
		i, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("failed to generate password: %w", err)
		}
		b.WriteByte(passwordAlphabet[i.Int64()])
	}
	return b.String(), nil
}

// HashPassword returns the bcrypt hash of password. A zero cost uses
// bcrypt.DefaultCost.
func HashPassword(password string, cost int) (string, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	h, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(h), nil
}

// CheckPassword reports whether password matches stored. stored is a bcrypt
// hash, or the password itself for users imported from older databases.
func CheckPassword(stored, password string) bool {
	if isBcrypt(stored) {
		return bcrypt.CompareHashAndPassword([]byte(stored), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(password)) == 1
}

func isBcrypt(s string) bool {
	_, err := bcrypt.Cost([]byte(s))
	return err == nil
}

// Passwords generates and hashes the passwords of new users.
type Passwords struct {
	// Length of generated passwords; DefaultPasswordLength when zero.
	Length int
	// Cost is the bcrypt cost; bcrypt.DefaultCost when zero.
	Cost int
}

// Generate returns a new random password.
func (p Passwords) Generate() (string, error) {
	return GeneratePassword(p.Length)
}

// Hash returns the value to store for password.
func (p Passwords) Hash(password string) (string, error) {
	return HashPassword(password, p.Cost)
}
