package otp

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
)

const (
	minCode = 100000
	maxCode = 999999
)

var codePattern = regexp.MustCompile(`^[0-9]{6}$`)

// Generate returns a uniformly random 6-digit code in [100000, 999999].
func Generate() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(maxCode-minCode+1))
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%d", n.Int64()+minCode), nil
}

// Valid reports whether s has the shape of a code produced by Generate.
func Valid(s string) bool {
	return codePattern.MatchString(s)
}
