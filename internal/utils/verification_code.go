package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
)

// GenerateVerificationCode generates a random 6-digit numeric code in the
// range 100000-999999.
func GenerateVerificationCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(900000))
	if err != nil {
		return "", fmt.Errorf("failed to generate verification code: %w", err)
	}
	return strconv.Itoa(100000 + int(n.Int64())), nil
}
