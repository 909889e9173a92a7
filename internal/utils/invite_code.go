package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	inviteCodeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	// InviteCodeLength is the fixed length of league invite codes.
	InviteCodeLength = 8
)

// GenerateInviteCode generates a random invite code of 8 characters drawn
// uniformly from [A-Z0-9].
func GenerateInviteCode() (string, error) {
	charsetLen := big.NewInt(int64(len(inviteCodeCharset)))
	code := make([]byte, InviteCodeLength)
	for i := range code {
		n, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", fmt.Errorf("failed to generate random invite code: %w", err)
		}
		code[i] = inviteCodeCharset[n.Int64()]
	}
	return string(code), nil
}
