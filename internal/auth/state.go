package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// StateLen is the length of a generated OAuth state value (hex encoded 16 bytes).
const StateLen = 32

// GenerateState returns a random OAuth state value.
func GenerateState() (string, error) {
	b := make([]byte, StateLen/2)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate state: %w", err)
	}
	return hex.EncodeToString(b), nil
}
