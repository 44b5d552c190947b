package security

import (
	"crypto/rand"
	"encoding/hex"
)

// NewToken returns n random bytes encoded as hex
func NewToken(n int) (string, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}

	return hex.EncodeToString(b), nil
}
