package auth

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math/big"
)

// GenerateCode returns a 6-digit zero-padded code, uniformly random over
// [0, 999999].
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", fmt.Errorf("failed to generate code: %w", err)
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// DigestCode computes the keyed digest under which a one-time code is
// stored. Plaintext codes never reach the database.
func DigestCode(code string, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(code))
	return hex.EncodeToString(mac.Sum(nil))
}

// CodeMatches compares a submitted code against a stored digest.
func CodeMatches(code string, digest string, secret []byte) bool {
	expected, err := hex.DecodeString(digest)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(code))
	return hmac.Equal(mac.Sum(nil), expected)
}
