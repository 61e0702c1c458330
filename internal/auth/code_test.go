package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCode(t *testing.T) {
	for i := 0; i < 100; i++ {
		code, err := GenerateCode()
		require.NoError(t, err)
		require.Len(t, code, 6, "codes are zero-padded to six digits")
		for _, c := range code {
			assert.True(t, c >= '0' && c <= '9')
		}
	}
}

func TestDigestCode(t *testing.T) {
	secret := []byte("code-hmac-secret")

	digest := DigestCode("042137", secret)
	assert.Len(t, digest, 64, "hex-encoded SHA-256 digest")
	assert.NotContains(t, digest, "042137")

	// Same code, same secret, same digest.
	assert.Equal(t, digest, DigestCode("042137", secret))

	// A different secret changes the digest.
	assert.NotEqual(t, digest, DigestCode("042137", []byte("other-secret")))
}

func TestCodeMatches(t *testing.T) {
	secret := []byte("code-hmac-secret")
	digest := DigestCode("042137", secret)

	assert.True(t, CodeMatches("042137", digest, secret))
	assert.False(t, CodeMatches("042138", digest, secret))
	assert.False(t, CodeMatches("042137", digest, []byte("other-secret")))
	assert.False(t, CodeMatches("042137", "not-hex", secret))
}
