package fieldcrypt

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	enc, err := New([]byte("master-secret"), "org-credentials")
	require.NoError(t, err)

	stored, err := enc.Encrypt("sd_live_abc123")
	require.NoError(t, err)
	assert.True(t, IsEncrypted(stored))
	assert.NotContains(t, stored, "sd_live_abc123")

	plain, err := enc.Decrypt(stored)
	require.NoError(t, err)
	assert.Equal(t, "sd_live_abc123", plain)
}

func TestEncryptEmptyStaysEmpty(t *testing.T) {
	enc, err := New([]byte("master-secret"), "org-credentials")
	require.NoError(t, err)

	stored, err := enc.Encrypt("")
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestDecryptPlaintextPassthrough(t *testing.T) {
	enc, err := New([]byte("master-secret"), "org-credentials")
	require.NoError(t, err)

	plain, err := enc.Decrypt("legacy-plaintext-key")
	require.NoError(t, err)
	assert.Equal(t, "legacy-plaintext-key", plain)
}

func TestDecryptWithWrongPurposeFails(t *testing.T) {
	a, err := New([]byte("master-secret"), "org-credentials")
	require.NoError(t, err)
	b, err := New([]byte("master-secret"), "something-else")
	require.NoError(t, err)

	stored, err := a.Encrypt("secret")
	require.NoError(t, err)

	_, err = b.Decrypt(stored)
	assert.Error(t, err)
}

func TestNewRejectsEmptySecret(t *testing.T) {
	_, err := New(nil, "org-credentials")
	assert.Error(t, err)
}
