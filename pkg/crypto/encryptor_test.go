package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEncryptor_InvalidKey(t *testing.T) {
	_, err := NewEncryptor("invalid-key-format")
	assert.ErrorContains(t, err, "parsing identity")

	key, err := GenerateKey()
	require.NoError(t, err)
	_, err = NewEncryptor(key, "also-invalid")
	assert.ErrorContains(t, err, "parsing retired identity 0")
}

func TestSealOpen(t *testing.T) {
	enc, err := NewEncryptor("")
	require.NoError(t, err)

	for _, v := range []string{"", "smtp-password", "çãé unicode ✓"} {
		sealed, err := enc.Seal(v)
		require.NoError(t, err)
		assert.NotEqual(t, v, sealed)

		plain, stale, err := enc.Open(sealed)
		require.NoError(t, err)
		assert.False(t, stale)
		assert.Equal(t, v, plain)
	}
}

func TestOpen_SharedKey(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	enc1, err := NewEncryptor(key)
	require.NoError(t, err)
	enc2, err := NewEncryptor(key)
	require.NoError(t, err)

	sealed, err := enc1.Seal("api-key")
	require.NoError(t, err)
	plain, _, err := enc2.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "api-key", plain)
}

func TestOpen_Rotation(t *testing.T) {
	oldKey, err := GenerateKey()
	require.NoError(t, err)
	newKey, err := GenerateKey()
	require.NoError(t, err)

	before, err := NewEncryptor(oldKey)
	require.NoError(t, err)
	sealed, err := before.Seal("smtp-password")
	require.NoError(t, err)

	after, err := NewEncryptor(newKey, oldKey)
	require.NoError(t, err)
	plain, stale, err := after.Open(sealed)
	require.NoError(t, err)
	assert.True(t, stale)
	assert.Equal(t, "smtp-password", plain)

	resealed, err := after.Seal(plain)
	require.NoError(t, err)
	_, stale, err = after.Open(resealed)
	require.NoError(t, err)
	assert.False(t, stale)

	// Without the retired key the old value is unreadable.
	fresh, err := NewEncryptor(newKey)
	require.NoError(t, err)
	_, _, err = fresh.Open(sealed)
	assert.ErrorIs(t, err, ErrNoMatchingKey)
}

func TestOpen_InvalidBase64(t *testing.T) {
	enc, err := NewEncryptor("")
	require.NoError(t, err)

	_, _, err = enc.Open("not valid base64!!!")
	assert.ErrorContains(t, err, "decoding base64")
}
