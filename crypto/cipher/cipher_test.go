package cipher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptBodyRoundTrip(t *testing.T) {
	var key [32]byte
	for i := range key {
		key[i] = byte(i)
	}
	plaintext := []byte("hello, ratchet")

	ciphertext, err := EncryptBody(&key, plaintext)
	require.NoError(t, err)

	got, err := DecryptBody(&key, ciphertext)
	require.NoError(t, err)
	assert.Equal(t, plaintext, got)
}

func TestTagVerify(t *testing.T) {
	var key [32]byte
	data := []byte("header+ciphertext")

	tag, err := Tag(&key, data)
	require.NoError(t, err)
	assert.Len(t, tag, MacLength)

	ok, err := VerifyTag(&key, data, tag)
	require.NoError(t, err)
	assert.True(t, ok)

	tag[0] ^= 0xff
	ok, err = VerifyTag(&key, data, tag)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifyTagRejectsTamperedData(t *testing.T) {
	var key [32]byte
	tag, err := Tag(&key, []byte("original"))
	require.NoError(t, err)

	ok, err := VerifyTag(&key, []byte("tampered"), tag)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMaxPlaintextLength(t *testing.T) {
	got, err := MaxPlaintextLength(EncryptOutputLength(5))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, got, 5)
}

func TestRandomLengthIsZero(t *testing.T) {
	assert.Equal(t, 0, RandomLength())
}
