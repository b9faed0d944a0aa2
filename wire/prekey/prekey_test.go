package prekey

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	identityKey := make([]byte, 32)
	baseKey := make([]byte, 32)
	for i := range identityKey {
		identityKey[i] = byte(i)
		baseKey[i] = byte(255 - i)
	}
	inner := []byte("inner ratchet message")

	length := EncodeLength(42, len(identityKey), len(baseKey), len(inner))
	buf := make([]byte, length)
	w := Encode(buf, ProtocolVersion, 42, len(identityKey), len(baseKey), len(inner))
	copy(w.IdentityKey, identityKey)
	copy(w.BaseKey, baseKey)
	copy(w.Message, inner)

	r := Decode(buf)
	require.True(t, CheckMessageFields(r))
	assert.Equal(t, identityKey, r.IdentityKey)
	assert.Equal(t, baseKey, r.BaseKey)
	assert.Equal(t, inner, r.Message)
	assert.Equal(t, uint64(42), r.OneTimeKeyID)
}

func TestDecodeMalformedIsAllZero(t *testing.T) {
	r := Decode([]byte{0x02})
	assert.False(t, CheckMessageFields(r))
	assert.Nil(t, r.IdentityKey)
	assert.Nil(t, r.BaseKey)
	assert.Nil(t, r.Message)
	assert.False(t, r.HasOneTimeKeyID)
}

func TestDecodeTruncatedField(t *testing.T) {
	buf := make([]byte, EncodeLength(1, 32, 32, 5))
	Encode(buf, ProtocolVersion, 1, 32, 32, 5)
	r := Decode(buf[:len(buf)-3])
	assert.False(t, CheckMessageFields(r))
}

func TestCheckMessageFieldsRejectsWrongKeyLength(t *testing.T) {
	length := EncodeLength(1, 16, 32, 3)
	buf := make([]byte, length)
	Encode(buf, ProtocolVersion, 1, 16, 32, 3)
	r := Decode(buf)
	assert.False(t, CheckMessageFields(r))
}
