package curve25519

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerateKeyPairClamping(t *testing.T) {
	seed := [KeyLength]byte{}
	for i := range seed {
		seed[i] = 0xff
	}
	kp := GenerateKeyPair(&seed)

	assert.Zero(t, kp.Private[0]&0x07)
	assert.Zero(t, kp.Private[31]&0x80)
	assert.NotZero(t, kp.Private[31]&0x40)
}

func TestGenerateKeyPairDeterministic(t *testing.T) {
	seed := [KeyLength]byte{1, 2, 3}
	a := GenerateKeyPair(&seed)
	b := GenerateKeyPair(&seed)
	assert.Equal(t, a, b)
}

func TestWipeBytes(t *testing.T) {
	b := []byte{1, 2, 3, 4}
	WipeBytes(b)
	assert.Equal(t, []byte{0, 0, 0, 0}, b)
}
