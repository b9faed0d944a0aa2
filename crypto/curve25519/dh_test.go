package curve25519

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSharedSecretAgrees(t *testing.T) {
	seedA := [KeyLength]byte{1}
	seedB := [KeyLength]byte{2}
	a := GenerateKeyPair(&seedA)
	b := GenerateKeyPair(&seedB)

	sAB := SharedSecret(a.Private, b.Public)
	sBA := SharedSecret(b.Private, a.Public)
	assert.Equal(t, sAB, sBA)
}
