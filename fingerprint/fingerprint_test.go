package fingerprint

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"olmsession/crypto/curve25519"
)

func TestFingerprintIsDeterministic(t *testing.T) {
	var pub curve25519.PublicKey
	for i := range pub {
		pub[i] = byte(i)
	}
	owner := []byte("alice@example.com")

	a := Fingerprint(pub, owner)
	b := Fingerprint(pub, owner)
	assert.Equal(t, a, b)
	for _, digit := range a {
		assert.GreaterOrEqual(t, digit, 0)
		assert.LessOrEqual(t, digit, 9)
	}
}

func TestFingerprintDiffersByOwner(t *testing.T) {
	var pub curve25519.PublicKey
	pub[0] = 1

	a := Fingerprint(pub, []byte("alice"))
	b := Fingerprint(pub, []byte("bob"))
	assert.NotEqual(t, a, b)
}

func TestFingerprintDiffersByKey(t *testing.T) {
	var pubA, pubB curve25519.PublicKey
	pubA[0] = 1
	pubB[0] = 2
	owner := []byte("same-owner")

	assert.NotEqual(t, Fingerprint(pubA, owner), Fingerprint(pubB, owner))
}
