package account

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLookupKeyMissing(t *testing.T) {
	var seed [32]byte
	a := New(&seed, 1)

	_, ok := a.LookupKey(42)
	assert.False(t, ok)
}

func TestAddAndLookupOneTimeKey(t *testing.T) {
	var identitySeed, otkSeed [32]byte
	otkSeed[0] = 8
	a := New(&identitySeed, 1)

	a.AddOneTimeKey(42, &otkSeed)

	kp, ok := a.LookupKey(42)
	assert.True(t, ok)
	assert.NotEqual(t, a.IdentityKey.Public, kp.Public)
}

func TestRemoveOneTimeKey(t *testing.T) {
	var identitySeed, otkSeed [32]byte
	a := New(&identitySeed, 1)
	a.AddOneTimeKey(42, &otkSeed)

	a.RemoveOneTimeKey(42)

	_, ok := a.LookupKey(42)
	assert.False(t, ok)
}
