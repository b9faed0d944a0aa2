// Package curve25519 implements the Curve25519 key primitives the session
// core is built on: clamped scalar generation and X25519 shared secrets.
package curve25519

import (
	"golang.org/x/crypto/curve25519"
)

const KeyLength = 32

type PublicKey [KeyLength]byte

type PrivateKey [KeyLength]byte

// KeyPair is a Curve25519 key pair. Zero value is not usable; construct via
// GenerateKeyPair.
type KeyPair struct {
	Public  PublicKey
	Private PrivateKey
}

// clamp applies the standard Curve25519 clamping rules to a 32-byte scalar
// in place: clear bits 0,1,2 of byte 0, clear bit 7 of byte 31, set bit 6 of
// byte 31.
func clamp(scalar *[KeyLength]byte) {
	scalar[0] &= 248
	scalar[31] &= 127
	scalar[31] |= 64
}

// GenerateKeyPair derives a key pair from 32 bytes of seed entropy. The seed
// is clamped per Curve25519 rules and the result stored as the private
// scalar; the public key is the base-point multiplication of that scalar.
// The caller must zero seed after this call returns.
func GenerateKeyPair(seed *[KeyLength]byte) KeyPair {
	var kp KeyPair
	copy(kp.Private[:], seed[:])
	clamp((*[KeyLength]byte)(&kp.Private))

	var pub [KeyLength]byte
	curve25519.ScalarBaseMult(&pub, (*[KeyLength]byte)(&kp.Private))
	kp.Public = PublicKey(pub)
	return kp
}

// Wipe zeroes the private scalar. Public keys are not secret and are left
// untouched.
func (kp *KeyPair) Wipe() {
	WipeBytes(kp.Private[:])
}

// WipeBytes zeroes an arbitrary secret buffer in place. Every stack buffer
// holding a shared secret, a chain key, or a message key must be passed
// through this on all exit paths, including error paths.
func WipeBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
