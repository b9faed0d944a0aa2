package curve25519

import (
	"golang.org/x/crypto/curve25519"
)

// SharedSecret performs the X25519 scalar multiplication of priv over pub.
// No validation of pub is performed: a low-order or otherwise degenerate
// public key produces a low-order shared secret, which the caller treats as
// semantically valid — the triple-DH handshake's authentication comes from
// combining three independent DH outputs, not from validating any one of
// them in isolation.
func SharedSecret(priv PrivateKey, pub PublicKey) [KeyLength]byte {
	var out [KeyLength]byte
	curve25519.ScalarMult(&out, (*[KeyLength]byte)(&priv), (*[KeyLength]byte)(&pub))
	return out
}
