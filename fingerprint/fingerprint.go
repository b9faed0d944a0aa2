// Package fingerprint computes a human-comparable representation of an
// identity key, for the out-of-band verification step the session core's
// caller is responsible for (identity keys are never authenticated by the
// handshake itself). Operates on a Curve25519 public key.
package fingerprint

import (
	"crypto/sha512"
	"encoding/binary"

	"olmsession/crypto/curve25519"
)

// iterations is the number of SHA-512 rounds applied, matching the scheme
// documented as "Signal safety numbers".
const iterations = 5200

// Fingerprint renders pub, salted with owner, as 30 decimal digits split
// into 6 groups of 5.
func Fingerprint(pub curve25519.PublicKey, owner []byte) [30]int {
	digest := append(append([]byte{}, pub[:]...), owner...)
	hash := sha512.New()
	for i := 0; i < iterations; i++ {
		hash.Write(digest)
		digest = hash.Sum(nil)
		hash.Reset()
	}

	var result [30]byte
	copy(result[:], digest[:30])

	var out [30]int
	for i := 0; i < 6; i++ {
		chunk := result[i*5 : (i+1)*5]
		num := binary.BigEndian.Uint64(append([]byte{0, 0, 0}, chunk...)) % 100000
		for j := 4; j >= 0; j-- {
			out[i*5+j] = int(num % 10)
			num /= 10
		}
	}
	return out
}
