package ratchet

import "olmsession/crypto/curve25519"

// MaxSkip bounds how many message keys a single chain will store while
// waiting for out-of-order messages.
const MaxSkip = 1000

// SkippedKeyID identifies a stored skipped message key: the sender ratchet
// public key in effect when it was skipped, plus its counter within that
// chain.
type SkippedKeyID struct {
	RatchetPub curve25519.PublicKey
	Counter    uint32
}

// State holds the full Double Ratchet state: the local (sending) and
// remote (receiving) DH ratchet keys, the root key, the two chain keys,
// message counters, and the skipped-key store.
type State struct {
	DHSelf   curve25519.KeyPair
	DHRemote *curve25519.PublicKey

	RootKey [32]byte

	ChainKeySend *[32]byte
	ChainKeyRecv *[32]byte

	Ns uint32
	Nr uint32
	PN uint32

	SkippedKeys map[SkippedKeyID][32]byte
}

// Ratchet is the ratchet a Session owns exclusively, through a pointer no
// other value holds. It is not safe for concurrent use.
type Ratchet struct {
	state     State
	lastError error
}
