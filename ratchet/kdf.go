package ratchet

import (
	"crypto/hmac"
	"crypto/sha256"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Compile-time KDF-info constants, named after the three roles they play in
// the ratchet: the root-chain KDF, the per-message chain-ratchet step, and
// (in crypto/cipher) the AEAD key expansion.
var (
	rootKDFInfo    = []byte("OLM_ROOT")
	ratchetKDFInfo = []byte("OLM_RATCHET")
)

// kdfRootChain derives a new root key and a new chain key from the current
// root key and a fresh DH output, via HKDF-SHA-256 with info "OLM_ROOT".
func kdfRootChain(rootKey *[32]byte, dhOut *[32]byte) (newRootKey, newChainKey [32]byte, err error) {
	r := hkdf.New(sha256.New, dhOut[:], rootKey[:], rootKDFInfo)
	buf := make([]byte, 64)
	if _, err = io.ReadFull(r, buf); err != nil {
		return
	}
	copy(newRootKey[:], buf[:32])
	copy(newChainKey[:], buf[32:])
	return
}

// deriveInitialRootAndChain seeds the very first root key and chain key
// directly from the triple-DH secret, with no additional DH step. Both
// initialise_as_alice and initialise_as_bob call this with the same
// secret, so Alice's initial send chain and Bob's initial receive chain
// come out identical without either side needing the other's ratchet
// private key yet.
func deriveInitialRootAndChain(secret *[96]byte) (rootKey, chainKey [32]byte, err error) {
	r := hkdf.New(sha256.New, secret[:], nil, rootKDFInfo)
	buf := make([]byte, 64)
	if _, err = io.ReadFull(r, buf); err != nil {
		return
	}
	copy(rootKey[:], buf[:32])
	copy(chainKey[:], buf[32:])
	return
}

// kdfChainStep advances a chain key by one message: the message key is
// HMAC(ck, OLM_RATCHET || 0x01), the next chain key is
// HMAC(ck, OLM_RATCHET || 0x02).
func kdfChainStep(chainKey *[32]byte) (nextChainKey, messageKey [32]byte) {
	messageKey = hmacWithInfo(chainKey, 0x01)
	nextChainKey = hmacWithInfo(chainKey, 0x02)
	return
}

func hmacWithInfo(key *[32]byte, tag byte) [32]byte {
	mac := hmac.New(sha256.New, key[:])
	mac.Write(ratchetKDFInfo)
	mac.Write([]byte{tag})
	var out [32]byte
	copy(out[:], mac.Sum(nil))
	return out
}
