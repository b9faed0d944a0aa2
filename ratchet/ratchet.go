// Package ratchet implements the Double Ratchet the session core embeds:
// a symmetric-key ratchet over per-message chain keys, a DH ratchet that
// replaces both chains whenever a new remote ratchet key is observed, and a
// bounded store of message keys skipped while waiting for out-of-order
// deliveries.
package ratchet

import (
	"crypto/rand"

	"olmsession/crypto/cipher"
	"olmsession/crypto/curve25519"
	"olmsession/wire/ratchetmsg"
)

// InitialiseAsAlice sets up the ratchet for the session initiator. The
// initial send chain is seeded directly from the 96-byte triple-DH secret,
// with no DH step of its own: Bob derives the identical chain as his initial
// receive chain in InitialiseAsBob, since both sides already share secret.
// ratchetKeyPair becomes the local DH ratchet key Alice advertises in every
// message header until she next re-ratchets.
func InitialiseAsAlice(secret [96]byte, ratchetKeyPair curve25519.KeyPair) (*Ratchet, error) {
	rootKey, chainKey, err := deriveInitialRootAndChain(&secret)
	if err != nil {
		return nil, err
	}
	r := &Ratchet{
		state: State{
			DHSelf:       ratchetKeyPair,
			RootKey:      rootKey,
			ChainKeySend: &chainKey,
			SkippedKeys:  make(map[SkippedKeyID][32]byte),
		},
	}
	return r, nil
}

// InitialiseAsBob sets up the ratchet for the session responder. aliceRatchetPub
// is the ratchet key Alice advertised in her first message; the initial
// receive chain is seeded directly from secret, matching Alice's initial
// send chain exactly. Bob does not hold a ratchet private key of his own at
// this point; his own key pair, and with it his send chain, is generated
// lazily on first Encrypt.
func InitialiseAsBob(secret [96]byte, aliceRatchetPub curve25519.PublicKey) (*Ratchet, error) {
	rootKey, chainKey, err := deriveInitialRootAndChain(&secret)
	if err != nil {
		return nil, err
	}
	r := &Ratchet{
		state: State{
			DHRemote:     &aliceRatchetPub,
			RootKey:      rootKey,
			ChainKeyRecv: &chainKey,
			SkippedKeys:  make(map[SkippedKeyID][32]byte),
		},
	}
	return r, nil
}

// EncryptOutputLength returns the number of bytes Encrypt will write for a
// plaintext of the given length. If the send chain has not been established
// yet, Encrypt will run a lazy DH ratchet step first (resetting PN to Ns and
// Ns to 0); this predicts that same header shape without mutating state.
func (r *Ratchet) EncryptOutputLength(plaintextLen int) int {
	pn, n := r.state.PN, r.state.Ns
	if r.state.ChainKeySend == nil {
		pn, n = r.state.Ns, 0
	}
	return ratchetmsg.EncodeLength(pn, n, cipher.EncryptOutputLength(plaintextLen)-cipher.MacLength) + cipher.MacLength
}

// EncryptRandomLength is the amount of caller-supplied randomness Encrypt
// needs. The ratchet cipher derives everything from the message key, so
// this is always 0.
func (r *Ratchet) EncryptRandomLength() int {
	return cipher.RandomLength()
}

// MacLength returns the ratchet cipher's authentication tag length.
func (r *Ratchet) MacLength() int {
	return cipher.MacLength
}

// CipherMacLength is the ratchet cipher's authentication tag length,
// exposed as a package-level constant lookup for collaborators (such as the
// session's prekey decoding) that need it before any Ratchet exists.
func CipherMacLength() int {
	return cipher.MacLength
}

// LastError returns the error raised by the most recent failed operation,
// or nil.
func (r *Ratchet) LastError() error {
	return r.lastError
}

// ClearLastError resets the latched error, mirroring the sentinel-length
// error channel's clear-on-consume contract.
func (r *Ratchet) ClearLastError() {
	r.lastError = nil
}

// Encrypt performs a symmetric-key ratchet step and encrypts plaintext
// under the resulting message key, writing the wire-framed message
// (header, ciphertext, MAC) into out. random is unused (EncryptRandomLength
// is 0) and accepted only to satisfy the contract's shape.
func (r *Ratchet) Encrypt(plaintext, random, out []byte) (int, error) {
	if r.state.ChainKeySend == nil {
		if err := r.dhRatchetSendStep(); err != nil {
			r.lastError = err
			return -1, err
		}
	}

	nextChainKey, messageKey := kdfChainStep(r.state.ChainKeySend)
	r.state.ChainKeySend = &nextChainKey
	defer curve25519.WipeBytes(messageKey[:])

	n := r.state.Ns
	r.state.Ns++

	paddedCiphertext, err := cipher.EncryptBody(&messageKey, plaintext)
	if err != nil {
		r.lastError = err
		return -1, err
	}

	need := ratchetmsg.EncodeLength(r.state.PN, n, len(paddedCiphertext)) + cipher.MacLength
	if len(out) < need {
		err := ErrOutputBufferTooSmall
		r.lastError = err
		return -1, err
	}

	w := ratchetmsg.Encode(out, r.state.DHSelf.Public, r.state.PN, n, len(paddedCiphertext))
	copy(w.Ciphertext, paddedCiphertext)

	tag, err := cipher.Tag(&messageKey, out[:w.HeaderLen+len(paddedCiphertext)])
	if err != nil {
		r.lastError = err
		return -1, err
	}
	copy(out[w.HeaderLen+len(paddedCiphertext):], tag)

	return w.HeaderLen + len(paddedCiphertext) + len(tag), nil
}

// DecryptMaxPlaintextLength returns an upper bound on the plaintext length
// a message would decrypt to, without decrypting it.
func (r *Ratchet) DecryptMaxPlaintextLength(message []byte) (int, error) {
	reader := ratchetmsg.Decode(message, cipher.MacLength)
	if reader.RatchetKey == nil {
		err := ErrBadMessageFormat
		r.lastError = err
		return -1, err
	}
	n, err := cipher.MaxPlaintextLength(len(reader.Ciphertext) + cipher.MacLength)
	if err != nil {
		r.lastError = err
		return -1, err
	}
	return n, nil
}

// Decrypt decodes a wire message, performing DH-ratchet and skipped-key
// bookkeeping as needed, and writes the recovered plaintext into out.
// State changes made while walking a receiving chain are only committed on
// success — a MAC failure or malformed message leaves state untouched.
func (r *Ratchet) Decrypt(message, out []byte) (int, error) {
	reader := ratchetmsg.Decode(message, cipher.MacLength)
	if reader.RatchetKey == nil || len(reader.RatchetKey) != curve25519.KeyLength {
		err := ErrBadMessageFormat
		r.lastError = err
		return -1, err
	}
	var ratchetPub curve25519.PublicKey
	copy(ratchetPub[:], reader.RatchetKey)

	headerLen := len(message) - len(reader.Ciphertext) - cipher.MacLength
	authData := message[:headerLen+len(reader.Ciphertext)]

	if plaintext, ok := r.tryDecryptSkipped(ratchetPub, reader.Counter, reader.Ciphertext, authData, reader.Mac); ok {
		n := copy(out, plaintext)
		curve25519.WipeBytes(plaintext)
		return n, nil
	}

	working := r.state
	working.SkippedKeys = cloneSkipped(r.state.SkippedKeys)

	if working.DHRemote == nil || *working.DHRemote != ratchetPub {
		if working.DHRemote != nil {
			if err := skipMessageKeys(&working, reader.PreviousCounter); err != nil {
				r.lastError = err
				return -1, err
			}
		}
		if err := dhRatchetReceiveStep(&working, ratchetPub); err != nil {
			r.lastError = err
			return -1, err
		}
	}

	if err := skipMessageKeys(&working, reader.Counter); err != nil {
		r.lastError = err
		return -1, err
	}

	nextChainKey, messageKey := kdfChainStep(working.ChainKeyRecv)
	working.ChainKeyRecv = &nextChainKey
	working.Nr = reader.Counter + 1
	defer curve25519.WipeBytes(messageKey[:])

	ok, err := cipher.VerifyTag(&messageKey, authData, reader.Mac)
	if err != nil {
		r.lastError = err
		return -1, err
	}
	if !ok {
		err := ErrBadMessageMac
		r.lastError = err
		return -1, err
	}

	plaintext, err := cipher.DecryptBody(&messageKey, reader.Ciphertext)
	if err != nil {
		r.lastError = err
		return -1, err
	}
	if len(out) < len(plaintext) {
		err := ErrOutputBufferTooSmall
		r.lastError = err
		return -1, err
	}

	r.state = working
	n := copy(out, plaintext)
	curve25519.WipeBytes(plaintext)
	return n, nil
}

func (r *Ratchet) tryDecryptSkipped(ratchetPub curve25519.PublicKey, counter uint32, ciphertext, authData, mac []byte) ([]byte, bool) {
	id := SkippedKeyID{RatchetPub: ratchetPub, Counter: counter}
	messageKey, ok := r.state.SkippedKeys[id]
	if !ok {
		return nil, false
	}
	defer curve25519.WipeBytes(messageKey[:])

	ok, err := cipher.VerifyTag(&messageKey, authData, mac)
	if err != nil || !ok {
		return nil, false
	}
	plaintext, err := cipher.DecryptBody(&messageKey, ciphertext)
	if err != nil {
		return nil, false
	}
	delete(r.state.SkippedKeys, id)
	return plaintext, true
}

func skipMessageKeys(state *State, until uint32) error {
	if state.ChainKeyRecv == nil {
		return nil
	}
	if uint64(state.Nr)+MaxSkip < uint64(until) {
		return ErrTooManySkippedKeys
	}
	for state.Nr < until {
		nextChainKey, messageKey := kdfChainStep(state.ChainKeyRecv)
		state.ChainKeyRecv = &nextChainKey
		state.SkippedKeys[SkippedKeyID{RatchetPub: *state.DHRemote, Counter: state.Nr}] = messageKey
		state.Nr++
	}
	return nil
}

// dhRatchetReceiveStep is only reached once state.DHSelf is a real key pair:
// InitialiseAsBob's first receive chain is seeded directly from the triple-DH
// secret (see deriveInitialRootAndChain) precisely so this step, which needs
// a local private key, is never required for a session's very first message.
func dhRatchetReceiveStep(state *State, remotePub curve25519.PublicKey) error {
	state.DHRemote = &remotePub
	state.Nr = 0
	// Force the next Encrypt call to generate a fresh local ratchet key
	// and re-derive the send chain against the new remote key too.
	state.ChainKeySend = nil

	dhOut := curve25519.SharedSecret(state.DHSelf.Private, remotePub)
	defer curve25519.WipeBytes(dhOut[:])

	newRoot, newChain, err := kdfRootChain(&state.RootKey, &dhOut)
	if err != nil {
		return err
	}
	state.RootKey = newRoot
	state.ChainKeyRecv = &newChain
	return nil
}

func (r *Ratchet) dhRatchetSendStep() error {
	state := &r.state
	state.PN = state.Ns
	state.Ns = 0

	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return err
	}
	newKeyPair := curve25519.GenerateKeyPair(&seed)
	curve25519.WipeBytes(seed[:])
	state.DHSelf = newKeyPair

	dhOut := curve25519.SharedSecret(state.DHSelf.Private, *state.DHRemote)
	defer curve25519.WipeBytes(dhOut[:])

	newRoot, newChain, err := kdfRootChain(&state.RootKey, &dhOut)
	if err != nil {
		return err
	}
	state.RootKey = newRoot
	state.ChainKeySend = &newChain
	return nil
}

func cloneSkipped(m map[SkippedKeyID][32]byte) map[SkippedKeyID][32]byte {
	out := make(map[SkippedKeyID][32]byte, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
