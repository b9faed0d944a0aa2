// Package account provides the minimal identity-key and one-time-key store
// the session core borrows from during initiation. Rotation policy, at-rest
// storage, and prekey publication are explicitly out of scope; this is only
// enough to drive and test the session handshake.
package account

import "olmsession/crypto/curve25519"

// Account holds a long-lived identity key pair and a pool of one-time key
// pairs indexed by a caller-assigned numeric id.
type Account struct {
	IdentityID  uint64
	IdentityKey curve25519.KeyPair

	oneTimeKeys map[uint64]curve25519.KeyPair
}

// New builds an account with the given numeric identity id, deriving the
// identity key pair from identitySeed. Callers must zero identitySeed after
// this call returns.
func New(identitySeed *[32]byte, identityID uint64) *Account {
	return &Account{
		IdentityID:  identityID,
		IdentityKey: curve25519.GenerateKeyPair(identitySeed),
		oneTimeKeys: make(map[uint64]curve25519.KeyPair),
	}
}

// AddOneTimeKey derives a one-time key pair from seed and stores it under
// id, for test and CLI-demo setup; there is no rotation or expiry policy
// here. Callers must zero seed after this call returns.
func (a *Account) AddOneTimeKey(id uint64, seed *[32]byte) {
	a.oneTimeKeys[id] = curve25519.GenerateKeyPair(seed)
}

// LookupKey returns the one-time key pair stored under id, if any. This is
// the only fallible collaborator operation the session core consumes.
func (a *Account) LookupKey(id uint64) (curve25519.KeyPair, bool) {
	kp, ok := a.oneTimeKeys[id]
	return kp, ok
}

// RemoveOneTimeKey deletes the one-time key stored under id, modelling the
// consume-once lifecycle of a responder prekey. The session core never
// calls this itself; a host calls it after a responder session is
// successfully created from the corresponding prekey message.
func (a *Account) RemoveOneTimeKey(id uint64) {
	delete(a.oneTimeKeys, id)
}
