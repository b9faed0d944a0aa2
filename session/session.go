// Package session implements the handshake and message-framing state
// machine sitting on top of the embedded ratchet: outbound and inbound
// triple-DH initiation, prekey-vs-bare message selection, matching of
// inbound prekey messages to an existing session, and delegation of
// encrypt/decrypt to the ratchet.
package session

import (
	"olmsession/account"
	"olmsession/crypto/curve25519"
	"olmsession/ratchet"
	"olmsession/wire/prekey"
	"olmsession/wire/varint"
)

// MessageType distinguishes a prekey-wrapped handshake message from a bare
// ratchet message. The wire protocol carries no type byte of its own; the
// transport signals it out-of-band, and decrypt takes it as an argument.
type MessageType int

const (
	PreKeyMessage MessageType = iota
	Message
)

// IdentityKey is a long-lived Curve25519 public key plus the stable numeric
// id the local account layer assigns to it. On a responder-side session the
// id half is unknown and left at its zero value.
type IdentityKey struct {
	ID     uint64
	Public curve25519.PublicKey
}

// RemoteKey is a Curve25519 public key plus a numeric id, as advertised by
// the peer: used here for the responder's one-time key.
type RemoteKey struct {
	ID     uint64
	Public curve25519.PublicKey
}

// Session is the central entity: the handshake-visible identifiers, the
// received_message latch, and the embedded ratchet. Not safe for concurrent
// use; distinct sessions are fully independent.
type Session struct {
	ReceivedMessage  bool
	AliceIdentityKey IdentityKey
	AliceBaseKey     curve25519.PublicKey
	BobOneTimeKeyID  uint64

	ratchet *ratchet.Ratchet

	lastError error
}

// NewOutboundSession derives the initial shared secret via triple
// Diffie-Hellman and initialises the embedded ratchet in Alice mode. It
// needs at least 64 bytes of randomness and reads only the first 64: 32 for
// the base key, 32 for the initial ratchet key. random is read once; the
// caller must zero it after this call returns.
func NewOutboundSession(local *account.Account, remoteIdentity curve25519.PublicKey, remoteOneTime RemoteKey, random []byte) (*Session, error) {
	if len(random) < 64 {
		return nil, ErrNotEnoughRandom
	}

	var baseSeed, ratchetSeed [32]byte
	copy(baseSeed[:], random[0:32])
	copy(ratchetSeed[:], random[32:64])
	baseKey := curve25519.GenerateKeyPair(&baseSeed)
	ratchetKey := curve25519.GenerateKeyPair(&ratchetSeed)
	curve25519.WipeBytes(baseSeed[:])
	curve25519.WipeBytes(ratchetSeed[:])
	defer baseKey.Wipe()
	defer ratchetKey.Wipe()

	// Ordering is normative: dh1 binds our identity to their one-time key,
	// dh2 and dh3 bind our ephemeral base key to their identity and
	// one-time key respectively.
	var secret [96]byte
	dh1 := curve25519.SharedSecret(local.IdentityKey.Private, remoteOneTime.Public)
	copy(secret[0:32], dh1[:])
	dh2 := curve25519.SharedSecret(baseKey.Private, remoteIdentity)
	copy(secret[32:64], dh2[:])
	dh3 := curve25519.SharedSecret(baseKey.Private, remoteOneTime.Public)
	copy(secret[64:96], dh3[:])
	curve25519.WipeBytes(dh1[:])
	curve25519.WipeBytes(dh2[:])
	curve25519.WipeBytes(dh3[:])
	defer curve25519.WipeBytes(secret[:])

	r, err := ratchet.InitialiseAsAlice(secret, ratchetKey)
	if err != nil {
		return nil, err
	}

	return &Session{
		AliceIdentityKey: IdentityKey{ID: local.IdentityID, Public: local.IdentityKey.Public},
		AliceBaseKey:     baseKey.Public,
		BobOneTimeKeyID:  remoteOneTime.ID,
		ratchet:          r,
	}, nil
}

// NewInboundSession decodes a prekey-wrapped message, looks up the
// referenced one-time key on local, and derives the mirrored triple-DH
// secret to initialise the embedded ratchet in Bob mode. It does not itself
// decrypt the enclosed message; the caller does that with a separate
// Decrypt call once initiation succeeds.
func NewInboundSession(local *account.Account, message []byte) (*Session, error) {
	env := prekey.Decode(message)
	if !prekey.CheckMessageFields(env) {
		return nil, ErrBadMessageFormat
	}

	ratchetPub, ok := extractRatchetKey(env.Message)
	if !ok {
		return nil, ErrBadMessageFormat
	}

	var aliceIdentity, aliceBase curve25519.PublicKey
	copy(aliceIdentity[:], env.IdentityKey)
	copy(aliceBase[:], env.BaseKey)

	oneTime, ok := local.LookupKey(env.OneTimeKeyID)
	if !ok {
		return nil, ErrBadMessageKeyID
	}

	// Mirrors the initiator's three DH computations with the
	// private/public roles swapped on each side.
	var secret [96]byte
	dh1 := curve25519.SharedSecret(oneTime.Private, aliceIdentity)
	copy(secret[0:32], dh1[:])
	dh2 := curve25519.SharedSecret(local.IdentityKey.Private, aliceBase)
	copy(secret[32:64], dh2[:])
	dh3 := curve25519.SharedSecret(oneTime.Private, aliceBase)
	copy(secret[64:96], dh3[:])
	curve25519.WipeBytes(dh1[:])
	curve25519.WipeBytes(dh2[:])
	curve25519.WipeBytes(dh3[:])
	defer curve25519.WipeBytes(secret[:])

	r, err := ratchet.InitialiseAsBob(secret, ratchetPub)
	if err != nil {
		return nil, err
	}

	return &Session{
		AliceIdentityKey: IdentityKey{Public: aliceIdentity},
		AliceBaseKey:     aliceBase,
		BobOneTimeKeyID:  env.OneTimeKeyID,
		ratchet:          r,
	}, nil
}

// extractRatchetKey decodes just enough of the inner ratchet message to
// pull out the sender's ratchet public key, without needing the ratchet's
// full decode path (the ratchet itself is not initialised yet at this
// point).
func extractRatchetKey(innerMessage []byte) (curve25519.PublicKey, bool) {
	var zero curve25519.PublicKey
	macLength := ratchet.CipherMacLength()
	if len(innerMessage) < macLength {
		return zero, false
	}
	length, n, ok := varint.ReadUint64(innerMessage)
	if !ok || length != curve25519.KeyLength || len(innerMessage)-n < int(length) {
		return zero, false
	}
	var pub curve25519.PublicKey
	copy(pub[:], innerMessage[n:n+int(length)])
	return pub, true
}

// MatchesInboundSession reports whether message is a prekey message
// carrying exactly this session's handshake identifiers. It has no side
// effects and never mutates state.
func (s *Session) MatchesInboundSession(message []byte) bool {
	env := prekey.Decode(message)
	if !prekey.CheckMessageFields(env) {
		return false
	}
	if len(env.IdentityKey) != curve25519.KeyLength || len(env.BaseKey) != curve25519.KeyLength {
		return false
	}
	var identity, base curve25519.PublicKey
	copy(identity[:], env.IdentityKey)
	copy(base[:], env.BaseKey)
	return identity == s.AliceIdentityKey.Public &&
		base == s.AliceBaseKey &&
		env.OneTimeKeyID == s.BobOneTimeKeyID
}

// EncryptMessageType reports PreKeyMessage until the first successful
// decrypt, then Message forever.
func (s *Session) EncryptMessageType() MessageType {
	if s.ReceivedMessage {
		return Message
	}
	return PreKeyMessage
}

// EncryptMessageLength returns the number of bytes Encrypt will write for a
// plaintext of the given length, in whichever mode EncryptMessageType
// currently reports.
func (s *Session) EncryptMessageLength(plaintextLen int) int {
	ratchetLen := s.ratchet.EncryptOutputLength(plaintextLen)
	if s.ReceivedMessage {
		return ratchetLen
	}
	return prekey.EncodeLength(s.BobOneTimeKeyID, curve25519.KeyLength, curve25519.KeyLength, ratchetLen)
}

// EncryptRandomLength is the amount of caller-supplied randomness Encrypt
// needs, delegated to the ratchet.
func (s *Session) EncryptRandomLength() int {
	return s.ratchet.EncryptRandomLength()
}

// LastError returns the error raised by the most recent failed operation.
func (s *Session) LastError() error {
	return s.lastError
}

// ClearLastError resets the latched error.
func (s *Session) ClearLastError() {
	s.lastError = nil
}

// Encrypt writes an encrypted message into out: bare in Message mode,
// prekey-wrapped in PreKeyMessage mode. Ratchet errors are copied onto the
// session's last error and cleared on the ratchet itself, so the host
// observes exactly one error origin.
func (s *Session) Encrypt(plaintext, random, out []byte) (int, error) {
	need := s.EncryptMessageLength(len(plaintext))
	if len(out) < need {
		err := ErrOutputBufferTooSmall
		s.lastError = err
		return -1, err
	}

	if s.ReceivedMessage {
		n, err := s.ratchet.Encrypt(plaintext, random, out)
		if err != nil {
			s.lastError = err
			s.ratchet.ClearLastError()
			return -1, err
		}
		return n, nil
	}

	ratchetLen := s.ratchet.EncryptOutputLength(len(plaintext))
	w := prekey.Encode(out, prekey.ProtocolVersion, s.BobOneTimeKeyID, curve25519.KeyLength, curve25519.KeyLength, ratchetLen)
	copy(w.IdentityKey, s.AliceIdentityKey.Public[:])
	copy(w.BaseKey, s.AliceBaseKey[:])

	n, err := s.ratchet.Encrypt(plaintext, random, w.Message)
	if err != nil {
		s.lastError = err
		s.ratchet.ClearLastError()
		return -1, err
	}
	return need - ratchetLen + n, nil
}

// DecryptMaxPlaintextLength returns an upper bound on the plaintext length
// message would decrypt to under messageType, without decrypting it.
func (s *Session) DecryptMaxPlaintextLength(messageType MessageType, message []byte) (int, error) {
	ratchetInput, err := s.selectRatchetInput(messageType, message)
	if err != nil {
		s.lastError = err
		return -1, err
	}
	n, err := s.ratchet.DecryptMaxPlaintextLength(ratchetInput)
	if err != nil {
		s.lastError = err
		s.ratchet.ClearLastError()
		return -1, err
	}
	return n, nil
}

// Decrypt decrypts message under messageType into out. On success it
// latches ReceivedMessage to true (monotonic; never reset).
func (s *Session) Decrypt(messageType MessageType, message, out []byte) (int, error) {
	ratchetInput, err := s.selectRatchetInput(messageType, message)
	if err != nil {
		s.lastError = err
		return -1, err
	}

	n, err := s.ratchet.Decrypt(ratchetInput, out)
	if err != nil {
		s.lastError = err
		s.ratchet.ClearLastError()
		return -1, err
	}
	s.ReceivedMessage = true
	return n, nil
}

func (s *Session) selectRatchetInput(messageType MessageType, message []byte) ([]byte, error) {
	if messageType == Message {
		return message, nil
	}
	env := prekey.Decode(message)
	if !prekey.CheckMessageFields(env) {
		return nil, ErrBadMessageFormat
	}
	return env.Message, nil
}
