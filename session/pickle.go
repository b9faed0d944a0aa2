package session

import (
	"olmsession/crypto/curve25519"
	"olmsession/ratchet"
	"olmsession/wire/varint"
)

// pickle field layout, in order (spec section 4.4):
//
//	received_message (1) | alice_identity_key.id (varint) |
//	alice_identity_key.public (32) | alice_base_key.public (32) |
//	bob_one_time_key_id (varint) | ratchet (ratchet.Pickle)

// PickleLength returns the exact number of bytes Pickle will write.
func (s *Session) PickleLength() int {
	n := 1
	n += varint.Uint64Len(s.AliceIdentityKey.ID)
	n += curve25519.KeyLength
	n += curve25519.KeyLength
	n += varint.Uint64Len(s.BobOneTimeKeyID)
	n += s.ratchet.PickleLength()
	return n
}

// Pickle serialises the session's state into out, which must be at least
// PickleLength() bytes, and returns the number of bytes written.
func (s *Session) Pickle(out []byte) (int, error) {
	need := s.PickleLength()
	if len(out) < need {
		return -1, ErrOutputBufferTooSmall
	}

	buf := out[:0]
	if s.ReceivedMessage {
		buf = append(buf, 1)
	} else {
		buf = append(buf, 0)
	}
	buf = varint.AppendUint64(buf, s.AliceIdentityKey.ID)
	buf = append(buf, s.AliceIdentityKey.Public[:]...)
	buf = append(buf, s.AliceBaseKey[:]...)
	buf = varint.AppendUint64(buf, s.BobOneTimeKeyID)

	written := len(buf)
	n, err := s.ratchet.Pickle(out[written:need])
	if err != nil {
		return -1, err
	}
	return written + n, nil
}

// Unpickle reconstructs a Session from bytes written by Pickle.
func Unpickle(data []byte) (*Session, error) {
	if len(data) < 1 {
		return nil, ErrCorruptedPickle
	}
	receivedMessage := data[0] != 0
	data = data[1:]

	id, n, ok := varint.ReadUint64(data)
	if !ok {
		return nil, ErrCorruptedPickle
	}
	data = data[n:]

	if len(data) < curve25519.KeyLength*2 {
		return nil, ErrCorruptedPickle
	}
	var identityPub, basePub curve25519.PublicKey
	copy(identityPub[:], data[:curve25519.KeyLength])
	data = data[curve25519.KeyLength:]
	copy(basePub[:], data[:curve25519.KeyLength])
	data = data[curve25519.KeyLength:]

	oneTimeID, n, ok := varint.ReadUint64(data)
	if !ok {
		return nil, ErrCorruptedPickle
	}
	data = data[n:]

	r, err := ratchet.Unpickle(data)
	if err != nil {
		return nil, ErrCorruptedPickle
	}

	return &Session{
		ReceivedMessage:  receivedMessage,
		AliceIdentityKey: IdentityKey{ID: id, Public: identityPub},
		AliceBaseKey:     basePub,
		BobOneTimeKeyID:  oneTimeID,
		ratchet:          r,
	}, nil
}
