// Package prekey implements the wire envelope that bootstraps a responder
// session: protocol version, one-time-key id, sender base key, sender
// identity key, and an opaque inner message. Field order and semantics are
// normative.
package prekey

import "olmsession/wire/varint"

// ProtocolVersion is the literal version byte every envelope carries.
const ProtocolVersion = 0x03

// Writer exposes the sub-slices of an encoded envelope the caller must
// fill in after Encode lays out the envelope shape.
type Writer struct {
	IdentityKey []byte
	BaseKey     []byte
	Message     []byte
}

// Reader is the result of decoding an envelope. On malformed input every
// field is left at its zero value (nil slices, HasOneTimeKeyID false) —
// Decode never errors; CheckMessageFields is what a consumer calls to
// validate the result.
type Reader struct {
	IdentityKey     []byte
	BaseKey         []byte
	Message         []byte
	OneTimeKeyID    uint64
	HasOneTimeKeyID bool
}

// EncodeLength returns the total encoded length of an envelope with the
// given field lengths, without writing anything.
func EncodeLength(oneTimeKeyID uint64, identityKeyLen, baseKeyLen, innerLen int) int {
	n := 1 // version
	n += varint.Uint64Len(oneTimeKeyID)
	n += varint.Uint64Len(uint64(baseKeyLen)) + baseKeyLen
	n += varint.Uint64Len(uint64(identityKeyLen)) + identityKeyLen
	n += varint.Uint64Len(uint64(innerLen)) + innerLen
	return n
}

// Encode lays out an envelope of the given shape into out (which must be at
// least EncodeLength(...) bytes) and returns a Writer whose fields alias
// out for the caller to fill.
func Encode(out []byte, version byte, oneTimeKeyID uint64, identityKeyLen, baseKeyLen, innerLen int) Writer {
	pos := 0
	out[pos] = version
	pos++
	pos += copy(out[pos:], varint.AppendUint64(nil, oneTimeKeyID))

	pos += copy(out[pos:], varint.AppendUint64(nil, uint64(baseKeyLen)))
	baseKey := out[pos : pos+baseKeyLen]
	pos += baseKeyLen

	pos += copy(out[pos:], varint.AppendUint64(nil, uint64(identityKeyLen)))
	identityKey := out[pos : pos+identityKeyLen]
	pos += identityKeyLen

	pos += copy(out[pos:], varint.AppendUint64(nil, uint64(innerLen)))
	message := out[pos : pos+innerLen]

	return Writer{IdentityKey: identityKey, BaseKey: baseKey, Message: message}
}

// Decode parses an envelope from data. It never fails outright: any
// malformed or truncated input yields a zero-value Reader.
func Decode(data []byte) Reader {
	var zero Reader

	if len(data) < 1 {
		return zero
	}
	// The version byte is skipped, not validated: neither Decode nor
	// CheckMessageFields looks at it, so an envelope is rejected only when
	// the fields after it fail to decode.
	pos := 1

	id, n, ok := varint.ReadUint64(data[pos:])
	if !ok {
		return zero
	}
	pos += n
	hasID := true

	baseKey, n, ok := readLenPrefixed(data[pos:])
	if !ok {
		return zero
	}
	pos += n

	identityKey, n, ok := readLenPrefixed(data[pos:])
	if !ok {
		return zero
	}
	pos += n

	message, _, ok := readLenPrefixed(data[pos:])
	if !ok {
		return zero
	}

	return Reader{
		IdentityKey:     identityKey,
		BaseKey:         baseKey,
		Message:         message,
		OneTimeKeyID:    id,
		HasOneTimeKeyID: hasID,
	}
}

func readLenPrefixed(data []byte) (field []byte, consumed int, ok bool) {
	length, n, ok := varint.ReadUint64(data)
	if !ok {
		return nil, 0, false
	}
	if uint64(len(data)-n) < length {
		return nil, 0, false
	}
	return data[n : n+int(length)], n + int(length), true
}

// CheckMessageFields validates the invariants a consumer requires before
// trusting a decoded envelope: both keys present and exactly 32 bytes, an
// inner message present, and a one-time-key id present.
func CheckMessageFields(r Reader) bool {
	return r.IdentityKey != nil &&
		len(r.IdentityKey) == 32 &&
		r.Message != nil &&
		r.BaseKey != nil &&
		len(r.BaseKey) == 32 &&
		r.HasOneTimeKeyID
}
