// Package ratchetmsg implements the wire framing of a bare ratchet message:
// the sender's current ratchet public key, the previous chain's message
// count, the message counter within the current chain, and the AEAD
// ciphertext. The trailing MAC is not length-prefixed — it is always the
// fixed-size suffix appended by the AEAD layer.
package ratchetmsg

import "olmsession/wire/varint"

// KeyLength is the length in bytes of the embedded ratchet public key.
const KeyLength = 32

// Writer exposes the sub-slice of an encoded message the caller must fill
// with ciphertext before appending the MAC.
type Writer struct {
	Ciphertext []byte
	// HeaderLen is the number of bytes written before the ciphertext
	// (used by the caller as part of the MAC's associated data).
	HeaderLen int
}

// Reader is the result of decoding a ratchet message. On malformed input
// every field is left at its zero value.
type Reader struct {
	RatchetKey      []byte
	PreviousCounter uint32
	Counter         uint32
	Ciphertext      []byte
	Mac             []byte
}

// EncodeLength returns the number of bytes Encode will write before the
// MAC, given a ciphertext of length ciphertextLen.
func EncodeLength(previousCounter, counter uint32, ciphertextLen int) int {
	n := varint.Uint64Len(uint64(KeyLength)) + KeyLength
	n += varint.Uint64Len(uint64(previousCounter))
	n += varint.Uint64Len(uint64(counter))
	n += varint.Uint64Len(uint64(ciphertextLen)) + ciphertextLen
	return n
}

// Encode lays out the header and ciphertext placeholder into out (which
// must be at least EncodeLength(...) bytes, not counting the MAC that the
// cipher layer appends after this call).
func Encode(out []byte, ratchetPub [KeyLength]byte, previousCounter, counter uint32, ciphertextLen int) Writer {
	pos := 0
	pos += copy(out[pos:], varint.AppendUint64(nil, uint64(KeyLength)))
	pos += copy(out[pos:], ratchetPub[:])
	pos += copy(out[pos:], varint.AppendUint64(nil, uint64(previousCounter)))
	pos += copy(out[pos:], varint.AppendUint64(nil, uint64(counter)))
	pos += copy(out[pos:], varint.AppendUint64(nil, uint64(ciphertextLen)))
	headerLen := pos
	ciphertext := out[pos : pos+ciphertextLen]

	return Writer{Ciphertext: ciphertext, HeaderLen: headerLen}
}

// Decode parses a ratchet message. macLength bytes are reserved off the
// tail of data as the MAC. Malformed or truncated input yields a
// zero-value Reader.
func Decode(data []byte, macLength int) Reader {
	var zero Reader
	if len(data) < macLength {
		return zero
	}
	body := data[:len(data)-macLength]
	mac := data[len(data)-macLength:]

	pos := 0
	keyLen, n, ok := varint.ReadUint64(body[pos:])
	if !ok || keyLen != KeyLength || uint64(len(body)-pos-n) < keyLen {
		return zero
	}
	pos += n
	ratchetKey := body[pos : pos+int(keyLen)]
	pos += int(keyLen)

	prevCounter, n, ok := varint.ReadUint64(body[pos:])
	if !ok {
		return zero
	}
	pos += n

	counter, n, ok := varint.ReadUint64(body[pos:])
	if !ok {
		return zero
	}
	pos += n

	ctLen, n, ok := varint.ReadUint64(body[pos:])
	if !ok || uint64(len(body)-pos-n) < ctLen {
		return zero
	}
	pos += n
	ciphertext := body[pos : pos+int(ctLen)]

	return Reader{
		RatchetKey:      ratchetKey,
		PreviousCounter: uint32(prevCounter),
		Counter:         uint32(counter),
		Ciphertext:      ciphertext,
		Mac:             mac,
	}
}
