// Package cipher implements the ratchet's AEAD building blocks:
// AES-256-CBC with PKCS#7 padding for confidentiality and HMAC-SHA-256 for
// authentication, both keyed off a 32-byte message key via HKDF.
//
// Encryption and authentication are exposed as separate steps
// (EncryptBody/Tag and VerifyTag/DecryptBody) rather than a single
// Seal/Open call, because the wire format authenticates the message header
// (ratchet key, counters) together with the ciphertext, and the header is
// only known to the ratchet, not to this package.
package cipher

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

// MacLength is the length in bytes of the authentication tag appended to
// every wire message.
const MacLength = 32

const blockSize = aes.BlockSize // 16

// keysInfo is the compile-time HKDF info string used to expand a message
// key into an AES key, an HMAC key and an IV.
var keysInfo = []byte("OLM_KEYS")

var (
	ErrCiphertextTooShort = errors.New("cipher: ciphertext shorter than mac length")
	ErrBadMac             = errors.New("cipher: bad message mac")
	ErrBadPadding         = errors.New("cipher: bad padding")
)

// RandomLength is the amount of extra randomness the cipher needs per
// encryption call. All of its keying material is derived from the message
// key, so no additional randomness is required.
func RandomLength() int {
	return 0
}

// EncryptOutputLength returns the total wire length (padded ciphertext plus
// trailing MAC) for a plaintext of the given length.
func EncryptOutputLength(plaintextLen int) int {
	return paddedLength(plaintextLen) + MacLength
}

func paddedLength(plaintextLen int) int {
	return (plaintextLen/blockSize + 1) * blockSize
}

// MaxPlaintextLength returns the maximum plaintext length that could be
// recovered from a wire message of the given total length.
func MaxPlaintextLength(totalLen int) (int, error) {
	body := totalLen - MacLength
	if body <= 0 || body%blockSize != 0 {
		return 0, ErrCiphertextTooShort
	}
	return body - 1, nil
}

func deriveKeys(messageKey *[32]byte) (encKey, authKey [32]byte, iv [16]byte, err error) {
	r := hkdf.New(sha256.New, messageKey[:], nil, keysInfo)
	buf := make([]byte, 32+32+16)
	if _, err = io.ReadFull(r, buf); err != nil {
		return
	}
	copy(encKey[:], buf[:32])
	copy(authKey[:], buf[32:64])
	copy(iv[:], buf[64:])
	return
}

// EncryptBody pads plaintext with PKCS#7 and encrypts it with AES-256-CBC
// under a key derived from messageKey. The returned slice does not include
// a MAC.
func EncryptBody(messageKey *[32]byte, plaintext []byte) ([]byte, error) {
	encKey, _, iv, err := deriveKeys(messageKey)
	if err != nil {
		return nil, err
	}
	defer zero(encKey[:])

	block, err := aes.NewCipher(encKey[:])
	if err != nil {
		return nil, err
	}
	padded := pkcs7Pad(plaintext, blockSize)
	ciphertext := make([]byte, len(padded))
	cipher.NewCBCEncrypter(block, iv[:]).CryptBlocks(ciphertext, padded)
	return ciphertext, nil
}

// DecryptBody reverses EncryptBody. Callers must verify the tag with
// VerifyTag before calling this.
func DecryptBody(messageKey *[32]byte, ciphertext []byte) ([]byte, error) {
	if len(ciphertext) == 0 || len(ciphertext)%blockSize != 0 {
		return nil, ErrBadPadding
	}
	encKey, _, iv, err := deriveKeys(messageKey)
	if err != nil {
		return nil, err
	}
	defer zero(encKey[:])

	block, err := aes.NewCipher(encKey[:])
	if err != nil {
		return nil, err
	}
	plaintext := make([]byte, len(ciphertext))
	cipher.NewCBCDecrypter(block, iv[:]).CryptBlocks(plaintext, ciphertext)
	return pkcs7Unpad(plaintext)
}

// Tag returns the HMAC-SHA-256 authentication tag over data (the header
// bytes and ciphertext concatenated), using an authentication key derived
// from messageKey.
func Tag(messageKey *[32]byte, data []byte) ([]byte, error) {
	_, authKey, _, err := deriveKeys(messageKey)
	if err != nil {
		return nil, err
	}
	defer zero(authKey[:])

	mac := hmac.New(sha256.New, authKey[:])
	mac.Write(data)
	return mac.Sum(nil), nil
}

// VerifyTag recomputes the tag over data and compares it to tag in
// constant time.
func VerifyTag(messageKey *[32]byte, data, tag []byte) (bool, error) {
	want, err := Tag(messageKey, data)
	if err != nil {
		return false, err
	}
	return hmac.Equal(want, tag), nil
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

func pkcs7Pad(data []byte, size int) []byte {
	padLen := size - len(data)%size
	return append(append([]byte{}, data...), bytes.Repeat([]byte{byte(padLen)}, padLen)...)
}

func pkcs7Unpad(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, ErrBadPadding
	}
	padLen := int(data[len(data)-1])
	if padLen == 0 || padLen > len(data) {
		return nil, ErrBadPadding
	}
	return data[:len(data)-padLen], nil
}
