package ratchet

import "errors"

var (
	ErrBadMessageMac        = errors.New("ratchet: bad message mac")
	ErrBadMessageFormat     = errors.New("ratchet: bad message format")
	ErrTooManySkippedKeys   = errors.New("ratchet: skipping too many message keys")
	ErrOutputBufferTooSmall = errors.New("ratchet: output buffer too small")
	ErrUninitialised        = errors.New("ratchet: not initialised")
	ErrCorruptedPickle      = errors.New("ratchet: corrupted pickle")
)
