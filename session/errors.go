package session

import "errors"

var (
	ErrNotEnoughRandom      = errors.New("session: not enough random bytes for outbound initiation")
	ErrOutputBufferTooSmall = errors.New("session: output buffer too small")
	ErrBadMessageFormat     = errors.New("session: bad message format")
	ErrBadMessageKeyID      = errors.New("session: unknown one-time key id")
	ErrCorruptedPickle      = errors.New("session: corrupted pickle")
)
