package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"olmsession/account"
	"olmsession/crypto/curve25519"
	"olmsession/wire/prekey"
)

const bobOneTimeKeyID = 42

func newParties(t *testing.T) (aliceAcct, bobAcct *account.Account) {
	t.Helper()
	var aliceSeed, bobSeed, bobOTKSeed [32]byte
	aliceSeed[0] = 1
	bobSeed[0] = 2
	bobOTKSeed[0] = 3

	aliceAcct = account.New(&aliceSeed, 1)
	bobAcct = account.New(&bobSeed, 2)
	bobAcct.AddOneTimeKey(bobOneTimeKeyID, &bobOTKSeed)
	return aliceAcct, bobAcct
}

func lookupBobOneTime(t *testing.T, bobAcct *account.Account) RemoteKey {
	t.Helper()
	kp, ok := bobAcct.LookupKey(bobOneTimeKeyID)
	require.True(t, ok)
	return RemoteKey{ID: bobOneTimeKeyID, Public: kp.Public}
}

func fixedRandom(fill byte) []byte {
	random := make([]byte, 64)
	for i := range random {
		random[i] = fill
	}
	return random
}

func encryptHelper(t *testing.T, s *Session, plaintext string) []byte {
	t.Helper()
	random := make([]byte, s.EncryptRandomLength())
	out := make([]byte, s.EncryptMessageLength(len(plaintext)))
	n, err := s.Encrypt([]byte(plaintext), random, out)
	require.NoError(t, err)
	return out[:n]
}

func decryptHelper(t *testing.T, s *Session, messageType MessageType, message []byte) string {
	t.Helper()
	maxLen, err := s.DecryptMaxPlaintextLength(messageType, message)
	require.NoError(t, err)
	out := make([]byte, maxLen)
	n, err := s.Decrypt(messageType, message, out)
	require.NoError(t, err)
	return string(out[:n])
}

// S1/S2: interop round trip, and the message-type latch.
func TestInteropRoundTripAndMessageTypeLatch(t *testing.T) {
	aliceAcct, bobAcct := newParties(t)
	remoteOneTime := lookupBobOneTime(t, bobAcct)

	alice, err := NewOutboundSession(aliceAcct, bobAcct.IdentityKey.Public, remoteOneTime, fixedRandom(0))
	require.NoError(t, err)
	assert.Equal(t, PreKeyMessage, alice.EncryptMessageType())

	msg1 := encryptHelper(t, alice, "hello")

	bob, err := NewInboundSession(bobAcct, msg1)
	require.NoError(t, err)
	assert.Equal(t, PreKeyMessage, bob.EncryptMessageType())

	got := decryptHelper(t, bob, PreKeyMessage, msg1)
	assert.Equal(t, "hello", got)
	assert.True(t, bob.ReceivedMessage)
	// Bob's emitted type depends on his own latch, which flips on his first
	// successful Decrypt: having just decrypted Alice's message, his own
	// outgoing messages are already bare.
	assert.Equal(t, Message, bob.EncryptMessageType())

	msg2 := encryptHelper(t, bob, "hi")
	assert.False(t, alice.ReceivedMessage)
	got2 := decryptHelper(t, alice, Message, msg2)
	assert.Equal(t, "hi", got2)
	assert.True(t, alice.ReceivedMessage)
	assert.Equal(t, Message, alice.EncryptMessageType())

	// Further traffic in both directions is bare.
	msg3 := encryptHelper(t, alice, "third")
	assert.Equal(t, "third", decryptHelper(t, bob, Message, msg3))
}

// S3: persistence round trip mid-conversation.
func TestPersistenceRoundTripMidConversation(t *testing.T) {
	aliceAcct, bobAcct := newParties(t)
	remoteOneTime := lookupBobOneTime(t, bobAcct)

	alice, err := NewOutboundSession(aliceAcct, bobAcct.IdentityKey.Public, remoteOneTime, fixedRandom(0))
	require.NoError(t, err)
	msg1 := encryptHelper(t, alice, "hello")

	bob, err := NewInboundSession(bobAcct, msg1)
	require.NoError(t, err)
	decryptHelper(t, bob, PreKeyMessage, msg1)

	msg2 := encryptHelper(t, bob, "hi")
	decryptHelper(t, alice, Message, msg2)
	require.True(t, alice.ReceivedMessage)

	buf := make([]byte, alice.PickleLength())
	n, err := alice.Pickle(buf)
	require.NoError(t, err)
	assert.Equal(t, len(buf), n)

	restored, err := Unpickle(buf)
	require.NoError(t, err)
	assert.True(t, restored.ReceivedMessage)
	assert.Equal(t, alice.AliceIdentityKey, restored.AliceIdentityKey)
	assert.Equal(t, alice.AliceBaseKey, restored.AliceBaseKey)
	assert.Equal(t, alice.BobOneTimeKeyID, restored.BobOneTimeKeyID)

	msg3 := encryptHelper(t, restored, "second round trip")
	assert.Equal(t, "second round trip", decryptHelper(t, bob, Message, msg3))
}

// S4: matching identity.
func TestMatchesInboundSession(t *testing.T) {
	aliceAcct, bobAcct := newParties(t)
	remoteOneTime := lookupBobOneTime(t, bobAcct)

	alice, err := NewOutboundSession(aliceAcct, bobAcct.IdentityKey.Public, remoteOneTime, fixedRandom(0))
	require.NoError(t, err)
	msg1 := encryptHelper(t, alice, "hello")

	bob, err := NewInboundSession(bobAcct, msg1)
	require.NoError(t, err)
	assert.True(t, bob.MatchesInboundSession(msg1))

	other, err := NewOutboundSession(aliceAcct, bobAcct.IdentityKey.Public, remoteOneTime, fixedRandom(1))
	require.NoError(t, err)
	msg1FromOther := encryptHelper(t, other, "hello again")
	assert.False(t, bob.MatchesInboundSession(msg1FromOther))
}

// Property 4: prekey idempotence on the wire.
func TestPrekeyIdempotenceUntilLatch(t *testing.T) {
	aliceAcct, bobAcct := newParties(t)
	remoteOneTime := lookupBobOneTime(t, bobAcct)

	alice, err := NewOutboundSession(aliceAcct, bobAcct.IdentityKey.Public, remoteOneTime, fixedRandom(0))
	require.NoError(t, err)

	msg1 := encryptHelper(t, alice, "one")
	msg2 := encryptHelper(t, alice, "two")

	env1 := decodeEnvelopeForTest(t, msg1)
	env2 := decodeEnvelopeForTest(t, msg2)
	assert.Equal(t, env1.identityKey, env2.identityKey)
	assert.Equal(t, env1.baseKey, env2.baseKey)
	assert.Equal(t, env1.oneTimeKeyID, env2.oneTimeKeyID)
}

type envelopeFields struct {
	identityKey  [32]byte
	baseKey      [32]byte
	oneTimeKeyID uint64
}

func decodeEnvelopeForTest(t *testing.T, message []byte) envelopeFields {
	t.Helper()
	var f envelopeFields
	env := prekey.Decode(message)
	require.True(t, prekey.CheckMessageFields(env))
	copy(f.identityKey[:], env.IdentityKey)
	copy(f.baseKey[:], env.BaseKey)
	f.oneTimeKeyID = env.OneTimeKeyID
	return f
}

// S6 and property 8: malformed envelope, and unknown key id.
func TestNewInboundSessionRejectsMalformedAndUnknownKeyID(t *testing.T) {
	_, bobAcct := newParties(t)

	_, err := NewInboundSession(bobAcct, []byte{0x02})
	assert.ErrorIs(t, err, ErrBadMessageFormat)

	aliceAcct, _ := newParties(t)
	remoteOneTime := RemoteKey{ID: 999, Public: curve25519.PublicKey{9}}
	alice, err := NewOutboundSession(aliceAcct, bobAcct.IdentityKey.Public, remoteOneTime, fixedRandom(0))
	require.NoError(t, err)
	msg := encryptHelper(t, alice, "hello")

	_, err = NewInboundSession(bobAcct, msg)
	assert.ErrorIs(t, err, ErrBadMessageKeyID)
}

// Property 6: random-length contract.
func TestNewOutboundSessionRequiresEnoughRandom(t *testing.T) {
	aliceAcct, bobAcct := newParties(t)
	remoteOneTime := lookupBobOneTime(t, bobAcct)

	_, err := NewOutboundSession(aliceAcct, bobAcct.IdentityKey.Public, remoteOneTime, make([]byte, 63))
	assert.ErrorIs(t, err, ErrNotEnoughRandom)
}

// Property 7: buffer-size contract.
func TestEncryptRejectsUndersizedBuffer(t *testing.T) {
	aliceAcct, bobAcct := newParties(t)
	remoteOneTime := lookupBobOneTime(t, bobAcct)

	alice, err := NewOutboundSession(aliceAcct, bobAcct.IdentityKey.Public, remoteOneTime, fixedRandom(0))
	require.NoError(t, err)

	need := alice.EncryptMessageLength(5)
	out := make([]byte, need-1)
	random := make([]byte, alice.EncryptRandomLength())
	_, err = alice.Encrypt([]byte("hello"), random, out)
	assert.ErrorIs(t, err, ErrOutputBufferTooSmall)
}
