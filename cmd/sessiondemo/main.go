// Command sessiondemo drives the session core end to end from the command
// line: generating key pairs and running a complete in-process handshake,
// without the transport layer that is out of scope for this module.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"olmsession/account"
	"olmsession/crypto/curve25519"
	"olmsession/fingerprint"
	"olmsession/session"
)

var logger = logrus.New()

func main() {
	root := &cobra.Command{
		Use:   "sessiondemo",
		Short: "Exercise the session-establishment and message-encryption core",
	}
	root.AddCommand(newGenKeyCommand())
	root.AddCommand(newHandshakeCommand())

	if err := root.Execute(); err != nil {
		logger.Errorf("sessiondemo: %v", err)
		os.Exit(1)
	}
}

func newGenKeyCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "genkey",
		Short: "Print a freshly generated Curve25519 key pair",
		RunE: func(cmd *cobra.Command, args []string) error {
			var seed [32]byte
			if _, err := rand.Read(seed[:]); err != nil {
				return fmt.Errorf("read seed: %w", err)
			}
			kp := curve25519.GenerateKeyPair(&seed)
			curve25519.WipeBytes(seed[:])

			fmt.Printf("PRIVATE: %s\n", hex.EncodeToString(kp.Private[:]))
			fmt.Printf("PUBLIC:  %s\n", hex.EncodeToString(kp.Public[:]))
			kp.Wipe()
			return nil
		},
	}
}

func newHandshakeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "handshake",
		Short: "Run a complete outbound/inbound handshake and message exchange",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHandshake()
		},
	}
}

func runHandshake() error {
	aliceAcct, err := newDemoAccount(1)
	if err != nil {
		return err
	}
	bobAcct, err := newDemoAccount(2)
	if err != nil {
		return err
	}

	const bobOneTimeKeyID = 1
	var otkSeed [32]byte
	if _, err := rand.Read(otkSeed[:]); err != nil {
		return fmt.Errorf("read one-time key seed: %w", err)
	}
	bobAcct.AddOneTimeKey(bobOneTimeKeyID, &otkSeed)
	curve25519.WipeBytes(otkSeed[:])
	bobOneTime, ok := bobAcct.LookupKey(bobOneTimeKeyID)
	if !ok {
		return fmt.Errorf("one-time key %d missing immediately after creation", bobOneTimeKeyID)
	}

	random := make([]byte, 64)
	if _, err := rand.Read(random); err != nil {
		return fmt.Errorf("read handshake randomness: %w", err)
	}

	alice, err := session.NewOutboundSession(
		aliceAcct,
		bobAcct.IdentityKey.Public,
		session.RemoteKey{ID: bobOneTimeKeyID, Public: bobOneTime.Public},
		random,
	)
	curve25519.WipeBytes(random)
	if err != nil {
		return fmt.Errorf("outbound init: %w", err)
	}
	logger.WithField("type", alice.EncryptMessageType()).Info("alice: session established")

	msg1 := make([]byte, alice.EncryptMessageLength(len("hello bob")))
	n, err := alice.Encrypt([]byte("hello bob"), nil, msg1)
	if err != nil {
		return fmt.Errorf("alice encrypt: %w", err)
	}
	msg1 = msg1[:n]

	bob, err := session.NewInboundSession(bobAcct, msg1)
	if err != nil {
		return fmt.Errorf("inbound init: %w", err)
	}
	bobAcct.RemoveOneTimeKey(bobOneTimeKeyID)

	plainLen, err := bob.DecryptMaxPlaintextLength(session.PreKeyMessage, msg1)
	if err != nil {
		return fmt.Errorf("bob decrypt-length: %w", err)
	}
	plain := make([]byte, plainLen)
	n, err = bob.Decrypt(session.PreKeyMessage, msg1, plain)
	if err != nil {
		return fmt.Errorf("bob decrypt: %w", err)
	}
	fmt.Printf("bob received: %q\n", plain[:n])

	msg2 := make([]byte, bob.EncryptMessageLength(len("hi alice")))
	n, err = bob.Encrypt([]byte("hi alice"), nil, msg2)
	if err != nil {
		return fmt.Errorf("bob encrypt: %w", err)
	}
	msg2 = msg2[:n]

	plainLen, err = alice.DecryptMaxPlaintextLength(session.Message, msg2)
	if err != nil {
		return fmt.Errorf("alice decrypt-length: %w", err)
	}
	plain = make([]byte, plainLen)
	n, err = alice.Decrypt(session.Message, msg2, plain)
	if err != nil {
		return fmt.Errorf("alice decrypt: %w", err)
	}
	fmt.Printf("alice received: %q\n", plain[:n])

	print := fingerprint.Fingerprint(bobAcct.IdentityKey.Public, []byte("bob"))
	fmt.Printf("bob's fingerprint: %v\n", print)
	fmt.Printf("alice.received_message=%v alice.type=%v\n", alice.ReceivedMessage, alice.EncryptMessageType())
	fmt.Printf("bob.received_message=%v   bob.type=%v\n", bob.ReceivedMessage, bob.EncryptMessageType())
	return nil
}

func newDemoAccount(id uint64) (*account.Account, error) {
	var seed [32]byte
	if _, err := rand.Read(seed[:]); err != nil {
		return nil, fmt.Errorf("read identity seed: %w", err)
	}
	acct := account.New(&seed, id)
	curve25519.WipeBytes(seed[:])
	return acct, nil
}
