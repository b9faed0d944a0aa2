package store

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"olmsession/account"
	"olmsession/session"
)

func unreachableStore() *Store {
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 50 * time.Millisecond,
	})
	logger := logrus.New()
	logger.SetOutput(discardWriter{})
	return New(client, logger)
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestSaveReturnsWrappedErrorWhenRedisUnreachable(t *testing.T) {
	s := unreachableStore()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	var identitySeed, bobSeed, otkSeed [32]byte
	identitySeed[0] = 1
	bobSeed[0] = 2
	aliceAcct := account.New(&identitySeed, 1)
	bobAcct := account.New(&bobSeed, 2)
	bobAcct.AddOneTimeKey(1, &otkSeed)
	kp, _ := bobAcct.LookupKey(1)

	random := make([]byte, 64)
	sess, err := session.NewOutboundSession(aliceAcct, bobAcct.IdentityKey.Public, session.RemoteKey{ID: 1, Public: kp.Public}, random)
	assert.NoError(t, err)

	err = s.Save(ctx, "session-1", sess)
	assert.Error(t, err)
}

func TestLoadReturnsWrappedErrorWhenRedisUnreachable(t *testing.T) {
	s := unreachableStore()
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	_, err := s.Load(ctx, "missing")
	assert.Error(t, err)
}
