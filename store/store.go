// Package store hosts session persistence at rest, a concern the session
// core itself leaves to the caller. It is a thin wrapper over Redis,
// exercising the session's Pickle/Unpickle contract end to end.
package store

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"olmsession/config"
	"olmsession/session"
)

// Store checkpoints and resumes sessions in Redis under a namespaced key
// per session id. It carries no protocol logic of its own.
type Store struct {
	client *redis.Client
	logger *logrus.Logger
}

// New builds a Store around an already-connected redis client.
func New(client *redis.Client, logger *logrus.Logger) *Store {
	return &Store{client: client, logger: logger}
}

// Save pickles sess and writes it to Redis under sessionID's key, with no
// expiry: sessions are checkpoints, not caches.
func (s *Store) Save(ctx context.Context, sessionID string, sess *session.Session) error {
	buf := make([]byte, sess.PickleLength())
	n, err := sess.Pickle(buf)
	if err != nil {
		s.logger.WithField("session_id", sessionID).Errorf("pickle session: %v", err)
		return fmt.Errorf("store: pickle session: %w", err)
	}

	key := fmt.Sprintf(config.SessionPickleKeyPattern, sessionID)
	if err := s.client.Set(ctx, key, buf[:n], 0).Err(); err != nil {
		s.logger.WithField("session_id", sessionID).Errorf("save session: %v", err)
		return fmt.Errorf("store: save session: %w", err)
	}
	return nil
}

// Load reads a session's pickled bytes back from Redis and reconstructs it.
func (s *Store) Load(ctx context.Context, sessionID string) (*session.Session, error) {
	key := fmt.Sprintf(config.SessionPickleKeyPattern, sessionID)
	data, err := s.client.Get(ctx, key).Bytes()
	if err != nil {
		s.logger.WithField("session_id", sessionID).Errorf("load session: %v", err)
		return nil, fmt.Errorf("store: load session: %w", err)
	}

	sess, err := session.Unpickle(data)
	if err != nil {
		s.logger.WithField("session_id", sessionID).Errorf("unpickle session: %v", err)
		return nil, fmt.Errorf("store: unpickle session: %w", err)
	}
	return sess, nil
}
