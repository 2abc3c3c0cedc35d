package redisrepo

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"zro-loans/internal/usecase/wizard"
	"zro-loans/pkg/id"

	"github.com/redis/go-redis/v9"
)

const lockTTL = 10 * time.Second

var _ wizard.SessionStore = (*WizardSessionStore)(nil)

// unlock only if we still own the lock
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

type WizardSessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewWizardSessionStore(rdb *redis.Client, ttl time.Duration) *WizardSessionStore {
	return &WizardSessionStore{rdb: rdb, ttl: ttl}
}

func sessionKey(id string) string { return "wizard:session:" + id }
func lockKey(id string) string    { return "wizard:lock:" + id }

// Save writes the session and restarts its TTL.
func (s *WizardSessionStore) Save(ctx context.Context, sess *wizard.Session) error {
	payload, err := json.Marshal(sess)
	if err != nil {
		return err
	}
	return s.rdb.Set(ctx, sessionKey(sess.ID), payload, s.ttl).Err()
}

func (s *WizardSessionStore) Load(ctx context.Context, sessionID string) (*wizard.Session, error) {
	if sessionID == "" {
		return nil, wizard.ErrSessionNotFound
	}
	v, err := s.rdb.Get(ctx, sessionKey(sessionID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, wizard.ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	var sess wizard.Session
	if err := json.Unmarshal(v, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *WizardSessionStore) Lock(ctx context.Context, sessionID string) (func(), error) {
	owner := id.NewID32()
	ok, err := s.rdb.SetNX(ctx, lockKey(sessionID), owner, lockTTL).Result()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, wizard.ErrBusy
	}
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = releaseScript.Run(ctx, s.rdb, []string{lockKey(sessionID)}, owner).Err()
	}, nil
}
