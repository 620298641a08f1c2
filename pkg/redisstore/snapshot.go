package redisstore

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/featurekit/pkg/flags"
	"github.com/dmitrymomot/featurekit/pkg/flagstore"
)

// KV is the subset of the go-redis client used by SnapshotStore.
// redis.UniversalClient satisfies it.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// SnapshotStore keeps the last good flag definitions in Redis so that processes can
// cold start while the remote service is unreachable.
type SnapshotStore struct {
	db  KV
	key string
	ttl time.Duration
}

var _ flagstore.Persister = (*SnapshotStore)(nil)

// NewSnapshotStore stores snapshots under key with the given TTL. A zero TTL keeps
// them forever.
func NewSnapshotStore(db KV, key string, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{db: db, key: key, ttl: ttl}
}

// NewSnapshotStoreFromConfig uses the key and TTL from cfg.
func NewSnapshotStoreFromConfig(db KV, cfg Config) *SnapshotStore {
	return NewSnapshotStore(db, cfg.SnapshotKey, cfg.SnapshotTTL)
}

// Save writes snap in the local-evaluation wire shape.
func (s *SnapshotStore) Save(ctx context.Context, snap *flags.Snapshot) error {
	if snap == nil {
		return nil
	}
	data, err := flags.EncodeSnapshot(snap)
	if err != nil {
		return errors.Join(ErrSaveFailed, err)
	}
	if err := s.db.Set(ctx, s.key, data, s.ttl).Err(); err != nil {
		return errors.Join(ErrSaveFailed, err)
	}
	return nil
}

// Load returns the stored snapshot, or nil without error when none is stored.
func (s *SnapshotStore) Load(ctx context.Context) (*flags.Snapshot, error) {
	data, err := s.db.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Join(ErrLoadFailed, err)
	}

	snap, err := flags.DecodeSnapshot(data)
	if err != nil {
		return nil, errors.Join(ErrLoadFailed, err)
	}
	return snap, nil
}
