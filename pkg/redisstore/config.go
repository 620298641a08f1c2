package redisstore

import "time"

// Config describes the Redis connection and where snapshots are kept.
type Config struct {
	ConnectionURL  string        `env:"REDIS_URL,required" envDefault:"redis://localhost:6379/0"`
	RetryAttempts  int           `env:"REDIS_RETRY_ATTEMPTS" envDefault:"3"`
	RetryInterval  time.Duration `env:"REDIS_RETRY_INTERVAL" envDefault:"5s"`
	ConnectTimeout time.Duration `env:"REDIS_CONNECT_TIMEOUT" envDefault:"30s"`
	SnapshotKey    string        `env:"REDIS_SNAPSHOT_KEY" envDefault:"featurekit:definitions"`
	SnapshotTTL    time.Duration `env:"REDIS_SNAPSHOT_TTL" envDefault:"24h"` // zero keeps the snapshot forever
}
