package redisstore

import "errors"

var (
	ErrEmptyConnectionURL           = errors.New("redisstore: empty redis connection URL")
	ErrFailedToParseRedisConnString = errors.New("redisstore: failed to parse redis connection string")
	ErrRedisNotReady                = errors.New("redisstore: redis did not become ready within the given time period")
	ErrHealthcheckFailed            = errors.New("redisstore: redis healthcheck failed")
	ErrSaveFailed                   = errors.New("redisstore: failed to save snapshot")
	ErrLoadFailed                   = errors.New("redisstore: failed to load snapshot")
)
