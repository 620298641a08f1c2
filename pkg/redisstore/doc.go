// Package redisstore persists flag definition snapshots in Redis.
//
// Connect opens a go-redis client with retries; Healthcheck turns it into a probe.
// SnapshotStore implements flagstore.Persister: every successful refresh is written
// with SET ... EX, and a process whose first fetch fails loads the shared copy instead.
//
//	client, err := redisstore.Connect(ctx, cfg)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	store, err := flagstore.New(fetcher,
//	    flagstore.WithPersister(redisstore.NewSnapshotStoreFromConfig(client, cfg)),
//	)
package redisstore
