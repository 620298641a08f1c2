// Package filesource loads flag definitions from a local JSON or YAML file.
//
// A Source implements flagstore.Fetcher, so a store can poll the file instead of the
// remote service. Watch uses fsnotify to trigger a refresh as soon as the file changes:
//
//	src, err := filesource.New("flags.yaml")
//	if err != nil {
//	    return err
//	}
//	store, err := flagstore.New(src)
//	go src.Watch(ctx, func() { _ = store.Refresh(ctx) })
package filesource
