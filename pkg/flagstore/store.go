package flagstore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/featurekit/pkg/flags"
	"github.com/dmitrymomot/featurekit/pkg/logger"
)

// FetchResult is the outcome of a definitions fetch.
// When NotModified is set, Snapshot is nil and the current snapshot stays.
type FetchResult struct {
	Snapshot    *flags.Snapshot
	ETag        string
	NotModified bool
}

// Fetcher loads flag definitions. etag is the tag of the snapshot currently held,
// empty on the first fetch.
type Fetcher interface {
	Fetch(ctx context.Context, etag string) (FetchResult, error)
}

// FetcherFunc adapts a function to the Fetcher interface.
type FetcherFunc func(ctx context.Context, etag string) (FetchResult, error)

// Fetch implements Fetcher.
func (f FetcherFunc) Fetch(ctx context.Context, etag string) (FetchResult, error) {
	return f(ctx, etag)
}

// Persister keeps a copy of the last good snapshot outside the process, so a cold
// start can proceed while the primary source is unavailable.
type Persister interface {
	Save(ctx context.Context, snap *flags.Snapshot) error
	Load(ctx context.Context) (*flags.Snapshot, error)
}

// RefreshStatus classifies a refresh.
type RefreshStatus string

const (
	RefreshUpdated     RefreshStatus = "updated"
	RefreshNotModified RefreshStatus = "not_modified"
	RefreshFailed      RefreshStatus = "failed"
	RefreshPersisted   RefreshStatus = "persisted"
)

// RefreshResult describes one refresh attempt.
type RefreshResult struct {
	Status   RefreshStatus
	Flags    int
	Duration time.Duration
	Err      error
}

type state struct {
	snap *flags.Snapshot
	etag string
}

// Store holds the current flag definitions and keeps them fresh.
// Readers never block: Snapshot loads an atomic pointer that refreshes replace
// wholesale. A failed refresh keeps the last good snapshot.
type Store struct {
	fetcher   Fetcher
	persister Persister
	interval  time.Duration
	logger    *slog.Logger
	onRefresh func(RefreshResult)
	now       func() time.Time

	current  atomic.Pointer[state]
	flights  singleflight.Group
	failedAt atomic.Int64 // unix nanos of the last failed cold start

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a Store over fetcher. No fetch happens until Await, Refresh or Start.
func New(fetcher Fetcher, opts ...Option) (*Store, error) {
	if fetcher == nil {
		return nil, ErrNilFetcher
	}

	o := &options{
		pollInterval: 30 * time.Second,
		logger:       slog.Default(),
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}

	return &Store{
		fetcher:   fetcher,
		persister: o.persister,
		interval:  o.pollInterval,
		logger:    o.logger,
		onRefresh: o.onRefresh,
		now:       o.now,
	}, nil
}

// Snapshot returns the current snapshot, nil before the first successful load.
func (s *Store) Snapshot() *flags.Snapshot {
	if st := s.current.Load(); st != nil {
		return st.snap
	}
	return nil
}

// Await returns the current snapshot, loading it first if none is held.
// Concurrent callers share one load; each caller stops waiting when its ctx ends.
// After a failed load, Await returns ErrColdStartFailed without fetching until a
// poll interval has passed; Refresh and the poller keep trying in the meantime.
func (s *Store) Await(ctx context.Context) (*flags.Snapshot, error) {
	if snap := s.Snapshot(); snap != nil {
		return snap, nil
	}
	if s.backingOff() {
		return nil, errors.Join(ErrNoSnapshot, ErrColdStartFailed)
	}

	ch := s.flights.DoChan("load", func() (any, error) {
		if snap := s.Snapshot(); snap != nil {
			return snap, nil
		}
		return s.coldStart(context.WithoutCancel(ctx))
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*flags.Snapshot), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Refresh fetches definitions using the last ETag.
// On error the current snapshot is kept and the error returned.
func (s *Store) Refresh(ctx context.Context) error {
	_, err, _ := s.flights.Do("refresh", func() (any, error) {
		return nil, s.refresh(ctx)
	})
	return err
}

// Start launches the background poller. The first refresh happens immediately.
func (s *Store) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cancel != nil {
		return ErrAlreadyStarted
	}

	pollCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.done = make(chan struct{})

	go s.poll(pollCtx, s.done)

	s.logger.LogAttrs(ctx, slog.LevelInfo, "flag poller started",
		logger.Component("flagstore"),
		slog.Duration("poll_interval", s.interval),
	)
	return nil
}

// Stop cancels the poller and waits for it to exit, or for ctx to end.
func (s *Store) Stop(ctx context.Context) error {
	s.mu.Lock()
	if s.cancel == nil {
		s.mu.Unlock()
		return ErrNotStarted
	}
	cancel, done := s.cancel, s.done
	s.cancel = nil
	s.mu.Unlock()

	cancel()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	s.logger.LogAttrs(ctx, slog.LevelInfo, "flag poller stopped", logger.Component("flagstore"))
	return nil
}

// Run starts the poller and returns a function suitable for errgroup.
func (s *Store) Run(ctx context.Context) func() error {
	return func() error {
		if err := s.Start(ctx); err != nil {
			return err
		}

		<-ctx.Done()

		return s.Stop(context.Background())
	}
}

func (s *Store) poll(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		if err := s.Refresh(ctx); err != nil && ctx.Err() == nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "flag refresh failed, keeping last definitions",
				logger.Component("flagstore"),
				logger.Error(err),
			)
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Store) backingOff() bool {
	failed := s.failedAt.Load()
	return failed != 0 && s.now().Before(time.Unix(0, failed).Add(s.interval))
}

func (s *Store) coldStart(ctx context.Context) (*flags.Snapshot, error) {
	fetchErr := s.refresh(ctx)
	if snap := s.Snapshot(); snap != nil {
		return snap, nil
	}

	if s.persister != nil {
		snap, err := s.persister.Load(ctx)
		if err == nil && snap != nil {
			s.current.CompareAndSwap(nil, &state{snap: snap})
			s.report(RefreshResult{Status: RefreshPersisted, Flags: snap.Len()})
			s.logger.LogAttrs(ctx, slog.LevelWarn, "using persisted flag definitions",
				logger.Component("flagstore"),
				logger.Count(snap.Len()),
				logger.Error(fetchErr),
			)
			return s.Snapshot(), nil
		}
		if err != nil {
			fetchErr = errors.Join(fetchErr, err)
		}
	}

	s.failedAt.Store(s.now().UnixNano())
	return nil, errors.Join(ErrNoSnapshot, fetchErr)
}

func (s *Store) refresh(ctx context.Context) error {
	start := s.now()

	var etag string
	prev := s.current.Load()
	if prev != nil {
		etag = prev.etag
	}

	res, err := s.fetcher.Fetch(ctx, etag)
	if err != nil {
		err = fmt.Errorf("%w: %w", ErrFetchFailed, err)
		s.report(RefreshResult{Status: RefreshFailed, Duration: s.now().Sub(start), Err: err})
		return err
	}

	if res.NotModified && prev != nil {
		s.report(RefreshResult{Status: RefreshNotModified, Flags: prev.snap.Len(), Duration: s.now().Sub(start)})
		return nil
	}
	if res.Snapshot == nil {
		err = fmt.Errorf("%w: empty response", ErrFetchFailed)
		s.report(RefreshResult{Status: RefreshFailed, Duration: s.now().Sub(start), Err: err})
		return err
	}

	s.current.Store(&state{snap: res.Snapshot, etag: res.ETag})
	s.report(RefreshResult{Status: RefreshUpdated, Flags: res.Snapshot.Len(), Duration: s.now().Sub(start)})

	s.logger.LogAttrs(ctx, slog.LevelDebug, "flag definitions updated",
		logger.Component("flagstore"),
		logger.Count(res.Snapshot.Len()),
	)

	if s.persister != nil {
		if err := s.persister.Save(ctx, res.Snapshot); err != nil {
			s.logger.LogAttrs(ctx, slog.LevelWarn, "failed to persist flag definitions",
				logger.Component("flagstore"),
				logger.Error(err),
			)
		}
	}
	return nil
}

func (s *Store) report(r RefreshResult) {
	if s.onRefresh != nil {
		s.onRefresh(r)
	}
}
