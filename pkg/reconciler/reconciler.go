// Package reconciler keeps the local read cache of backend collections in line with backend truth.
//
// Every refresh is a full reload that replaces the cached snapshot wholesale. Within one
// process concurrent refreshes of the same collection are not serialized: the last one to
// land wins and reflects the backend at that moment. Processes sharing a cache can pass a
// ports.Locker so that fetch and save of one collection happen under a shared lock.
package reconciler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/aretw0/helix/internal/logging"
	"github.com/aretw0/helix/pkg/adapters/memory"
	"github.com/aretw0/helix/pkg/domain"
	"github.com/aretw0/helix/pkg/ports"
)

// Default list sizes used when reloading collections.
const (
	DefaultTensionLimit  = 50
	DefaultBaselineLimit = 200
)

// DefaultLockTTL bounds a refresh lock.
const DefaultLockTTL = 30 * time.Second

// Source is the subset of the backend client the reconciler reads from.
type Source interface {
	ActiveTensions(ctx context.Context, limit int) ([]domain.Tension, error)
	BaselineFields(ctx context.Context, limit int, includeInactive bool) ([]domain.BaselineField, error)
	CalendarStatus(ctx context.Context) (domain.CalendarStatus, error)
}

// Reconciler refreshes and serves cached collections.
type Reconciler struct {
	source        Source
	store         ports.CacheStore
	logger        *slog.Logger
	onRefresh     func(context.Context, *domain.RefreshEvent)
	locker        ports.Locker
	lockTTL       time.Duration
	tensionLimit  int
	baselineLimit int
	now           func() time.Time
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithStore sets the cache store. Defaults to an in-memory store.
func WithStore(s ports.CacheStore) Option {
	return func(r *Reconciler) {
		if s != nil {
			r.store = s
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRefreshHook registers a callback fired after every refresh attempt.
func WithRefreshHook(fn func(context.Context, *domain.RefreshEvent)) Option {
	return func(r *Reconciler) { r.onRefresh = fn }
}

// WithLocker serializes refreshes of the same collection through l.
// ttl bounds how long a crashed holder can block others.
func WithLocker(l ports.Locker, ttl time.Duration) Option {
	return func(r *Reconciler) {
		r.locker = l
		if ttl > 0 {
			r.lockTTL = ttl
		}
	}
}

// WithLimits overrides the list sizes used for tensions and baseline fields.
func WithLimits(tensions, baseline int) Option {
	return func(r *Reconciler) {
		if tensions > 0 {
			r.tensionLimit = tensions
		}
		if baseline > 0 {
			r.baselineLimit = baseline
		}
	}
}

// New creates a Reconciler reading from source.
func New(source Source, opts ...Option) *Reconciler {
	r := &Reconciler{
		source:        source,
		store:         memory.NewStore(),
		logger:        logging.NewNop(),
		tensionLimit:  DefaultTensionLimit,
		baselineLimit: DefaultBaselineLimit,
		lockTTL:       DefaultLockTTL,
		now:           time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store exposes the underlying cache store.
func (r *Reconciler) Store() ports.CacheStore { return r.store }

// Refresh re-fetches collection c and replaces its cached snapshot.
// On fetch failure the previous snapshot is kept and the error returned.
func (r *Reconciler) Refresh(ctx context.Context, c domain.Collection) error {
	if !c.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownCollection, c)
	}

	start := r.now()
	count, err := r.reload(ctx, c, start)
	elapsed := time.Since(start)

	if err != nil {
		r.logger.Warn("refresh failed", "collection", c, "error", err)
	} else {
		r.logger.Debug("collection refreshed", "collection", c, "rows", count, "duration", elapsed)
	}
	if r.onRefresh != nil {
		r.onRefresh(ctx, &domain.RefreshEvent{
			EventBase:  domain.EventBase{Timestamp: start, Type: domain.EventRefresh},
			Collection: c,
			Rows:       count,
			Err:        err,
			Duration:   elapsed,
		})
	}
	return err
}

func (r *Reconciler) reload(ctx context.Context, c domain.Collection, start time.Time) (count int, err error) {
	if r.locker != nil {
		unlock, lockErr := r.locker.Lock(ctx, "refresh:"+string(c), r.lockTTL)
		if lockErr != nil {
			return 0, lockErr
		}
		defer func() {
			// Release even if ctx was cancelled mid-refresh.
			if uerr := unlock(context.WithoutCancel(ctx)); uerr != nil {
				r.logger.Warn("refresh unlock failed", "collection", c, "error", uerr)
			}
		}()
	}

	rows, count, err := r.fetch(ctx, c)
	if err != nil {
		return 0, err
	}
	return count, r.store.Save(ctx, domain.Snapshot{Collection: c, Rows: rows, Count: count, FetchedAt: start})
}

func (r *Reconciler) fetch(ctx context.Context, c domain.Collection) (json.RawMessage, int, error) {
	var (
		v     any
		count int
		err   error
	)
	switch c {
	case domain.CollectionTensions:
		var rows []domain.Tension
		rows, err = r.source.ActiveTensions(ctx, r.tensionLimit)
		v, count = rows, len(rows)
	case domain.CollectionBaselineFields:
		var rows []domain.BaselineField
		rows, err = r.source.BaselineFields(ctx, r.baselineLimit, false)
		v, count = rows, len(rows)
	case domain.CollectionCalendarStatus:
		var status domain.CalendarStatus
		status, err = r.source.CalendarStatus(ctx)
		v, count = status, 1
	}
	if err != nil {
		return nil, 0, err
	}

	data, err := json.Marshal(v)
	if err != nil {
		return nil, 0, fmt.Errorf("encode %s: %w", c, err)
	}
	return data, count, nil
}

// RefreshAll reloads every collection concurrently and returns the joined failures.
func (r *Reconciler) RefreshAll(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	errs := make([]error, len(domain.Collections))
	for i, c := range domain.Collections {
		g.Go(func() error {
			errs[i] = r.Refresh(gctx, c)
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Current returns the cached snapshot of c, or domain.ErrNotCached.
func (r *Reconciler) Current(ctx context.Context, c domain.Collection) (domain.Snapshot, error) {
	if !c.Valid() {
		return domain.Snapshot{}, fmt.Errorf("%w: %q", domain.ErrUnknownCollection, c)
	}
	return r.store.Load(ctx, c)
}

// Tensions returns the cached active tensions.
func (r *Reconciler) Tensions(ctx context.Context) ([]domain.Tension, error) {
	var rows []domain.Tension
	err := r.decode(ctx, domain.CollectionTensions, &rows)
	return rows, err
}

// BaselineFields returns the cached active baseline fields.
func (r *Reconciler) BaselineFields(ctx context.Context) ([]domain.BaselineField, error) {
	var rows []domain.BaselineField
	err := r.decode(ctx, domain.CollectionBaselineFields, &rows)
	return rows, err
}

// CalendarStatus returns the cached calendar connection status.
func (r *Reconciler) CalendarStatus(ctx context.Context) (domain.CalendarStatus, error) {
	var status domain.CalendarStatus
	err := r.decode(ctx, domain.CollectionCalendarStatus, &status)
	return status, err
}

func (r *Reconciler) decode(ctx context.Context, c domain.Collection, out any) error {
	snap, err := r.store.Load(ctx, c)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(snap.Rows, out); err != nil {
		return fmt.Errorf("decode cached %s: %w", c, err)
	}
	return nil
}
