package daycache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/sync/singleflight"

	"github.com/heartmarshall/macrolog-backend/internal/config"
	"github.com/heartmarshall/macrolog-backend/internal/domain"
)

// loadTimeout bounds store reads, which outlive the request that started them.
const loadTimeout = 30 * time.Second

type dayStore interface {
	GetDay(ctx context.Context, userID uuid.UUID, date string) (*domain.DailyLog, error)
	ListDays(ctx context.Context, userID uuid.UUID, dates []string) ([]*domain.DailyLog, error)
}

type key struct {
	user uuid.UUID
	date string
}

// pending tracks the loads of one key. gen changes on every invalidation
// of the key, and a load may only populate the cache if gen is unchanged.
// The entry is dropped once no load is registered.
type pending struct {
	gen   uint64
	loads int
}

// Cache maps (user, local date) to a materialized DailyLog backed by the
// persistence gateway. Callers always receive deep copies.
type Cache struct {
	store  dayStore
	clock  clockwork.Clock
	window int
	log    *slog.Logger

	mu       sync.Mutex
	days     map[key]*domain.DailyLog
	pending  map[key]*pending
	lastGen  uint64
	loads    singleflight.Group
	inflight sync.WaitGroup
}

// New creates a Day Cache.
func New(log *slog.Logger, store dayStore, clock clockwork.Clock, cfg config.CacheConfig) *Cache {
	return &Cache{
		store:   store,
		clock:   clock,
		window:  cfg.PrefetchWindow,
		log:     log.With("service", "daycache"),
		days:    make(map[key]*domain.DailyLog),
		pending: make(map[key]*pending),
	}
}

func (c *Cache) nextGenLocked() uint64 {
	c.lastGen++
	return c.lastGen
}

// registerLocked records a load of k and returns the generation it runs under.
func (c *Cache) registerLocked(k key) uint64 {
	p, ok := c.pending[k]
	if !ok {
		p = &pending{gen: c.nextGenLocked()}
		c.pending[k] = p
	}
	p.loads++
	return p.gen
}

func (c *Cache) unregisterLocked(k key) {
	p, ok := c.pending[k]
	if !ok {
		return
	}
	if p.loads--; p.loads <= 0 {
		delete(c.pending, k)
	}
}

func (c *Cache) unregister(k key) {
	c.mu.Lock()
	c.unregisterLocked(k)
	c.mu.Unlock()
}

// currentLocked reports whether a load of k started under gen may populate
// the cache.
func (c *Cache) currentLocked(k key, gen uint64) bool {
	p, ok := c.pending[k]
	return ok && p.gen == gen
}

// staleLocked makes every registered load of keys matching fn stale.
func (c *Cache) staleLocked(fn func(key) bool) {
	for k, p := range c.pending {
		if fn(k) {
			p.gen = c.nextGenLocked()
		}
	}
}

// Get returns the day for (userID, date). A day without a stored row is
// returned as an empty, unsaved placeholder. Concurrent misses share one
// store read, which is not cancelled when a waiting caller gives up.
func (c *Cache) Get(ctx context.Context, userID uuid.UUID, date string) (*domain.DailyLog, error) {
	if _, err := domain.ParseDate(date); err != nil {
		return nil, err
	}
	k := key{user: userID, date: date}

	c.mu.Lock()
	if d, ok := c.days[k]; ok {
		c.mu.Unlock()
		return d.Clone(), nil
	}
	gen := c.registerLocked(k)
	c.mu.Unlock()
	defer c.unregister(k)

	base := context.WithoutCancel(ctx)
	flightKey := fmt.Sprintf("%s/%s/%d", userID, date, gen)
	ch := c.loads.DoChan(flightKey, func() (any, error) {
		lctx, cancel := context.WithTimeout(base, loadTimeout)
		defer cancel()

		d, err := c.load(lctx, userID, date)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.currentLocked(k, gen) {
			c.days[k] = d
		}
		c.mu.Unlock()
		return d, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*domain.DailyLog).Clone(), nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (c *Cache) load(ctx context.Context, userID uuid.UUID, date string) (*domain.DailyLog, error) {
	d, err := c.store.GetDay(ctx, userID, date)
	if errors.Is(err, domain.ErrNotFound) {
		return domain.NewDailyLog(userID, date), nil
	}
	if err != nil {
		return nil, &domain.PersistenceError{Op: "get_day", Err: err}
	}
	return d, nil
}

// Put stores a copy of day.
func (c *Cache) Put(day *domain.DailyLog) {
	if day == nil {
		return
	}
	k := key{user: day.UserID, date: day.Date}
	c.mu.Lock()
	c.days[k] = day.Clone()
	c.mu.Unlock()
}

// Invalidate drops one day. Loads that started before the call will not
// repopulate it.
func (c *Cache) Invalidate(userID uuid.UUID, date string) {
	k := key{user: userID, date: date}
	c.mu.Lock()
	delete(c.days, k)
	if p, ok := c.pending[k]; ok {
		p.gen = c.nextGenLocked()
	}
	c.mu.Unlock()
}

// InvalidateUser drops every cached day of a user.
func (c *Cache) InvalidateUser(userID uuid.UUID) {
	c.mu.Lock()
	for k := range c.days {
		if k.user == userID {
			delete(c.days, k)
		}
	}
	c.staleLocked(func(k key) bool { return k.user == userID })
	c.mu.Unlock()
}

// InvalidateAll empties the cache.
func (c *Cache) InvalidateAll() {
	c.mu.Lock()
	c.days = make(map[key]*domain.DailyLog)
	c.staleLocked(func(key) bool { return true })
	c.mu.Unlock()
}

// Prefetch loads the trailing window of days ending at center in the
// background with one batched read. Future dates are never requested and
// cached days are skipped. Failures are logged and dropped.
func (c *Cache) Prefetch(ctx context.Context, userID uuid.UUID, center string, loc *time.Location) {
	if c.window <= 0 {
		return
	}
	today := domain.LocalDate(c.clock.Now(), loc)
	if center > today {
		center = today
	}
	dates, err := domain.DateRange(center, c.window)
	if err != nil {
		c.log.WarnContext(ctx, "prefetch skipped", slog.String("center", center), slog.String("error", err.Error()))
		return
	}

	c.mu.Lock()
	missing := make([]string, 0, len(dates))
	gens := make(map[string]uint64, len(dates))
	for _, d := range dates {
		k := key{user: userID, date: d}
		if _, ok := c.days[k]; ok {
			continue
		}
		missing = append(missing, d)
		gens[d] = c.registerLocked(k)
	}
	c.mu.Unlock()

	if len(missing) == 0 {
		return
	}

	c.inflight.Add(1)
	go func() {
		defer c.inflight.Done()
		defer func() {
			c.mu.Lock()
			for _, date := range missing {
				c.unregisterLocked(key{user: userID, date: date})
			}
			c.mu.Unlock()
		}()

		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		found, err := c.store.ListDays(pctx, userID, missing)
		if err != nil {
			c.log.WarnContext(pctx, "prefetch failed",
				slog.String("user_id", userID.String()),
				slog.String("center", center),
				slog.String("error", err.Error()),
			)
			return
		}

		byDate := make(map[string]*domain.DailyLog, len(found))
		for _, d := range found {
			byDate[d.Date] = d
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		for _, date := range missing {
			k := key{user: userID, date: date}
			if _, ok := c.days[k]; ok || !c.currentLocked(k, gens[date]) {
				continue
			}
			d, ok := byDate[date]
			if !ok {
				d = domain.NewDailyLog(userID, date)
			}
			c.days[k] = d
		}
	}()
}

// Wait blocks until in-flight prefetches finish.
func (c *Cache) Wait() {
	c.inflight.Wait()
}
