// Package grades implements the grade store engine: queries, partial-update
// merges and identifier assignment over the persisted collection.
//
// Every operation reloads the collection from the store. Mutations hold the
// engine's write lock and the store's exclusive file lock from Load through
// Save, so two writers can never both start from the same snapshot, whether
// they share an Engine or run in separate processes.
package grades

import (
	"errors"
	"sync"
	"time"

	"github.com/alm9/grades-escolares-api/internal/types"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// DefaultTopN is the number of grades TopN returns when n is not positive.
const DefaultTopN = 3

// Store is the persistence the engine needs. *store.Store satisfies it.
//
// Lock and RLock guard the file against other processes; the returned func
// releases the lock. Version changes whenever the persisted file does.
type Store interface {
	Load() (types.Collection, error)
	Save(types.Collection) error
	Lock() (func(), error)
	RLock() (func(), error)
	Version() (string, error)
}

// Engine is safe for concurrent use.
type Engine struct {
	mu     sync.RWMutex
	store  Store
	cache  *cache.Cache
	logger *zap.Logger
	now    func() time.Time
	topN   int
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for operation records.
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides the source of insert timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithCacheTTL memoizes aggregate results for ttl. Entries are keyed by the
// file's contents, so a mutation from any process retires them.
// A ttl of zero or less disables the cache.
func WithCacheTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		if ttl <= 0 {
			e.cache = nil
			return
		}
		e.cache = cache.New(ttl, 2*ttl)
	}
}

// WithDefaultTopN changes how many grades TopN returns for n <= 0.
func WithDefaultTopN(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.topN = n
		}
	}
}

// NewEngine builds an engine over st.
func NewEngine(st Store, opts ...Option) *Engine {
	e := &Engine{
		store:  st,
		logger: zap.NewNop(),
		now:    time.Now,
		topN:   DefaultTopN,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// lock takes the engine's write lock and then the store's exclusive lock.
func (e *Engine) lock() (func(), error) {
	e.mu.Lock()
	unlock, err := e.store.Lock()
	if err != nil {
		e.mu.Unlock()
		e.logger.Error("failed to lock grades", zap.Error(err))
		return nil, err
	}
	return func() {
		unlock()
		e.mu.Unlock()
	}, nil
}

// rlock takes the engine's read lock and then the store's shared lock.
func (e *Engine) rlock() (func(), error) {
	e.mu.RLock()
	unlock, err := e.store.RLock()
	if err != nil {
		e.mu.RUnlock()
		e.logger.Error("failed to lock grades", zap.Error(err))
		return nil, err
	}
	return func() {
		unlock()
		e.mu.RUnlock()
	}, nil
}

// load reads the current collection. A store that has never been written
// is an empty collection starting at id 0. Callers must hold a lock from
// lock or rlock.
func (e *Engine) load() (types.Collection, error) {
	c, err := e.store.Load()
	if errors.Is(err, ErrNoState) {
		return types.Collection{Grades: []types.Grade{}}, nil
	}
	if err != nil {
		e.logger.Error("failed to load grades", zap.Error(err))
		return types.Collection{}, err
	}
	return c, nil
}

// save persists c and drops cached aggregates. Callers must hold the lock
// from lock.
func (e *Engine) save(c types.Collection) error {
	if err := e.store.Save(c); err != nil {
		e.logger.Error("failed to save grades", zap.Error(err))
		return err
	}
	if e.cache != nil {
		e.cache.Flush()
	}
	return nil
}

// Insert appends a new grade built from p and returns it with its assigned
// id and timestamp.
func (e *Engine) Insert(p types.PartialGrade) (types.Grade, error) {
	if err := validatePartial(p); err != nil {
		return types.Grade{}, err
	}

	release, err := e.lock()
	if err != nil {
		return types.Grade{}, err
	}
	defer release()

	c, err := e.load()
	if err != nil {
		return types.Grade{}, err
	}

	g := types.Grade{ID: c.NextID, Timestamp: e.now()}
	mergeInto(&g, p)

	c.Grades = append(c.Grades, g)
	c.NextID++

	if err := e.save(c); err != nil {
		return types.Grade{}, err
	}

	e.logger.Info("grade inserted", zap.Int("id", g.ID), zap.Any("grade", g))
	return g, nil
}

// Update merges the fields present in p into the grade with the given id.
// The id and timestamp of the stored grade are always kept.
func (e *Engine) Update(id int, p types.PartialGrade) (types.Grade, error) {
	if err := validatePartial(p); err != nil {
		return types.Grade{}, err
	}

	release, err := e.lock()
	if err != nil {
		return types.Grade{}, err
	}
	defer release()

	c, err := e.load()
	if err != nil {
		return types.Grade{}, err
	}

	idx := c.IndexOf(id)
	if idx < 0 {
		e.logger.Warn("update of unknown grade", zap.Int("id", id))
		return types.Grade{}, &NotFoundError{ID: id}
	}

	old := c.Grades[idx]
	merged := old
	mergeInto(&merged, p)
	c.Grades[idx] = merged

	if err := e.save(c); err != nil {
		return types.Grade{}, err
	}

	e.logger.Info("grade updated", zap.Int("id", id), zap.Any("old", old), zap.Any("new", merged))
	return merged, nil
}

// Delete removes the grade with the given id and returns it as it was.
// The id is never handed out again.
func (e *Engine) Delete(id int) (types.Grade, error) {
	release, err := e.lock()
	if err != nil {
		return types.Grade{}, err
	}
	defer release()

	c, err := e.load()
	if err != nil {
		return types.Grade{}, err
	}

	idx := c.IndexOf(id)
	if idx < 0 {
		e.logger.Warn("delete of unknown grade", zap.Int("id", id))
		return types.Grade{}, &NotFoundError{ID: id}
	}

	removed := c.Grades[idx]
	c.Grades = append(c.Grades[:idx], c.Grades[idx+1:]...)

	if err := e.save(c); err != nil {
		return types.Grade{}, err
	}

	e.logger.Info("grade deleted", zap.Int("id", id), zap.Any("grade", removed))
	return removed, nil
}

// Snapshot returns the full persisted state, counter included. It exists for
// backups; request handlers must use the query methods instead.
func (e *Engine) Snapshot() (types.Collection, error) {
	release, err := e.rlock()
	if err != nil {
		return types.Collection{}, err
	}
	defer release()

	return e.load()
}
