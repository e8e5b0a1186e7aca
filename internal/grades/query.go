package grades

import (
	"fmt"
	"sort"

	"github.com/alm9/grades-escolares-api/internal/types"
	"github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// ListAll returns every grade in insertion order.
func (e *Engine) ListAll() ([]types.Grade, error) {
	release, err := e.rlock()
	if err != nil {
		return nil, err
	}
	defer release()

	c, err := e.load()
	if err != nil {
		return nil, err
	}
	return c.Grades, nil
}

// GetByID returns the grade with the given id.
func (e *Engine) GetByID(id int) (types.Grade, error) {
	release, err := e.rlock()
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
		e.logger.Warn("lookup of unknown grade", zap.Int("id", id))
		return types.Grade{}, &NotFoundError{ID: id}
	}
	return c.Grades[idx], nil
}

// TotalFor sums the values of every grade a student has in a subject.
// Matching is exact and case-sensitive; no match gives 0.
func (e *Engine) TotalFor(student, subject string) (float64, error) {
	release, err := e.rlock()
	if err != nil {
		return 0, err
	}
	defer release()

	key, err := e.aggregateKey("total", student, subject)
	if err != nil {
		return 0, err
	}
	if v, ok := e.cached(key); ok {
		return v.(float64), nil
	}

	c, err := e.load()
	if err != nil {
		return 0, err
	}

	var total float64
	for _, g := range c.Grades {
		if g.Student == student && g.Subject == subject {
			total += g.Value
		}
	}

	e.remember(key, total)
	return total, nil
}

// AverageFor returns the mean value of the grades for a subject and type.
// It returns ErrNoData when nothing matches.
func (e *Engine) AverageFor(subject, typ string) (float64, error) {
	release, err := e.rlock()
	if err != nil {
		return 0, err
	}
	defer release()

	key, err := e.aggregateKey("average", subject, typ)
	if err != nil {
		return 0, err
	}
	if v, ok := e.cached(key); ok {
		return v.(float64), nil
	}

	c, err := e.load()
	if err != nil {
		return 0, err
	}

	// Sum and count must come from the same predicate.
	var sum float64
	count := 0
	for _, g := range c.Grades {
		if matchesSubjectType(g, subject, typ) {
			sum += g.Value
			count++
		}
	}
	if count == 0 {
		return 0, fmt.Errorf("%w: subject %q type %q", ErrNoData, subject, typ)
	}

	avg := sum / float64(count)
	e.remember(key, avg)
	return avg, nil
}

// TopN returns up to n grades for a subject and type, highest value first.
// Equal values keep their insertion order. n <= 0 selects the default.
func (e *Engine) TopN(subject, typ string, n int) ([]types.Grade, error) {
	if n <= 0 {
		n = e.topN
	}

	release, err := e.rlock()
	if err != nil {
		return nil, err
	}
	defer release()

	key, err := e.aggregateKey("top", subject, typ, n)
	if err != nil {
		return nil, err
	}
	if v, ok := e.cached(key); ok {
		return cloneGrades(v.([]types.Grade)), nil
	}

	c, err := e.load()
	if err != nil {
		return nil, err
	}

	matched := make([]types.Grade, 0, len(c.Grades))
	for _, g := range c.Grades {
		if matchesSubjectType(g, subject, typ) {
			matched = append(matched, g)
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Value > matched[j].Value
	})
	if len(matched) > n {
		matched = matched[:n]
	}

	e.remember(key, cloneGrades(matched))
	return matched, nil
}

func matchesSubjectType(g types.Grade, subject, typ string) bool {
	return g.Subject == subject && g.Type == typ
}

func cacheKey(op string, args ...any) string {
	// %q keeps "a b"+"c" distinct from "a"+"b c".
	key := op
	for _, a := range args {
		key += fmt.Sprintf("|%q", fmt.Sprint(a))
	}
	return key
}

// aggregateKey ties a cache entry to the current version of the grades file,
// so a write by another process makes older entries unreachable. Callers
// must hold the store's shared lock.
func (e *Engine) aggregateKey(op string, args ...any) (string, error) {
	if e.cache == nil {
		return "", nil
	}
	version, err := e.store.Version()
	if err != nil {
		e.logger.Error("failed to stat grades", zap.Error(err))
		return "", err
	}
	return cacheKey(op, append(args, version)...), nil
}

func (e *Engine) cached(key string) (any, bool) {
	if e.cache == nil {
		return nil, false
	}
	return e.cache.Get(key)
}

func (e *Engine) remember(key string, v any) {
	if e.cache == nil {
		return
	}
	e.cache.Set(key, v, cache.DefaultExpiration)
}

func cloneGrades(in []types.Grade) []types.Grade {
	out := make([]types.Grade, len(in))
	copy(out, in)
	return out
}
