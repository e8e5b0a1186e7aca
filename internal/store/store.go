// Package store persists the grade collection as a single JSON document.
//
// Every save replaces the whole file through a temp file and a rename in the
// same directory, so a concurrent Load sees either the previous document or
// the new one, never a truncated write. Stores on the host filesystem also
// carry an advisory lock file next to the document, which keeps
// read-modify-write cycles from separate processes apart.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/alm9/grades-escolares-api/internal/types"
	"github.com/cespare/xxhash/v2"
	"github.com/gofrs/flock"
	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
)

var (
	// ErrNoState is returned by Load when the file does not exist yet.
	ErrNoState = errors.New("no persisted grade collection")
	// ErrCorruptStore is returned by Load when the file is not a valid collection.
	ErrCorruptStore = errors.New("grade store is corrupt")
	// ErrIOFailure wraps any read or write failure of the underlying file.
	ErrIOFailure = errors.New("grade store I/O failure")
)

const filePerm = 0o644

// Store owns the grades file. Load and Save do not lock; callers that
// read-modify-write hold Lock around both.
type Store struct {
	fs       afero.Fs
	path     string
	lockPath string // Empty when the filesystem is private to this process
}

// New returns a Store for path on the given filesystem. Its Lock and RLock
// are no-ops, so it is only safe for a single process.
func New(fsys afero.Fs, path string) *Store {
	return &Store{fs: fsys, path: filepath.Clean(path)}
}

// NewOS returns a Store backed by the host filesystem, locked across
// processes through <path>.lock.
func NewOS(path string) *Store {
	s := New(afero.NewOsFs(), path)
	s.lockPath = s.path + ".lock"
	return s
}

// Path returns the location of the grades file.
func (s *Store) Path() string {
	return s.path
}

// Init writes an empty collection if the file does not exist yet.
func (s *Store) Init() error {
	if dir := filepath.Dir(s.path); dir != "." {
		if err := s.fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("%w: create directory %s: %v", ErrIOFailure, dir, err)
		}
	}

	unlock, err := s.Lock()
	if err != nil {
		return err
	}
	defer unlock()

	exists, err := afero.Exists(s.fs, s.path)
	if err != nil {
		return fmt.Errorf("%w: stat %s: %v", ErrIOFailure, s.path, err)
	}
	if exists {
		return nil
	}

	return s.Save(types.Collection{Grades: []types.Grade{}})
}

// Lock takes an exclusive lock on the grades file, blocking until every
// other holder has released it.
func (s *Store) Lock() (func(), error) {
	return s.acquire(true)
}

// RLock takes a shared lock on the grades file. Any number of readers may
// hold it at once, but never together with Lock.
func (s *Store) RLock() (func(), error) {
	return s.acquire(false)
}

func (s *Store) acquire(exclusive bool) (func(), error) {
	if s.lockPath == "" {
		return func() {}, nil
	}

	// One descriptor per holder: flock(2) locks belong to the open file, so
	// readers sharing a handle would release each other's lock.
	fl := flock.New(s.lockPath)
	lock := fl.RLock
	if exclusive {
		lock = fl.Lock
	}

	if err := lock(); err != nil {
		if !exclusive && errors.Is(err, fs.ErrNotExist) {
			// No directory means no document; Load reports ErrNoState.
			return func() {}, nil
		}
		return nil, fmt.Errorf("%w: lock %s: %v", ErrIOFailure, s.lockPath, err)
	}
	return func() { _ = fl.Unlock() }, nil
}

// Version identifies the current contents of the grades file. Equal
// versions mean byte-identical files, whichever process wrote them. It is
// empty while the file does not exist.
func (s *Store) Version() (string, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("%w: read %s: %v", ErrIOFailure, s.path, err)
	}
	return fmt.Sprintf("%016x-%d", xxhash.Sum64(data), len(data)), nil
}

// Load reads and validates the persisted collection.
func (s *Store) Load() (types.Collection, error) {
	data, err := afero.ReadFile(s.fs, s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return types.Collection{}, fmt.Errorf("%w: %s", ErrNoState, s.path)
		}
		return types.Collection{}, fmt.Errorf("%w: read %s: %v", ErrIOFailure, s.path, err)
	}

	var c types.Collection
	if err := json.Unmarshal(data, &c); err != nil {
		return types.Collection{}, fmt.Errorf("%w: decode %s: %v", ErrCorruptStore, s.path, err)
	}
	if c.Grades == nil {
		c.Grades = []types.Grade{}
	}
	if err := validate(c); err != nil {
		return types.Collection{}, fmt.Errorf("%w: %s: %v", ErrCorruptStore, s.path, err)
	}

	return c, nil
}

// Save atomically replaces the persisted collection with c. On failure the
// previous file is left as it was.
func (s *Store) Save(c types.Collection) (returnedErr error) {
	if c.Grades == nil {
		c.Grades = []types.Grade{}
	}
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode collection: %v", ErrIOFailure, err)
	}

	dir, base := filepath.Split(s.path)
	if dir == "" {
		dir = "."
	}
	tmp, err := afero.TempFile(s.fs, dir, "."+base+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp file in %s: %v", ErrIOFailure, dir, err)
	}
	tmpName := tmp.Name()

	// Until the rename succeeds the temp file is garbage.
	committed := false
	defer func() {
		if committed {
			return
		}
		if rmErr := s.fs.Remove(tmpName); rmErr != nil && !errors.Is(rmErr, fs.ErrNotExist) {
			returnedErr = multierror.Append(returnedErr, fmt.Errorf("remove temp file %s: %w", tmpName, rmErr))
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: write %s: %v", ErrIOFailure, tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: sync %s: %v", ErrIOFailure, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: close %s: %v", ErrIOFailure, tmpName, err)
	}
	if err := s.fs.Chmod(tmpName, filePerm); err != nil {
		return fmt.Errorf("%w: chmod %s: %v", ErrIOFailure, tmpName, err)
	}
	if err := s.fs.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("%w: replace %s: %v", ErrIOFailure, s.path, err)
	}

	committed = true
	return nil
}

func validate(c types.Collection) error {
	if c.NextID < 0 {
		return fmt.Errorf("negative nextId %d", c.NextID)
	}

	seen := make(map[int]struct{}, len(c.Grades))
	for i, g := range c.Grades {
		if g.ID < 0 {
			return fmt.Errorf("grade at position %d has negative id %d", i, g.ID)
		}
		if g.ID >= c.NextID {
			return fmt.Errorf("grade id %d is not below nextId %d", g.ID, c.NextID)
		}
		if _, dup := seen[g.ID]; dup {
			return fmt.Errorf("duplicate grade id %d", g.ID)
		}
		seen[g.ID] = struct{}{}
	}

	return nil
}
