package store

import (
	"context"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/eugenenazirov/confstore/internal/environment"
)

// Outcome classifies what Load did with a directory entry.
type Outcome string

const (
	OutcomeLoaded      Outcome = "loaded"
	OutcomeFiltered    Outcome = "filtered"
	OutcomeIgnored     Outcome = "ignored"
	OutcomeUnsupported Outcome = "unsupported"
)

// Observer receives one call per classified directory entry during Load.
type Observer interface {
	ObserveFile(desc Descriptor, outcome Outcome)
}

// Store holds the configuration loaded from one directory. It is read-only
// once Load succeeds and safe for concurrent readers.
type Store struct {
	dir      string
	fsys     fs.FS
	env      environment.Name
	resolver *environment.Resolver
	loaders  map[string]Loader
	ignore   []string
	strict   bool
	logger   *zap.Logger
	observer Observer

	loadMu sync.Mutex
	state  atomic.Pointer[snapshot]
}

type snapshot struct {
	table map[string]any
	files []Descriptor
}

// New binds a Store to dir without loading it.
func New(dir string, opts ...Option) *Store {
	s := &Store{
		dir:      dir,
		resolver: environment.NewResolver(),
		loaders:  defaultLoaders(),
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.env == "" {
		s.env = s.resolver.Active()
	}
	if s.fsys == nil && dir != "" {
		s.fsys = os.DirFS(dir)
	}
	return s
}

// Create constructs a Store for dir and loads it. No store is returned when
// loading fails.
func Create(ctx context.Context, dir string, opts ...Option) (*Store, error) {
	s := New(dir, opts...)
	if err := s.Load(ctx); err != nil {
		return nil, err
	}
	return s, nil
}

// Load reads the directory once and publishes the resulting table. Files are
// processed one at a time in name order; the first error aborts the load and
// nothing is published. A store that loaded successfully rejects further
// calls with ErrAlreadyLoaded.
func (s *Store) Load(ctx context.Context) error {
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	if s.state.Load() != nil {
		return ErrAlreadyLoaded
	}

	for _, pattern := range s.ignore {
		if !doublestar.ValidatePattern(pattern) {
			return fmt.Errorf("invalid ignore pattern %q", pattern)
		}
	}

	if s.fsys == nil {
		return fmt.Errorf("%w: no directory configured", ErrDirectoryRead)
	}
	entries, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		return fmt.Errorf("%w %s: %w", ErrDirectoryRead, s.dir, err)
	}

	table := make(map[string]any, len(entries))
	files := make([]Descriptor, 0, len(entries))
	origins := make(map[string]string, len(entries))

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if entry.IsDir() {
			continue
		}

		name := entry.Name()
		desc, ok := ParseFileName(name, s.env)
		if !ok {
			continue
		}
		if s.ignored(name) {
			s.observe(desc, OutcomeIgnored)
			continue
		}
		if !desc.Matches(s.env) {
			s.logger.Debug("skipping configuration for another environment",
				zap.String("file", name),
				zap.String("environment", string(desc.Environment)),
			)
			s.observe(desc, OutcomeFiltered)
			continue
		}
		if desc.Substituted() {
			s.logger.Warn("unrecognised environment in file name, treating as active",
				zap.String("file", name),
				zap.String("declared", desc.Declared),
				zap.String("environment", string(s.env)),
			)
		}

		loader, ok := s.loaders[desc.Extension]
		if !ok {
			s.observe(desc, OutcomeUnsupported)
			continue
		}

		value, err := loader.Load(ctx, Source{
			Name: name,
			Path: filepath.Join(s.dir, name),
			fsys: s.fsys,
		})
		if err != nil {
			return err
		}

		if previous, exists := origins[desc.LogicalName]; exists {
			if s.strict {
				return fmt.Errorf("%w %q: %s and %s", ErrDuplicateName, desc.LogicalName, previous, name)
			}
			s.logger.Debug("configuration replaced by later file",
				zap.String("logical_name", desc.LogicalName),
				zap.String("previous", previous),
				zap.String("file", name),
			)
		}
		origins[desc.LogicalName] = name
		table[desc.LogicalName] = value
		files = append(files, desc)

		s.logger.Debug("configuration loaded",
			zap.String("file", name),
			zap.String("logical_name", desc.LogicalName),
			zap.String("extension", desc.Extension),
		)
		s.observe(desc, OutcomeLoaded)
	}

	s.state.Store(&snapshot{table: table, files: files})
	s.logger.Info("configuration store ready",
		zap.String("dir", s.dir),
		zap.String("environment", string(s.env)),
		zap.Int("entries", len(table)),
	)
	return nil
}

// Loaded reports whether Load has completed successfully.
func (s *Store) Loaded() bool {
	return s.state.Load() != nil
}

// Dir returns the configuration directory.
func (s *Store) Dir() string {
	return s.dir
}

// Environment returns the active environment used for filtering.
func (s *Store) Environment() environment.Name {
	return s.env
}

// Names returns the sorted logical names held by the store.
func (s *Store) Names() []string {
	st := s.state.Load()
	if st == nil {
		return []string{}
	}
	return slices.Sorted(maps.Keys(st.table))
}

// Files returns the descriptors of every loaded file in load order,
// including files later replaced by another file with the same name.
func (s *Store) Files() []Descriptor {
	st := s.state.Load()
	if st == nil {
		return []Descriptor{}
	}
	return slices.Clone(st.files)
}

// Snapshot returns a deep copy of the whole table.
func (s *Store) Snapshot() map[string]any {
	st := s.state.Load()
	if st == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(st.table))
	for name, value := range st.table {
		out[name] = deepCopy(value)
	}
	return out
}

func (s *Store) ignored(name string) bool {
	for _, pattern := range s.ignore {
		if ok, _ := doublestar.Match(pattern, name); ok {
			return true
		}
	}
	return false
}

func (s *Store) observe(desc Descriptor, outcome Outcome) {
	if s.observer != nil {
		s.observer.ObserveFile(desc, outcome)
	}
}
