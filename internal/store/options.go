package store

import (
	"io/fs"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/confstore/internal/environment"
)

// Option configures a Store.
type Option func(*Store)

// WithEnvironment fixes the active environment used for filtering. Without
// it the store asks its Resolver once, at construction.
func WithEnvironment(name environment.Name) Option {
	return func(s *Store) {
		s.env = name
	}
}

// WithResolver replaces the resolver consulted when no explicit environment
// is configured.
func WithResolver(resolver *environment.Resolver) Option {
	return func(s *Store) {
		if resolver != nil {
			s.resolver = resolver
		}
	}
}

// WithLoader registers loader for files with the given extension, replacing
// any loader already registered for it.
func WithLoader(ext string, loader Loader) Option {
	return func(s *Store) {
		ext = strings.TrimPrefix(ext, ".")
		if ext == "" || loader == nil {
			return
		}
		s.loaders[ext] = loader
	}
}

// WithoutLoader removes the loader for ext so matching files are ignored.
func WithoutLoader(ext string) Option {
	return func(s *Store) {
		delete(s.loaders, strings.TrimPrefix(ext, "."))
	}
}

// WithStrict makes Load fail when two included files share a logical name
// instead of letting the later one win.
func WithStrict(strict bool) Option {
	return func(s *Store) {
		s.strict = strict
	}
}

// WithIgnore skips files whose names match any of the doublestar patterns.
func WithIgnore(patterns ...string) Option {
	return func(s *Store) {
		s.ignore = append(s.ignore, patterns...)
	}
}

// WithFS reads the directory through fsys instead of the OS file system.
// The configured directory is then only used to build file paths.
func WithFS(fsys fs.FS) Option {
	return func(s *Store) {
		s.fsys = fsys
	}
}

// WithLogger attaches a logger. The default discards everything.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithObserver reports every directory entry considered during Load.
func WithObserver(observer Observer) Option {
	return func(s *Store) {
		s.observer = observer
	}
}
