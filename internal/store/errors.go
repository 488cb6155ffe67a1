package store

import (
	"errors"
	"fmt"
)

var (
	// ErrDirectoryRead indicates the configuration directory could not be listed.
	ErrDirectoryRead = errors.New("read configuration directory")
	// ErrAlreadyLoaded is returned when Load is called on a store that has already loaded.
	ErrAlreadyLoaded = errors.New("configuration store already loaded")
	// ErrDuplicateName is returned in strict mode when two files resolve to the same logical name.
	ErrDuplicateName = errors.New("duplicate configuration name")
	// ErrScriptsDisabled is returned by DisabledLoader.
	ErrScriptsDisabled = errors.New("executable configuration files are disabled")
)

// ParseError reports a configuration file whose contents could not be decoded.
type ParseError struct {
	Format string
	Path   string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("invalid %s for file %s", e.Format, e.Path)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
