package environment

import (
	"os"
	"slices"
	"strings"
)

// Name identifies a deployment environment.
type Name string

const (
	Dev   Name = "dev"
	Stage Name = "stage"
	Acc   Name = "acc"
	Prod  Name = "prod"
)

// Default is the environment used when the process does not declare one.
const Default = Dev

// DefaultVariable is the process variable consulted by a Resolver unless
// another one is configured.
const DefaultVariable = "APP_ENV"

var supported = []Name{Dev, Stage, Acc, Prod}

// Supported returns the recognised environments in their canonical order.
func Supported() []Name {
	return slices.Clone(supported)
}

// IsSupported reports whether name belongs to the recognised set.
func IsSupported(name Name) bool {
	return slices.Contains(supported, name)
}

// Resolver reads the active environment from a process variable.
type Resolver struct {
	variable string
	lookup   func(string) string
}

// ResolverOption configures Resolver behaviour.
type ResolverOption func(*Resolver)

// WithVariable changes the process variable that names the environment.
func WithVariable(name string) ResolverOption {
	return func(r *Resolver) {
		if name = strings.TrimSpace(name); name != "" {
			r.variable = name
		}
	}
}

// WithLookup overrides the variable source, primarily for tests.
func WithLookup(lookup func(string) string) ResolverOption {
	return func(r *Resolver) {
		if lookup != nil {
			r.lookup = lookup
		}
	}
}

// NewResolver constructs a Resolver reading DefaultVariable from the process
// environment.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		variable: DefaultVariable,
		lookup:   os.Getenv,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Variable returns the name of the process variable being read.
func (r *Resolver) Variable() string {
	return r.variable
}

// Active returns the environment named by the process variable, or Default
// when it is empty. The value is read on every call and is not validated
// against the supported set.
func (r *Resolver) Active() Name {
	if value := r.lookup(r.variable); value != "" {
		return Name(value)
	}
	return Default
}
