// Package environment determines the active deployment environment from the
// process state, falling back to a fixed default when nothing is set.
package environment
