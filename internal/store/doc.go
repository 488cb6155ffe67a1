// Package store loads every configuration file from a directory into an
// immutable in-memory table and answers dotted-path lookups against it.
//
// Files are named <name>.<ext> or <name>.<env>.<ext>. Files qualified with
// an environment other than the active one are skipped; the rest are parsed
// by the Loader registered for their extension and stored under <name>.
// When two files share a name the one enumerated last wins.
package store
