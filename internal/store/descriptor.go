package store

import (
	"strings"

	"github.com/eugenenazirov/confstore/internal/environment"
)

// Descriptor is the classification of a configuration file name.
type Descriptor struct {
	FileName    string
	LogicalName string
	// Environment is the environment the file applies to. It is only
	// meaningful when HasEnvironment is true.
	Environment    environment.Name
	HasEnvironment bool
	// Declared holds the raw middle segment of a three-part name.
	Declared  string
	Extension string
}

// ParseFileName classifies fileName relative to the active environment.
// It reports false when the name has neither two nor three dot-separated
// segments or the logical name is empty.
//
// An unrecognised environment segment is replaced by active, so such a file
// always passes the environment filter.
func ParseFileName(fileName string, active environment.Name) (Descriptor, bool) {
	parts := strings.Split(fileName, ".")

	desc := Descriptor{FileName: fileName, LogicalName: parts[0]}
	switch len(parts) {
	case 2:
		desc.Extension = parts[1]
	case 3:
		desc.Declared = parts[1]
		desc.Extension = parts[2]
		desc.HasEnvironment = true
		desc.Environment = environment.Name(parts[1])
		if !environment.IsSupported(desc.Environment) {
			desc.Environment = active
		}
	default:
		return Descriptor{}, false
	}

	if desc.LogicalName == "" {
		return Descriptor{}, false
	}
	return desc, true
}

// Matches reports whether the file is included when active is in effect.
func (d Descriptor) Matches(active environment.Name) bool {
	return !d.HasEnvironment || d.Environment == active
}

// Substituted reports whether the declared environment was unrecognised and
// replaced by the active one.
func (d Descriptor) Substituted() bool {
	return d.HasEnvironment && environment.Name(d.Declared) != d.Environment
}
