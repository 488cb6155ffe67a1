package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os/exec"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultInterpreter runs executable configuration files.
	DefaultInterpreter = "/bin/sh"
	// ScriptExtension is the extension served by ExecLoader in the default registry.
	ScriptExtension = "sh"
)

// Source describes a configuration file handed to a Loader.
type Source struct {
	// Name is the file name relative to the configuration directory.
	Name string
	// Path is the configuration directory joined with Name.
	Path string

	fsys fs.FS
}

// ReadAll returns the file contents.
func (s Source) ReadAll() ([]byte, error) {
	if s.fsys == nil {
		return nil, fmt.Errorf("read %s: no file system", s.Path)
	}
	data, err := fs.ReadFile(s.fsys, s.Name)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.Path, err)
	}
	return data, nil
}

// Loader turns a configuration file into a value stored by the Store.
type Loader interface {
	Load(ctx context.Context, src Source) (any, error)
}

// LoaderFunc adapts a function to the Loader interface.
type LoaderFunc func(ctx context.Context, src Source) (any, error)

// Load calls f.
func (f LoaderFunc) Load(ctx context.Context, src Source) (any, error) {
	return f(ctx, src)
}

// JSONLoader decodes JSON files.
type JSONLoader struct{}

func (JSONLoader) Load(_ context.Context, src Source) (any, error) {
	data, err := src.ReadAll()
	if err != nil {
		return nil, err
	}
	var value any
	if err := json.Unmarshal(data, &value); err != nil {
		return nil, &ParseError{Format: "JSON", Path: src.Path, Err: err}
	}
	return value, nil
}

// YAMLLoader decodes YAML files. Mappings with non-string keys are converted
// to string-keyed maps so they stay navigable.
type YAMLLoader struct{}

func (YAMLLoader) Load(_ context.Context, src Source) (any, error) {
	data, err := src.ReadAll()
	if err != nil {
		return nil, err
	}
	var value any
	if err := yaml.Unmarshal(data, &value); err != nil {
		return nil, &ParseError{Format: "YAML", Path: src.Path, Err: err}
	}
	return normalizeYAML(value), nil
}

func normalizeYAML(value any) any {
	switch v := value.(type) {
	case map[string]any:
		for key, item := range v {
			v[key] = normalizeYAML(item)
		}
		return v
	case map[any]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[fmt.Sprint(key)] = normalizeYAML(item)
		}
		return out
	case []any:
		for i, item := range v {
			v[i] = normalizeYAML(item)
		}
		return v
	default:
		return value
	}
}

// ExecLoader runs an executable configuration file and decodes its standard
// output as JSON. Failures from the process or the decoder are returned
// unchanged.
type ExecLoader struct {
	// Interpreter is prepended to the file path. When empty the file is
	// executed directly.
	Interpreter []string
}

// NewExecLoader returns an ExecLoader using interpreter, or the file itself
// when interpreter is empty.
func NewExecLoader(interpreter ...string) ExecLoader {
	return ExecLoader{Interpreter: slices.Clone(interpreter)}
}

func (l ExecLoader) Load(ctx context.Context, src Source) (any, error) {
	path, err := filepath.Abs(src.Path)
	if err != nil {
		return nil, err
	}
	args := append(slices.Clone(l.Interpreter), path)

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = filepath.Dir(path)
	out, err := cmd.Output()
	if err != nil {
		return nil, err
	}

	var value any
	if err := json.Unmarshal(out, &value); err != nil {
		return nil, err
	}
	return value, nil
}

// DisabledLoader rejects every file it is asked to load.
type DisabledLoader struct{}

func (DisabledLoader) Load(context.Context, Source) (any, error) {
	return nil, ErrScriptsDisabled
}

func defaultLoaders() map[string]Loader {
	return map[string]Loader{
		"json":          JSONLoader{},
		ScriptExtension: NewExecLoader(DefaultInterpreter),
	}
}
