package lang

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	mapset "github.com/deckarep/golang-set/v2"
	"github.com/pelletier/go-toml/v2"
)

var ErrUnsupportedLanguage = errors.New("unsupported language")

// Spec describes how one language is compiled and run. Command templates are
// tokenised like a shell command line but never executed by a shell.
type Spec struct {
	ID         string   `toml:"id"`
	Name       string   `toml:"name"`
	Aliases    []string `toml:"aliases"`
	Extension  string   `toml:"extension"`
	SourceFile string   `toml:"source_file"`
	Artifact   string   `toml:"artifact"`
	CompileCmd string   `toml:"compile_cmd"`
	RunCmd     string   `toml:"run_cmd"`
}

// Compiled reports whether the language has a build step before running.
func (s Spec) Compiled() bool {
	return s.CompileCmd != ""
}

var defaultSpecs = []Spec{
	{
		ID:         "cpp",
		Name:       "C++",
		Aliases:    []string{"c++", "cplusplus"},
		Extension:  "cpp",
		Artifact:   "{stem}",
		CompileCmd: "g++ -O2 -std=c++17 -o {binary} {source}",
		RunCmd:     "{binary}",
	},
	{
		ID:         "java",
		Name:       "Java",
		Extension:  "java",
		SourceFile: "Main.java",
		Artifact:   "{stem}.class",
		CompileCmd: "javac -d {dir} {source}",
		RunCmd:     "java -cp {dir} {class}",
	},
	{
		ID:        "python",
		Name:      "Python",
		Aliases:   []string{"py", "python3"},
		Extension: "py",
		RunCmd:    "python3 {source}",
	},
	{
		ID:        "javascript",
		Name:      "JavaScript",
		Aliases:   []string{"js", "node", "nodejs"},
		Extension: "js",
		RunCmd:    "node {source}",
	},
}

// Registry resolves case-insensitive language names to specs.
type Registry struct {
	specs   map[string]Spec
	aliases map[string]string
	ids     mapset.Set[string]
}

// Default returns a registry with the built-in languages.
func Default() *Registry {
	r, err := NewRegistry(defaultSpecs...)
	if err != nil {
		panic(fmt.Errorf("built-in language table: %w", err))
	}
	return r
}

func NewRegistry(specs ...Spec) (*Registry, error) {
	r := &Registry{
		specs:   make(map[string]Spec, len(specs)),
		aliases: make(map[string]string),
		ids:     mapset.NewSet[string](),
	}
	seen := mapset.NewThreadUnsafeSet[string]()
	for _, s := range specs {
		s.ID = strings.ToLower(strings.TrimSpace(s.ID))
		if err := validateSpec(s); err != nil {
			return nil, err
		}
		if !r.ids.Add(s.ID) {
			return nil, fmt.Errorf("duplicate language id %q", s.ID)
		}
		for _, name := range append([]string{s.ID}, s.Aliases...) {
			name = strings.ToLower(strings.TrimSpace(name))
			if name == "" {
				continue
			}
			if !seen.Add(name) {
				return nil, fmt.Errorf("language name %q is claimed twice", name)
			}
			r.aliases[name] = s.ID
		}
		r.specs[s.ID] = s
	}
	return r, nil
}

func validateSpec(s Spec) error {
	switch {
	case s.ID == "":
		return errors.New("language id is required")
	case s.Extension == "" && s.SourceFile == "":
		return fmt.Errorf("language %q needs an extension or a source_file", s.ID)
	case strings.TrimSpace(s.RunCmd) == "":
		return fmt.Errorf("language %q has no run_cmd", s.ID)
	}
	return nil
}

type overlayFile struct {
	Languages []Spec `toml:"languages"`
}

// LoadFile returns the built-in registry with the [[languages]] tables of a
// TOML file applied on top. Fields left empty keep their built-in value;
// unknown ids add a new language.
func LoadFile(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read languages file: %w", err)
	}
	var file overlayFile
	if err := toml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse languages file: %w", err)
	}

	merged := make([]Spec, len(defaultSpecs))
	copy(merged, defaultSpecs)
	index := make(map[string]int, len(merged))
	for i, s := range merged {
		index[s.ID] = i
	}

	for _, o := range file.Languages {
		o.ID = strings.ToLower(strings.TrimSpace(o.ID))
		i, ok := index[o.ID]
		if !ok {
			index[o.ID] = len(merged)
			merged = append(merged, o)
			continue
		}
		merged[i] = overlay(merged[i], o)
	}
	return NewRegistry(merged...)
}

func overlay(base, o Spec) Spec {
	if o.Name != "" {
		base.Name = o.Name
	}
	if o.Aliases != nil {
		base.Aliases = o.Aliases
	}
	if o.Extension != "" {
		base.Extension = o.Extension
	}
	if o.SourceFile != "" {
		base.SourceFile = o.SourceFile
	}
	if o.Artifact != "" {
		base.Artifact = o.Artifact
	}
	if o.CompileCmd != "" {
		base.CompileCmd = o.CompileCmd
	}
	if o.RunCmd != "" {
		base.RunCmd = o.RunCmd
	}
	return base
}

// Resolve maps a user supplied language name (any case, any alias) to its spec.
func (r *Registry) Resolve(name string) (Spec, bool) {
	id, ok := r.aliases[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Spec{}, false
	}
	return r.specs[id], true
}

// Supported returns the canonical language ids, sorted.
func (r *Registry) Supported() []string {
	ids := r.ids.ToSlice()
	sort.Strings(ids)
	return ids
}

// Aliases returns every accepted name for the language id, canonical id first.
func (r *Registry) Aliases(id string) []string {
	var names []string
	for name, target := range r.aliases {
		if target == id && name != id {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return append([]string{id}, names...)
}
