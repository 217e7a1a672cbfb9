package lang

import (
	"fmt"
	"strings"

	"github.com/google/shlex"
)

const (
	PhaseCompile = "compile"
	PhaseRun     = "run"
)

// Paths are the workspace locations a command template may refer to.
type Paths struct {
	Dir      string
	Source   string
	Input    string
	Output   string
	Artifact string
	Stem     string
}

// Phase is one process invocation. Stdin and Stdout are file paths; empty
// means the phase reads nothing and its stdout is only captured.
type Phase struct {
	Name   string
	Args   []string
	Stdin  string
	Stdout string
}

// Synthesize builds the ordered phases needed to run the program. A compiled
// language yields compile then run; the caller must not start run when
// compile fails.
func (r *Registry) Synthesize(language string, p Paths) ([]Phase, error) {
	spec, ok := r.Resolve(language)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}

	var phases []Phase
	if spec.Compiled() {
		args, err := expand(spec.CompileCmd, p)
		if err != nil {
			return nil, fmt.Errorf("%s compile command: %w", spec.ID, err)
		}
		phases = append(phases, Phase{Name: PhaseCompile, Args: args})
	}

	args, err := expand(spec.RunCmd, p)
	if err != nil {
		return nil, fmt.Errorf("%s run command: %w", spec.ID, err)
	}
	phases = append(phases, Phase{
		Name:   PhaseRun,
		Args:   args,
		Stdin:  p.Input,
		Stdout: p.Output,
	})
	return phases, nil
}

// Tools lists the executables a language invokes, skipping tokens that are
// workspace placeholders such as the compiled binary.
func (r *Registry) Tools(language string) ([]string, error) {
	spec, ok := r.Resolve(language)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedLanguage, language)
	}
	var tools []string
	for _, tpl := range []string{spec.CompileCmd, spec.RunCmd} {
		if tpl == "" {
			continue
		}
		fields, err := shlex.Split(tpl)
		if err != nil || len(fields) == 0 {
			continue
		}
		if strings.Contains(fields[0], "{") {
			continue
		}
		tools = append(tools, fields[0])
	}
	return tools, nil
}

// ArtifactName expands the artifact template for a source stem. Interpreted
// languages have no artifact and get "".
func (s Spec) ArtifactName(stem string) string {
	if s.Artifact == "" {
		return ""
	}
	return strings.ReplaceAll(s.Artifact, "{stem}", stem)
}

// expand splits the template first and substitutes per token, so a path with
// spaces stays one argument.
func expand(tpl string, p Paths) ([]string, error) {
	fields, err := shlex.Split(tpl)
	if err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return nil, fmt.Errorf("empty command template")
	}

	replacer := strings.NewReplacer(
		"{dir}", p.Dir,
		"{source}", p.Source,
		"{input}", p.Input,
		"{output}", p.Output,
		"{binary}", p.Artifact,
		"{artifact}", p.Artifact,
		"{class}", p.Stem,
		"{stem}", p.Stem,
	)
	args := make([]string, len(fields))
	for i, f := range fields {
		args[i] = replacer.Replace(f)
	}
	if args[0] == "" {
		return nil, fmt.Errorf("template %q resolves to an empty program", tpl)
	}
	return args, nil
}
