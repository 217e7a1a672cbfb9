package executor

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"codeexec/lang"

	"github.com/google/uuid"
)

const (
	inputFileName  = "input.txt"
	outputFileName = "output.txt"
	jobDirPrefix   = "job_"
)

// NewToken returns a job token that is unique across concurrent jobs. It
// contains only [0-9a-f] so it is usable in file names and Java identifiers.
func NewToken() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// SourceFileName is the name the submitted source is staged under.
func SourceFileName(spec lang.Spec, token string) string {
	if spec.SourceFile != "" {
		return spec.SourceFile
	}
	return fmt.Sprintf("code_%s.%s", token, spec.Extension)
}

// Workspace holds the transient files of a single job. Every file lives in a
// directory of its own, so jobs never share input or output paths.
type Workspace struct {
	Token        string
	Dir          string
	SourcePath   string
	InputPath    string
	OutputPath   string
	ArtifactPath string

	stem   string
	staged []string

	cleanOnce sync.Once
	cleanErr  error
}

// NewWorkspace creates the job directory under root.
func NewWorkspace(root, token string, spec lang.Spec) (*Workspace, error) {
	if token == "" {
		token = NewToken()
	}
	// children run inside the job directory, so every path handed to them
	// must be absolute
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, WrapError(err, KindStaging, "Could not create workspace")
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, WrapError(err, KindStaging, "Could not create workspace")
	}
	dir := filepath.Join(root, jobDirPrefix+token)
	if err := os.Mkdir(dir, 0o755); err != nil {
		return nil, WrapError(err, KindStaging, "Could not create workspace")
	}

	source := SourceFileName(spec, token)
	stem := strings.TrimSuffix(source, filepath.Ext(source))
	ws := &Workspace{
		Token:      token,
		Dir:        dir,
		SourcePath: filepath.Join(dir, source),
		InputPath:  filepath.Join(dir, inputFileName),
		OutputPath: filepath.Join(dir, outputFileName),
		stem:       stem,
	}
	if name := spec.ArtifactName(stem); name != "" {
		ws.ArtifactPath = filepath.Join(dir, name)
	}
	return ws, nil
}

// Paths exposes the workspace to the command synthesizer.
func (w *Workspace) Paths() lang.Paths {
	return lang.Paths{
		Dir:      w.Dir,
		Source:   w.SourcePath,
		Input:    w.InputPath,
		Output:   w.OutputPath,
		Artifact: w.ArtifactPath,
		Stem:     w.stem,
	}
}

func (w *Workspace) StageSource(code string) error {
	return w.stage(w.SourcePath, code)
}

func (w *Workspace) StageInput(stdin string) error {
	return w.stage(w.InputPath, stdin)
}

func (w *Workspace) stage(path, content string) error {
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return WrapError(err, KindStaging, "Could not write file")
	}
	for _, p := range w.staged {
		if p == path {
			return nil
		}
	}
	w.staged = append(w.staged, path)
	return nil
}

// ReadOutput reads back what the run phase wrote, at most max bytes. A
// missing output file reads as empty.
func (w *Workspace) ReadOutput(max int) ([]byte, bool, error) {
	data, err := os.ReadFile(w.OutputPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, WrapError(err, KindStaging, "Could not read output file")
	}
	if max > 0 && len(data) > max {
		return data[:max], true, nil
	}
	return data, false, nil
}

// Cleanup deletes every file of the job and the job directory. It runs once;
// later calls return the first result. A staged file that is already gone
// counts as a failure.
func (w *Workspace) Cleanup() error {
	w.cleanOnce.Do(func() {
		w.cleanErr = w.cleanup()
	})
	return w.cleanErr
}

func (w *Workspace) cleanup() error {
	var errs []error
	for _, p := range w.staged {
		if err := os.Remove(p); err != nil {
			errs = append(errs, err)
		}
	}
	for _, p := range []string{w.OutputPath, w.ArtifactPath} {
		if p == "" {
			continue
		}
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	if err := os.RemoveAll(w.Dir); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return WrapError(errors.Join(errs...), KindCleanup, "Could not delete files")
	}
	return nil
}
