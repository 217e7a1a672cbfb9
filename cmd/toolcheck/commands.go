package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"codeexec/executor"
	"codeexec/lang"
	"codeexec/service"

	"github.com/fatih/color"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v3"
	"golang.org/x/sync/errgroup"
)

const defaultSmokeTimeout = 20 * time.Second

// smokePrograms echo stdin back to stdout.
var smokePrograms = map[string]string{
	"cpp":        "#include <iostream>\n#include <string>\nint main(){std::string s;std::getline(std::cin,s);std::cout<<s<<std::endl;}\n",
	"java":       "import java.util.Scanner;\npublic class Main{public static void main(String[] a){System.out.println(new Scanner(System.in).nextLine());}}\n",
	"python":     "print(input())\n",
	"javascript": "process.stdin.on('data', d => process.stdout.write(d.toString().trim() + '\\n'));\n",
}

var (
	okMark   = color.New(color.FgGreen).SprintFunc()
	failMark = color.New(color.FgRed).SprintFunc()
	dim      = color.New(color.Faint).SprintFunc()
)

func loadRegistry(cmd *cli.Command) (*lang.Registry, error) {
	if path := cmd.String("languages"); path != "" {
		return lang.LoadFile(path)
	}
	return lang.Default(), nil
}

func listAction(_ context.Context, cmd *cli.Command) error {
	registry, err := loadRegistry(cmd)
	if err != nil {
		return err
	}
	writeList(cmd.Root().Writer, registry)
	return nil
}

func writeList(w io.Writer, registry *lang.Registry) {
	if w == nil {
		w = os.Stdout
	}
	for _, id := range registry.Supported() {
		spec, _ := registry.Resolve(id)
		fmt.Fprintf(w, "%s %s\n", color.CyanString(id), dim("("+strings.Join(registry.Aliases(id), ", ")+")"))
		if spec.Compiled() {
			fmt.Fprintf(w, "  compile: %s\n", spec.CompileCmd)
		}
		fmt.Fprintf(w, "  run:     %s\n", spec.RunCmd)
	}
}

type toolStatus struct {
	language string
	tool     string
	path     string
	err      error
}

// probeTools looks up every tool of every language concurrently.
func probeTools(ctx context.Context, registry *lang.Registry) ([]toolStatus, error) {
	var (
		mu      sync.Mutex
		results []toolStatus
	)
	g, _ := errgroup.WithContext(ctx)
	for _, id := range registry.Supported() {
		tools, err := registry.Tools(id)
		if err != nil {
			return nil, err
		}
		for _, tool := range tools {
			g.Go(func() error {
				path, err := exec.LookPath(tool)
				mu.Lock()
				results = append(results, toolStatus{language: id, tool: tool, path: path, err: err})
				mu.Unlock()
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	sort.Slice(results, func(i, j int) bool {
		if results[i].language != results[j].language {
			return results[i].language < results[j].language
		}
		return results[i].tool < results[j].tool
	})
	return results, nil
}

func checkAction(ctx context.Context, cmd *cli.Command) error {
	registry, err := loadRegistry(cmd)
	if err != nil {
		return err
	}
	statuses, err := probeTools(ctx, registry)
	if err != nil {
		return err
	}

	missing := 0
	for _, st := range statuses {
		if st.err != nil {
			missing++
			fmt.Printf("%s %-11s %-8s %s\n", failMark("✗"), st.language, st.tool, dim("not found"))
			continue
		}
		fmt.Printf("%s %-11s %-8s %s\n", okMark("✓"), st.language, st.tool, dim(st.path))
	}
	if missing > 0 {
		return cli.Exit(fmt.Sprintf("%d tool(s) missing", missing), 1)
	}
	return nil
}

func smokeAction(ctx context.Context, cmd *cli.Command) error {
	registry, err := loadRegistry(cmd)
	if err != nil {
		return err
	}

	workDir := cmd.String("work-dir")
	if workDir == "" {
		workDir = filepath.Join(os.TempDir(), "codeexec-smoke")
	}
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	pipeline := service.NewPipeline(service.PipelineOptions{
		Registry: registry,
		WorkDir:  workDir,
		Limits:   executor.Limits{Timeout: cmd.Duration("timeout")},
		Logger:   logger,
	})

	failed := 0
	for _, id := range registry.Supported() {
		code, ok := smokePrograms[id]
		if !ok {
			fmt.Printf("%s %-11s %s\n", dim("-"), id, dim("no smoke program"))
			continue
		}
		res := pipeline.Execute(ctx, executor.ExecutionJob{
			ID:        executor.NewToken(),
			Language:  id,
			Code:      code,
			Stdin:     "smoke\n",
			CreatedAt: time.Now(),
		})
		switch {
		case res.Error != nil:
			failed++
			fmt.Printf("%s %-11s %s\n", failMark("✗"), id, strings.TrimSpace(res.Error.Error()))
		case res.Output != "smoke\n":
			failed++
			fmt.Printf("%s %-11s unexpected output %q\n", failMark("✗"), id, res.Output)
		default:
			fmt.Printf("%s %-11s %s\n", okMark("✓"), id, dim(res.ExecutionTime.Round(time.Millisecond).String()))
		}
	}
	if failed > 0 {
		return cli.Exit(fmt.Sprintf("%d language(s) failed", failed), 1)
	}
	return nil
}
