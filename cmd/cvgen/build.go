package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/skdltmxn/codeview-go/codeview"
	"github.com/skdltmxn/codeview-go/internal/input"
)

var (
	buildConfig string
	buildOutDir string
	buildWatch  bool
)

var buildCmd = &cobra.Command{
	Use:   "build <input.yaml>...",
	Short: "Encode compilation units into object files",
	Long: `Encode each YAML compilation unit into <name>.obj holding its .debug$S
and .debug$T sections. Inputs are encoded in parallel.

With --watch, cvgen keeps running and re-encodes an input whenever it
changes.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildConfig, "config", "c", "", "YAML encoder configuration")
	buildCmd.Flags().StringVarP(&buildOutDir, "dir", "d", ".", "directory for the object files")
	buildCmd.Flags().BoolVar(&buildWatch, "watch", false, "re-encode inputs when they change")
}

type buildResult struct {
	input  string
	object string
	size   int64
	out    *codeview.Sections
}

func runBuild(cmd *cobra.Command, args []string) error {
	cfg := codeview.DefaultConfig()
	if buildConfig != "" {
		var err error
		if cfg, err = codeview.LoadConfig(buildConfig); err != nil {
			return err
		}
	}
	cfg.Logger = logger
	if err := os.MkdirAll(buildOutDir, 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	results := make([]*buildResult, len(args))
	var g errgroup.Group
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, in := range args {
		g.Go(func() error {
			res, err := buildOne(cfg, in)
			if err != nil {
				return fmt.Errorf("%s: %w", in, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for _, res := range results {
		printResult(res)
	}

	if !buildWatch {
		return nil
	}
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	return watch(ctx, cfg, args)
}

func objectPath(in string) string {
	base := strings.TrimSuffix(filepath.Base(in), filepath.Ext(in))
	return filepath.Join(buildOutDir, base+".obj")
}

func buildOne(cfg codeview.Config, in string) (*buildResult, error) {
	unit, err := input.Load(in)
	if err != nil {
		return nil, err
	}
	obj := objectPath(in)
	cfg.ObjectName = filepath.Base(obj)

	e, err := codeview.NewEmitter(cfg)
	if err != nil {
		return nil, err
	}
	out, err := e.Encode(unit)
	if err != nil {
		return nil, err
	}

	f, err := os.Create(obj)
	if err != nil {
		return nil, err
	}
	n, err := out.WriteObject(f)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", obj, err)
	}
	return &buildResult{input: in, object: obj, size: n, out: out}, nil
}

func printResult(res *buildResult) {
	fmt.Fprintf(output, "%s %s -> %s (%s; %s %s, %s %s, %d relocations)\n",
		color.GreenString("built"),
		res.input, res.object,
		humanize.Bytes(uint64(res.size)),
		codeview.SymbolsSection, humanize.Bytes(uint64(len(res.out.Symbols))),
		codeview.TypesSection, humanize.Bytes(uint64(len(res.out.Types))),
		len(res.out.Relocations))
}

// watch rebuilds an input after every write to it. Directories are
// watched rather than files so editors that replace the file by rename
// keep triggering rebuilds.
func watch(ctx context.Context, cfg codeview.Config, inputs []string) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to start watcher: %w", err)
	}
	defer w.Close()

	watched := make(map[string]bool)
	dirs := make(map[string]bool)
	for _, in := range inputs {
		abs, err := filepath.Abs(in)
		if err != nil {
			return err
		}
		watched[abs] = true
		dir := filepath.Dir(abs)
		if !dirs[dir] {
			if err := w.Add(dir); err != nil {
				return fmt.Errorf("failed to watch %s: %w", dir, err)
			}
			dirs[dir] = true
		}
	}
	fmt.Fprintf(output, "watching %d input(s), press Ctrl+C to stop\n", len(watched))

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 || !watched[ev.Name] {
				continue
			}
			logger.Debug("input changed", slog.String("path", ev.Name), slog.String("op", ev.Op.String()))
			res, err := buildOne(cfg, ev.Name)
			if err != nil {
				fmt.Fprintf(output, "%s %s: %v\n", color.RedString("failed"), ev.Name, err)
				continue
			}
			printResult(res)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", slog.Any("err", err))
		}
	}
}
