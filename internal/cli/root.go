// Package cli implements the gptlocal command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"golang.org/x/time/rate"

	"gptlocal/internal/catalog"
	"gptlocal/internal/config"
	"gptlocal/internal/download"
	"gptlocal/internal/engine"
	"gptlocal/internal/llm"
	"gptlocal/internal/logging"
	"gptlocal/internal/resolver"
)

// Options are the persistent flags shared by every command.
type Options struct {
	ConfigPath string
	ModelsDir  string
	NoDownload bool
	Threads    int
	LogLevel   string
	LogFile    string
}

// app carries the state built by the root command for its subcommands.
type app struct {
	opts   Options
	cfg    config.Config
	log    zerolog.Logger
	closer io.Closer

	httpClient *http.Client
	newBackend func(cfg config.Config) llm.Backend
	// onListen is told the bound address once serve is listening.
	onListen func(addr string)
}

func newApp() *app {
	return &app{
		log:        zerolog.Nop(),
		httpClient: &http.Client{},
		newBackend: func(cfg config.Config) llm.Backend { return llm.NewLlamaBackend(cfg.ContextSize) },
	}
}

// buildRootCmd is a convenience for help-only fallbacks.
func buildRootCmd() *cobra.Command { return buildRootCmdWith(newApp()) }

// buildRootCmdWith constructs the command tree around a.
func buildRootCmdWith(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "gptlocal",
		Short:         "Resolve, download and run local language models",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.opts.ConfigPath, "config", os.Getenv("GPTLOCAL_CONFIG"), "Config file (.yaml, .json or .toml; defaults GPTLOCAL_CONFIG)")
	pf.StringVar(&a.opts.ModelsDir, "models-dir", "", "Directory holding model files (default ~/.cache/gpt4all)")
	pf.BoolVar(&a.opts.NoDownload, "no-download", false, "Never download missing models")
	pf.IntVar(&a.opts.Threads, "threads", 0, "CPU threads for generation (0 = engine default)")
	pf.StringVar(&a.opts.LogLevel, "log-level", "", "Log level: debug|info|warn|error|off")
	pf.StringVar(&a.opts.LogFile, "log-file", "", "Also write JSON logs to this file, rotated by size")

	root.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		return a.setup(cmd)
	}
	root.PersistentPostRunE = func(cmd *cobra.Command, args []string) error {
		return a.close()
	}

	root.AddCommand(
		newModelsCmd(a),
		newPullCmd(a),
		newGenerateCmd(a),
		newChatCmd(a),
		newServeCmd(a),
	)
	return root
}

// setup loads the config file, applies flag overrides and builds the logger.
func (a *app) setup(cmd *cobra.Command) error {
	var cfg config.Config
	if a.opts.ConfigPath != "" {
		c, err := config.Load(a.opts.ConfigPath)
		if err != nil {
			return err
		}
		cfg = c
	}
	flags := cmd.Flags()
	if flags.Changed("models-dir") {
		cfg.ModelsDir = a.opts.ModelsDir
	}
	if flags.Changed("no-download") {
		allow := !a.opts.NoDownload
		cfg.AllowDownload = &allow
	}
	if flags.Changed("threads") {
		cfg.Threads = a.opts.Threads
	}
	if flags.Changed("log-level") {
		cfg.LogLevel = a.opts.LogLevel
	}
	if flags.Changed("log-file") {
		cfg.LogFile = a.opts.LogFile
	}
	a.cfg = cfg.WithDefaults()

	l, closer, err := logging.New(logging.Options{Level: a.cfg.LogLevel, File: a.cfg.LogFile, Out: cmd.ErrOrStderr()})
	if err != nil {
		return err
	}
	a.log, a.closer = l, closer
	return nil
}

func (a *app) close() error {
	if a.closer == nil {
		return nil
	}
	err := a.closer.Close()
	a.closer = nil
	return err
}

func (a *app) newResolver() *resolver.Resolver {
	dl := download.New(a.httpClient, a.log)
	dl.Progress = progressLogger(a.log)
	cat := catalog.NewClient(a.cfg.CatalogURL, a.httpClient)
	return resolver.New(a.cfg.ResolverConfig(), cat, dl, a.log)
}

// openEngine resolves model and loads it with the configured backend.
func (a *app) openEngine(ctx context.Context, model string) (*engine.Engine, error) {
	return engine.Open(ctx, engine.Options{
		Model:         model,
		Dir:           a.cfg.ModelsDir,
		AllowDownload: a.cfg.DownloadsAllowed(),
		Threads:       a.cfg.Threads,
		Resolver:      a.newResolver(),
		Backend:       a.newBackend(a.cfg),
		Suffix:        a.cfg.ModelSuffix,
		Defaults:      a.cfg.Sampling,
		Logger:        a.log,
	})
}

// progressLogger logs download progress at most once per second.
func progressLogger(log zerolog.Logger) download.Progress {
	s := &rate.Sometimes{Interval: time.Second}
	return func(written, total int64) {
		s.Do(func() {
			ev := log.Info().Int64("written", written)
			if total > 0 {
				ev = ev.Int64("total", total).Float64("percent", float64(written)*100/float64(total))
			}
			ev.Msg("download progress")
		})
	}
}

// Execute runs the command tree with explicit arguments and streams.
func Execute(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	return execute(ctx, newApp(), args, stdout, stderr)
}

func execute(ctx context.Context, a *app, args []string, stdout, stderr io.Writer) error {
	root := buildRootCmdWith(a)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)
	err := root.ExecuteContext(ctx)
	// PersistentPostRun is skipped when RunE fails
	if cerr := a.close(); err == nil {
		err = cerr
	}
	return err
}

// MainWithArgs is a testable variant of Main that accepts args explicitly.
// It returns an exit code (0 for success, 2 for usage, 1 on error).
func MainWithArgs(args []string) int {
	if len(args) == 0 {
		_ = buildRootCmd().Usage()
		return 2
	}
	if err := Execute(context.Background(), args, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		var ue usageError
		if errors.As(err, &ue) {
			return 2
		}
		return 1
	}
	return 0
}

// Main returns an exit code for use by cmd/gptlocal.
func Main() int { return MainWithArgs(os.Args[1:]) }

// usageError marks invalid command-line input.
type usageError struct{ msg string }

func (e usageError) Error() string { return e.msg }
