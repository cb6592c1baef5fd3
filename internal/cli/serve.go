package cli

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"gptlocal/internal/config"
	"gptlocal/internal/engine"
	"gptlocal/internal/httpapi"
)

const shutdownTimeout = 5 * time.Second

type serveOptions struct {
	addr            string
	maxBodyBytes    int64
	generateTimeout time.Duration
	maxQueue        int
	maxWait         time.Duration
}

func newServeCmd(a *app) *cobra.Command {
	var so serveOptions
	cmd := &cobra.Command{
		Use:   "serve [model]",
		Short: "Serve the HTTP API for one model",
		Long: "Starts listening immediately and loads the model in the background;\n" +
			"/readyz reports 503 until it is loaded. The model defaults to the config value.",
		Example: "  gptlocal serve ggml-gpt4all-j-v1.3-groovy --addr :4891",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			model := a.cfg.Model
			if len(args) == 1 {
				model = args[0]
			}
			if model == "" {
				return usageError{msg: "serve needs a model argument or `model` in the config"}
			}
			if so.addr != "" {
				a.cfg.Addr = so.addr
			}
			return a.serve(cmd.Context(), model, so)
		},
	}
	f := cmd.Flags()
	f.StringVar(&so.addr, "addr", os.Getenv("GPTLOCAL_ADDR"), "HTTP listen address (defaults GPTLOCAL_ADDR, then the config addr, then "+config.DefaultAddr+")")
	f.Int64Var(&so.maxBodyBytes, "max-body-bytes", 1<<20, "Maximum JSON request body size")
	f.DurationVar(&so.generateTimeout, "generate-timeout", 0, "Per-request generation timeout (0 = none)")
	f.IntVar(&so.maxQueue, "max-queue", httpapi.DefaultMaxQueueDepth, "Generation requests allowed to wait or run before 429")
	f.DurationVar(&so.maxWait, "max-wait", httpapi.DefaultMaxWait, "Longest a request waits for the model before 429")
	return cmd
}

func (a *app) serve(ctx context.Context, model string, so serveOptions) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	httpapi.SetLogger(a.log)
	httpapi.SetBaseContext(ctx)
	httpapi.SetMaxBodyBytes(so.maxBodyBytes)
	httpapi.SetGenerateTimeout(so.generateTimeout)
	httpapi.SetAdmission(so.maxQueue, so.maxWait)
	httpapi.SetCORSOptions(a.cfg.CORS.Enabled, a.cfg.CORS.Origins)
	httpapi.SetChatDefaults(a.cfg.HeaderEnabled(), a.cfg.FooterEnabled())

	ln, err := net.Listen("tcp", a.cfg.Addr)
	if err != nil {
		return err
	}
	svc := &httpapi.Deferred{}
	srv := &http.Server{
		Handler:           httpapi.NewMux(svc),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	a.log.Info().Str("addr", ln.Addr().String()).Str("model", model).Msg("gptlocal listening")
	if a.onListen != nil {
		a.onListen(ln.Addr().String())
	}

	g, gctx := errgroup.WithContext(ctx)
	var eng *engine.Engine
	g.Go(func() error {
		e, err := a.openEngine(gctx, model)
		if err != nil {
			// keep serving so /readyz and requests report the failure
			a.log.Error().Err(err).Str("model", model).Msg("model load failed")
			svc.Fail(err)
			return nil
		}
		eng = e
		svc.Set(e)
		a.log.Info().Str("model", e.Name()).Msg("ready")
		return nil
	})
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			a.log.Warn().Err(err).Msg("graceful shutdown error")
		}
		return nil
	})

	err = g.Wait()
	if eng != nil {
		if cerr := eng.Close(); cerr != nil {
			a.log.Warn().Err(cerr).Msg("close model")
		}
	}
	a.log.Info().Msg("gptlocal stopped")
	return err
}
