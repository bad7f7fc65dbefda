package main

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

	"litertlm/internal/httpapi"
	"litertlm/internal/manager"
	"litertlm/internal/registry"
)

const shutdownTimeout = 10 * time.Second

func newServeCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return c.serve(ctx, nil)
		},
	}
	f := cmd.Flags()
	f.StringVar(&c.flags.Addr, "addr", defaultAddr, "HTTP listen address (env LITERTLM_ADDR)")
	f.StringVar(&c.flags.DefaultModel, "default-model", "", "Model used when a request names none")
	f.IntVar(&c.flags.BudgetMB, "budget-mb", 0, "Memory budget in MB across loaded engines (0 = unlimited)")
	f.IntVar(&c.flags.MarginMB, "margin-mb", 0, "Memory in MB kept free inside the budget")
	f.IntVar(&c.flags.MaxQueueDepth, "max-queue-depth", 0, "Queued requests per engine before 429 (0 = default)")
	f.IntVar(&c.flags.MaxConcurrent, "max-concurrent", 0, "Concurrent generations per engine (0 = default)")
	f.StringVar(&c.flags.MaxWait, "max-wait", "", "Longest wait for a generation slot, e.g. 30s")
	f.StringVar(&c.flags.DrainTimeout, "drain-timeout", "", "Longest wait for in-flight work on unload, e.g. 5s")
	f.IntVar(&c.flags.LoadRetries, "load-retries", 0, "Extra attempts when engine construction fails")
	f.StringVar(&c.flags.StateFile, "state-file", "", "File recording recently used models for warm start")
	f.BoolVar(&c.flags.CORSEnabled, "cors", false, "Enable CORS")
	f.StringVar(&c.cors.origins, "cors-origins", "*", "Comma-separated allowed origins")
	f.StringVar(&c.cors.methods, "cors-methods", "GET,POST,DELETE,OPTIONS", "Comma-separated allowed methods")
	f.StringVar(&c.cors.headers, "cors-headers", "Content-Type,X-Log-Level", "Comma-separated allowed headers")
	f.Int64Var(&c.flags.MaxBodyBytes, "max-body-bytes", 0, "Request body cap in bytes (0 = 1 MiB)")
	f.IntVar(&c.flags.InferTimeoutSeconds, "infer-timeout-seconds", 0, "Generation timeout in seconds (0 = none)")
	return cmd
}

// newManager builds the manager from the merged configuration.
func (c *cli) newManager() (*manager.Manager, error) {
	reg, err := registry.LoadDir(c.cfg.ModelsDir)
	if err != nil {
		return nil, err
	}
	return manager.NewWithConfig(manager.ManagerConfig{
		Registry:      reg,
		Backend:       c.backend(),
		BudgetMB:      c.cfg.BudgetMB,
		MarginMB:      c.cfg.MarginMB,
		DefaultModel:  c.cfg.DefaultModel,
		MaxQueueDepth: c.cfg.MaxQueueDepth,
		MaxConcurrent: c.cfg.MaxConcurrent,
		MaxWait:       c.cfg.MaxWaitDuration(0),
		DrainTimeout:  c.cfg.DrainTimeoutDuration(0),
		LoadRetries:   c.cfg.LoadRetries,
		StateFile:     c.cfg.StateFile,
		Loader:        c.load,
		Logger:        &c.log,
	}), nil
}

// serve runs the HTTP API until ctx is done. When ln is nil it listens on the
// configured address.
func (c *cli) serve(ctx context.Context, ln net.Listener) error {
	mgr, err := c.newManager()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := mgr.Close(); cerr != nil {
			c.log.Error().Err(cerr).Msg("manager close")
		}
	}()

	report := mgr.SanityCheck()
	ev := c.log.Info()
	if report.Error != "" {
		ev = c.log.Warn().Str("error", report.Error)
	}
	ev.Bool("native", report.NativeAvailable).Int("models", report.ModelsFound).
		Uint64("mem_total_mb", report.MemTotalMB).Strs("warnings", report.Warnings).Msg("sanity check")

	httpapi.SetLogger(c.log.With().Str("component", "http").Logger())
	httpapi.SetRequestLogLevel(c.cfg.LogLevel)
	httpapi.SetBaseContext(ctx)
	httpapi.SetMaxBodyBytes(c.cfg.MaxBodyBytes)
	httpapi.SetInferTimeoutSeconds(int64(c.cfg.InferTimeoutSeconds))
	httpapi.SetCORSOptions(c.cfg.CORSEnabled, c.cfg.CORSAllowedOrigins, c.cfg.CORSAllowedMethods, c.cfg.CORSAllowedHeaders)

	srv := &http.Server{
		Addr:              c.cfg.Addr,
		Handler:           httpapi.NewMux(mgr),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	if ln == nil {
		if ln, err = net.Listen("tcp", c.cfg.Addr); err != nil {
			return err
		}
	}

	go func() {
		loaded, werr := mgr.Warm(ctx)
		if werr != nil {
			c.log.Warn().Err(werr).Msg("warm start")
		}
		if len(loaded) > 0 {
			c.log.Info().Strs("models", loaded).Msg("warm start")
		}
	}()

	errCh := make(chan error, 1)
	go func() {
		c.log.Info().Str("addr", ln.Addr().String()).Str("models_dir", c.cfg.ModelsDir).Msg("litertlm listening")
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	c.log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		c.log.Error().Err(err).Msg("graceful shutdown")
		return err
	}
	return nil
}
