package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aretw0/reel/internal/cli"
	reelhttp "github.com/aretw0/reel/pkg/adapters/http"
	reelmcp "github.com/aretw0/reel/pkg/adapters/mcp"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/render"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

const shutdownGrace = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the render HTTP server",
	Long:  `Starts reel in server mode, accepting render jobs over a JSON API.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		if cmd.Flags().Changed("mcp") {
			cfg.Server.MCP, _ = cmd.Flags().GetBool("mcp")
		}

		streams := reelhttp.NewStreamManager(logger)
		buildOpts := cli.BuildOptions{Hooks: []domain.LifecycleHooks{streams.Hooks()}}

		var reg *prometheus.Registry
		if cfg.Server.Metrics {
			reg = prometheus.NewRegistry()
			reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
			buildOpts.Registerer = reg
		}

		rt, err := cli.Build(cfg, logger, buildOpts)
		if err != nil {
			return err
		}
		defer rt.Close()

		baseCtx, cancelJobs := context.WithCancel(context.Background())
		defer cancelJobs()

		serverOpts := []reelhttp.Option{
			reelhttp.WithLogger(logger),
			reelhttp.WithBaseContext(baseCtx),
			reelhttp.WithStreams(streams),
		}
		if rt.Store != nil {
			serverOpts = append(serverOpts, reelhttp.WithStore(rt.Store))
		}
		if reg != nil {
			serverOpts = append(serverOpts, reelhttp.WithMetrics(reg))
		}
		jobs := render.NewRegistry(render.DefaultFinishedJobs)
		serverOpts = append(serverOpts, reelhttp.WithRegistry(jobs))
		server := reelhttp.NewServer(rt.Orchestrator, serverOpts...)

		handler := server.Handler()
		if cfg.Server.MCP {
			mux := http.NewServeMux()
			mux.Handle("/mcp", reelmcp.NewServer(rt.Orchestrator,
				reelmcp.WithRegistry(jobs),
				reelmcp.WithBaseContext(baseCtx),
				reelmcp.WithLogger(logger),
			).Handler())
			mux.Handle("/", handler)
			handler = mux
		}

		srv := &http.Server{
			Addr:              cfg.Server.Addr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("reel server listening", "addr", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		shutdown := make(chan os.Signal, 1)
		signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)
		defer signal.Stop(shutdown)

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case sig := <-shutdown:
			logger.Info("shutting down", "signal", sig.String())
			server.CancelAll()
			cancelJobs()

			ctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("graceful shutdown did not complete", "grace", shutdownGrace, "err", err)
				if err := srv.Close(); err != nil {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			logger.Info("reel server stopped")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Address to listen on (default server.addr)")
	serveCmd.Flags().Bool("mcp", false, "Also serve the MCP endpoint on /mcp")
}
