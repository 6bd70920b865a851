package cli

import (
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/aretw0/reel/internal/config"
	"github.com/aretw0/reel/pkg/adapters/chrome"
	"github.com/aretw0/reel/pkg/adapters/frames"
	"github.com/aretw0/reel/pkg/adapters/memory"
	"github.com/aretw0/reel/pkg/adapters/process"
	"github.com/aretw0/reel/pkg/adapters/redis"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/observability"
	"github.com/aretw0/reel/pkg/persistence/middleware"
	"github.com/aretw0/reel/pkg/ports"
	"github.com/aretw0/reel/pkg/render"
	"github.com/aretw0/reel/pkg/symbolicate"
	"github.com/prometheus/client_golang/prometheus"
)

// Runtime is a fully wired orchestrator with the resources it owns.
type Runtime struct {
	Orchestrator *render.Orchestrator
	Store        ports.RecordStore
	// Format is the file extension of single-file outputs; empty for image sequences.
	Format  string
	closers []func() error
}

// DefaultOutput is the output location used when none is given: a directory for
// image sequences, a file otherwise.
func (rt *Runtime) DefaultOutput(base, compositionID string) string {
	if rt.Format == "" {
		return filepath.Join(base, compositionID)
	}
	return filepath.Join(base, compositionID+"."+rt.Format)
}

// Close releases the browser and the redis connection.
func (rt *Runtime) Close() error {
	var errs []error
	for i := len(rt.closers) - 1; i >= 0; i-- {
		if err := rt.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BuildOptions extends the configuration with process-level wiring.
type BuildOptions struct {
	// Provider replaces the chrome provider built from the configuration.
	Provider ports.SessionProvider
	// Registerer enables prometheus metrics when set.
	Registerer prometheus.Registerer
	Hooks      []domain.LifecycleHooks
}

// Build wires an orchestrator from cfg.
func Build(cfg config.Config, logger *slog.Logger, opts BuildOptions) (*Runtime, error) {
	rt := &Runtime{}

	provider := opts.Provider
	if provider == nil {
		p := chrome.NewProvider(cfg.Browser, chrome.WithLogger(logger))
		rt.closers = append(rt.closers, p.Close)
		provider = p
	}

	assembler, err := newAssembler(cfg, logger)
	if err != nil {
		return nil, errors.Join(err, rt.Close())
	}
	if enc, ok := assembler.(*process.Encoder); ok {
		rt.Format = enc.Format()
	}

	hooks := []domain.LifecycleHooks{observability.LoggingHooks(logger)}
	if opts.Registerer != nil {
		metrics, err := observability.NewMetrics(opts.Registerer)
		if err != nil {
			return nil, errors.Join(err, rt.Close())
		}
		hooks = append(hooks, metrics.Hooks())
	}
	hooks = append(hooks, opts.Hooks...)

	renderOpts := []render.Option{
		render.WithLogger(logger),
		render.WithHooks(observability.ChainHooks(hooks...)),
		render.WithParallelism(cfg.Render.Parallelism),
	}
	if !cfg.SourceMaps.Disabled {
		renderOpts = append(renderOpts, render.WithSymbolicator(newSymbolicator(cfg.SourceMaps, logger)))
	}

	if cfg.Redis.Addr != "" {
		store := redis.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			redis.WithPrefix(cfg.Redis.Prefix),
			redis.WithTTL(cfg.Redis.TTL),
		)
		rt.closers = append(rt.closers, store.Close)
		var records ports.RecordStore = store
		if len(cfg.Redis.Redact) > 0 {
			redact, err := middleware.NewRedactMiddleware(cfg.Redis.Redact)
			if err != nil {
				return nil, errors.Join(err, rt.Close())
			}
			records = middleware.Chain(store, redact)
		}
		rt.Store = records
		locker := redis.NewLocker(store.Client(), cfg.Redis.Prefix)
		renderOpts = append(renderOpts,
			render.WithStore(records),
			render.WithLocker(locker, cfg.Redis.LockTTL),
		)
		logger.Debug("redis persistence enabled", "addr", cfg.Redis.Addr, "prefix", cfg.Redis.Prefix)
	} else {
		renderOpts = append(renderOpts, render.WithLocker(memory.NewLocker(), cfg.Redis.LockTTL))
	}

	rt.Orchestrator = render.New(provider, assembler, renderOpts...)
	return rt, nil
}

func newAssembler(cfg config.Config, logger *slog.Logger) (ports.Assembler, error) {
	if cfg.Render.Encoder == "frames" {
		return frames.NewSequence(frameExt(cfg.Browser.Format)), nil
	}
	encoders, err := process.LoadEncoders(cfg.Render.EncodersFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load encoders: %w", err)
	}
	enc, err := process.Lookup(encoders, cfg.Render.Encoder, process.WithLogger(logger))
	if err != nil {
		return nil, err
	}
	return enc, nil
}

func newSymbolicator(cfg config.SourceMapConfig, logger *slog.Logger) *symbolicate.Symbolicator {
	var fetcher symbolicate.Fetcher = symbolicate.HTTPFetcher{}
	if cfg.Dir != "" {
		fetcher = symbolicate.DirFetcher{Root: cfg.Dir}
	}
	var resolverOpts []symbolicate.MapResolverOption
	if cfg.FetchTimeout > 0 {
		resolverOpts = append(resolverOpts, symbolicate.WithFetchTimeout(cfg.FetchTimeout))
	}
	resolver := symbolicate.NewMapResolver(fetcher, cfg.CacheSize, resolverOpts...)
	return symbolicate.New(resolver, symbolicate.WithLogger(logger))
}

func frameExt(format string) string {
	if strings.EqualFold(format, "jpeg") {
		return "jpg"
	}
	return "png"
}
