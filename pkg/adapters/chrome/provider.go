/*
Package chrome implements ports.SessionProvider on top of a Chrome DevTools Protocol
browser driven by chromedp.

One Chrome process (local, or remote through a CDP URL) is shared by every session;
each session is a tab sized to the composition. Pages drive frames through two
globals: window.reel_setFrame(index) seeks the composition, and
window.reel_renderReady becomes true once the frame is fully painted.
*/
package chrome

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/aretw0/reel/internal/logging"
	"github.com/aretw0/reel/pkg/domain"
	"github.com/aretw0/reel/pkg/ports"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/runtime"
	"github.com/chromedp/chromedp"
)

// Config configures the browser and the frame protocol.
type Config struct {
	// ChromePath overrides the Chrome executable. Ignored when CDPURL is set.
	ChromePath string `mapstructure:"chrome_path"`
	// CDPURL attaches to an already running browser instead of launching one.
	CDPURL   string `mapstructure:"cdp_url"`
	Headless bool   `mapstructure:"headless"`

	// Format is the screenshot format: "png" (default) or "jpeg".
	Format  string `mapstructure:"format"`
	Quality int    `mapstructure:"quality"`

	// ReadyTimeout bounds page setup and every frame seek.
	ReadyTimeout time.Duration `mapstructure:"ready_timeout"`
}

// DefaultReadyTimeout is used when Config.ReadyTimeout is zero.
const DefaultReadyTimeout = 30 * time.Second

// Provider opens browser tabs as render sessions.
type Provider struct {
	cfg    Config
	logger *slog.Logger

	mu            sync.Mutex
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
}

var _ ports.SessionProvider = (*Provider)(nil)

// Option configures a Provider.
type Option func(*Provider)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// NewProvider creates a provider. The browser starts lazily on the first Open.
func NewProvider(cfg Config, opts ...Option) *Provider {
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = DefaultReadyTimeout
	}
	p := &Provider{cfg: cfg, logger: logging.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// ensureBrowser lazily starts the shared browser. Must be called with p.mu held.
// The first Run on the browser context owns the browser process (or the remote
// connection), so it runs without a deadline and lives until Close.
func (p *Provider) ensureBrowser() error {
	if p.browserCtx != nil && p.browserCtx.Err() == nil {
		return nil
	}
	p.shutdown()

	base := context.Background()
	var allocCtx context.Context
	if url := strings.TrimSpace(p.cfg.CDPURL); url != "" {
		allocCtx, p.allocCancel = chromedp.NewRemoteAllocator(base, url)
	} else {
		opts := append(chromedp.DefaultExecAllocatorOptions[:],
			chromedp.Flag("headless", p.cfg.Headless),
			chromedp.Flag("disable-gpu", p.cfg.Headless),
			chromedp.Flag("hide-scrollbars", true),
		)
		if path := strings.TrimSpace(p.cfg.ChromePath); path != "" {
			opts = append(opts, chromedp.ExecPath(path))
		}
		allocCtx, p.allocCancel = chromedp.NewExecAllocator(base, opts...)
	}

	p.browserCtx, p.browserCancel = chromedp.NewContext(allocCtx)
	if err := chromedp.Run(p.browserCtx); err != nil {
		p.shutdown()
		return fmt.Errorf("start browser: %w", err)
	}
	p.logger.Debug("browser started", "remote", p.cfg.CDPURL != "")
	return nil
}

// Open creates a tab sized to the composition, with exception reporting enabled.
func (p *Provider) Open(ctx context.Context, comp domain.Composition) (ports.Session, error) {
	p.mu.Lock()
	if err := p.ensureBrowser(); err != nil {
		p.mu.Unlock()
		return nil, err
	}
	tabCtx, closeTab := chromedp.NewContext(p.browserCtx)
	p.mu.Unlock()

	s := newSession(tabCtx, closeTab, p.cfg, p.logger)
	chromedp.ListenTarget(tabCtx, s.handleEvent)

	// The first Run creates and attaches the tab; the tab's event loop is bound
	// to the context of that Run, so it must be tabCtx itself.
	stop := context.AfterFunc(ctx, closeTab)
	err := chromedp.Run(tabCtx,
		runtime.Enable(),
		emulation.SetDeviceMetricsOverride(int64(comp.Width), int64(comp.Height), 1, false),
	)
	if !stop() {
		closeTab()
		return nil, fmt.Errorf("open tab: %w", ctx.Err())
	}
	if err != nil {
		closeTab()
		return nil, fmt.Errorf("open tab: %w", err)
	}
	p.logger.Debug("browser tab opened", "composition", comp.ID, "width", comp.Width, "height", comp.Height)
	return s, nil
}

// Close stops the shared browser. Open sessions become lost.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shutdown()
}

func (p *Provider) shutdown() error {
	var err error
	if p.browserCtx != nil {
		err = chromedp.Cancel(p.browserCtx)
		p.browserCancel()
		p.browserCtx, p.browserCancel = nil, nil
	}
	if p.allocCancel != nil {
		p.allocCancel()
		p.allocCancel = nil
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

// runWithin runs actions on the tab of tabCtx, giving up when ctx is done.
// Abandoning a run does not close the tab.
func runWithin(ctx, tabCtx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(tabCtx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	err := chromedp.Run(runCtx, actions...)
	if err != nil && ctx.Err() != nil {
		return ctx.Err()
	}
	return err
}
