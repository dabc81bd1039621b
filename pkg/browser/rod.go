package browser

import (
	"context"
	"time"

	"emperror.dev/errors"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// RodConfig configures the Chrome launch.
type RodConfig struct {
	Headless bool          // run without a visible window
	Bin      string        // Chrome binary; empty lets rod find or download one
	Timeout  time.Duration // per-operation timeout (default: 30s)
}

// DefaultRodConfig returns a visible browser with a 30s operation timeout.
func DefaultRodConfig() RodConfig {
	return RodConfig{
		Timeout: 30 * time.Second,
	}
}

// RodBrowser is a Browser backed by a Chrome instance driven through the
// DevTools protocol.
type RodBrowser struct {
	launcher *launcher.Launcher
	browser  *rod.Browser
	timeout  time.Duration
}

// Launch starts Chrome with fake media devices, auto-granted media
// permissions and certificate errors ignored, so that session pages served
// with self-signed certificates can start their streams unattended.
func Launch(cfg RodConfig) (*RodBrowser, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	l := launcher.New().
		Headless(cfg.Headless).
		Set("use-fake-device-for-media-stream").
		Set("use-fake-ui-for-media-stream").
		Set("ignore-certificate-errors").
		Set("no-sandbox").
		Set("disable-dev-shm-usage").
		Set("site-per-process").
		Set("autoplay-policy", "no-user-gesture-required")
	if cfg.Bin != "" {
		l = l.Bin(cfg.Bin)
	}

	url, err := l.Launch()
	if err != nil {
		return nil, errors.Wrap(err, "failed to launch Chrome")
	}

	b := rod.New().ControlURL(url)
	if err := b.Connect(); err != nil {
		l.Kill()
		return nil, errors.Wrap(err, "failed to connect to Chrome")
	}

	return &RodBrowser{launcher: l, browser: b, timeout: cfg.Timeout}, nil
}

// OpenWindow opens a blank page in a new window.
func (b *RodBrowser) OpenWindow(ctx context.Context) (Window, error) {
	page, err := b.browser.Context(ctx).Page(proto.TargetCreateTarget{
		URL:       "about:blank",
		NewWindow: true,
	})
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return &rodWindow{page: page, timeout: b.timeout}, nil
}

// Close closes Chrome and removes its profile directory.
func (b *RodBrowser) Close() error {
	err := b.browser.Close()
	b.launcher.Cleanup()
	return errors.WithStack(err)
}

type rodWindow struct {
	page    *rod.Page
	timeout time.Duration
}

// with binds the page to ctx bounded by the operation timeout.
func (w *rodWindow) with(ctx context.Context) (*rod.Page, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	return w.page.Context(ctx), cancel
}

func (w *rodWindow) Navigate(ctx context.Context, url string) error {
	p, cancel := w.with(ctx)
	defer cancel()
	if err := p.Navigate(url); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(p.WaitLoad())
}

func (w *rodWindow) Reload(ctx context.Context) error {
	p, cancel := w.with(ctx)
	defer cancel()
	if err := p.Reload(); err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(p.WaitLoad())
}

func (w *rodWindow) Activate(ctx context.Context) error {
	p, cancel := w.with(ctx)
	defer cancel()
	_, err := p.Activate()
	return errors.WithStack(err)
}

func (w *rodWindow) ClickX(ctx context.Context, xpath string) error {
	p, cancel := w.with(ctx)
	defer cancel()
	el, err := p.Sleeper(rod.NotFoundSleeper).ElementX(xpath)
	var notFound *rod.ElementNotFoundError
	if errors.As(err, &notFound) {
		return ErrNotFound
	}
	if err != nil {
		return errors.WithStack(err)
	}
	return errors.WithStack(el.Click(proto.InputMouseButtonLeft, 1))
}
