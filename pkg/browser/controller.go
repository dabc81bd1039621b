package browser

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"emperror.dev/errors"
	log "github.com/sirupsen/logrus"

	"github.com/thesyncim/rtcbench/pkg/internal"
)

const (
	// InternalsURL is the page recording WebRTC statistics.
	InternalsURL = "chrome://webrtc-internals/"

	visitSiteXPath = `//button[text()="Visit Site"]`
	relayXPath     = `//button[text()="Relay"]`
)

// peerConnectionXPath addresses the i-th (1-based) peer-connection tab of
// the internals page.
func peerConnectionXPath(i int) string {
	return fmt.Sprintf("/html/body/p/div[1]/span[%d]", i)
}

// Config configures a Controller.
type Config struct {
	URL     string        // session page opened by OpenPeer
	Windows int           // peer windows opened by Start
	Relay   bool          // start relay mode after Start opened the windows
	Wait    time.Duration // settle delay after every page action (default: 5s)
}

// DefaultConfig returns a configuration with a five second settle delay.
func DefaultConfig(url string) Config {
	return Config{
		URL:  url,
		Wait: 5 * time.Second,
	}
}

// Controller opens peer windows of a session page in one browser and keeps
// the webrtc-internals window showing every peer connection. The first
// window is always the internals page; peer windows follow in the order
// they were opened.
type Controller struct {
	cfg     Config
	browser Browser
	clock   internal.Clock
	windows []Window
}

// NewController creates a Controller driving b.
func NewController(b Browser, cfg Config) *Controller {
	return newController(b, cfg, internal.SystemClock{})
}

func newController(b Browser, cfg Config, clock internal.Clock) *Controller {
	return &Controller{cfg: cfg, browser: b, clock: clock}
}

func (c *Controller) settle(ctx context.Context) error {
	return c.clock.Sleep(ctx, c.cfg.Wait)
}

// clickOptional clicks xpath if present. A missing element is not an error.
func (c *Controller) clickOptional(ctx context.Context, w Window, xpath string) error {
	err := w.ClickX(ctx, xpath)
	if errors.Is(err, ErrNotFound) {
		log.WithField("xpath", xpath).Debug("element not present, skipping click")
		return nil
	}
	if err != nil {
		return err
	}
	return c.settle(ctx)
}

// Windows returns the number of open windows, internals included.
func (c *Controller) Windows() int {
	return len(c.windows)
}

// OpenInternals opens the webrtc-internals page in the first window.
func (c *Controller) OpenInternals(ctx context.Context) error {
	if len(c.windows) > 0 {
		return errors.New("internals window already open")
	}
	w, err := c.browser.OpenWindow(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to open internals window")
	}
	c.windows = append(c.windows, w)
	if err := w.Navigate(ctx, InternalsURL); err != nil {
		return errors.Wrap(err, "failed to open webrtc-internals")
	}
	return c.settle(ctx)
}

// OpenPeer opens the session page in a new window, passes an interstitial
// "Visit Site" page if one is shown, and refreshes the internals view.
func (c *Controller) OpenPeer(ctx context.Context) error {
	if len(c.windows) == 0 {
		return errors.New("internals window is not open")
	}
	w, err := c.browser.OpenWindow(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to open peer window")
	}
	c.windows = append(c.windows, w)

	if err := w.Navigate(ctx, c.cfg.URL); err != nil {
		return errors.Wrapf(err, "failed to open %s", c.cfg.URL)
	}
	if err := c.settle(ctx); err != nil {
		return err
	}
	if err := c.clickOptional(ctx, w, visitSiteXPath); err != nil {
		return err
	}
	log.WithField("peers", len(c.windows)-1).Info("peer window opened")
	return c.UpdateInternals(ctx)
}

// StartRelay presses the Relay button of the first peer window and
// refreshes the internals view.
func (c *Controller) StartRelay(ctx context.Context) error {
	if len(c.windows) < 2 {
		return errors.New("no peer window is open")
	}
	w := c.windows[1]
	if err := w.Activate(ctx); err != nil {
		return errors.Wrap(err, "failed to activate peer window")
	}
	if err := c.settle(ctx); err != nil {
		return err
	}
	if err := c.clickOptional(ctx, w, relayXPath); err != nil {
		return err
	}
	log.Info("relay requested")
	return c.UpdateInternals(ctx)
}

// UpdateInternals reloads the internals window and expands every
// peer-connection tab so that their statistics are recorded.
func (c *Controller) UpdateInternals(ctx context.Context) error {
	if len(c.windows) == 0 {
		return errors.New("internals window is not open")
	}
	w := c.windows[0]
	if err := w.Activate(ctx); err != nil {
		return errors.Wrap(err, "failed to activate internals window")
	}
	if err := c.settle(ctx); err != nil {
		return err
	}
	if err := w.Reload(ctx); err != nil {
		return errors.Wrap(err, "failed to reload internals window")
	}
	if err := c.settle(ctx); err != nil {
		return err
	}

	tabs := 0
	for i := 1; ; i++ {
		err := w.ClickX(ctx, peerConnectionXPath(i))
		if errors.Is(err, ErrNotFound) {
			break
		}
		if err != nil {
			return errors.Wrapf(err, "failed to open peer connection tab %d", i)
		}
		tabs++
		if err := c.settle(ctx); err != nil {
			return err
		}
	}
	log.WithField("tabs", tabs).Debug("internals updated")
	return nil
}

// Start opens the internals window followed by cfg.Windows peer windows,
// then starts relay mode if configured.
func (c *Controller) Start(ctx context.Context) error {
	if err := c.OpenInternals(ctx); err != nil {
		return err
	}
	for i := 0; i < c.cfg.Windows; i++ {
		if err := c.OpenPeer(ctx); err != nil {
			return err
		}
	}
	if c.cfg.Relay {
		return c.StartRelay(ctx)
	}
	return nil
}

// Command names accepted by Run.
const (
	CommandOpen   = "open"
	CommandRelay  = "relay"
	CommandUpdate = "update"
	CommandQuit   = "quit"
)

// Run reads one command per line from r and executes it until r ends, a
// quit command is read, or ctx is cancelled. Unknown commands are logged
// and ignored. Cancellation is not an error.
func (c *Controller) Run(ctx context.Context, r io.Reader) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			select {
			case lines <- strings.TrimSpace(scanner.Text()):
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case cmd, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := c.exec(ctx, cmd)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				return err
			}
			if quit {
				return nil
			}
		}
	}
}

func (c *Controller) exec(ctx context.Context, cmd string) (bool, error) {
	switch cmd {
	case "":
		return false, nil
	case CommandOpen:
		return false, c.OpenPeer(ctx)
	case CommandRelay:
		return false, c.StartRelay(ctx)
	case CommandUpdate:
		return false, c.UpdateInternals(ctx)
	case CommandQuit, "exit":
		return true, nil
	default:
		log.WithField("command", cmd).Warn("unknown command")
		return false, nil
	}
}

// Close closes the browser session.
func (c *Controller) Close() error {
	c.windows = nil
	return c.browser.Close()
}
