package browser

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"emperror.dev/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesyncim/rtcbench/pkg/internal"
)

// fakeBrowser records every action of its windows in one shared log.
type fakeBrowser struct {
	log     []string
	windows []*fakeWindow
	closed  bool

	// present lists the xpaths that exist, per window index.
	present map[int]map[string]bool
}

func newFakeBrowser() *fakeBrowser {
	return &fakeBrowser{present: make(map[int]map[string]bool)}
}

func (b *fakeBrowser) has(window int, xpaths ...string) {
	if b.present[window] == nil {
		b.present[window] = make(map[string]bool)
	}
	for _, x := range xpaths {
		b.present[window][x] = true
	}
}

func (b *fakeBrowser) OpenWindow(context.Context) (Window, error) {
	w := &fakeWindow{browser: b, index: len(b.windows)}
	b.windows = append(b.windows, w)
	b.log = append(b.log, fmt.Sprintf("open %d", w.index))
	return w, nil
}

func (b *fakeBrowser) Close() error {
	b.closed = true
	return nil
}

type fakeWindow struct {
	browser *fakeBrowser
	index   int
	url     string
}

func (w *fakeWindow) record(action string) {
	w.browser.log = append(w.browser.log, fmt.Sprintf("%d %s", w.index, action))
}

func (w *fakeWindow) Navigate(_ context.Context, url string) error {
	w.url = url
	w.record("navigate " + url)
	return nil
}

func (w *fakeWindow) Reload(context.Context) error {
	w.record("reload")
	return nil
}

func (w *fakeWindow) Activate(context.Context) error {
	w.record("activate")
	return nil
}

func (w *fakeWindow) ClickX(_ context.Context, xpath string) error {
	if !w.browser.present[w.index][xpath] {
		return ErrNotFound
	}
	w.record("click " + xpath)
	return nil
}

func newTestController(b Browser) (*Controller, *internal.MockClock) {
	clock := internal.NewMockClock(time.Time{})
	cfg := DefaultConfig("https://session.example/")
	return newController(b, cfg, clock), clock
}

// =============================================================================
// Internals Tests
// =============================================================================

func TestController_OpenInternals(t *testing.T) {
	b := newFakeBrowser()
	c, clock := newTestController(b)

	require.NoError(t, c.OpenInternals(context.Background()))

	assert.Equal(t, []string{"open 0", "0 navigate " + InternalsURL}, b.log)
	assert.Equal(t, []time.Duration{5 * time.Second}, clock.Slept())
	assert.Error(t, c.OpenInternals(context.Background()), "second internals window")
}

func TestController_UpdateInternalsClicksEveryTab(t *testing.T) {
	b := newFakeBrowser()
	b.has(0, peerConnectionXPath(1), peerConnectionXPath(2), peerConnectionXPath(3))
	c, _ := newTestController(b)
	require.NoError(t, c.OpenInternals(context.Background()))
	b.log = nil

	require.NoError(t, c.UpdateInternals(context.Background()))

	assert.Equal(t, []string{
		"0 activate",
		"0 reload",
		"0 click /html/body/p/div[1]/span[1]",
		"0 click /html/body/p/div[1]/span[2]",
		"0 click /html/body/p/div[1]/span[3]",
	}, b.log)
}

func TestController_UpdateInternalsRequiresWindow(t *testing.T) {
	c, _ := newTestController(newFakeBrowser())
	assert.Error(t, c.UpdateInternals(context.Background()))
}

// =============================================================================
// Peer Window Tests
// =============================================================================

func TestController_OpenPeerPassesInterstitial(t *testing.T) {
	b := newFakeBrowser()
	b.has(1, visitSiteXPath)
	c, _ := newTestController(b)
	require.NoError(t, c.OpenInternals(context.Background()))
	b.log = nil

	require.NoError(t, c.OpenPeer(context.Background()))

	assert.Equal(t, []string{
		"open 1",
		"1 navigate https://session.example/",
		`1 click //button[text()="Visit Site"]`,
		"0 activate",
		"0 reload",
	}, b.log)
	assert.Equal(t, 2, c.Windows())
}

func TestController_OpenPeerWithoutInterstitial(t *testing.T) {
	b := newFakeBrowser()
	c, _ := newTestController(b)
	require.NoError(t, c.OpenInternals(context.Background()))

	require.NoError(t, c.OpenPeer(context.Background()))
	require.NoError(t, c.OpenPeer(context.Background()))

	assert.Equal(t, 3, c.Windows())
	assert.Equal(t, "https://session.example/", b.windows[2].url)
}

func TestController_StartRelayUsesFirstPeer(t *testing.T) {
	b := newFakeBrowser()
	b.has(1, relayXPath)
	b.has(2, relayXPath)
	c, _ := newTestController(b)
	require.NoError(t, c.OpenInternals(context.Background()))
	require.NoError(t, c.OpenPeer(context.Background()))
	require.NoError(t, c.OpenPeer(context.Background()))
	b.log = nil

	require.NoError(t, c.StartRelay(context.Background()))

	assert.Equal(t, []string{
		"1 activate",
		`1 click //button[text()="Relay"]`,
		"0 activate",
		"0 reload",
	}, b.log)
}

func TestController_StartRelayNeedsPeer(t *testing.T) {
	c, _ := newTestController(newFakeBrowser())
	require.NoError(t, c.OpenInternals(context.Background()))
	assert.Error(t, c.StartRelay(context.Background()))
}

func TestController_Start(t *testing.T) {
	b := newFakeBrowser()
	c, _ := newTestController(b)
	c.cfg.Windows = 2
	c.cfg.Relay = true

	require.NoError(t, c.Start(context.Background()))
	assert.Equal(t, 3, c.Windows())
	assert.Contains(t, b.log, "1 activate")
}

// =============================================================================
// Command Loop Tests
// =============================================================================

func TestController_RunCommands(t *testing.T) {
	b := newFakeBrowser()
	c, _ := newTestController(b)
	require.NoError(t, c.OpenInternals(context.Background()))

	input := "open\n\nbogus\nopen\nupdate\nquit\nopen\n"
	require.NoError(t, c.Run(context.Background(), strings.NewReader(input)))

	assert.Equal(t, 3, c.Windows(), "commands after quit are not executed")
}

func TestController_RunStopsAtEOF(t *testing.T) {
	c, _ := newTestController(newFakeBrowser())
	require.NoError(t, c.OpenInternals(context.Background()))

	require.NoError(t, c.Run(context.Background(), strings.NewReader("open\n")))
	assert.Equal(t, 2, c.Windows())
}

func TestController_RunReturnsCommandError(t *testing.T) {
	c, _ := newTestController(newFakeBrowser())
	err := c.Run(context.Background(), strings.NewReader("relay\n"))
	assert.Error(t, err)
}

func TestController_Close(t *testing.T) {
	b := newFakeBrowser()
	c, _ := newTestController(b)
	require.NoError(t, c.Close())
	assert.True(t, b.closed)
}

type failingWindow struct{ fakeWindow }

func (w *failingWindow) ClickX(context.Context, string) error {
	return errors.New("devtools disconnected")
}

func TestController_ClickErrorsOtherThanNotFound(t *testing.T) {
	w := &failingWindow{}
	c, _ := newTestController(newFakeBrowser())
	err := c.clickOptional(context.Background(), w, relayXPath)
	assert.ErrorContains(t, err, "devtools disconnected")
}
