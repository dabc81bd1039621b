//go:build e2e

package e2e

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thesyncim/rtcbench/cmd/session-server/server"
	"github.com/thesyncim/rtcbench/pkg/browser"
)

// startSession starts a session server on a random port with host
// candidates only, so that no STUN server has to be reachable.
func startSession(t *testing.T) (*server.Server, string) {
	t.Helper()
	cfg := server.DefaultConfig()
	cfg.Addr = "127.0.0.1:0"
	cfg.ICEServers = nil

	srv, err := server.NewServer(cfg)
	require.NoError(t, err)
	addr, err := srv.Start()
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		assert.NoError(t, srv.Shutdown(ctx))
	})
	return srv, "http://" + addr + "/"
}

func launch(t *testing.T) *browser.RodBrowser {
	t.Helper()
	cfg := browser.DefaultRodConfig()
	cfg.Headless = true
	b, err := browser.Launch(cfg)
	require.NoError(t, err)
	return b
}

// TestSession_WindowsJoinMesh opens two session windows through the
// controller and waits until both joined the signaling server.
func TestSession_WindowsJoinMesh(t *testing.T) {
	srv, url := startSession(t)

	cfg := browser.DefaultConfig(url)
	cfg.Windows = 2
	cfg.Wait = 2 * time.Second

	c := browser.NewController(launch(t), cfg)
	defer func() {
		assert.NoError(t, c.Close())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	require.NoError(t, c.Start(ctx))
	assert.Equal(t, 3, c.Windows(), "internals plus two session windows")

	require.Eventually(t, func() bool { return srv.Clients() == 2 }, 30*time.Second, 250*time.Millisecond)
}

// TestSession_RelayAndCommands drives a session through the command loop,
// including relay mode.
func TestSession_RelayAndCommands(t *testing.T) {
	srv, url := startSession(t)

	cfg := browser.DefaultConfig(url)
	cfg.Windows = 1
	cfg.Wait = 2 * time.Second

	c := browser.NewController(launch(t), cfg)
	defer func() {
		assert.NoError(t, c.Close())
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	require.NoError(t, c.Start(ctx))
	require.NoError(t, c.Run(ctx, strings.NewReader("open\nrelay\nupdate\nquit\n")))

	assert.Equal(t, 3, c.Windows())
	require.Eventually(t, func() bool { return srv.Clients() == 2 }, 30*time.Second, 250*time.Millisecond)
}
