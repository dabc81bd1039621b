// Package server provides the importable HTTP server of a session: the
// session page, its signaling socket and the ICE configuration. Tests and
// the e2e suite start and stop it without running main().
package server

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"emperror.dev/errors"
	"github.com/pion/webrtc/v4"
	log "github.com/sirupsen/logrus"

	"github.com/thesyncim/rtcbench/pkg/signaling"
)

// Config holds server configuration options.
type Config struct {
	Addr         string        // Listen address (e.g., ":8080" or ":0" for random port)
	ReadTimeout  time.Duration // HTTP read timeout
	WriteTimeout time.Duration // HTTP write timeout

	// ICEServers are handed to the session page at /config.
	ICEServers []webrtc.ICEServer

	// CertFile and KeyFile enable HTTPS when both are set. Browsers only
	// grant camera access to secure origins other than localhost.
	CertFile string
	KeyFile  string

	Hub signaling.HubConfig
}

// DefaultConfig returns a configuration suitable for testing.
// Uses ":0" to bind to a random available port.
func DefaultConfig() Config {
	return Config{
		Addr:         ":0",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		ICEServers: []webrtc.ICEServer{
			{URLs: []string{"stun:stun.l.google.com:19302"}},
		},
		Hub: signaling.DefaultHubConfig(),
	}
}

// Server serves one signaling session.
type Server struct {
	cfg        Config
	httpServer *http.Server
	hub        *signaling.Hub
	cancel     context.CancelFunc
	addr       string
	mu         sync.Mutex
	running    bool
}

// NewServer creates a new server with the given configuration.
// The server is not started until Start() is called.
func NewServer(cfg Config) (*Server, error) {
	if (cfg.CertFile == "") != (cfg.KeyFile == "") {
		return nil, errors.New("both a certificate and a key are needed for TLS")
	}

	hub := signaling.NewHub(cfg.Hub)

	mux := http.NewServeMux()
	mux.HandleFunc("/", HandleIndex)
	mux.HandleFunc("/config", HandleConfig(cfg.ICEServers))
	mux.Handle("/ws", hub)

	httpServer := &http.Server{
		Addr:         cfg.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	return &Server{
		cfg:        cfg,
		httpServer: httpServer,
		hub:        hub,
	}, nil
}

// TLS reports whether the server serves HTTPS.
func (s *Server) TLS() bool {
	return s.cfg.CertFile != ""
}

// Start begins listening and serving HTTP requests.
// Returns the actual address the server is listening on (useful when port is 0).
// This method is non-blocking - the server runs in a goroutine.
func (s *Server) Start() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return s.addr, nil
	}

	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return "", errors.Wrap(err, "failed to listen")
	}

	s.addr = ln.Addr().String()
	s.running = true

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	go s.hub.Run(ctx)

	go func() {
		var err error
		if s.TLS() {
			err = s.httpServer.ServeTLS(ln, s.cfg.CertFile, s.cfg.KeyFile)
		} else {
			err = s.httpServer.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Error("session server stopped")
		}
	}()

	log.WithFields(log.Fields{"addr": s.addr, "tls": s.TLS()}).Info("session server listening")
	return s.addr, nil
}

// Shutdown disconnects every client and gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	s.running = false
	s.cancel()
	s.hub.Close()
	return errors.WithStack(s.httpServer.Shutdown(ctx))
}

// Addr returns the address the server is listening on.
// Returns empty string if server is not running.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addr
}

// Clients returns the number of connected session pages.
func (s *Server) Clients() int {
	return s.hub.Clients()
}
