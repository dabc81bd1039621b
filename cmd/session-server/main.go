// Session server
//
// Serves the session page and its signaling socket. Open the page in
// several browser windows (or let "rtcbench drive" do it) to build a full
// mesh of peer connections; press Relay to switch to relay mode.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pion/webrtc/v4"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/thesyncim/rtcbench/cmd/session-server/server"
	"github.com/thesyncim/rtcbench/pkg/environ"
)

func main() {
	cfg := server.DefaultConfig()
	var (
		logLevel string
		ice      []string
	)

	cmd := &cobra.Command{
		Use:          "session-server",
		Short:        "Serve a WebRTC mesh session page and its signaling socket",
		SilenceUsage: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			lvl, err := log.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			log.SetLevel(lvl)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg.ICEServers = nil
			for _, url := range ice {
				cfg.ICEServers = append(cfg.ICEServers, webrtc.ICEServer{URLs: []string{url}})
			}

			srv, err := server.NewServer(cfg)
			if err != nil {
				return err
			}
			if _, err := srv.Start(); err != nil {
				return err
			}

			<-cmd.Context().Done()

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(ctx)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfg.Addr, "addr", environ.GetString("RTCBENCH_LISTEN", ":8080"), "listen address")
	flags.StringVar(&cfg.CertFile, "cert", environ.GetString("RTCBENCH_TLS_CERT", ""), "TLS certificate file")
	flags.StringVar(&cfg.KeyFile, "key", environ.GetString("RTCBENCH_TLS_KEY", ""), "TLS key file")
	flags.StringSliceVar(&ice, "ice", []string{environ.GetString("RTCBENCH_ICE_SERVER", "stun:stun.l.google.com:19302")}, "ICE server URLs handed to the session page")
	flags.DurationVar(&cfg.Hub.InformationInterval, "info-interval", environ.GetDuration("RTCBENCH_INFO_INTERVAL", time.Second), "client information broadcast interval")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", environ.GetString("RTCBENCH_LOG_LEVEL", "info"), "log level")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}
