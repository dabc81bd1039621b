package cmd

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/thesyncim/rtcbench/pkg/browser"
	"github.com/thesyncim/rtcbench/pkg/environ"
)

var (
	driveURL      string
	driveTemplate string
	driveWindows  int
	driveRelay    bool
	driveWait     = browser.DefaultConfig("").Wait
	driveRod      = browser.DefaultRodConfig()
)

// sessionURL substitutes host into template when it has a %s verb.
func sessionURL(template, host string) string {
	if !strings.Contains(template, "%s") {
		return template
	}
	return fmt.Sprintf(template, host)
}

var driveCmd = &cobra.Command{
	Use:   "drive",
	Short: "Open session windows in Chrome and record them in webrtc-internals",
	Long: `Launches Chrome with fake media devices, opens chrome://webrtc-internals in
the first window and the session page in the following ones. Commands are
then read from stdin, one per line:

  open    open one more session window
  relay   press Relay in the first session window
  update  reload webrtc-internals and expand every peer connection
  quit    close the browser and exit`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := browser.DefaultConfig(sessionURL(driveTemplate, driveURL))
		cfg.Windows = driveWindows
		cfg.Relay = driveRelay
		cfg.Wait = driveWait

		b, err := browser.Launch(driveRod)
		if err != nil {
			return err
		}
		c := browser.NewController(b, cfg)
		defer func() {
			log.Info("closing browser")
			if err := c.Close(); err != nil {
				log.WithError(err).Warn("failed to close browser")
			}
		}()

		ctx := cmd.Context()
		if err := c.Start(ctx); err != nil {
			return err
		}
		log.WithFields(log.Fields{"url": cfg.URL, "windows": c.Windows()}).Info("session open, reading commands")
		return c.Run(ctx, cmd.InOrStdin())
	},
}

func init() {
	rootCmd.AddCommand(driveCmd)

	driveCmd.Flags().StringVar(&driveURL, "url",
		environ.GetString("RTCBENCH_URL", ""),
		"Session host substituted into --url-template",
	)
	driveCmd.Flags().StringVar(&driveTemplate, "url-template",
		environ.GetString("RTCBENCH_URL_TEMPLATE", "https://%s.ngrok-free.app/"),
		"Session page URL; %s is replaced by --url",
	)
	driveCmd.Flags().IntVar(&driveWindows, "windows",
		environ.GetInt("RTCBENCH_WINDOWS", 0),
		"Session windows opened at start",
	)
	driveCmd.Flags().BoolVar(&driveRelay, "relay",
		environ.GetBool("RTCBENCH_RELAY", false),
		"Start relay mode once the initial windows are open",
	)
	driveCmd.Flags().DurationVar(&driveWait, "wait",
		environ.GetDuration("RTCBENCH_WAIT", driveWait),
		"Settle delay after every page action",
	)
	driveCmd.Flags().BoolVar(&driveRod.Headless, "headless",
		environ.GetBool("RTCBENCH_HEADLESS", false),
		"Run Chrome without a window",
	)
	driveCmd.Flags().StringVar(&driveRod.Bin, "chrome",
		environ.GetString("RTCBENCH_CHROME", ""),
		"Chrome binary; empty to find or download one",
	)
	driveCmd.Flags().DurationVar(&driveRod.Timeout, "timeout",
		environ.GetDuration("RTCBENCH_TIMEOUT", driveRod.Timeout),
		"Timeout of a single browser operation",
	)
}
