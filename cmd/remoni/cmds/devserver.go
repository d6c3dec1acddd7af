package cmds

import (
	"github.com/go-go-golems/remoni/pkg/devserver"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newDevserverCommand(a *app) *cobra.Command {
	var piURL string
	cmd := &cobra.Command{
		Use:   "devserver",
		Short: "Run a local stand-in for the nurse backend",
		Long: "Serves /chat with a keyword answerer, the /api status endpoints, and push\n" +
			"events on /ws (websocket) and /events (SSE). Inject events with\n" +
			"POST /api/fall_alerts, /api/vitals and /api/pi_status.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := log.With().Str("component", "devserver").Logger()
			hub := devserver.NewAlertHub(logger)
			defer func() { _ = hub.Close() }()

			srv := devserver.New(devserver.NewState(piURL), hub, devserver.WithLogger(logger))
			return srv.Run(cmd.Context(), a.settings.Devserver.Listen)
		},
	}
	cmd.Flags().String("listen", "127.0.0.1:5001", "listen address")
	cmd.Flags().StringVar(&piURL, "pi-url", "", "Raspberry Pi URL reported by /api/pi_status")
	cmd.PreRunE = func(cmd *cobra.Command, args []string) error {
		if f := cmd.Flags().Lookup("listen"); f.Changed {
			a.settings.Devserver.Listen = f.Value.String()
		}
		return nil
	}
	return cmd
}
