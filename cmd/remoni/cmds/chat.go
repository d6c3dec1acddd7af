package cmds

import (
	"os"

	"github.com/go-go-golems/remoni/pkg/chatrunner"
	"github.com/go-go-golems/remoni/pkg/logging"
	"github.com/mattn/go-isatty"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newChatCommand(a *app) *cobra.Command {
	var lines, tui bool
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the virtual nurse",
		Long: "Opens the chat window. Fall alerts pushed by the backend appear as nurse messages.\n" +
			"When stdout is not a terminal, each stdin line is sent as a message and replies are printed.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if lines && tui {
				return errors.New("--lines and --tui are mutually exclusive")
			}
			mode := chatrunner.ModeAuto
			switch {
			case lines:
				mode = chatrunner.ModeLines
			case tui:
				mode = chatrunner.ModeTUI
			}

			// the TUI owns the terminal, so logs go to a file
			interactive := mode == chatrunner.ModeTUI ||
				(mode == chatrunner.ModeAuto && isatty.IsTerminal(os.Stdout.Fd()))
			if interactive && a.settings.File == "" {
				ls := a.settings.Settings
				ls.File = logging.DefaultLogFile()
				if err := a.initLogger(ls); err != nil {
					return err
				}
			}

			log.Debug().
				Str("server_url", a.settings.ServerURL).
				Str("push_transport", a.settings.PushTransport).
				Bool("interactive", interactive).
				Msg("starting chat")

			session := chatrunner.NewChatSession(a.settings,
				chatrunner.WithMode(mode),
				chatrunner.WithInput(cmd.InOrStdin()),
				chatrunner.WithOutput(os.Stdout),
			)
			return session.Run(cmd.Context())
		},
	}
	cmd.Flags().BoolVar(&lines, "lines", false, "force line mode")
	cmd.Flags().BoolVar(&tui, "tui", false, "force the terminal UI")
	return cmd
}
