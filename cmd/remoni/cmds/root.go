package cmds

import (
	"github.com/go-go-golems/remoni/pkg/config"
	"github.com/go-go-golems/remoni/pkg/logging"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries the settings resolved in the root pre-run.
type app struct {
	viper    *viper.Viper
	settings *config.Settings
	closeLog func() error
}

func NewRootCommand() *cobra.Command {
	a := &app{}
	rootCmd := &cobra.Command{
		Use:           "remoni",
		Short:         "remoni is a terminal client for the REMONI virtual nurse",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.closeLog != nil {
				return a.closeLog()
			}
			return nil
		},
	}
	config.AddFlags(rootCmd.PersistentFlags())

	rootCmd.AddCommand(
		newChatCommand(a),
		newDevserverCommand(a),
		newStatusCommand(a),
		newVitalsCommand(a),
		newAlertsCommand(a),
		newConfigCommand(a),
	)
	return rootCmd
}

func (a *app) init(cmd *cobra.Command) error {
	if err := config.LoadDotEnv(); err != nil {
		return err
	}
	v, err := config.New(cmd.Flags())
	if err != nil {
		return err
	}
	configFile, err := cmd.Flags().GetString("config")
	if err != nil {
		return errors.Wrap(err, "read --config")
	}
	s, err := config.Load(v, configFile)
	if err != nil {
		return err
	}
	a.viper = v
	a.settings = s
	return a.initLogger(s.Settings)
}

func (a *app) initLogger(s logging.Settings) error {
	if a.closeLog != nil {
		_ = a.closeLog()
	}
	closeLog, err := logging.InitLogger(s)
	if err != nil {
		return err
	}
	a.closeLog = closeLog
	return nil
}
