package cmds

import (
	"context"
	"fmt"
	"io"

	"github.com/go-go-golems/remoni/pkg/client"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func (a *app) client() (*client.Client, error) {
	return client.New(a.settings.ServerURL,
		client.WithChatPath(a.settings.ChatPath),
		client.WithTimeout(a.settings.RequestTimeout),
	)
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "encode yaml")
	}
	return enc.Close()
}

func newQueryCommand(a *app, use, short string, fetch func(context.Context, *client.Client) (any, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := a.client()
			if err != nil {
				return err
			}
			v, err := fetch(cmd.Context(), c)
			if err != nil {
				return errors.Wrapf(err, "query %s", use)
			}
			return writeYAML(cmd.OutOrStdout(), v)
		},
	}
}

func newStatusCommand(a *app) *cobra.Command {
	return newQueryCommand(a, "status", "Show whether the backend is connected to the Raspberry Pi",
		func(ctx context.Context, c *client.Client) (any, error) {
			return c.PiStatus(ctx)
		})
}

func newVitalsCommand(a *app) *cobra.Command {
	return newQueryCommand(a, "vitals", "Show the latest vitals reported by the Raspberry Pi",
		func(ctx context.Context, c *client.Client) (any, error) {
			return c.LatestVitals(ctx)
		})
}

func newAlertsCommand(a *app) *cobra.Command {
	cmd := newQueryCommand(a, "alerts", "List the most recent fall alerts",
		func(ctx context.Context, c *client.Client) (any, error) {
			return c.RecentAlerts(ctx)
		})
	cmd.Long = fmt.Sprintf("%s. The backend keeps the last 10.", cmd.Short)
	return cmd
}

func newConfigCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return writeYAML(cmd.OutOrStdout(), a.settings)
		},
	}
}
