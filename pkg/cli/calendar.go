package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/eisen/pkg/app"
	"github.com/harrisonrobin/eisen/pkg/auth"
)

func newCalendarCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Mirror dated tasks into Google Calendar",
	}

	authCmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize access to Google Calendar",
		Long: `Run the browser authorization flow. Put the OAuth client file from the
Google Cloud console at credentials.json in the config directory first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
				dir, err := a.ConfigDir()
				if err != nil {
					return fmt.Errorf("could not find path to configuration file: %w", err)
				}
				if err := auth.NewGoogle(dir, a.Log, cmd.OutOrStdout()).Login(ctx); err != nil {
					return fmt.Errorf("authentication failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Authentication successful! Token saved to %s\n", filepath.Join(dir, auth.TokenFile))
				return nil
			})
		},
	}

	var calendarName string
	syncCmd := &cobra.Command{
		Use:   "sync",
		Short: "Create, update and remove events for active dated tasks",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
				if calendarName != "" {
					a.Config.Calendar = calendarName
				}
				res, err := a.MirrorCalendar(ctx, cmd.OutOrStdout())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Calendar %q: %d synced (%d changed), %d removed, %d failed\n",
					a.Config.Calendar, res.Synced, res.Changed, res.Deleted, res.Failed)
				return nil
			})
		},
	}
	syncCmd.Flags().StringVar(&calendarName, "calendar", "", "Calendar name (overrides config)")

	cmd.AddCommand(authCmd, syncCmd)
	return cmd
}
