package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/eisen/pkg/app"
)

const tokenEnv = "EISEN_GITHUB_TOKEN"

func printSyncStatus(w io.Writer, a *app.App) error {
	if !a.Agent.Enabled() {
		fmt.Fprintln(w, "Sync: offline (set sync.owner and sync.repo and run `eisen sync login`, or configure sync.redis_addr)")
		return nil
	}
	meta, err := a.Gateway.Meta()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "Sync: %s via %s\n", a.Agent.State(), a.Config.Sync.Backend)
	if meta.LastSyncTime != nil {
		fmt.Fprintf(w, "Last sync: %s\n", meta.LastSyncTime.Local().Format(time.RFC1123))
	} else {
		fmt.Fprintln(w, "Last sync: never")
	}
	if err := a.Agent.LastError(); err != nil {
		fmt.Fprintf(w, "Last error: %v\n", err)
	}
	return nil
}

func runSync(cmd *cobra.Command, g *globalOptions) error {
	return g.withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
		if err := a.Agent.SyncData(ctx); err != nil {
			return fmt.Errorf("sync failed: %w", err)
		}
		return printSyncStatus(cmd.OutOrStdout(), a)
	})
}

func readToken(cmd *cobra.Command, flagValue string) (string, error) {
	if flagValue != "" {
		return flagValue, nil
	}
	if tok := os.Getenv(tokenEnv); tok != "" {
		return tok, nil
	}
	fmt.Fprint(cmd.ErrOrStderr(), "GitHub personal access token: ")
	line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func newSyncCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Reconcile with the remote copy now",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSync(cmd, g)
		},
	}

	var token string
	login := &cobra.Command{
		Use:   "login",
		Short: "Store a GitHub token and sync",
		Long: fmt.Sprintf(`Store a GitHub personal access token with repo scope. The token is
taken from --token, then $%s, then prompted for.`, tokenEnv),
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tok, err := readToken(cmd, token)
			if err != nil {
				return err
			}
			err = g.withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
				return a.Credentials.Save(tok)
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "GitHub sync configured successfully!")
			return runSync(cmd, g)
		},
	}
	login.Flags().StringVar(&token, "token", "", "Personal access token")

	logout := &cobra.Command{
		Use:   "logout",
		Short: "Forget the GitHub token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
				if err := a.Credentials.Clear(); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "GitHub token removed")
				return nil
			})
		},
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show sync state without syncing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
				return printSyncStatus(cmd.OutOrStdout(), a)
			})
		},
	}

	cmd.AddCommand(login, logout, status)
	return cmd
}
