// Package cli is the eisen command line.
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/harrisonrobin/eisen/pkg/app"
	"github.com/harrisonrobin/eisen/pkg/config"
)

type globalOptions struct {
	configPath string
	logLevel   string
	jsonLogs   bool
}

// newLogger builds the process logger. Logs go to stderr so command output
// on stdout stays clean.
func newLogger(level string, jsonLogs bool) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	var cfg zap.Config
	if jsonLogs {
		cfg = zap.NewProductionConfig()
	} else {
		cfg = zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	return cfg.Build()
}

func (g *globalOptions) config() (*config.Config, error) {
	return config.Load(g.configPath)
}

func (g *globalOptions) logger() (*zap.Logger, error) {
	log, err := newLogger(g.logLevel, g.jsonLogs)
	if err != nil {
		return nil, err
	}
	zap.ReplaceGlobals(log)
	return log, nil
}

// withApp builds the app for one command, syncs once so the command sees
// the newest copy, and always closes it, which flushes any sync the command
// scheduled.
func (g *globalOptions) withApp(cmd *cobra.Command, opts app.Options, fn func(ctx context.Context, a *app.App) error) error {
	cfg, err := g.config()
	if err != nil {
		return err
	}
	log, err := g.logger()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := app.New(ctx, cfg, log, opts)
	if err != nil {
		return err
	}
	a.Pull(ctx)
	runErr := fn(ctx, a)
	if err := a.Close(ctx); err != nil && runErr == nil {
		runErr = fmt.Errorf("failed to close storage: %w", err)
	}
	return runErr
}

// NewRootCmd assembles the command tree.
func NewRootCmd(version string) *cobra.Command {
	g := &globalOptions{}
	root := &cobra.Command{
		Use:   "eisen",
		Short: "Eisenhower Matrix task organizer",
		Long: `eisen files tasks into the four Eisenhower quadrants by due date and
importance, alerts on imminent deadlines and keeps a snapshot in sync
with a GitHub repository or Redis.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&g.configPath, "config", "", "Config file (default ~/.config/eisen/config.json)")
	root.PersistentFlags().StringVar(&g.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	root.PersistentFlags().BoolVar(&g.jsonLogs, "json-logs", false, "Emit logs as JSON")

	root.AddCommand(
		newAddCmd(g),
		newListCmd(g),
		newDoneCmd(g),
		newRmCmd(g),
		newEditCmd(g),
		newMvCmd(g),
		newRecalcCmd(g),
		newClearCmd(g),
		newStatsCmd(g),
		newInsightsCmd(g),
		newAlertsCmd(g),
		newExportCmd(g),
		newImportCmd(g),
		newSyncCmd(g),
		newCalendarCmd(g),
		newWatchCmd(g),
		newServeCmd(g),
		newConfigCmd(g),
	)
	return root
}

// Execute runs the root command
func Execute(version string) error {
	if err := NewRootCmd(version).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return err
	}
	return nil
}
