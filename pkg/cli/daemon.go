package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/harrisonrobin/eisen/pkg/app"
	"github.com/harrisonrobin/eisen/pkg/httpapi"
)

const shutdownTimeout = 10 * time.Second

// runDaemon starts the background loops and blocks until SIGINT or SIGTERM.
// extra shutdown operations run alongside stopping the loops.
func runDaemon(a *app.App, extra map[string]gfshutdown.Operation) error {
	ctx, cancel := context.WithCancel(context.Background())
	a.Start(ctx)

	ops := map[string]gfshutdown.Operation{
		"eisen": func(ctx context.Context) error {
			a.Log.Info("Graceful shutdown initiated...")
			cancel()
			a.Wait()
			return nil
		},
	}
	for name, op := range extra {
		ops[name] = op
	}

	exitCode := <-gfshutdown.GracefulShutdown(context.Background(), shutdownTimeout, ops)
	cancel()
	if exitCode != 0 {
		return fmt.Errorf("shutdown finished with exit code %d", exitCode)
	}
	return nil
}

func newServeCmd(g *globalOptions) *cobra.Command {
	var listen string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
				if listen == "" {
					listen = a.Config.Listen
				}
				if g.logLevel != "debug" {
					gin.SetMode(gin.ReleaseMode)
				}
				srv := &http.Server{
					Addr:              listen,
					Handler:           httpapi.NewRouter(httpapi.NewHandler(a), a.Log.Named("http")),
					ReadHeaderTimeout: 10 * time.Second,
				}
				go func() {
					a.Log.Info("listening", zap.String("addr", listen))
					if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
						a.Log.Fatal("http server failed", zap.Error(err))
					}
				}()
				fmt.Fprintf(cmd.OutOrStdout(), "Serving on http://%s\n", listen)
				return runDaemon(a, map[string]gfshutdown.Operation{
					"http": func(ctx context.Context) error {
						return srv.Shutdown(ctx)
					},
				})
			})
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "Listen address (overrides config)")
	return cmd
}
