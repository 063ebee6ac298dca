package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/eisen/pkg/app"
	"github.com/harrisonrobin/eisen/pkg/model"
	"github.com/harrisonrobin/eisen/pkg/orgmode"
	"github.com/harrisonrobin/eisen/pkg/taskwarrior"
)

type exportDoc struct {
	Active    []taskView `yaml:"active"`
	Completed []taskView `yaml:"completed"`
}

func newExportCmd(g *globalOptions) *cobra.Command {
	var format, output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the task document",
		Long: `Write the task document. The json format is the same snapshot the sync
remote holds; yaml is a readable listing of active and completed tasks.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
				var w io.Writer = cmd.OutOrStdout()
				if output != "" {
					f, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
					if err != nil {
						return fmt.Errorf("failed to create %s: %w", output, err)
					}
					defer f.Close()
					w = f
				}

				if format == "json" {
					snap, err := a.Store.Snapshot()
					if err != nil {
						return err
					}
					return encode(w, format, snap)
				}

				var doc exportDoc
				for _, t := range a.Store.Active() {
					doc.Active = append(doc.Active, viewOf(t))
				}
				for _, t := range a.Store.Completed() {
					doc.Completed = append(doc.Completed, completedViewOf(t))
				}
				return encode(w, format, doc)
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Output format: json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to a file instead of stdout")
	return cmd
}

func newImportCmd(g *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import open tasks from other tools",
	}
	cmd.AddCommand(newImportOrgCmd(g), newImportTaskwarriorCmd(g))
	return cmd
}

func importDrafts(cmd *cobra.Command, g *globalOptions, drafts []model.Draft) error {
	return g.withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
		n, err := a.Import(drafts)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d of %d task(s)\n", n, len(drafts))
		return nil
	})
}

func newImportOrgCmd(g *globalOptions) *cobra.Command {
	var tag string
	cmd := &cobra.Command{
		Use:   "org <file...>",
		Short: "Import TODO, NEXT and WAITING headlines from Org files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			drafts, err := orgmode.ParseFiles(args)
			if err != nil {
				return fmt.Errorf("failed to parse org files: %w", err)
			}
			if tag != "" {
				drafts = orgmode.FilterByTag(drafts, tag)
			}
			return importDrafts(cmd, g, drafts)
		},
	}
	cmd.Flags().StringVar(&tag, "tag", "", "Only import headlines carrying this tag")
	return cmd
}

func newImportTaskwarriorCmd(g *globalOptions) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "taskwarrior [filter...]",
		Short: "Import pending tasks from Taskwarrior",
		Long: `Import pending and waiting tasks. Without --file, runs
"task <filter> export"; with --file, reads that export ("-" for stdin).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			client := taskwarrior.NewClient()
			var (
				tasks []taskwarrior.Task
				err   error
			)
			switch file {
			case "":
				tasks, err = client.GetTasks(args)
			case "-":
				tasks, err = client.ParseTasks(cmd.InOrStdin())
			default:
				f, openErr := os.Open(file)
				if openErr != nil {
					return openErr
				}
				tasks, err = client.ParseTasks(f)
				f.Close()
			}
			if err != nil {
				return err
			}
			return importDrafts(cmd, g, taskwarrior.Drafts(tasks))
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "Read a JSON export instead of running task")
	return cmd
}
