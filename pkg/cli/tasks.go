package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/harrisonrobin/eisen/pkg/app"
	"github.com/harrisonrobin/eisen/pkg/model"
	"github.com/harrisonrobin/eisen/pkg/quadrant"
)

func parseID(s string) (int, error) {
	id, err := strconv.Atoi(strings.TrimPrefix(s, "#"))
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return id, nil
}

// parseDueFlag accepts an absolute date or a duration from now such as 90m.
func parseDueFlag(s string, now time.Time) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	if d, err := time.ParseDuration(s); err == nil {
		due := now.Add(d)
		return &due, nil
	}
	due, err := model.ParseDue(s)
	if err != nil {
		return nil, err
	}
	return &due, nil
}

func newAddCmd(g *globalOptions) *cobra.Command {
	var (
		desc         string
		due          string
		notImportant bool
	)
	cmd := &cobra.Command{
		Use:   "add <title...>",
		Short: "Add a task",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
				dueAt, err := parseDueFlag(due, a.Clock.Now())
				if err != nil {
					return err
				}
				importance := model.Important
				if notImportant {
					importance = model.NotImportant
				}
				task, err := a.Store.AddTask(strings.Join(args, " "), desc, dueAt, importance)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Added #%d to %s (%s)\n", task.ID, quadrant.Name(task.Quadrant), task.Priority)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&desc, "desc", "d", "", "Description")
	cmd.Flags().StringVar(&due, "due", "", "Due date (2025-03-10T17:00, 2025-03-10) or offset (90m, 48h)")
	cmd.Flags().BoolVarP(&notImportant, "not-important", "n", false, "Mark the task not important")
	return cmd
}

func newListCmd(g *globalOptions) *cobra.Command {
	var (
		format    string
		quad      string
		completed bool
	)
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "Show the matrix",
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
				out := cmd.OutOrStdout()
				if completed {
					done := a.Store.Completed()
					if format != "text" {
						views := make([]taskView, 0, len(done))
						for _, t := range done {
							views = append(views, completedViewOf(t))
						}
						return encode(out, format, views)
					}
					for _, t := range done {
						fmt.Fprintf(out, "  #%-3d %s  completed %s\n", t.ID, t.Title, t.CompletedAt.Local().Format(dueLayout))
					}
					return nil
				}

				tasks := a.Store.Active()
				if quad != "" {
					q, ok := quadrant.Parse(quad)
					if !ok {
						return fmt.Errorf("unknown quadrant %q", quad)
					}
					filtered := tasks[:0]
					for _, t := range tasks {
						if t.Quadrant == q {
							filtered = append(filtered, t)
						}
					}
					tasks = filtered
				}
				if format != "text" {
					views := make([]taskView, 0, len(tasks))
					for _, t := range tasks {
						views = append(views, viewOf(t))
					}
					return encode(out, format, views)
				}
				printMatrix(out, tasks, a.Clock.Now())
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json or yaml")
	cmd.Flags().StringVarP(&quad, "quadrant", "q", "", "Only show one quadrant (do, schedule, delegate, eliminate or its id)")
	cmd.Flags().BoolVar(&completed, "completed", false, "Show completed tasks, newest first")
	return cmd
}

func newDoneCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "done <id>",
		Short: "Complete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return g.withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
				done, ok := a.Store.CompleteTask(id)
				if !ok {
					fmt.Fprintf(cmd.OutOrStdout(), "No active task #%d\n", id)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Completed #%d %s\n", done.ID, done.Title)
				return nil
			})
		},
	}
}

func newRmCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <id>",
		Short: "Delete an active task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return g.withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
				if !a.Store.DeleteTask(id) {
					fmt.Fprintf(cmd.OutOrStdout(), "No active task #%d\n", id)
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted #%d\n", id)
				return nil
			})
		},
	}
}

func newEditCmd(g *globalOptions) *cobra.Command {
	var title, desc string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a task's title or description",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return g.withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
				current, ok := a.Store.Get(id)
				if !ok {
					fmt.Fprintf(cmd.OutOrStdout(), "No active task #%d\n", id)
					return nil
				}
				if !cmd.Flags().Changed("title") {
					title = current.Title
				}
				if !cmd.Flags().Changed("desc") {
					desc = current.Description
				}
				task, changed := a.Store.EditTask(id, title, desc)
				if !changed {
					fmt.Fprintln(cmd.OutOrStdout(), "Title is empty, task left unchanged")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Updated #%d %s\n", task.ID, task.Title)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&title, "title", "t", "", "New title")
	cmd.Flags().StringVarP(&desc, "desc", "d", "", "New description")
	return cmd
}

func newMvCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "mv <id> <quadrant>",
		Short: "Move a task to another quadrant",
		Long: `Move a task by hand. The quadrant is one of urgent-important,
not-urgent-important, urgent-not-important, not-urgent-not-important or the
aliases do, schedule, delegate and eliminate.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			target, ok := quadrant.Parse(args[1])
			if !ok {
				target = model.Quadrant(args[1])
			}
			return g.withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
				task, moved, err := a.Store.MoveTask(id, target)
				if err != nil {
					return err
				}
				if !moved {
					fmt.Fprintln(cmd.OutOrStdout(), "Nothing to move")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Moved #%d to %s (%s)\n", task.ID, quadrant.Name(task.Quadrant), task.Priority)
				return nil
			})
		},
	}
}

func newRecalcCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "recalc",
		Short: "Reclassify every task against the current time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
				n := a.Store.RecalculateUrgency()
				fmt.Fprintf(cmd.OutOrStdout(), "Urgency recalculated, %d task(s) changed quadrant\n", n)
				return nil
			})
		},
	}
}

func newClearCmd(g *globalOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every active task",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
				if !yes {
					return fmt.Errorf("refusing to clear %d task(s) without --yes", len(a.Store.Active()))
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d task(s)\n", a.Store.ClearAll())
				return nil
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm")
	return cmd
}

func newStatsCmd(g *globalOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show completion statistics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
				st := a.Store.Stats()
				out := cmd.OutOrStdout()
				if format != "text" {
					return encode(out, format, st)
				}
				fmt.Fprintf(out, "Total %d  Active %d  Completed %d  (%d%%)\n", st.Total, st.Active, st.Completed, st.CompletionPercent)
				for _, q := range quadrant.All() {
					fmt.Fprintf(out, "  %-28s %d\n", quadrant.Name(q), st.Counts[q])
				}
				fmt.Fprintln(out, st.FocusText)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", "text", "Output format: text, json or yaml")
	return cmd
}

func newInsightsCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "insights",
		Short: "Show recent activity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
				for _, line := range a.Store.Insights().Render() {
					fmt.Fprintln(cmd.OutOrStdout(), line)
				}
				return nil
			})
		},
	}
}

func newAlertsCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "alerts",
		Short: "List tasks due within two hours or overdue by less than one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd, app.Options{}, func(ctx context.Context, a *app.App) error {
				due := a.Monitor.Scan()
				if len(due) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No imminent deadlines")
					return nil
				}
				printAlert(cmd.OutOrStdout(), due, a.Clock.Now())
				return nil
			})
		},
	}
}
