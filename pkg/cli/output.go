package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/harrisonrobin/eisen/pkg/deadline"
	"github.com/harrisonrobin/eisen/pkg/model"
	"github.com/harrisonrobin/eisen/pkg/quadrant"
)

const dueLayout = "Mon Jan 2 15:04"

// taskView is the flat shape used for json and yaml output.
type taskView struct {
	ID          int              `json:"id" yaml:"id"`
	Title       string           `json:"title" yaml:"title"`
	Description string           `json:"description,omitempty" yaml:"description,omitempty"`
	Due         *time.Time       `json:"due,omitempty" yaml:"due,omitempty"`
	Importance  model.Importance `json:"importance" yaml:"importance"`
	Quadrant    model.Quadrant   `json:"quadrant" yaml:"quadrant"`
	Priority    model.Priority   `json:"priority" yaml:"priority"`
	CreatedAt   time.Time        `json:"createdAt" yaml:"created_at"`
	CompletedAt *time.Time       `json:"completedAt,omitempty" yaml:"completed_at,omitempty"`
}

func viewOf(t model.Task) taskView {
	return taskView{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Due:         t.Due(),
		Importance:  t.Importance,
		Quadrant:    t.Quadrant,
		Priority:    t.Priority,
		CreatedAt:   t.CreatedAt,
	}
}

func completedViewOf(t model.CompletedTask) taskView {
	v := viewOf(t.Task)
	at := t.CompletedAt
	v.CompletedAt = &at
	return v
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown format %q (want text, json or yaml)", format)
	}
}

func taskLine(t model.Task, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "  #%-3d %s  [%s]", t.ID, t.Title, t.Priority)
	if due := t.Due(); due != nil {
		fmt.Fprintf(&b, "  due %s", due.Local().Format(dueLayout))
		if due.Before(now) {
			b.WriteString("  OVERDUE")
		}
	}
	return b.String()
}

// printMatrix writes the active tasks grouped by quadrant in display order.
func printMatrix(w io.Writer, tasks []model.Task, now time.Time) {
	byQuadrant := make(map[model.Quadrant][]model.Task)
	for _, t := range tasks {
		byQuadrant[t.Quadrant] = append(byQuadrant[t.Quadrant], t)
	}
	for i, q := range quadrant.All() {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s (%d)\n", quadrant.Name(q), len(byQuadrant[q]))
		for _, t := range byQuadrant[q] {
			fmt.Fprintln(w, taskLine(t, now))
			if t.Description != "" {
				fmt.Fprintf(w, "        %s\n", t.Description)
			}
		}
	}
}

func printAlert(w io.Writer, tasks []model.Task, now time.Time) {
	fmt.Fprintf(w, "Deadline alert: %d task(s) need attention\n", len(tasks))
	for _, t := range tasks {
		fmt.Fprintf(w, "  #%-3d %s  %s\n", t.ID, t.Title, deadline.Describe(t, now))
	}
}
