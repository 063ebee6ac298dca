package cli

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/harrisonrobin/eisen/pkg/app"
	"github.com/harrisonrobin/eisen/pkg/clock"
	"github.com/harrisonrobin/eisen/pkg/model"
	"github.com/harrisonrobin/eisen/pkg/presenter"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	alertStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9"))
	errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	mutedStyle = lipgloss.NewStyle().Faint(true)
)

// watchActions are the things a key press can do.
type watchActions interface {
	SnoozeAll() int
	Dismiss()
	RecalculateUrgency() int
}

type appActions struct {
	app *app.App
}

func (x appActions) SnoozeAll() int          { return x.app.Monitor.SnoozeAll() }
func (x appActions) Dismiss()                { x.app.Monitor.Dismiss() }
func (x appActions) RecalculateUrgency() int { return x.app.Store.RecalculateUrgency() }

type alertMsg struct{ tasks []model.Task }

type alertClearedMsg struct{}

type noteMsg struct {
	text     string
	severity presenter.Severity
}

type syncMsg struct{ state string }

type statsMsg struct{ active int }

type watchModel struct {
	actions watchActions
	clock   clock.Clock
	active  int
	alert   []model.Task
	note    noteMsg
	sync    string
}

func newWatchModel(actions watchActions, clk clock.Clock, active int) watchModel {
	return watchModel{actions: actions, clock: clk, active: active, sync: "offline"}
}

func (m watchModel) Init() tea.Cmd {
	return nil
}

func (m watchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch typed := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(typed)
	case alertMsg:
		m.alert = typed.tasks
	case alertClearedMsg:
		m.alert = nil
	case noteMsg:
		m.note = typed
	case syncMsg:
		m.sync = typed.state
	case statsMsg:
		m.active = typed.active
	}
	return m, nil
}

// handleKey never calls into the app directly: those calls report back
// through the presenter, which sends to this same program.
func (m watchModel) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch key.String() {
	case "ctrl+c", "q":
		return m, tea.Quit
	case "s":
		if len(m.alert) == 0 {
			return m, nil
		}
		return m, func() tea.Msg {
			m.actions.SnoozeAll()
			return nil
		}
	case "d":
		if len(m.alert) == 0 {
			return m, nil
		}
		return m, func() tea.Msg {
			m.actions.Dismiss()
			return nil
		}
	case "r":
		return m, func() tea.Msg {
			n := m.actions.RecalculateUrgency()
			return noteMsg{text: fmt.Sprintf("Urgency recalculated, %d task(s) changed", n), severity: presenter.Info}
		}
	}
	return m, nil
}

func (m watchModel) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Watching %d active task(s)", m.active)))
	b.WriteString(mutedStyle.Render(" | sync: " + m.sync))
	b.WriteString("\n")

	if len(m.alert) > 0 {
		var body strings.Builder
		printAlert(&body, m.alert, m.clock.Now())
		b.WriteString(alertStyle.Render(strings.TrimRight(body.String(), "\n")))
		b.WriteString("\n")
	}

	if m.note.text != "" {
		line := fmt.Sprintf("[%s] %s", m.note.severity, m.note.text)
		if m.note.severity == presenter.Error {
			line = errorStyle.Render(line)
		}
		b.WriteString(line + "\n")
	}

	keys := "[r] recalculate  [q] quit"
	if len(m.alert) > 0 {
		keys = "[s] snooze  [d] dismiss  " + keys
	}
	b.WriteString(mutedStyle.Render(keys))
	b.WriteString("\n")
	return b.String()
}

// teaPresenter forwards callbacks to a running program. Messages are dropped
// while no program is attached.
type teaPresenter struct {
	presenter.Nop
	mu sync.Mutex
	p  *tea.Program
}

func (t *teaPresenter) attach(p *tea.Program) {
	t.mu.Lock()
	t.p = p
	t.mu.Unlock()
}

func (t *teaPresenter) send(msg tea.Msg) {
	t.mu.Lock()
	p := t.p
	t.mu.Unlock()
	if p != nil {
		p.Send(msg)
	}
}

func (t *teaPresenter) Notify(message string, severity presenter.Severity) {
	t.send(noteMsg{text: message, severity: severity})
}

func (t *teaPresenter) DeadlineAlert(tasks []model.Task) {
	t.send(alertMsg{tasks: tasks})
}

func (t *teaPresenter) DeadlineCleared() {
	t.send(alertClearedMsg{})
}

func (t *teaPresenter) SyncStatus(state string) {
	t.send(syncMsg{state: state})
}

func (t *teaPresenter) StatsChanged(stats model.Stats) {
	t.send(statsMsg{active: stats.Active})
}

func newWatchCmd(g *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Stay in the foreground, alerting on deadlines and syncing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ui := &teaPresenter{}
			return g.withApp(cmd, app.Options{Presenter: ui}, func(ctx context.Context, a *app.App) error {
				ctx, cancel := context.WithCancel(ctx)
				defer cancel()

				p := tea.NewProgram(
					newWatchModel(appActions{app: a}, a.Clock, len(a.Store.Active())),
					tea.WithContext(ctx),
					tea.WithInput(cmd.InOrStdin()),
					tea.WithOutput(cmd.OutOrStdout()),
				)
				ui.attach(p)
				a.Start(ctx)

				_, err := p.Run()
				ui.attach(nil)
				cancel()
				a.Wait()
				if err != nil && !errors.Is(err, tea.ErrInterrupted) {
					return fmt.Errorf("watch: %w", err)
				}
				return nil
			})
		},
	}
}
