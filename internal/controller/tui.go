package controller

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	m "mutafix.dev/pkg/mutafix/internal/model"
)

// TUI browses reports interactively; everything else is printed the same
// way SimpleUI prints it.
type TUI struct {
	*SimpleUI

	cmd *cobra.Command
}

var _ UI = (*TUI)(nil)

// NewTUI creates a new TUI.
func NewTUI(cmd *cobra.Command) *TUI {
	return &TUI{SimpleUI: NewSimpleUI(cmd), cmd: cmd}
}

// View opens the report viewer and blocks until the user quits.
func (t *TUI) View(ctx context.Context, report *m.Report) error {
	if len(report.Candidates) == 0 {
		return t.SimpleUI.View(ctx, report)
	}

	program := tea.NewProgram(
		newViewerModel(report),
		tea.WithContext(ctx),
		tea.WithInput(t.cmd.InOrStdin()),
		tea.WithOutput(t.cmd.OutOrStdout()),
		tea.WithAltScreen(),
	)

	if _, err := program.Run(); err != nil {
		return fmt.Errorf("report viewer: %w", err)
	}

	return nil
}

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Top      key.Binding
	Bottom   key.Binding
	Quit     key.Binding
}

var keys = keyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	PageUp:   key.NewBinding(key.WithKeys("pgup", "u"), key.WithHelp("u", "page up")),
	PageDown: key.NewBinding(key.WithKeys("pgdown", "d"), key.WithHelp("d", "page down")),
	Top:      key.NewBinding(key.WithKeys("home", "g"), key.WithHelp("g", "top")),
	Bottom:   key.NewBinding(key.WithKeys("end", "G"), key.WithHelp("G", "bottom")),
	Quit:     key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("0")).Background(lipgloss.Color("14"))
	labelStyle    = lipgloss.NewStyle().Faint(true)
	detailStyle   = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	helpStyle     = lipgloss.NewStyle().Faint(true)
)

const (
	// detailLines is the height of the bordered detail pane.
	detailLines = 9
	// chromeLines covers the title, the help line and the blank lines between panes.
	chromeLines = 4
)

// viewerModel lists the candidates of a report in a scrolling viewport and
// details the selected one below it.
type viewerModel struct {
	report   *m.Report
	cursor   int
	list     viewport.Model
	width    int
	ready    bool
	quitting bool
}

func newViewerModel(report *m.Report) viewerModel {
	vm := viewerModel{report: report, list: viewport.New(80, 10)}
	vm.list.SetContent(vm.renderList())

	return vm
}

func (vm viewerModel) Init() tea.Cmd {
	return nil
}

func (vm viewerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		vm.width = msg.Width
		vm.list.Width = msg.Width
		vm.list.Height = max(1, msg.Height-detailLines-chromeLines)
		vm.ready = true

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			vm.quitting = true
			return vm, tea.Quit
		case key.Matches(msg, keys.Up):
			vm.cursor--
		case key.Matches(msg, keys.Down):
			vm.cursor++
		case key.Matches(msg, keys.PageUp):
			vm.cursor -= vm.list.Height
		case key.Matches(msg, keys.PageDown):
			vm.cursor += vm.list.Height
		case key.Matches(msg, keys.Top):
			vm.cursor = 0
		case key.Matches(msg, keys.Bottom):
			vm.cursor = len(vm.report.Candidates) - 1
		default:
			return vm, nil
		}
	default:
		return vm, nil
	}

	vm.cursor = min(max(vm.cursor, 0), len(vm.report.Candidates)-1)
	vm.list.SetContent(vm.renderList())
	vm.follow()

	return vm, nil
}

// follow scrolls the list so the cursor stays visible.
func (vm *viewerModel) follow() {
	switch {
	case vm.cursor < vm.list.YOffset:
		vm.list.SetYOffset(vm.cursor)
	case vm.cursor >= vm.list.YOffset+vm.list.Height:
		vm.list.SetYOffset(vm.cursor - vm.list.Height + 1)
	}
}

func (vm viewerModel) renderList() string {
	lines := make([]string, len(vm.report.Candidates))

	for i, c := range vm.report.Candidates {
		line := fmt.Sprintf("%4d  %-40s %s", i+1, location(c), c.Name)
		if i == vm.cursor {
			line = selectedStyle.Render(line)
		}

		lines[i] = line
	}

	return strings.Join(lines, "\n")
}

func (vm viewerModel) renderDetail() string {
	c := vm.report.Candidates[vm.cursor]

	tests := "none recorded"
	if len(c.Tests) > 0 {
		tests = strings.Join(c.Tests, ", ")
	}

	rows := [][2]string{
		{"id", c.ID.String()},
		{"mutator", c.Name},
		{"change", c.Description},
		{"method", c.ID.Location()},
		{"block", strconv.Itoa(c.Block)},
		{"tests", tests},
		{"susp", strconv.FormatFloat(c.Susp, 'f', 4, 64)},
	}

	var b strings.Builder

	for i, r := range rows {
		if i > 0 {
			b.WriteByte('\n')
		}

		b.WriteString(labelStyle.Render(fmt.Sprintf("%-8s", r[0])))
		b.WriteString(r[1])
	}

	style := detailStyle
	if vm.width > 2 {
		style = style.Width(vm.width - 2)
	}

	return style.Render(b.String())
}

func (vm viewerModel) View() string {
	if vm.quitting {
		return ""
	}

	title := titleStyle.Render(fmt.Sprintf("mutafix report %s  %d candidates  [%d/%d]",
		vm.report.RunID, len(vm.report.Candidates), vm.cursor+1, len(vm.report.Candidates)))

	help := helpStyle.Render(strings.Join([]string{
		keys.Up.Help().Key + " " + keys.Up.Help().Desc,
		keys.Down.Help().Key + " " + keys.Down.Help().Desc,
		keys.PageDown.Help().Key + "/" + keys.PageUp.Help().Key + " page",
		keys.Top.Help().Key + "/" + keys.Bottom.Help().Key + " ends",
		keys.Quit.Help().Key + " " + keys.Quit.Help().Desc,
	}, "  •  "))

	return lipgloss.JoinVertical(lipgloss.Left, title, "", vm.list.View(), "", vm.renderDetail(), help)
}
