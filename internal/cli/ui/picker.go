// Package ui contains the terminal picker used for interactive file
// selection when fzf is not installed.
package ui

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"

	"github.com/ValentinKt/utils-toolkit/pkg/preview"
)

const listHeightMargin = 2 // header + footer

// Picker implements preview.Chooser with a bubbletea list.
type Picker struct {
	in  io.Reader
	out io.Writer
}

var _ preview.Chooser = (*Picker)(nil)

// NewPicker creates a picker reading keys from in and drawing on out.
// Nil arguments default to stdin and stderr so stdout stays free for the summary.
func NewPicker(in io.Reader, out io.Writer) *Picker {
	if in == nil {
		in = os.Stdin
	}
	if out == nil {
		out = os.Stderr
	}
	return &Picker{in: in, out: out}
}

// IsTerminal reports whether stdin and stderr are both attached to a terminal.
func IsTerminal() bool {
	return term.IsTerminal(int(os.Stdin.Fd())) && term.IsTerminal(int(os.Stderr.Fd()))
}

// Choose shows the candidates and returns the ones the user confirmed, in
// candidate order. Cancelling returns an empty selection.
func (p *Picker) Choose(ctx context.Context, candidates []string) ([]string, error) {
	m := NewModel(candidates)
	final, err := tea.NewProgram(m,
		tea.WithContext(ctx),
		tea.WithInput(p.in),
		tea.WithOutput(p.out),
	).Run()
	if err != nil {
		if ctx.Err() != nil || errors.Is(err, tea.ErrProgramKilled) {
			return nil, fmt.Errorf("picker interrupted: %w", err)
		}
		return nil, fmt.Errorf("picker failed: %w", err)
	}
	fm, ok := final.(*Model)
	if !ok {
		return nil, errors.New("picker returned an unexpected model")
	}
	return fm.Chosen(), nil
}

// Model is the picker state.
type Model struct {
	list       list.Model
	candidates []string
	selected   map[string]bool
	keys       keyMap
	width      int
	confirmed  bool
	cancelled  bool
}

type keyMap struct {
	toggle  key.Binding
	all     key.Binding
	confirm key.Binding
	cancel  key.Binding
}

func defaultKeyMap() keyMap {
	return keyMap{
		toggle:  key.NewBinding(key.WithKeys(" ", "space", "tab"), key.WithHelp("space", "toggle")),
		all:     key.NewBinding(key.WithKeys("ctrl+a"), key.WithHelp("ctrl+a", "toggle all")),
		confirm: key.NewBinding(key.WithKeys("enter"), key.WithHelp("enter", "confirm")),
		cancel:  key.NewBinding(key.WithKeys("esc", "ctrl+c", "q"), key.WithHelp("esc", "cancel")),
	}
}

// NewModel builds a picker over candidates with nothing selected.
func NewModel(candidates []string) *Model {
	selected := make(map[string]bool, len(candidates))
	items := make([]list.Item, len(candidates))
	for i, c := range candidates {
		items[i] = candidateItem{path: c, selected: selected}
	}

	delegate := list.NewDefaultDelegate()
	delegate.SetSpacing(0)
	delegate.ShowDescription = false
	delegate.Styles.SelectedTitle = delegate.Styles.SelectedTitle.
		Foreground(ColorSelectedFg).
		Background(ColorSelectedBg).
		Bold(true).
		Padding(0, 0, 0, 1)
	delegate.Styles.NormalTitle = delegate.Styles.NormalTitle.
		Foreground(ColorNormalFg).Padding(0, 0, 0, 1)

	l := list.New(items, delegate, 0, 0)
	l.SetShowHelp(false)
	l.SetShowStatusBar(false)
	l.SetShowTitle(false)
	l.SetFilteringEnabled(true)
	l.DisableQuitKeybindings()

	return &Model{
		list:       l,
		candidates: candidates,
		selected:   selected,
		keys:       defaultKeyMap(),
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd { return nil }

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		h := msg.Height - listHeightMargin
		if h < 1 {
			h = 1
		}
		m.list.SetSize(msg.Width, h)
		return m, nil

	case tea.KeyMsg:
		// While the filter input is focused every key belongs to it.
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch {
		case key.Matches(msg, m.keys.cancel):
			m.cancelled = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.confirm):
			if len(m.selected) == 0 {
				if it, ok := m.list.SelectedItem().(candidateItem); ok {
					m.selected[it.path] = true
				}
			}
			m.confirmed = true
			return m, tea.Quit
		case key.Matches(msg, m.keys.toggle):
			if it, ok := m.list.SelectedItem().(candidateItem); ok {
				m.toggle(it.path)
				m.list.CursorDown()
			}
			return m, nil
		case key.Matches(msg, m.keys.all):
			for _, it := range m.list.VisibleItems() {
				if c, ok := it.(candidateItem); ok {
					m.toggle(c.path)
				}
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m *Model) toggle(path string) {
	if m.selected[path] {
		delete(m.selected, path)
	} else {
		m.selected[path] = true
	}
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.confirmed || m.cancelled {
		return ""
	}
	header := HeaderStyle.Width(m.width).Render(fmt.Sprintf("Select CSV files (%d/%d selected)", len(m.selected), len(m.candidates)))
	footer := FooterStyle.Width(m.width).Render("space: toggle | ctrl+a: toggle all | /: filter | enter: confirm | esc: cancel")
	return lipgloss.JoinVertical(lipgloss.Left, header, m.list.View(), footer)
}

// Chosen returns the confirmed selection in candidate order. It is empty
// when the picker was cancelled.
func (m *Model) Chosen() []string {
	if !m.confirmed {
		return nil
	}
	var out []string
	for _, c := range m.candidates {
		if m.selected[c] {
			out = append(out, c)
		}
	}
	return out
}

type candidateItem struct {
	path     string
	selected map[string]bool
}

// FilterValue implements list.Item.
func (i candidateItem) FilterValue() string { return i.path }

// Title implements list.DefaultItem.
func (i candidateItem) Title() string {
	if i.selected[i.path] {
		return StatusStyleSelected.Render("[x]") + " " + i.path
	}
	return "[ ] " + i.path
}

// Description implements list.DefaultItem.
func (i candidateItem) Description() string { return "" }

// --- Styles ---

const (
	ColorHeaderFg = lipgloss.Color("252") // Light Gray
	ColorHeaderBg = lipgloss.Color("62")  // Purple

	ColorFooterFg = lipgloss.Color("252")
	ColorFooterBg = lipgloss.Color("56") // Dark Pink/Purple

	ColorNormalFg   = lipgloss.Color("250")
	ColorSelectedFg = lipgloss.Color("255")
	ColorSelectedBg = lipgloss.Color("56")

	ColorStatusSelected = lipgloss.Color("40") // Green
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorHeaderFg).
			Background(ColorHeaderBg).
			Padding(0, 1)

	FooterStyle = lipgloss.NewStyle().
			Foreground(ColorFooterFg).
			Background(ColorFooterBg).
			Padding(0, 1)

	StatusStyleSelected = lipgloss.NewStyle().Foreground(ColorStatusSelected)
)
